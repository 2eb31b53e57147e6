package queryir

import "github.com/roach88/tally/internal/value"

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter condition.
type Predicate interface {
	predicateNode()
}

// OrderKey is one ORDER BY column.
type OrderKey struct {
	Field      string
	Descending bool
}

// Select reads one page of rows.
//
//	SELECT <columns> FROM <from> WHERE <filter>
//	ORDER BY <order>, id LIMIT <limit> OFFSET <offset>
type Select struct {
	From    string
	Columns []string  // empty selects every column
	Filter  Predicate // nil = no filter
	Order   []OrderKey
	Limit   int // 0 = unlimited
	Offset  int
}

func (Select) queryNode() {}

// Count counts the rows matching a filter.
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// CountOf returns the Count matching a Select's filter.
func CountOf(s Select) Count {
	return Count{From: s.From, Filter: s.Filter}
}

// Equals matches field = value.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// Operator is a comparison operator for Compare.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Compare matches field <op> value.
type Compare struct {
	Field string
	Op    Operator
	Value value.Value
}

func (Compare) predicateNode() {}

// Contains matches rows whose field contains Term as a substring.
// Term is matched literally; backends escape wildcard characters.
type Contains struct {
	Field string
	Term  string
}

func (Contains) predicateNode() {}

// Between matches From <= field <= To. A nil bound is open.
type Between struct {
	Field string
	From  value.Value
	To    value.Value
}

func (Between) predicateNode() {}

// And is a conjunction. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Conj builds an And from the non-nil predicates, unwrapping a single one.
func Conj(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
