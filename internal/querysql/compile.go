// Package querysql compiles queryir queries to parameterised SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/value"
)

// SQLCompiler compiles queryir to parameterized SQL for SQLite.
//
// CRITICAL: every Select ends its ORDER BY with the id tie-breaker, so the
// same context always pages through rows in the same order.
// CRITICAL: values are always parameters, never interpolated.
type SQLCompiler struct {
	// IDColumn is the stable tie-breaker. Default "id".
	IDColumn string
}

// NewSQLCompiler creates a compiler with the default id column.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{IDColumn: "id"}
}

// Compile converts a query to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case queryir.Count:
		return c.compileCount(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}

	where, params, err := c.where(q.Filter)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s ORDER BY %s", cols, q.From, where, c.orderBy(q.Order))
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, int64(q.Limit))
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			params = append(params, int64(q.Offset))
		}
	} else if q.Offset > 0 {
		sb.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, int64(q.Offset))
	}
	return sb.String(), params, nil
}

func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	where, params, err := c.where(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.From, where), params, nil
}

func (c *SQLCompiler) where(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// orderBy appends the id tie-breaker unless the caller already orders by id.
// COLLATE BINARY keeps text ordering identical across SQLite versions.
func (c *SQLCompiler) orderBy(keys []queryir.OrderKey) string {
	id := c.IDColumn
	if id == "" {
		id = "id"
	}
	var parts []string
	hasID := false
	for _, k := range keys {
		dir := "ASC"
		if k.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", k.Field, dir))
		if k.Field == id {
			hasID = true
		}
	}
	if !hasID {
		parts = append(parts, id+" ASC COLLATE BINARY")
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileCompare(pred.Field, queryir.OpEq, pred.Value)
	case queryir.Compare:
		return c.compileCompare(pred.Field, pred.Op, pred.Value)
	case queryir.Contains:
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, pred.Field), []any{"%" + escapeLike(pred.Term) + "%"}, nil
	case queryir.Between:
		return c.compileBetween(pred)
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileCompare(field string, op queryir.Operator, v value.Value) (string, []any, error) {
	param, err := valueToParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

func (c *SQLCompiler) compileBetween(b queryir.Between) (string, []any, error) {
	var parts []string
	var params []any
	if b.From != nil {
		p, err := valueToParam(b.From)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", b.Field, err)
		}
		parts = append(parts, b.Field+" >= ?")
		params = append(params, p)
	}
	if b.To != nil {
		p, err := valueToParam(b.To)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", b.Field, err)
		}
		parts = append(parts, b.Field+" <= ?")
		params = append(params, p)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// valueToParam converts a value to a driver parameter. Booleans are
// stored as 0/1 integers.
func valueToParam(v value.Value) (any, error) {
	switch val := v.(type) {
	case value.String:
		return string(val), nil
	case value.Int:
		return int64(val), nil
	case value.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("%T cannot be used as SQL parameter", v)
	}
}
