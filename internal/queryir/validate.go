package queryir

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/tally/internal/value"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be used as a table or column name.
func IsIdentifier(s string) bool {
	return identifier.MatchString(s)
}

// Validate checks that every identifier is safe and every node is well
// formed. All problems are reported together.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) ident(kind, s string) {
	if !IsIdentifier(s) {
		v.addf("invalid %s name %q", kind, s)
	}
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case nil:
		v.addf("nil query")
	case Select:
		v.ident("table", query.From)
		for _, c := range query.Columns {
			v.ident("column", c)
		}
		for _, o := range query.Order {
			v.ident("order column", o.Field)
		}
		if query.Limit < 0 {
			v.addf("negative limit %d", query.Limit)
		}
		if query.Offset < 0 {
			v.addf("negative offset %d", query.Offset)
		}
		v.predicate(query.Filter)
	case Count:
		v.ident("table", query.From)
		v.predicate(query.Filter)
	default:
		v.addf("unknown query type %T", q)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.ident("column", pred.Field)
		v.literal(pred.Field, pred.Value)
	case Compare:
		v.ident("column", pred.Field)
		if !pred.Op.Valid() {
			v.addf("column %s: unknown operator %q", pred.Field, pred.Op)
		}
		v.literal(pred.Field, pred.Value)
	case Contains:
		v.ident("column", pred.Field)
	case Between:
		v.ident("column", pred.Field)
		if pred.From == nil && pred.To == nil {
			v.addf("column %s: between needs at least one bound", pred.Field)
		}
		if pred.From != nil {
			v.literal(pred.Field, pred.From)
		}
		if pred.To != nil {
			v.literal(pred.Field, pred.To)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	default:
		v.addf("unknown predicate type %T", p)
	}
}

func (v *validator) literal(field string, val value.Value) {
	switch val.(type) {
	case value.String, value.Int, value.Bool:
	case nil, value.Null:
		v.addf("column %s: compared to null", field)
	default:
		v.addf("column %s: %T cannot be compared", field, val)
	}
}
