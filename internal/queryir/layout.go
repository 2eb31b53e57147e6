package queryir

import (
	"fmt"
	"slices"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/value"
)

// ToggleRule maps a named boolean filter to a comparison. On applies
// while the toggle is set and Off while it is not; a nil side adds no
// condition.
type ToggleRule struct {
	Column string
	Op     Operator // empty means OpEq
	On     value.Value
	Off    value.Value
}

// Layout describes how one table type's filter context maps to columns.
type Layout struct {
	Table             string
	TypeColumn        string
	SearchColumn      string
	PeriodColumn      string
	MarketplaceColumn string
	Toggles           map[string]ToggleRule
	DefaultOrder      []OrderKey

	// Sortable lists the columns a context may sort by. Empty allows any
	// identifier.
	Sortable []string
}

// Page compiles fc into the query for the page at offset.
func (l Layout) Page(fc filter.Context, offset, limit int) (Select, error) {
	where, err := l.Filter(fc)
	if err != nil {
		return Select{}, err
	}
	order, err := l.order(fc.Sort)
	if err != nil {
		return Select{}, err
	}
	sel := Select{
		From:   l.Table,
		Filter: where,
		Order:  order,
		Limit:  limit,
		Offset: offset,
	}
	if err := Validate(sel); err != nil {
		return Select{}, fmt.Errorf("table type %q: %w", fc.TableType, err)
	}
	return sel, nil
}

// Filter compiles the WHERE part of fc.
func (l Layout) Filter(fc filter.Context) (Predicate, error) {
	var preds []Predicate
	if l.TypeColumn != "" && fc.TableType != "" {
		preds = append(preds, Equals{Field: l.TypeColumn, Value: value.String(fc.TableType)})
	}
	if term := fc.SearchTerm(); term != "" && l.SearchColumn != "" {
		preds = append(preds, Contains{Field: l.SearchColumn, Term: term})
	}
	if !fc.Period.IsZero() && l.PeriodColumn != "" {
		b := Between{Field: l.PeriodColumn}
		if fc.Period.From != "" {
			b.From = value.String(fc.Period.From)
		}
		if fc.Period.To != "" {
			b.To = value.String(fc.Period.To)
		}
		preds = append(preds, b)
	}
	if fc.Marketplace != "" && l.MarketplaceColumn != "" {
		preds = append(preds, Equals{Field: l.MarketplaceColumn, Value: value.String(fc.Marketplace)})
	}

	for _, name := range fc.ActiveToggles() {
		if _, ok := l.Toggles[name]; !ok {
			return nil, fmt.Errorf("table type %q has no toggle %q", fc.TableType, name)
		}
	}
	names := make([]string, 0, len(l.Toggles))
	for name := range l.Toggles {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		rule := l.Toggles[name]
		v := rule.Off
		if fc.Toggle(name) {
			v = rule.On
		}
		if v == nil {
			continue
		}
		op := rule.Op
		if op == "" {
			op = OpEq
		}
		preds = append(preds, Compare{Field: rule.Column, Op: op, Value: v})
	}
	return Conj(preds...), nil
}

func (l Layout) order(s filter.Sort) ([]OrderKey, error) {
	if s.Field == "" {
		return slices.Clone(l.DefaultOrder), nil
	}
	if len(l.Sortable) > 0 && !slices.Contains(l.Sortable, s.Field) {
		return nil, fmt.Errorf("column %q is not sortable", s.Field)
	}
	return []OrderKey{{Field: s.Field, Descending: s.Descending}}, nil
}
