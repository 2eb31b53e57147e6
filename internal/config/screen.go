package config

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/paging"
	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/value"
)

// Screen is one compiled screen definition.
type Screen struct {
	Name             string
	Title            string
	Table            string
	PageSize         int
	PrefetchDistance int
	SectionBy        string
	ReferenceField   string
	Required         []string
	DefaultSort      filter.Sort
	Toggles          map[string]queryir.ToggleRule
}

// CompileScreen reads a screen value that has already been unified with
// #Screen.
func CompileScreen(name string, v cue.Value) (*Screen, error) {
	field := "screen." + name
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, ErrCodeSchema)
	}

	s := &Screen{Name: name, Table: name, Toggles: map[string]queryir.ToggleRule{}}
	var err error
	if s.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}
	if s.Title == "" {
		s.Title = name
	}
	if table, err := optionalString(v, "table"); err != nil {
		return nil, err
	} else if table != "" {
		s.Table = table
	}
	if s.PageSize, err = intField(v, "page_size"); err != nil {
		return nil, err
	}
	if s.PageSize > paging.MaxPageSize {
		return nil, &Error{
			Code:    ErrCodeSchema,
			Field:   field + ".page_size",
			Message: fmt.Sprintf("page_size %d exceeds %d", s.PageSize, paging.MaxPageSize),
			Pos:     v.Pos(),
		}
	}
	if s.PrefetchDistance, err = intField(v, "prefetch_distance"); err != nil {
		return nil, err
	}
	if s.SectionBy, err = optionalString(v, "section_by"); err != nil {
		return nil, err
	}
	if s.ReferenceField, err = optionalString(v, "reference_field"); err != nil {
		return nil, err
	}

	required, _ := v.LookupPath(cue.ParsePath("required")).Default()
	if err := required.Decode(&s.Required); err != nil {
		return nil, formatCUEError(err, ErrCodeSchema)
	}

	if sortVal := v.LookupPath(cue.ParsePath("default_sort")); sortVal.Exists() {
		if s.DefaultSort.Field, err = optionalString(sortVal, "field"); err != nil {
			return nil, err
		}
		desc, _ := sortVal.LookupPath(cue.ParsePath("descending")).Default()
		if s.DefaultSort.Descending, err = desc.Bool(); err != nil {
			return nil, formatCUEError(err, ErrCodeSchema)
		}
	}

	iter, err := v.LookupPath(cue.ParsePath("toggles")).Fields()
	if err != nil {
		return nil, formatCUEError(err, ErrCodeSchema)
	}
	for iter.Next() {
		rule, err := compileToggle(iter.Value())
		if err != nil {
			return nil, err
		}
		s.Toggles[iter.Label()] = rule
	}

	for _, col := range s.columns() {
		if !queryir.IsIdentifier(col) {
			return nil, &Error{
				Code:    ErrCodeSchema,
				Field:   field,
				Message: fmt.Sprintf("invalid column name %q", col),
				Pos:     v.Pos(),
			}
		}
	}
	return s, nil
}

func compileToggle(v cue.Value) (queryir.ToggleRule, error) {
	column, err := optionalString(v, "column")
	if err != nil {
		return queryir.ToggleRule{}, err
	}
	op, err := optionalString(v, "op")
	if err != nil {
		return queryir.ToggleRule{}, err
	}
	rule := queryir.ToggleRule{Column: column, Op: queryir.Operator(op)}
	if rule.On, err = literal(v, "on"); err != nil {
		return queryir.ToggleRule{}, err
	}
	if rule.Off, err = literal(v, "off"); err != nil {
		return queryir.ToggleRule{}, err
	}
	if rule.On == nil && rule.Off == nil {
		return queryir.ToggleRule{}, &Error{
			Code:    ErrCodeToggle,
			Field:   "toggles",
			Message: fmt.Sprintf("toggle on column %q needs on or off", column),
			Pos:     v.Pos(),
		}
	}
	return rule, nil
}

// columns lists every column the screen names.
func (s *Screen) columns() []string {
	var cols []string
	for _, c := range []string{s.SectionBy, s.ReferenceField, s.DefaultSort.Field} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	cols = append(cols, s.Required...)
	for _, r := range s.Toggles {
		cols = append(cols, r.Column)
	}
	return cols
}

// Layout returns base with the screen's toggles and default order.
func (s Screen) Layout(base queryir.Layout) queryir.Layout {
	base.Toggles = s.Toggles
	if s.DefaultSort.Field != "" {
		base.DefaultOrder = []queryir.OrderKey{{Field: s.DefaultSort.Field, Descending: s.DefaultSort.Descending}}
	}
	return base
}

// Filter returns the context the screen opens with.
func (s Screen) Filter() filter.Context {
	return filter.Context{TableType: s.Table}
}

// Options returns the controller options the screen implies. refs may
// be nil, in which case the reference field is ignored.
func (s Screen) Options(refs collection.ReferenceLookup) []collection.Option {
	opts := []collection.Option{
		collection.WithPageSize(s.PageSize),
		collection.WithPrefetchDistance(s.PrefetchDistance),
	}
	if len(s.Required) > 0 {
		opts = append(opts, collection.WithRequired(s.Required...))
	}
	if s.SectionBy != "" {
		opts = append(opts, collection.WithSections(s.SectionBy))
	}
	if refs != nil && s.ReferenceField != "" {
		opts = append(opts, collection.WithReferences(refs, s.ReferenceField))
	}
	return opts
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	f, _ = f.Default()
	str, err := f.String()
	if err != nil {
		return "", formatCUEError(err, ErrCodeSchema)
	}
	return str, nil
}

func intField(v cue.Value, path string) (int, error) {
	f, _ := v.LookupPath(cue.ParsePath(path)).Default()
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err, ErrCodeSchema)
	}
	return int(n), nil
}

// literal reads a toggle bound. Floats never reach here; the schema
// only admits bool, int and string.
func literal(v cue.Value, path string) (value.Value, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	f, _ = f.Default()
	switch f.Kind() {
	case cue.BoolKind:
		b, err := f.Bool()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeToggle)
		}
		return value.Bool(b), nil
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeToggle)
		}
		return value.Int(n), nil
	case cue.StringKind:
		str, err := f.String()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeToggle)
		}
		return value.String(str), nil
	default:
		return nil, &Error{
			Code:    ErrCodeToggle,
			Field:   path,
			Message: fmt.Sprintf("unsupported kind %v", f.Kind()),
			Pos:     f.Pos(),
		}
	}
}
