// Package filter holds the filter/sort/table-type selection of a screen.
//
// A Context is an immutable snapshot. Every With method and Partial.Apply
// returns a new Context; the maps inside are copied, never shared. Two
// contexts are the same selection exactly when their Keys are equal.
package filter

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tally/internal/value"
)

// Period is an inclusive date range in YYYY-MM-DD form.
// Empty bounds are open.
type Period struct {
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
}

// IsZero reports whether the period is unbounded on both sides.
func (p Period) IsZero() bool {
	return p.From == "" && p.To == ""
}

// Sort selects the ordering column.
type Sort struct {
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
}

// Context is the full filter state a page request is made under.
type Context struct {
	TableType   string
	SearchText  string
	Toggles     map[string]bool
	Period      Period
	Marketplace string
	Sort        Sort
}

// NormalizeSearch trims, NFC-normalises and case-folds search text.
// The store indexes names through the same function.
// Casers are stateful, so each call builds its own.
func NormalizeSearch(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// SearchTerm returns the normalised search text.
func (c Context) SearchTerm() string {
	return NormalizeSearch(c.SearchText)
}

// Toggle reports whether a named toggle is on.
func (c Context) Toggle(name string) bool {
	return c.Toggles[name]
}

// ActiveToggles returns the names of toggles that are on, sorted.
func (c Context) ActiveToggles() []string {
	var on []string
	for name, enabled := range c.Toggles {
		if enabled {
			on = append(on, name)
		}
	}
	slices.Sort(on)
	return on
}

// Object renders the context as a canonical value.
// Off toggles are omitted so {"a": false} and {} describe the same filter.
func (c Context) Object() value.Object {
	toggles := value.Array{}
	for _, name := range c.ActiveToggles() {
		toggles = append(toggles, value.String(name))
	}
	return value.Object{
		"table_type":  value.String(c.TableType),
		"search":      value.String(c.SearchTerm()),
		"toggles":     toggles,
		"period_from": value.String(c.Period.From),
		"period_to":   value.String(c.Period.To),
		"marketplace": value.String(c.Marketplace),
		"sort_field":  value.String(c.Sort.Field),
		"sort_desc":   value.Bool(c.Sort.Descending),
	}
}

// Key identifies the selection. Equal contexts have equal keys.
func (c Context) Key() string {
	return value.MustHash(value.DomainFilter, c.Object())
}

// Equal reports whether two contexts select the same records.
func (c Context) Equal(other Context) bool {
	return value.Equal(c.Object(), other.Object())
}

// Clone returns a copy that shares no maps with c.
func (c Context) Clone() Context {
	out := c
	out.Toggles = maps.Clone(c.Toggles)
	return out
}

// WithTableType returns a copy with a new table type.
func (c Context) WithTableType(t string) Context {
	out := c.Clone()
	out.TableType = t
	return out
}

// WithSearch returns a copy with new search text.
func (c Context) WithSearch(s string) Context {
	out := c.Clone()
	out.SearchText = s
	return out
}

// WithToggle returns a copy with one toggle set.
func (c Context) WithToggle(name string, on bool) Context {
	out := c.Clone()
	if out.Toggles == nil {
		out.Toggles = make(map[string]bool)
	}
	out.Toggles[name] = on
	return out
}

// WithPeriod returns a copy with a new period.
func (c Context) WithPeriod(p Period) Context {
	out := c.Clone()
	out.Period = p
	return out
}

// WithMarketplace returns a copy with a new marketplace.
func (c Context) WithMarketplace(m string) Context {
	out := c.Clone()
	out.Marketplace = m
	return out
}

// WithSort returns a copy with a new sort.
func (c Context) WithSort(s Sort) Context {
	out := c.Clone()
	out.Sort = s
	return out
}

// Partial is a field-level update. Nil pointers leave fields unchanged;
// Toggles are merged into the existing set.
type Partial struct {
	TableType   *string         `yaml:"table_type,omitempty"`
	SearchText  *string         `yaml:"search,omitempty"`
	Toggles     map[string]bool `yaml:"toggles,omitempty"`
	Period      *Period         `yaml:"period,omitempty"`
	Marketplace *string         `yaml:"marketplace,omitempty"`
	Sort        *Sort           `yaml:"sort,omitempty"`
}

// Apply returns c with the partial's fields applied.
func (p Partial) Apply(c Context) Context {
	out := c.Clone()
	if p.TableType != nil {
		out.TableType = *p.TableType
	}
	if p.SearchText != nil {
		out.SearchText = *p.SearchText
	}
	for name, on := range p.Toggles {
		if out.Toggles == nil {
			out.Toggles = make(map[string]bool)
		}
		out.Toggles[name] = on
	}
	if p.Period != nil {
		out.Period = *p.Period
	}
	if p.Marketplace != nil {
		out.Marketplace = *p.Marketplace
	}
	if p.Sort != nil {
		out.Sort = *p.Sort
	}
	return out
}

// Search is shorthand for a partial that only changes search text.
func Search(s string) Partial {
	return Partial{SearchText: &s}
}

// Table is shorthand for a partial that only changes the table type.
func Table(t string) Partial {
	return Partial{TableType: &t}
}

// Toggle is shorthand for a partial that flips one toggle.
func Toggle(name string, on bool) Partial {
	return Partial{Toggles: map[string]bool{name: on}}
}
