// Package record defines the entities that flow through a paginated
// collection: records, pages, patches and reference entities.
package record

import (
	"fmt"

	"github.com/roach88/tally/internal/value"
)

// Record is a domain entity with a stable identifier and mutable fields.
type Record struct {
	ID     string       `json:"id"`
	Fields value.Object `json:"fields"`
}

// New creates a record with a copy of the given fields.
func New(id string, fields value.Object) Record {
	return Record{ID: id, Fields: fields.Clone()}
}

// Clone returns a deep copy so callers can never alias buffer storage.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: r.Fields.Clone()}
}

// Get returns a field value, or value.Null when absent.
func (r Record) Get(field string) value.Value {
	if v, ok := r.Fields[field]; ok && v != nil {
		return v
	}
	return value.Null{}
}

// Text returns a field rendered as display text.
func (r Record) Text(field string) string {
	return value.Text(r.Get(field))
}

// Equal reports whether two records have the same id and fields.
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID && value.Equal(r.Fields, other.Fields)
}

// Page is one server response for a filter context.
// Offset is the position of Items[0] in the full result set.
type Page struct {
	Items      []Record `json:"items"`
	TotalCount int      `json:"totalCount"`
	Offset     int      `json:"offset"`
}

// HasMore reports whether records remain beyond this page.
func (p Page) HasMore() bool {
	return p.Offset+len(p.Items) < p.TotalCount
}

// Reference is auxiliary data looked up by id, such as a category.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Placeholder is the reference used when a lookup fails.
func Placeholder(id string) Reference {
	return Reference{ID: id, Name: "Unknown"}
}

// Patch transforms a record. Patches must not change the record ID.
type Patch func(Record) Record

// Set returns a patch that assigns one field.
func Set(field string, v value.Value) Patch {
	return func(r Record) Record {
		out := r.Clone()
		if out.Fields == nil {
			out.Fields = value.Object{}
		}
		out.Fields[field] = v
		return out
	}
}

// Unset returns a patch that removes one field.
func Unset(field string) Patch {
	return func(r Record) Record {
		out := r.Clone()
		delete(out.Fields, field)
		return out
	}
}

// Merge returns a patch assigning every field in fields.
func Merge(fields value.Object) Patch {
	return func(r Record) Record {
		out := r.Clone()
		if out.Fields == nil {
			out.Fields = value.Object{}
		}
		for k, v := range fields {
			out.Fields[k] = v
		}
		return out
	}
}

// Compose returns a patch applying patches left to right, so
// Compose(f, g) is g∘f.
func Compose(patches ...Patch) Patch {
	return func(r Record) Record {
		for _, p := range patches {
			r = p(r)
		}
		return r
	}
}

// Apply runs the patch on a copy and checks that the id survived.
func (p Patch) Apply(r Record) (Record, error) {
	out := p(r.Clone())
	if out.ID != r.ID {
		return Record{}, fmt.Errorf("patch changed record id %q to %q", r.ID, out.ID)
	}
	return out, nil
}
