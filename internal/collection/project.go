package collection

import (
	"github.com/roach88/tally/internal/record"
)

// Row is one rendered record.
type Row struct {
	ID     string        `json:"id"`
	Record record.Record `json:"record"`
	Dirty  bool          `json:"dirty,omitempty"`
}

// Section groups rows under a header.
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// ProjectionInput is everything a projection may read.
type ProjectionInput struct {
	Records    []record.Record
	Dirty      map[string]bool
	References map[string]record.Reference
}

// Projector maps merged records and reference data to view sections.
// It must be a pure function of its input.
type Projector func(in ProjectionInput) []Section

// Flat renders every record in a single untitled section.
func Flat() Projector {
	return func(in ProjectionInput) []Section {
		if len(in.Records) == 0 {
			return nil
		}
		rows := make([]Row, len(in.Records))
		for i, r := range in.Records {
			rows[i] = Row{ID: r.ID, Record: r, Dirty: in.Dirty[r.ID]}
		}
		return []Section{{Rows: rows}}
	}
}

// GroupBy renders one section per distinct value of field, in the order
// the values first appear. When titled is set the section title comes
// from the reference cache, falling back to the placeholder name while a
// lookup is pending or after it failed.
func GroupBy(field string, titled bool) Projector {
	if field == "" {
		return Flat()
	}
	return func(in ProjectionInput) []Section {
		var sections []Section
		pos := make(map[string]int)
		for _, r := range in.Records {
			key := r.Text(field)
			i, ok := pos[key]
			if !ok {
				i = len(sections)
				pos[key] = i
				sections = append(sections, Section{Key: key, Title: sectionTitle(key, titled, in.References)})
			}
			sections[i].Rows = append(sections[i].Rows, Row{ID: r.ID, Record: r, Dirty: in.Dirty[r.ID]})
		}
		return sections
	}
}

func sectionTitle(key string, titled bool, refs map[string]record.Reference) string {
	if !titled || key == "" {
		return key
	}
	if ref, ok := refs[key]; ok {
		return ref.Name
	}
	return record.Placeholder(key).Name
}
