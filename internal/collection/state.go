package collection

import (
	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
)

// State is the published view of a collection.
type State struct {
	// Version increases with every recomputation.
	Version int64 `json:"version"`

	Filter    filter.Context `json:"-"`
	FilterKey string         `json:"filter_key"`

	Sections []Section `json:"sections"`

	// Loaded is the number of baseline records.
	Loaded int `json:"loaded"`

	// Offset is the offset of the last applied page, -1 before the first.
	Offset int `json:"offset"`

	// Total is the last reported total count, -1 before the first page.
	Total int `json:"total"`

	Loading   bool     `json:"loading"`
	Saving    bool     `json:"saving"`
	Exhausted bool     `json:"exhausted"`
	Dirty     []string `json:"dirty,omitempty"`
}

// Records returns the rendered records in display order.
func (s State) Records() []record.Record {
	var out []record.Record
	for _, sec := range s.Sections {
		for _, row := range sec.Rows {
			out = append(out, row.Record)
		}
	}
	return out
}

// IDs returns the rendered record ids in display order.
func (s State) IDs() []string {
	var out []string
	for _, sec := range s.Sections {
		for _, row := range sec.Rows {
			out = append(out, row.ID)
		}
	}
	return out
}

// Row finds a rendered row by record id.
func (s State) Row(id string) (Row, bool) {
	for _, sec := range s.Sections {
		for _, row := range sec.Rows {
			if row.ID == id {
				return row, true
			}
		}
	}
	return Row{}, false
}
