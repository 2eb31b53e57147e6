package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/value"
)

const recordsTable = "records"

// Columns of the records table in scan order.
var recordColumns = []string{
	"id", "table_type", "name", "category_id", "marketplace",
	"occurred_on", "quantity", "amount_minor", "archived", "fields",
}

var (
	stringColumns = []string{"table_type", "name", "category_id", "marketplace", "occurred_on"}
	intColumns    = []string{"quantity", "amount_minor"}
)

const archivedColumn = "archived"

// SortableColumns lists the columns a filter context may sort by.
func SortableColumns() []string {
	return []string{"name", "category_id", "marketplace", "occurred_on", "quantity", "amount_minor"}
}

// row is one records row.
type row struct {
	id          string
	tableType   string
	name        string
	categoryID  string
	marketplace string
	occurredOn  string
	quantity    int64
	amountMinor int64
	archived    bool
	fields      string
}

func (r *row) strings() map[string]*string {
	return map[string]*string{
		"table_type":  &r.tableType,
		"name":        &r.name,
		"category_id": &r.categoryID,
		"marketplace": &r.marketplace,
		"occurred_on": &r.occurredOn,
	}
}

func (r *row) ints() map[string]*int64 {
	return map[string]*int64{
		"quantity":     &r.quantity,
		"amount_minor": &r.amountMinor,
	}
}

// toRow splits a record into typed columns and the extra-fields JSON.
func toRow(rec record.Record) (row, error) {
	r := row{id: rec.ID}
	if rec.ID == "" {
		return row{}, fmt.Errorf("record without id")
	}
	extra := rec.Fields.Clone()
	if extra == nil {
		extra = value.Object{}
	}

	for _, col := range stringColumns {
		v, ok := extra[col]
		delete(extra, col)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case value.String:
			*r.strings()[col] = string(val)
		case value.Null:
		default:
			return row{}, fmt.Errorf("record %s: field %s: want string, got %T", rec.ID, col, v)
		}
	}
	for _, col := range intColumns {
		v, ok := extra[col]
		delete(extra, col)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case value.Int:
			*r.ints()[col] = int64(val)
		case value.Null:
		default:
			return row{}, fmt.Errorf("record %s: field %s: want integer, got %T", rec.ID, col, v)
		}
	}
	if v, ok := extra[archivedColumn]; ok {
		delete(extra, archivedColumn)
		switch val := v.(type) {
		case value.Bool:
			r.archived = bool(val)
		case value.Null:
		default:
			return row{}, fmt.Errorf("record %s: field %s: want bool, got %T", rec.ID, archivedColumn, v)
		}
	}
	if r.tableType == "" {
		return row{}, fmt.Errorf("record %s: table_type is required", rec.ID)
	}

	data, err := value.MarshalCanonical(extra)
	if err != nil {
		return row{}, fmt.Errorf("record %s: marshal fields: %w", rec.ID, err)
	}
	r.fields = string(data)
	return r, nil
}

// searchKey is what Contains predicates match against.
func (r row) searchKey() string {
	return filter.NormalizeSearch(r.name)
}

// toRecord rebuilds a record. Every column is present in the result.
func (r row) toRecord() (record.Record, error) {
	fields := value.Object{}
	if r.fields != "" && r.fields != "{}" {
		if err := json.Unmarshal([]byte(r.fields), &fields); err != nil {
			return record.Record{}, fmt.Errorf("record %s: unmarshal fields: %w", r.id, err)
		}
		if fields == nil {
			fields = value.Object{}
		}
	}
	for col, p := range r.strings() {
		fields[col] = value.String(*p)
	}
	for col, p := range r.ints() {
		fields[col] = value.Int(*p)
	}
	fields[archivedColumn] = value.Bool(r.archived)
	return record.Record{ID: r.id, Fields: fields}, nil
}
