package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/record"
)

// Fetch returns the page at offset for fc together with the total number
// of matching records. Both come from one read transaction.
func (s *Store) Fetch(ctx context.Context, fc filter.Context, offset, limit int) (record.Page, error) {
	sel, err := s.Layout(fc.TableType).Page(fc, offset, limit)
	if err != nil {
		return record.Page{}, fmt.Errorf("fetch: %w", err)
	}
	sel.Columns = recordColumns

	pageSQL, pageArgs, err := s.compiler.Compile(sel)
	if err != nil {
		return record.Page{}, fmt.Errorf("fetch: %w", err)
	}
	countSQL, countArgs, err := s.compiler.Compile(queryir.CountOf(sel))
	if err != nil {
		return record.Page{}, fmt.Errorf("fetch: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return record.Page{}, fmt.Errorf("fetch: begin: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return record.Page{}, fmt.Errorf("fetch: count: %w", err)
	}

	rows, err := tx.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return record.Page{}, fmt.Errorf("fetch: query: %w", err)
	}
	defer rows.Close()

	items := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return record.Page{}, fmt.Errorf("fetch: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return record.Page{}, fmt.Errorf("fetch: iterate rows: %w", err)
	}

	s.logger.Debug("page read",
		"table_type", fc.TableType,
		"offset", offset,
		"limit", limit,
		"items", len(items),
		"total_count", total,
	)
	return record.Page{Items: items, TotalCount: total, Offset: offset}, nil
}

// Get returns one record by id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_type, name, category_id, marketplace,
		       occurred_on, quantity, amount_minor, archived, fields
		FROM records
		WHERE id = ?
	`, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return record.Record{}, fmt.Errorf("get record %s: %w", id, err)
		}
		return record.Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return scanRecord(rows)
}

// Lookup resolves a category id. Returns ErrNotFound if absent.
func (s *Store) Lookup(ctx context.Context, id string) (record.Reference, error) {
	ref := record.Reference{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&ref.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Reference{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return record.Reference{}, fmt.Errorf("lookup category %s: %w", id, err)
	}
	return ref, nil
}

// Categories returns every category ordered by id.
func (s *Store) Categories(ctx context.Context) ([]record.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM categories
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	defer rows.Close()

	refs := []record.Reference{}
	for rows.Next() {
		var ref record.Reference
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanRecord(rows *sql.Rows) (record.Record, error) {
	var r row
	if err := rows.Scan(
		&r.id, &r.tableType, &r.name, &r.categoryID, &r.marketplace,
		&r.occurredOn, &r.quantity, &r.amountMinor, &r.archived, &r.fields,
	); err != nil {
		return record.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return r.toRecord()
}
