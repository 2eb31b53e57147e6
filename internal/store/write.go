package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tally/internal/record"
)

// Save upserts records in one transaction. Either every record is
// written or none is.
func (s *Store) Save(ctx context.Context, records []record.Record) error {
	rows, err := toRows(records)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if err := upsertRecord(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.logger.Info("records saved", "records", len(rows))
	return nil
}

// Seed inserts records that do not exist yet. Existing ids are left
// untouched, so seeding twice is a no-op.
func (s *Store) Seed(ctx context.Context, records []record.Record) (int, error) {
	rows, err := toRows(records)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	inserted := 0
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO records
				(id, table_type, name, search_key, category_id, marketplace,
				 occurred_on, quantity, amount_minor, archived, fields)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`, r.args()...)
			if err != nil {
				return fmt.Errorf("insert record %s: %w", r.id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert record %s: %w", r.id, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return inserted, nil
}

// PutCategory inserts or renames a category.
func (s *Store) PutCategory(ctx context.Context, ref record.Reference) error {
	if ref.ID == "" {
		return fmt.Errorf("put category: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, ref.ID, ref.Name)
	if err != nil {
		return fmt.Errorf("put category %s: %w", ref.ID, err)
	}
	return nil
}

func toRows(records []record.Record) ([]row, error) {
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		r, err := toRow(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func (r row) args() []any {
	archived := 0
	if r.archived {
		archived = 1
	}
	return []any{
		r.id, r.tableType, r.name, r.searchKey(), r.categoryID, r.marketplace,
		r.occurredOn, r.quantity, r.amountMinor, archived, r.fields,
	}
}

func upsertRecord(ctx context.Context, tx *sql.Tx, r row) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records
		(id, table_type, name, search_key, category_id, marketplace,
		 occurred_on, quantity, amount_minor, archived, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_type   = excluded.table_type,
			name         = excluded.name,
			search_key   = excluded.search_key,
			category_id  = excluded.category_id,
			marketplace  = excluded.marketplace,
			occurred_on  = excluded.occurred_on,
			quantity     = excluded.quantity,
			amount_minor = excluded.amount_minor,
			archived     = excluded.archived,
			fields       = excluded.fields
	`, r.args()...)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", r.id, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
