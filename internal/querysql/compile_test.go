package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/value"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "records",
		Columns: []string{"id", "name"},
		Filter:  queryir.Equals{Field: "table_type", Value: value.String("inventory")},
		Limit:   15,
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM records WHERE table_type = ? ORDER BY id ASC COLLATE BINARY LIMIT ?", sql)
	assert.Equal(t, []any{"inventory", int64(15)}, params)
	assert.NotContains(t, sql, "inventory", "values are never interpolated")
}

func TestCompile_PageWithOrderAndOffset(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   "records",
		Order:  []queryir.OrderKey{{Field: "occurred_on", Descending: true}},
		Limit:  15,
		Offset: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM records ORDER BY occurred_on DESC, id ASC COLLATE BINARY LIMIT ? OFFSET ?", sql)
	assert.Equal(t, []any{int64(15), int64(30)}, params)
}

func TestCompile_OrderByIDNotDuplicated(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.Select{
		From:  "records",
		Order: []queryir.OrderKey{{Field: "id", Descending: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM records ORDER BY id DESC", sql)
}

func TestCompile_OffsetWithoutLimit(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{From: "records", Offset: 5})
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT -1 OFFSET ?")
	assert.Equal(t, []any{int64(5)}, params)
}

func TestCompile_AllPredicates(t *testing.T) {
	where := queryir.And{Predicates: []queryir.Predicate{
		queryir.Contains{Field: "search_key", Term: "50%_off"},
		queryir.Between{Field: "occurred_on", From: value.String("2024-01-01"), To: value.String("2024-01-31")},
		queryir.Compare{Field: "quantity", Op: queryir.OpLt, Value: value.Int(5)},
		queryir.Equals{Field: "archived", Value: value.Bool(false)},
		queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "marketplace", Value: value.String("etsy")},
		}},
	}}

	sql, params, err := NewSQLCompiler().Compile(queryir.Count{From: "records", Filter: where})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) FROM records WHERE search_key LIKE ? ESCAPE '\' AND occurred_on >= ? AND occurred_on <= ? AND quantity < ? AND archived = ? AND (marketplace = ?)`,
		sql)
	assert.Equal(t, []any{`%50\%\_off%`, "2024-01-01", "2024-01-31", int64(5), int64(0), "etsy"}, params)
}

func TestCompile_HalfOpenBetween(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Count{
		From:   "records",
		Filter: queryir.Between{Field: "occurred_on", To: value.String("2024-12-31")},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM records WHERE occurred_on <= ?", sql)
	assert.Equal(t, []any{"2024-12-31"}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Count{From: "records", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM records WHERE 1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompile_RejectsInvalidQuery(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Select{From: "records; --"})
	assert.ErrorContains(t, err, "invalid query")

	_, _, err = NewSQLCompiler().Compile(nil)
	assert.Error(t, err)
}

func TestCompile_Deterministic(t *testing.T) {
	q := queryir.Select{
		From:   "records",
		Filter: queryir.Conj(queryir.Equals{Field: "a", Value: value.Int(1)}, queryir.Contains{Field: "b", Term: "x"}),
		Limit:  10,
	}
	first, _, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := NewSQLCompiler().Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
