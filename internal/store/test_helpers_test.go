package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/filter"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seededStore holds 40 inventory and 5 sales demo records.
func seededStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := createTestStore(t, opts...)
	_, err := s.SeedDemo(context.Background(), 40, "inventory")
	require.NoError(t, err)
	_, err = s.Seed(context.Background(), DemoRecords("sales", 5))
	require.NoError(t, err)
	return s
}

func inventory() filter.Context {
	return filter.Context{TableType: "inventory"}
}
