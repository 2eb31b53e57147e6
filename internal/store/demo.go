package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/value"
)

// demoNamespace keeps demo ids stable across runs.
var demoNamespace = uuid.MustParse("6f1c2a64-5d7e-4b0a-9a51-2b7d4c8e9f10")

var demoCategories = []record.Reference{
	{ID: "cat-books", Name: "Books"},
	{ID: "cat-games", Name: "Games"},
	{ID: "cat-garden", Name: "Garden"},
	{ID: "cat-tools", Name: "Tools"},
}

var (
	demoNames        = []string{"Lamp", "Kettle", "Chess Set", "Trowel", "Atlas", "Hammer", "Puzzle", "Novel"}
	demoMarketplaces = []string{"amazon", "ebay", "etsy"}
)

// DemoID returns the deterministic id of the i-th demo record.
func DemoID(tableType string, i int) string {
	return uuid.NewSHA1(demoNamespace, []byte(fmt.Sprintf("%s/%d", tableType, i))).String()
}

// DemoCategories returns the categories demo records reference.
func DemoCategories() []record.Reference {
	return append([]record.Reference(nil), demoCategories...)
}

// DemoRecords builds n deterministic records of tableType.
func DemoRecords(tableType string, n int) []record.Record {
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.New(DemoID(tableType, i), value.Object{
			"table_type":   value.String(tableType),
			"name":         value.String(fmt.Sprintf("%s %03d", demoNames[i%len(demoNames)], i)),
			"category_id":  value.String(demoCategories[i%len(demoCategories)].ID),
			"marketplace":  value.String(demoMarketplaces[i%len(demoMarketplaces)]),
			"occurred_on":  value.String(fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1)),
			"quantity":     value.Int(int64(i%7 + 1)),
			"amount_minor": value.Int(int64(199 + i*25)),
			"archived":     value.Bool(i%5 == 4),
		}))
	}
	return out
}

// SeedDemo inserts the demo categories and n records for each table type.
func (s *Store) SeedDemo(ctx context.Context, n int, tableTypes ...string) (int, error) {
	for _, c := range demoCategories {
		if err := s.PutCategory(ctx, c); err != nil {
			return 0, err
		}
	}
	total := 0
	for _, tt := range tableTypes {
		inserted, err := s.Seed(ctx, DemoRecords(tt, n))
		if err != nil {
			return total, err
		}
		total += inserted
	}
	s.logger.Info("demo data seeded", "records", total, "table_types", tableTypes)
	return total, nil
}
