package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tally/internal/value"
)

// Snapshot is the deterministic part of a result: what was fetched,
// what the user was told, and where the collection ended up.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to plain data for canonical JSON.
// Record fields are left out; ids, dirty sets and section titles pin
// down the outcome.
func (s *Snapshot) toCanonicalMap() map[string]any {
	fetches := make([]any, len(s.Result.Fetches))
	for i, f := range s.Result.Fetches {
		m := map[string]any{
			"table_type": f.TableType,
			"offset":     f.Offset,
			"limit":      f.Limit,
		}
		if f.Search != "" {
			m["search"] = f.Search
		}
		fetches[i] = m
	}

	banners := make([]any, len(s.Result.Banners))
	for i, b := range s.Result.Banners {
		m := map[string]any{"kind": string(b.Kind)}
		if b.Code != "" {
			m["code"] = b.Code
		}
		banners[i] = m
	}

	steps := make([]any, len(s.Result.Steps))
	for i, st := range s.Result.Steps {
		steps[i] = map[string]any{
			"do":      st.Do,
			"ids":     anySlice(st.IDs),
			"dirty":   anySlice(st.Dirty),
			"loaded":  st.Loaded,
			"total":   st.Total,
			"loading": st.Loading,
		}
	}

	final := s.Result.Final
	sections := make([]any, len(final.Sections))
	for i, sec := range final.Sections {
		ids := make([]any, len(sec.Rows))
		for j, row := range sec.Rows {
			ids[j] = row.ID
		}
		sections[i] = map[string]any{"title": sec.Title, "ids": ids}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"fetches":       fetches,
		"banners":       banners,
		"steps":         steps,
		"final": map[string]any{
			"sections":  sections,
			"dirty":     anySlice(final.Dirty),
			"loaded":    final.Loaded,
			"offset":    final.Offset,
			"total":     final.Total,
			"exhausted": final.Exhausted,
		},
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Result: result}
	return value.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. Failed expectations and
// snapshot mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
