package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	data := []byte(`
name: parse_me
description: parsing test
screen: sales
page_size: 4
seed:
  demo: 3
  categories:
    c1: One
  records:
    - id: r1
      fields: {name: First, quantity: 2}
steps:
  - do: set_filter
    filter:
      search: lamp
      toggles: {show_archived: true}
      period: {from: "2024-01-01", to: "2024-01-31"}
  - do: reach_bottom
    index: 3
  - do: edit
    id: r1
    set: {name: Renamed}
    unset: [quantity]
    mode: silent
  - do: release
    count: 2
  - do: fail_next
    target: save
    error: boom
expect:
  ids: [r1]
  loaded: 1
  banners:
    - {kind: error, code: SAVE_FAILED}
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "parse_me", s.Name)
	assert.Equal(t, "sales", s.Screen)
	assert.Equal(t, 4, s.PageSize)
	assert.Equal(t, 3, s.Seed.Demo)
	assert.Equal(t, "One", s.Seed.Categories["c1"])
	require.Len(t, s.Seed.Records, 1)
	assert.Equal(t, 2, s.Seed.Records[0].Fields["quantity"])

	require.Len(t, s.Steps, 5)
	f := s.Steps[0].Filter
	require.NotNil(t, f)
	require.NotNil(t, f.SearchText)
	assert.Equal(t, "lamp", *f.SearchText)
	assert.True(t, f.Toggles["show_archived"])
	require.NotNil(t, f.Period)
	assert.Equal(t, "2024-01-31", f.Period.To)
	assert.Nil(t, f.Marketplace)

	assert.Equal(t, 3, s.Steps[1].Index)
	assert.Equal(t, []string{"quantity"}, s.Steps[2].Unset)
	assert.Equal(t, "silent", s.Steps[2].Mode)
	assert.Equal(t, 2, s.Steps[3].Count)
	assert.Equal(t, "save", s.Steps[4].Target)

	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.Loaded)
	assert.Equal(t, 1, *s.Expect.Loaded)
	assert.Nil(t, s.Expect.Total)
	assert.Equal(t, []BannerExpect{{Kind: "error", Code: "SAVE_FAILED"}}, s.Expect.Banners)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "steps: [{do: reload}]", "name is required"},
		{"no steps", "name: x", "at least one step"},
		{"unknown field", "name: x\nsteps: [{do: reload}]\nbogus: 1", "bogus"},
		{"unknown step", "name: x\nsteps: [{do: dance}]", "unknown step"},
		{"negative page size", "name: x\npage_size: -1\nsteps: [{do: reload}]", "page_size"},
		{"record without id", "name: x\nseed: {records: [{fields: {name: a}}]}\nsteps: [{do: reload}]", "id is required"},
		{"set_filter without filter", "name: x\nsteps: [{do: set_filter}]", "filter is required"},
		{"edit without id", "name: x\nsteps: [{do: edit, set: {name: a}}]", "id is required"},
		{"edit without changes", "name: x\nsteps: [{do: edit, id: a}]", "steps[0]"},
		{"seed without seed", "name: x\nsteps: [{do: seed}]", "seed is required"},
		{"negative index", "name: x\nsteps: [{do: reach_bottom, index: -1}]", "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from_file\nsteps: [{do: settle}]\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_TestdataParses(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.Equal(t, filepath.Base(path), s.Name+".yaml", "scenario name should match its file")
	}
}
