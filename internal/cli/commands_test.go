package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/activity"
	"github.com/roach88/tally/internal/collection"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seededDB(t *testing.T, count string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "tally.db")
	_, err := execute(t, "seed", "--db", db, "--count", count)
	require.NoError(t, err)
	return db
}

func TestSeedCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tally.db")

	out, err := execute(t, "seed", "--db", db, "--count", "10", "--screen", "inventory", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 10, resp.Data.Inserted)
	assert.Equal(t, []string{"inventory"}, resp.Data.Tables)

	// Demo ids are deterministic, so a second run inserts nothing.
	out, err = execute(t, "seed", "--db", db, "--count", "10", "--screen", "inventory")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 0 records")
}

func TestSeedCommandErrors(t *testing.T) {
	_, err := execute(t, "seed")
	require.Error(t, err)

	db := filepath.Join(t.TempDir(), "tally.db")
	_, err = execute(t, "seed", "--db", db, "--screen", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown screen")
}

func TestBrowseCommandText(t *testing.T) {
	db := seededDB(t, "10")

	out, err := execute(t, "browse", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Inventory")
	assert.Contains(t, out, "[Books]")
	assert.Contains(t, out, "8 of 8 loaded")
}

func TestBrowseCommandFlat(t *testing.T) {
	db := seededDB(t, "10")

	out, err := execute(t, "browse", "--db", db, "--flat")
	require.NoError(t, err)
	assert.NotContains(t, out, "[Books]")
	assert.Contains(t, out, "8 of 8 loaded")
}

func TestBannerExit(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name     string
		msg      activity.Message
		wantCode int
		wantText string
	}{
		{
			name:     "fetch",
			msg:      activity.Message{Kind: activity.KindError, Err: collection.NewFetchError("inventory", 15, cause)},
			wantCode: ExitFailure,
			wantText: "fetch failed",
		},
		{
			name:     "save",
			msg:      activity.Message{Kind: activity.KindError, Err: collection.NewSaveError("inventory", cause)},
			wantCode: ExitFailure,
			wantText: "save failed",
		},
		{
			name:     "validation",
			msg:      activity.Message{Kind: activity.KindError, Err: collection.NewValidationError("inventory", "name is required")},
			wantCode: ExitCommandError,
			wantText: "invalid edit",
		},
		{
			name:     "plain",
			msg:      activity.Message{Kind: activity.KindError, Text: "boom"},
			wantCode: ExitFailure,
			wantText: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bannerExit(tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestBrowseCommandJSON(t *testing.T) {
	db := seededDB(t, "40")

	out, err := execute(t, "browse", "--db", db, "--screen", "sales", "--toggle", "show_archived", "--pages", "2", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Screen string `json:"screen"`
			State  struct {
				Loaded    int  `json:"loaded"`
				Total     int  `json:"total"`
				Exhausted bool `json:"exhausted"`
			} `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "sales", resp.Data.Screen)
	assert.Equal(t, 40, resp.Data.State.Loaded)
	assert.Equal(t, 40, resp.Data.State.Total)
	assert.True(t, resp.Data.State.Exhausted)
}

func TestBrowseCommandSearch(t *testing.T) {
	db := seededDB(t, "40")

	out, err := execute(t, "browse", "--db", db, "--search", "lamp")
	require.NoError(t, err)
	assert.Contains(t, out, "Lamp 000")
	assert.NotContains(t, out, "Kettle")
}

func TestBrowseCommandErrors(t *testing.T) {
	_, err := execute(t, "browse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db is required")

	_, err = execute(t, "browse", "--db", "x.db", "--remote", "http://localhost:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, err = execute(t, "browse", "--db", filepath.Join(t.TempDir(), "t.db"), "--toggle", "bulk=maybe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "browse", "--db", filepath.Join(t.TempDir(), "t.db"), "--pages", "0")
	require.Error(t, err)
}

func TestBrowseOptionsPartial(t *testing.T) {
	opts := &BrowseOptions{
		Search:      "kettle",
		Toggles:     []string{"show_archived", "bulk=false"},
		From:        "2024-01-01",
		Marketplace: "etsy",
		Sort:        "amount_minor",
		Desc:        true,
	}
	p, err := opts.partial()
	require.NoError(t, err)

	require.NotNil(t, p.SearchText)
	assert.Equal(t, "kettle", *p.SearchText)
	assert.Equal(t, map[string]bool{"show_archived": true, "bulk": false}, p.Toggles)
	require.NotNil(t, p.Period)
	assert.Equal(t, "2024-01-01", p.Period.From)
	assert.Empty(t, p.Period.To)
	require.NotNil(t, p.Marketplace)
	assert.Equal(t, "etsy", *p.Marketplace)
	require.NotNil(t, p.Sort)
	assert.True(t, p.Sort.Descending)
	assert.Nil(t, p.TableType)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "3 screen(s) valid (embedded)")
	assert.Contains(t, out, "inventory")

	out, err = execute(t, "validate", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Screens, 3)
	assert.Equal(t, "expenses", resp.Data.Screens[0].Name)
	assert.Equal(t, []string{"bulk", "show_archived"}, resp.Data.Screens[2].Toggles)
}

func TestValidateCommandInvalidDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package screens\n\nscreen: one: table: \"sales\"\nscreen: two: table: \"sales\"\n"), 0o644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
	assert.Contains(t, out, "E203")

	_, err = execute(t, "validate", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := execute(t, "test", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ search_supersedes_slow_page")
	assert.Contains(t, out, "All scenarios passed")

	out, err = execute(t, "test", scenarios, "--filter", "edit_*", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "edit_and_save", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestTestCommandUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "tiny.yaml"),
		[]byte("name: tiny\nseed: {demo: 3}\nsteps: [{do: settle, expect: {loaded: 3}}]\n"), 0o644))

	out, err := execute(t, "test", scenarios, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")
	golden := filepath.Join(dir, "golden", "tiny.golden")
	require.FileExists(t, golden)

	_, err = execute(t, "test", scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	out, err = execute(t, "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
