package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/filter"
)

// Scenario drives one controller from start to finish.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Screen selects the screen definition. Default "inventory".
	Screen string `yaml:"screen,omitempty"`

	// PageSize overrides the screen's page size when positive.
	PageSize int `yaml:"page_size,omitempty"`

	// HoldInitial holds the first fetch, issued when the controller starts.
	HoldInitial bool `yaml:"hold_initial,omitempty"`

	// Seed is written to the store before the controller starts.
	Seed Seed `yaml:"seed,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after all held fetches are released and the
	// controller settled.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Seed describes store content.
type Seed struct {
	// Demo inserts this many demo records of the screen's table type.
	Demo int `yaml:"demo,omitempty"`

	// Records are inserted as given. table_type defaults to the screen's.
	Records []RecordSpec `yaml:"records,omitempty"`

	// Categories are reference entities.
	Categories map[string]string `yaml:"categories,omitempty"`
}

// RecordSpec is a record written in YAML.
type RecordSpec struct {
	ID     string         `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// Step is one action against the controller.
type Step struct {
	// Do is the step type.
	Do string `yaml:"do"`

	// Filter is the partial update for set_filter.
	Filter *filter.Partial `yaml:"filter,omitempty"`

	// Index is the visible row index for reach_bottom.
	Index int `yaml:"index,omitempty"`

	// ID, Set, Unset and Mode describe an edit. Mode is "visible"
	// (default) or "silent".
	ID    string         `yaml:"id,omitempty"`
	Set   map[string]any `yaml:"set,omitempty"`
	Unset []string       `yaml:"unset,omitempty"`
	Mode  string         `yaml:"mode,omitempty"`

	// IDs lists the records revert drops edits for. Empty means all.
	IDs []string `yaml:"ids,omitempty"`

	// Count is how many held fetches release lets through. Default 1.
	// All releases every held fetch.
	Count int  `yaml:"count,omitempty"`
	All   bool `yaml:"all,omitempty"`

	// Target ("fetch", the default, or "save") and Error configure
	// fail_next.
	Target string `yaml:"target,omitempty"`
	Error  string `yaml:"error,omitempty"`

	// Seed is used by the seed step.
	Seed *Seed `yaml:"seed,omitempty"`

	// Expect is checked right after the step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step types.
const (
	StepSeed        = "seed"
	StepSetFilter   = "set_filter"
	StepReachBottom = "reach_bottom"
	StepReload      = "reload"
	StepEdit        = "edit"
	StepRevert      = "revert"
	StepSave        = "save"
	StepHold        = "hold"
	StepResume      = "resume"
	StepRelease     = "release"
	StepFailNext    = "fail_next"
	StepSettle      = "settle"
)

// Expect is a set of checks against controller state. Nil fields are not
// checked.
type Expect struct {
	IDs          []string                  `yaml:"ids,omitempty"`
	Count        *int                      `yaml:"count,omitempty"`
	Loaded       *int                      `yaml:"loaded,omitempty"`
	Total        *int                      `yaml:"total,omitempty"`
	Offset       *int                      `yaml:"offset,omitempty"`
	Exhausted    *bool                     `yaml:"exhausted,omitempty"`
	Loading      *bool                     `yaml:"loading,omitempty"`
	Dirty        []string                  `yaml:"dirty,omitempty"`
	Clean        bool                      `yaml:"clean,omitempty"`
	Fields       map[string]map[string]any `yaml:"fields,omitempty"`
	Sections     []string                  `yaml:"sections,omitempty"`
	Search       *string                   `yaml:"search,omitempty"`
	FetchOffsets []int                     `yaml:"fetch_offsets,omitempty"`
	Banners      []BannerExpect            `yaml:"banners,omitempty"`
	Saved        map[string]map[string]any `yaml:"saved,omitempty"`
}

// BannerExpect matches one banner message. An empty Code matches any.
type BannerExpect struct {
	Kind string `yaml:"kind"`
	Code string `yaml:"code,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must be positive")
	}
	for i, rec := range s.Seed.Records {
		if rec.ID == "" {
			return fmt.Errorf("seed.records[%d]: id is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st Step) error {
	switch st.Do {
	case StepReload, StepSave, StepRevert, StepHold, StepResume, StepSettle:
	case StepSeed:
		if st.Seed == nil {
			return fmt.Errorf("steps[%d]: seed is required for seed", index)
		}
	case StepSetFilter:
		if st.Filter == nil {
			return fmt.Errorf("steps[%d]: filter is required for set_filter", index)
		}
	case StepReachBottom:
		if st.Index < 0 {
			return fmt.Errorf("steps[%d]: index must be non-negative", index)
		}
	case StepEdit:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for edit", index)
		}
		if len(st.Set) == 0 && len(st.Unset) == 0 {
			return fmt.Errorf("steps[%d]: edit needs set or unset", index)
		}
		if st.Mode != "" && st.Mode != "visible" && st.Mode != "silent" {
			return fmt.Errorf("steps[%d]: unknown edit mode %q", index, st.Mode)
		}
	case StepRelease:
		if st.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative", index)
		}
	case StepFailNext:
		if st.Target != "" && st.Target != "fetch" && st.Target != "save" {
			return fmt.Errorf("steps[%d]: target must be fetch or save", index)
		}
		if st.Error == "" {
			return fmt.Errorf("steps[%d]: error is required for fail_next", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: do is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown step %q", index, st.Do)
	}
	return nil
}
