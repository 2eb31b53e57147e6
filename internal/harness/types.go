package harness

import (
	"github.com/roach88/tally/internal/activity"
	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/testutil"
)

// FetchEvent is one fetch the controller issued.
type FetchEvent struct {
	TableType string `json:"table_type"`
	Search    string `json:"search,omitempty"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

// StepEvent is the controller state right after a step.
type StepEvent struct {
	Do      string   `json:"do"`
	IDs     []string `json:"ids"`
	Dirty   []string `json:"dirty,omitempty"`
	Loaded  int      `json:"loaded"`
	Total   int      `json:"total"`
	Loading bool     `json:"loading"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Steps   []StepEvent        `json:"steps"`
	Fetches []FetchEvent       `json:"fetches"`
	Banners []activity.Message `json:"banners"`

	// Final is the settled state after every held fetch was released.
	Final collection.State `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Steps:   []StepEvent{},
		Fetches: []FetchEvent{},
		Banners: []activity.Message{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func fetchEvents(calls []testutil.Call) []FetchEvent {
	out := make([]FetchEvent, len(calls))
	for i, c := range calls {
		out[i] = FetchEvent{
			TableType: c.Filter.TableType,
			Search:    c.Filter.SearchText,
			Offset:    c.Offset,
			Limit:     c.Limit,
		}
	}
	return out
}

func stepEvent(do string, st collection.State) StepEvent {
	ids := st.IDs()
	if ids == nil {
		ids = []string{}
	}
	return StepEvent{
		Do:      do,
		IDs:     ids,
		Dirty:   st.Dirty,
		Loaded:  st.Loaded,
		Total:   st.Total,
		Loading: st.Loading,
	}
}
