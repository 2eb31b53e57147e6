package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/value"
)

// check evaluates exp against st and the harness logs. It returns one
// message per mismatch.
func (h *Harness) check(ctx context.Context, exp *Expect, st collection.State) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	ids := st.IDs()
	if exp.IDs != nil && !slices.Equal(ids, exp.IDs) {
		fail("ids = %v, expected %v", ids, exp.IDs)
	}
	if exp.Count != nil && len(ids) != *exp.Count {
		fail("rendered %d rows, expected %d", len(ids), *exp.Count)
	}
	if exp.Loaded != nil && st.Loaded != *exp.Loaded {
		fail("loaded = %d, expected %d", st.Loaded, *exp.Loaded)
	}
	if exp.Total != nil && st.Total != *exp.Total {
		fail("total = %d, expected %d", st.Total, *exp.Total)
	}
	if exp.Offset != nil && st.Offset != *exp.Offset {
		fail("offset = %d, expected %d", st.Offset, *exp.Offset)
	}
	if exp.Exhausted != nil && st.Exhausted != *exp.Exhausted {
		fail("exhausted = %v, expected %v", st.Exhausted, *exp.Exhausted)
	}
	if exp.Loading != nil && st.Loading != *exp.Loading {
		fail("loading = %v, expected %v", st.Loading, *exp.Loading)
	}
	if exp.Dirty != nil && !slices.Equal(st.Dirty, exp.Dirty) {
		fail("dirty = %v, expected %v", st.Dirty, exp.Dirty)
	}
	if exp.Clean && len(st.Dirty) > 0 {
		fail("dirty = %v, expected none", st.Dirty)
	}
	if exp.Search != nil && st.Filter.SearchText != *exp.Search {
		fail("search = %q, expected %q", st.Filter.SearchText, *exp.Search)
	}

	for id, want := range exp.Fields {
		row, ok := st.Row(id)
		if !ok {
			fail("record %s is not rendered", id)
			continue
		}
		errs = append(errs, matchFields("record "+id, row.Record.Fields, want)...)
	}

	if exp.Sections != nil {
		titles := make([]string, len(st.Sections))
		for i, sec := range st.Sections {
			titles[i] = sec.Title
		}
		if !slices.Equal(titles, exp.Sections) {
			fail("sections = %v, expected %v", titles, exp.Sections)
		}
	}

	if exp.FetchOffsets != nil {
		if got := h.fetcher.Offsets(); !slices.Equal(got, exp.FetchOffsets) {
			fail("fetch offsets = %v, expected %v", got, exp.FetchOffsets)
		}
	}

	if exp.Banners != nil {
		got := h.bannerLog()
		if len(got) != len(exp.Banners) {
			fail("%d banners, expected %d: %v", len(got), len(exp.Banners), got)
		} else {
			for i, want := range exp.Banners {
				if string(got[i].Kind) != want.Kind || (want.Code != "" && got[i].Code != want.Code) {
					fail("banners[%d] = %s/%s, expected %s/%s", i, got[i].Kind, got[i].Code, want.Kind, want.Code)
				}
			}
		}
	}

	for id, want := range exp.Saved {
		rec, err := h.store.Get(ctx, id)
		if err != nil {
			fail("stored record %s: %v", id, err)
			continue
		}
		errs = append(errs, matchFields("stored record "+id, rec.Fields, want)...)
	}
	return errs
}

// matchFields is a subset match. A nil expectation means the field must
// be absent or null.
func matchFields(what string, got value.Object, want map[string]any) []string {
	var errs []string
	for field, raw := range want {
		expected, err := value.FromGo(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.%s: bad expectation: %v", what, field, err))
			continue
		}
		actual, ok := got[field]
		if !ok {
			actual = value.Null{}
		}
		if !value.Equal(actual, expected) {
			errs = append(errs, fmt.Sprintf("%s.%s = %s, expected %s", what, field, value.Text(actual), value.Text(expected)))
		}
	}
	slices.Sort(errs)
	return errs
}
