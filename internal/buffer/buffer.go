// Package buffer holds the two record buffers of a collection: the
// server-confirmed baseline and the local edit overlay.
//
// The edit buffer is stored as field-level overrides keyed by record id,
// so it is always derivable from the baseline and can never hold a record
// the baseline does not. Growing the baseline reapplies every outstanding
// override in the same step.
//
// Buffers is not safe for concurrent use. The collection controller owns
// it and mutates it from its event loop only.
package buffer

import (
	"errors"
	"fmt"

	"github.com/roach88/tally/internal/record"
	"github.com/roach88/tally/internal/value"
)

// ErrUnknownRecord is returned when a patch targets an id that is not in
// the baseline, typically a stale edit arriving after a reset.
var ErrUnknownRecord = errors.New("record not in baseline")

type override struct {
	set   value.Object
	unset map[string]struct{}
}

func (o override) empty() bool {
	return len(o.set) == 0 && len(o.unset) == 0
}

func (o override) apply(base record.Record) record.Record {
	out := base.Clone()
	if out.Fields == nil {
		out.Fields = value.Object{}
	}
	for f := range o.unset {
		delete(out.Fields, f)
	}
	for f, v := range o.set {
		out.Fields[f] = v
	}
	return out
}

// diff computes the override turning base into next.
func diff(base, next record.Record) override {
	o := override{set: value.Object{}, unset: map[string]struct{}{}}
	for f, v := range next.Fields {
		if old, ok := base.Fields[f]; !ok || !value.Equal(old, v) {
			o.set[f] = v
		}
	}
	for f := range base.Fields {
		if _, ok := next.Fields[f]; !ok {
			o.unset[f] = struct{}{}
		}
	}
	return o
}

// Buffers is the baseline plus its edit overlay.
type Buffers struct {
	baseline []record.Record
	index    map[string]int
	edits    map[string]override
}

// New returns empty buffers.
func New() *Buffers {
	return &Buffers{
		index: make(map[string]int),
		edits: make(map[string]override),
	}
}

// Len returns the number of baseline records.
func (b *Buffers) Len() int {
	return len(b.baseline)
}

// Reset clears both buffers.
func (b *Buffers) Reset() {
	b.baseline = nil
	b.index = make(map[string]int)
	b.edits = make(map[string]override)
}

// AppendPage concatenates items to the baseline and returns how many new
// records were added. A record whose id is already present replaces the
// baseline copy in place; outstanding edits for it stay applied.
func (b *Buffers) AppendPage(items []record.Record) int {
	added := 0
	for _, item := range items {
		if pos, ok := b.index[item.ID]; ok {
			b.baseline[pos] = item.Clone()
			continue
		}
		b.index[item.ID] = len(b.baseline)
		b.baseline = append(b.baseline, item.Clone())
		added++
	}
	return added
}

// Get returns the merged record for id.
func (b *Buffers) Get(id string) (record.Record, bool) {
	pos, ok := b.index[id]
	if !ok {
		return record.Record{}, false
	}
	base := b.baseline[pos]
	if o, ok := b.edits[id]; ok {
		return o.apply(base), true
	}
	return base.Clone(), true
}

// Baseline returns a copy of the server-confirmed records.
func (b *Buffers) Baseline() []record.Record {
	out := make([]record.Record, len(b.baseline))
	for i, r := range b.baseline {
		out[i] = r.Clone()
	}
	return out
}

// Merged returns the edit buffer: baseline order, overrides applied.
func (b *Buffers) Merged() []record.Record {
	out := make([]record.Record, len(b.baseline))
	for i, base := range b.baseline {
		if o, ok := b.edits[base.ID]; ok {
			out[i] = o.apply(base)
			continue
		}
		out[i] = base.Clone()
	}
	return out
}

// ApplyPatch replaces the edit-buffer record at id with p applied to it.
// ErrUnknownRecord leaves the buffers untouched.
func (b *Buffers) ApplyPatch(id string, p record.Patch) error {
	current, ok := b.Get(id)
	if !ok {
		return fmt.Errorf("apply patch to %q: %w", id, ErrUnknownRecord)
	}
	next, err := p.Apply(current)
	if err != nil {
		return err
	}
	b.setOverride(id, next)
	return nil
}

// Seed overwrites the whole edit buffer with records. Baseline records
// not named lose their overrides; records absent from the baseline are
// skipped and their ids returned.
func (b *Buffers) Seed(records []record.Record) []string {
	b.edits = make(map[string]override)
	var skipped []string
	for _, r := range records {
		if _, ok := b.index[r.ID]; !ok {
			skipped = append(skipped, r.ID)
			continue
		}
		b.setOverride(r.ID, r)
	}
	return skipped
}

func (b *Buffers) setOverride(id string, next record.Record) {
	base := b.baseline[b.index[id]]
	o := diff(base, next)
	if o.empty() {
		delete(b.edits, id)
		return
	}
	b.edits[id] = o
}

// Dirty returns the ids carrying local edits, in baseline order.
func (b *Buffers) Dirty() []string {
	var ids []string
	for _, base := range b.baseline {
		if _, ok := b.edits[base.ID]; ok {
			ids = append(ids, base.ID)
		}
	}
	return ids
}

// IsDirty reports whether id carries local edits.
func (b *Buffers) IsDirty(id string) bool {
	_, ok := b.edits[id]
	return ok
}

// Discard drops the local edits for id.
func (b *Buffers) Discard(id string) {
	delete(b.edits, id)
}

// CommitRecords folds only the given saved records' edits into the
// baseline. Edits made after the snapshot was taken stay dirty.
func (b *Buffers) CommitRecords(saved []record.Record) {
	for _, s := range saved {
		pos, ok := b.index[s.ID]
		if !ok {
			continue
		}
		current, _ := b.Get(s.ID)
		b.baseline[pos] = s.Clone()
		b.setOverride(s.ID, current)
	}
}
