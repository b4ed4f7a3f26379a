package core

import (
	"context"
	"sync/atomic"
)

// BatchRunnable is invoked once per claimed subrange of a batch job's
// [start, end) range (spec.md §4.2, §6's bind_batch).
type BatchRunnable func(ctx context.Context, start, end int)

// paddedCounter keeps a hot atomic section counter off a cache line
// shared with unrelated fields, per spec.md §4.2's cache-line-padding
// requirement. Only the counter itself is padded, not the whole
// BatchTask — see SPEC_FULL.md §13 on the narrower-than-original scope
// of this padding.
type paddedCounter struct {
	v   uint32
	_   [60]byte
}

// BatchTask is the shared, reference-counted owner of a single
// parallel_for invocation. It holds the atomic "next unclaimed section"
// counter that every section Envelope produced from it shares.
// Go's garbage collector already reclaims a BatchTask once its last
// Envelope drops it, so — unlike the original's manual shared_ptr
// bookkeeping — there is no explicit release/free method here.
type BatchTask struct {
	fn       BatchRunnable
	start    int
	end      int
	sections int
	current  paddedCounter
}

// NewBatchTask computes sections = min(end-start, workerCount) and
// returns a BatchTask ready to be split into section Envelopes.
// end <= start yields zero sections (an empty batch invokes fn zero
// times, per spec.md §4.2's edge case).
func NewBatchTask(fn BatchRunnable, start, end, workerCount int) *BatchTask {
	span := end - start
	sections := 0
	if span > 0 {
		sections = span
		if workerCount > 0 && workerCount < sections {
			sections = workerCount
		}
		if sections < 1 {
			sections = 1
		}
	}
	return &BatchTask{fn: fn, start: start, end: end, sections: sections}
}

// Sections returns the number of sections this batch was split into.
// It is computed once at construction and is the sole source of truth
// consulted by every split path — see SPEC_FULL.md §14, item 1.
func (b *BatchTask) Sections() int {
	return b.sections
}

// invokeSection atomically claims the next unclaimed section index and
// runs fn over its subrange, using the floor-based partition formula of
// spec.md §4.2: section k in [1, sections] covers
// [start + floor(span*(k-1)/sections), start + floor(span*k/sections)).
func (b *BatchTask) invokeSection(ctx context.Context) {
	k := int(atomic.AddUint32(&b.current.v, 1))
	span := b.end - b.start
	rangeStart := b.start + (span*(k-1))/b.sections
	rangeEnd := b.start + (span*k)/b.sections
	b.fn(ctx, rangeStart, rangeEnd)
	if jb := jobBindingFromContext(ctx); jb != nil && jb.wc.sched.metrics != nil {
		jb.wc.sched.metrics.RecordBatchSection(rangeEnd - rangeStart)
	}
}

// splitEnvelopes returns one Envelope per section, each claiming and
// running exactly one subrange when invoked. All Envelopes share this
// same *BatchTask, so its atomic counter arbitrates which subrange each
// one actually gets regardless of the order they run in.
func (b *BatchTask) splitEnvelopes() []*Envelope {
	n := b.Sections()
	if n == 0 {
		return nil
	}
	envs := make([]*Envelope, n)
	for i := range envs {
		envs[i] = NewEnvelope(func(ctx context.Context) {
			b.invokeSection(ctx)
		})
	}
	return envs
}
