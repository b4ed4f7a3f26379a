package core

import (
	"runtime"
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// fifoRing is a slice-backed FIFO with the same amortized-compaction
// discipline as the teacher's original FIFOTaskQueue: it grows by
// append and periodically reallocates smaller once a long-lived queue
// has drained down, instead of holding onto whatever peak capacity it
// once needed.
type fifoRing struct {
	items []*Envelope
}

func (r *fifoRing) push(e *Envelope) {
	r.items = append(r.items, e)
}

func (r *fifoRing) pushAll(es []*Envelope) {
	r.items = append(r.items, es...)
}

func (r *fifoRing) pop() (*Envelope, bool) {
	if len(r.items) == 0 {
		return nil, false
	}
	e := r.items[0]
	r.items[0] = nil
	r.items = r.items[1:]
	r.maybeCompact()
	return e, true
}

func (r *fifoRing) len() int { return len(r.items) }

func (r *fifoRing) maybeCompact() {
	n, c := len(r.items), cap(r.items)
	if c < compactMinCap {
		return
	}
	if n == 0 {
		r.items = make([]*Envelope, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}
	newCap := max(max(c/2, defaultQueueCap), n)
	ns := make([]*Envelope, n, newCap)
	copy(ns, r.items)
	r.items = ns
}

// DualQueue is the two-lane queue of spec.md §4.4: a global FIFO any
// worker may pop from, and a main FIFO only worker 0 may pop from.
// Wakeups use a small buffered signal channel per lane, the same
// pattern the teacher's TaskScheduler uses for its GetWork/PostInternal
// handoff — a buffered channel retains a pending notification even if
// it is sent before anyone is waiting, avoiding the lost-wakeup problem
// a bare sync.Cond would need extra bookkeeping to avoid.
type DualQueue struct {
	spinIterations int

	globalMu sync.Mutex
	global   fifoRing

	mainMu sync.Mutex
	main   fifoRing

	globalSignal chan struct{}
	mainSignal   chan struct{}
}

// NewDualQueue creates a DualQueue that spins up to spinIterations times
// on an empty pop before blocking on its wakeup channel (spec.md §4.4's
// spin-then-wait discipline).
func NewDualQueue(spinIterations int) *DualQueue {
	if spinIterations < 0 {
		spinIterations = 0
	}
	return &DualQueue{
		spinIterations: spinIterations,
		globalSignal:   make(chan struct{}, 1),
		mainSignal:     make(chan struct{}, 1),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// PushGlobal enqueues one envelope onto the global lane.
func (q *DualQueue) PushGlobal(e *Envelope) { q.PushGlobalBulk([]*Envelope{e}) }

// PushGlobalBulk enqueues envelopes onto the global lane and wakes both
// lanes' waiters: a global-only worker waiting on globalSignal, and any
// main worker idling on mainSignal, since worker 0 interleaves both
// queues and must also notice global work arriving.
func (q *DualQueue) PushGlobalBulk(es []*Envelope) {
	if len(es) == 0 {
		return
	}
	q.globalMu.Lock()
	q.global.pushAll(es)
	q.globalMu.Unlock()
	notify(q.globalSignal)
	notify(q.mainSignal)
}

// PushMain enqueues one envelope onto the main-affine lane.
func (q *DualQueue) PushMain(e *Envelope) { q.PushMainBulk([]*Envelope{e}) }

// PushMainBulk enqueues envelopes onto the main-affine lane.
func (q *DualQueue) PushMainBulk(es []*Envelope) {
	if len(es) == 0 {
		return
	}
	q.mainMu.Lock()
	q.main.pushAll(es)
	q.mainMu.Unlock()
	notify(q.mainSignal)
}

func (q *DualQueue) popGlobalOnce() (*Envelope, bool) {
	q.globalMu.Lock()
	defer q.globalMu.Unlock()
	return q.global.pop()
}

func (q *DualQueue) popMainOnce() (*Envelope, bool) {
	q.mainMu.Lock()
	defer q.mainMu.Unlock()
	return q.main.pop()
}

// PopAny implements the non-main worker discipline: spin on the global
// lane, then block on its wakeup channel, until stop is closed.
func (q *DualQueue) PopAny(stop <-chan struct{}) (*Envelope, bool) {
	for i := 0; i < q.spinIterations; i++ {
		if e, ok := q.popGlobalOnce(); ok {
			return e, true
		}
		select {
		case <-stop:
			return nil, false
		default:
			runtime.Gosched()
		}
	}
	for {
		if e, ok := q.popGlobalOnce(); ok {
			return e, true
		}
		select {
		case <-q.globalSignal:
		case <-stop:
			return nil, false
		}
	}
}

// PopMain implements worker 0's discipline: try the main lane, then the
// global lane, spinning before blocking on the main wakeup channel.
func (q *DualQueue) PopMain(stop <-chan struct{}) (*Envelope, bool) {
	for i := 0; i < q.spinIterations; i++ {
		if e, ok := q.tryPopInterleaved(); ok {
			return e, true
		}
		select {
		case <-stop:
			return nil, false
		default:
			runtime.Gosched()
		}
	}
	for {
		if e, ok := q.tryPopInterleaved(); ok {
			return e, true
		}
		select {
		case <-q.mainSignal:
		case <-stop:
			return nil, false
		}
	}
}

func (q *DualQueue) tryPopInterleaved() (*Envelope, bool) {
	if e, ok := q.popMainOnce(); ok {
		return e, true
	}
	return q.popGlobalOnce()
}

// GlobalDepth and MainDepth report current queue lengths, used by the
// Prometheus exporter's queue-depth gauges.
func (q *DualQueue) GlobalDepth() int {
	q.globalMu.Lock()
	defer q.globalMu.Unlock()
	return q.global.len()
}

func (q *DualQueue) MainDepth() int {
	q.mainMu.Lock()
	defer q.mainMu.Unlock()
	return q.main.len()
}
