package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCall_NoJobsAndNoFromMainPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic: Call with no jobs and FromMain unset has nothing to do")
		}
	}()
	StartSync(testConfig(2), func(ctx context.Context) {
		Call(ctx, CallOptions{})
	})
}

func TestSwitchToMain_MovesExecutionToWorkerZero(t *testing.T) {
	var sawMain bool
	StartSync(testConfig(4), func(ctx context.Context) {
		Call(ctx, CallOptions{}, Bind(func(ctx context.Context) {
			SwitchToMain(ctx)
			sawMain = IsMainWorker(ctx)
		}))
	})
	if !sawMain {
		t.Fatalf("expected job to observe worker 0 after SwitchToMain")
	}
}

// TestSwitchToMain_ResumesOnWorkerZeroFromAnyStartingWorker forces
// several jobs onto the global lane concurrently, so at least some of
// them start running on a worker other than 0, and has every one of
// them call SwitchToMain. Unlike
// TestSwitchToMain_MovesExecutionToWorkerZero, this does not depend on
// the job happening to already be on worker 0 for the assertion to
// hold: any section that starts elsewhere genuinely exercises the
// cross-worker resume path. It then pushes one more job to the main
// lane as a regression guard — if a SwitchToMain along the way had left
// worker 0's slot with no fiber driving it, this final PushToMain would
// never run and the test would time out instead of failing fast. The
// wait happens on the test goroutine rather than inside entry, because
// entry may itself have resumed on worker 0, and blocking there would
// keep worker 0 from ever reaching the main lane.
func TestSwitchToMain_ResumesOnWorkerZeroFromAnyStartingWorker(t *testing.T) {
	const sections = 8
	var mainHits int32

	doneMain := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		StartSync(testConfig(4), func(ctx context.Context) {
			ParallelFor(ctx, 0, sections, func(ctx context.Context, start, end int) {
				for i := start; i < end; i++ {
					SwitchToMain(ctx)
					if !IsMainWorker(ctx) {
						t.Errorf("worker %d still not main after SwitchToMain", WorkerID(ctx))
					}
					atomic.AddInt32(&mainHits, 1)
				}
			})

			PushToMain(ctx, Bind(func(ctx context.Context) {
				close(doneMain)
			}))
		})
	}()

	select {
	case <-doneMain:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker 0 never serviced PushToMain after repeated SwitchToMain calls")
	}
	<-finished

	if got := atomic.LoadInt32(&mainHits); got != sections {
		t.Fatalf("mainHits = %d, want %d", got, sections)
	}
}

func TestCall_ToMainRunsJobsOnWorkerZero(t *testing.T) {
	var sawMain bool
	StartSync(testConfig(4), func(ctx context.Context) {
		Call(ctx, CallOptions{ToMain: true}, Bind(func(ctx context.Context) {
			sawMain = IsMainWorker(ctx)
		}))
	})
	if !sawMain {
		t.Fatalf("expected ToMain job to run on worker 0")
	}
}

// TestParallelFor_EmptyRangeIsANoOp covers spec.md §4.2's edge case: an
// empty [start, end) range must not invoke the callable, and — unlike
// the bug this guards against — must not panic either, since Call's
// "nothing to wait for" precondition is about being handed zero Job
// values, not about a valid Job expanding to zero envelopes.
func TestParallelFor_EmptyRangeIsANoOp(t *testing.T) {
	var invoked int32
	StartSync(testConfig(4), func(ctx context.Context) {
		ParallelFor(ctx, 5, 5, func(ctx context.Context, start, end int) {
			atomic.AddInt32(&invoked, 1)
		})
	})
	if got := atomic.LoadInt32(&invoked); got != 0 {
		t.Fatalf("callable invoked %d times over an empty range, want 0", got)
	}
}
