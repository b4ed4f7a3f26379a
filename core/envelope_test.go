package core

import (
	"context"
	"testing"
)

func TestEnvelope_InvokeRunsClosure(t *testing.T) {
	// Given an envelope wrapping a closure that records it ran
	ran := false
	e := NewEnvelope(func(ctx context.Context) { ran = true })

	// When invoked
	e.invoke(context.Background())

	// Then the closure ran
	if !ran {
		t.Fatalf("expected envelope closure to run")
	}
}

func TestEnvelope_DoubleInvokePanics(t *testing.T) {
	// Given an envelope already invoked once
	e := NewEnvelope(func(ctx context.Context) {})
	e.invoke(context.Background())

	// When invoked a second time
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double invocation")
		}
	}()
	e.invoke(context.Background())
}

func TestEnvelope_ReleasesAttachedTokenOnInvoke(t *testing.T) {
	// Given an envelope with a dependency token attached
	fired := false
	cont := NewEnvelope(func(ctx context.Context) { fired = true })
	token := NewDependencyToken(cont)
	// arming ref stays with token itself; attach a clone to the job
	e := NewEnvelope(func(ctx context.Context) {})
	e.AttachToken(token.Clone())

	// When the job runs
	e.invoke(context.Background())
	// And the arming reference is also released
	token.Open(context.Background())

	// Then the continuation fired exactly once
	if !fired {
		t.Fatalf("expected continuation to fire after last release")
	}
}
