package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDrainer struct {
	delay   time.Duration
	err     error
	drained chan struct{}
}

func (f *fakeDrainer) Drain() error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.drained != nil {
		close(f.drained)
	}
	return f.err
}

func TestLifecycleRunsHooksAndDrains(t *testing.T) {
	d := &fakeDrainer{drained: make(chan struct{})}
	started := false
	stopped := false
	l := NewLifecycle(d, Hooks{
		OnStart: func() { started = true },
		OnStop:  func() { stopped = true },
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for l.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("lifecycle never stopped")
	}

	select {
	case <-d.drained:
	default:
		t.Fatalf("expected drainer invoked")
	}
	if !started || !stopped {
		t.Fatalf("expected both hooks fired, start=%v stop=%v", started, stopped)
	}
	if l.State() != StateStopped {
		t.Fatalf("expected STOPPED, got %s", l.State())
	}
}

func TestLifecycleDrainTimeout(t *testing.T) {
	d := &fakeDrainer{delay: 200 * time.Millisecond}
	l := NewLifecycle(d, Hooks{}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx)
	if !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("expected drain timeout, got %v", err)
	}
}

func TestLifecycleSingleUse(t *testing.T) {
	l := NewLifecycle(nil, Hooks{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := l.Run(ctx); err == nil {
		t.Fatalf("expected reuse rejected")
	}
}
