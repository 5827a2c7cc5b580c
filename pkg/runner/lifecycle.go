package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrDrainTimeout is returned when the drainer does not finish inside the
// shutdown window.
var ErrDrainTimeout = errors.New("drain timeout")

// Lifecycle runs the process until its context ends, then drains the engine
// with a bounded timeout. It is single-use.
type Lifecycle struct {
	drainer Drainer
	hooks   Hooks
	timeout time.Duration

	mu    sync.Mutex
	state State
}

func NewLifecycle(drainer Drainer, hooks Hooks, drainTimeout time.Duration) *Lifecycle {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &Lifecycle{
		drainer: drainer,
		hooks:   hooks,
		timeout: drainTimeout,
		state:   StateNew,
	}
}

// State reports the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Run blocks until ctx ends, then drains and stops. It returns
// ErrDrainTimeout when the engine could not wind down in time.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateNew {
		l.mu.Unlock()
		return errors.New("lifecycle already used")
	}
	l.state = StateRunning
	l.mu.Unlock()

	PrintBanner()
	if l.hooks.OnStart != nil {
		l.hooks.OnStart()
	}

	<-ctx.Done()
	return l.shutdown()
}

func (l *Lifecycle) shutdown() error {
	l.mu.Lock()
	l.state = StateDraining
	l.mu.Unlock()

	var err error
	if l.drainer != nil {
		done := make(chan error, 1)
		go func() { done <- l.drainer.Drain() }()
		select {
		case drainErr := <-done:
			if drainErr != nil {
				slog.Warn("drain_error", "error", drainErr.Error())
			}
		case <-time.After(l.timeout):
			err = ErrDrainTimeout
		}
	}

	if l.hooks.OnStop != nil {
		l.hooks.OnStop()
	}
	l.mu.Lock()
	l.state = StateStopped
	l.mu.Unlock()
	return err
}
