// Package bargein decides whether audio heard during playback is the user
// genuinely interrupting, as opposed to the device's own voice bleeding back
// into the microphone.
package bargein

import (
	"log/slog"
	"sync"

	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/logging"
)

const DefaultMultiplier = 3.0

// Detector observes the same frame stream as the segmenter but applies a
// stricter threshold: base RMS threshold times Multiplier. It fires the
// interruption callback at most once per armed episode; the latch resets on
// the next Arm. Firing stops nothing by itself, it only notifies.
type Detector struct {
	mu          sync.Mutex
	base        float64
	multiplier  float64
	armed       bool
	fired       bool
	onInterrupt func()
	logger      *slog.Logger
}

func New(baseThreshold, multiplier float64, onInterrupt func()) *Detector {
	if multiplier <= 1 {
		multiplier = DefaultMultiplier
	}
	return &Detector{
		base:        baseThreshold,
		multiplier:  multiplier,
		onInterrupt: onInterrupt,
		logger:      logging.NewComponentLogger(slog.Default(), "bargein"),
	}
}

// Threshold is the effective RMS floor a frame must strictly exceed.
func (d *Detector) Threshold() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.base * d.multiplier
}

// Arm enables detection for one speaking episode and resets the latch.
func (d *Detector) Arm() {
	d.mu.Lock()
	d.armed = true
	d.fired = false
	d.mu.Unlock()
}

// Disarm stops detection. Called when the turn machine leaves Speaking.
func (d *Detector) Disarm() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
}

// Observe classifies one frame. Safe to call from the segmenter's frame tap
// regardless of state; it is a no-op unless armed.
func (d *Detector) Observe(f audio.Frame) {
	d.mu.Lock()
	if !d.armed || d.fired || f.RMS <= d.base*d.multiplier {
		d.mu.Unlock()
		return
	}
	d.fired = true
	cb := d.onInterrupt
	d.mu.Unlock()

	d.logger.Debug("barge_in_detected", "rms", f.RMS)
	if cb != nil {
		cb()
	}
}
