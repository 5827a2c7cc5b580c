package segment

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vokal-ai/vokal/pkg/audio"
)

// Mode selects what a capture session does with its frames.
type Mode int

const (
	// ModeCapture buffers audio and finalizes an Utterance.
	ModeCapture Mode = iota
	// ModeMonitor only forwards frames to the tap (barge-in monitoring);
	// nothing is buffered and no Utterance is ever produced.
	ModeMonitor
)

// SessionState is the lifecycle of a single capture cycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StateFinalizing
	StateDiscarded
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StateFinalizing:
		return "FINALIZING"
	case StateDiscarded:
		return "DISCARDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Utterance is the result of a capture session. Sessions that end without a
// valid utterance (no speech before the record limit, too short, too small)
// produce a Discarded result with no audio, so the caller can observe the
// session end and re-arm capture.
type Utterance struct {
	ID        string
	PCM       []byte
	Duration  time.Duration
	HasSpoken bool
	Discarded bool
}

// captureSession owns the live audio source for one cycle. Exactly one
// session may exist at a time; all fields past the channel are touched only
// by the run goroutine.
type captureSession struct {
	id        string
	mode      Mode
	frames    <-chan audio.Frame
	done      chan struct{}
	startedAt time.Time

	silenceWindow time.Duration
	recordLimit   time.Duration

	hasSpoken    bool
	silenceStart time.Time // zero value means no silence timer running
	buf          bytes.Buffer
}
