package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonCaptureOpen   ReasonCode = "capture_open"
	ReasonCaptureRead   ReasonCode = "capture_read"
	ReasonCaptureDenied ReasonCode = "capture_denied"

	ReasonTranscribeRequest ReasonCode = "transcribe_request"
	ReasonTranscribeTimeout ReasonCode = "transcribe_timeout"
	ReasonTranscribeRetry   ReasonCode = "transcribe_retry"
	ReasonTranscribeBreaker ReasonCode = "transcribe_circuit_open"

	ReasonAgentConnect ReasonCode = "agent_connect"
	ReasonAgentStream  ReasonCode = "agent_stream"

	ReasonSpeechSynthesize ReasonCode = "speech_synthesize"
	ReasonSpeechPlayback   ReasonCode = "speech_playback"
)

// UserFacing reports whether errors with this reason are surfaced to the end
// user as explicit notices. Everything else is handled internally and is at
// most debug-observable.
func (r ReasonCode) UserFacing() bool {
	switch r {
	case ReasonCaptureOpen, ReasonCaptureRead, ReasonCaptureDenied,
		ReasonTranscribeRequest, ReasonTranscribeTimeout,
		ReasonTranscribeRetry, ReasonTranscribeBreaker:
		return true
	default:
		return false
	}
}
