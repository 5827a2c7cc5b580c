package turn

// NoticeKind classifies user-visible feedback from the turn loop. Only
// capture and transcription failures are real error notices; the empty
// transcript is a gentle "try again" hint, and progress is informational.
type NoticeKind string

const (
	NoticeCaptureError    NoticeKind = "capture_error"
	NoticeTranscribeError NoticeKind = "transcribe_error"
	NoticeEmptyTranscript NoticeKind = "empty_transcript"
	NoticeProgress        NoticeKind = "progress"
	// NoticeAgentError exists for completeness; agent reason codes are not
	// user-facing, so it is suppressed unless that policy changes.
	NoticeAgentError NoticeKind = "agent_error"
)

// Notice is one piece of user-visible feedback.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// NoticeFunc receives notices for display. May be nil.
type NoticeFunc func(Notice)
