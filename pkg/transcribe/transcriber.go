// Package transcribe is the speech-to-text boundary. The core hands over a
// finalized utterance payload plus a MIME-type hint and gets back recognized
// text. An empty result with a nil error means nothing was understood; that
// is explicitly not a failure.
package transcribe

import "context"

// Transcriber converts one utterance's PCM payload to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, mimeType string) (string, error)
}

// DefaultMIMEType describes the raw capture payload the segmenter produces.
const DefaultMIMEType = "audio/l16;rate=16000"
