// Package speech is the speech-output boundary. The core hands over plain
// sentence strings in order; synthesis timing is the collaborator's problem.
package speech

import "context"

// Synthesizer speaks one sentence. Implementations own their audio path;
// Speak returns once the sentence has been rendered or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, sentence string) error
}
