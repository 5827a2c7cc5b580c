// Package agent is the boundary to the remote conversational agent. A turn
// submits recognized user text and receives an incremental event feed of raw
// JSON payloads, which pkg/stream turns into speakable chunks.
package agent

import "context"

// Agent opens one conversational turn. The returned channel delivers raw
// event payloads in arrival order and is closed when the feed ends, the
// transport drops, or ctx is cancelled. Each turn gets a fresh channel;
// nothing is shared across turns.
type Agent interface {
	OpenTurn(ctx context.Context, userText string) (<-chan []byte, error)
}
