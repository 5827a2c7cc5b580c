package audio

import "context"

// Source delivers a live frame stream from a microphone or remote feed.
// Start acquires the underlying device; the returned channel is closed when
// the source stops. Close releases the device and is safe to call on every
// exit path, including after errors.
type Source interface {
	Start(ctx context.Context) (<-chan Frame, error)
	Close() error
}

// Player renders linear16 PCM to the output device.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
}
