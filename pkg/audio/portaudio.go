package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	DefaultSampleRate      = 16000
	DefaultChannels        = 1
	DefaultFramesPerBuffer = 1024
)

// Init initializes the PortAudio runtime. Call once per process.
func Init() error {
	return portaudio.Initialize()
}

// Terminate tears down the PortAudio runtime.
func Terminate() {
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("portaudio_terminate_error", "error", err.Error())
	}
}

// PortAudioSource captures frames from the default microphone. A source is
// reusable: every Start opens a fresh device stream owned by that cycle, and
// Close releases it.
type PortAudioSource struct {
	SampleRate      int
	FramesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
	stop   chan struct{}
	done   chan struct{}
}

func NewPortAudioSource() *PortAudioSource {
	return &PortAudioSource{
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
	}
}

func (s *PortAudioSource) Start(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buffer := make([]int16, s.FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(DefaultChannels, 0, float64(s.SampleRate), len(buffer), &buffer)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, err
	}
	s.stream = stream
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	out := make(chan Frame, 8)
	stop := s.stop
	done := s.done
	go func() {
		defer close(out)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			default:
			}
			if err := stream.Read(); err != nil {
				slog.Warn("mic_read_error", "error", err.Error())
				return
			}
			samples := make([]int16, len(buffer))
			copy(samples, buffer)
			select {
			case out <- NewFrame(samples):
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
	return out, nil
}

func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	close(s.stop)
	_ = s.stream.Abort()
	<-s.done
	err := s.stream.Close()
	s.stream = nil
	s.stop = nil
	s.done = nil
	return err
}
