package audio

import (
	"context"

	"github.com/gordonklaus/portaudio"
)

// PortAudioPlayer renders linear16 PCM through the default output device.
type PortAudioPlayer struct {
	SampleRate      int
	FramesPerBuffer int
}

func NewPortAudioPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
	}
}

func (p *PortAudioPlayer) Play(ctx context.Context, pcm []byte) error {
	samples := BytesToSamples(pcm)
	buffer := make([]int16, p.FramesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(0, DefaultChannels, float64(p.SampleRate), len(buffer), &buffer)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return err
	}
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
	}()

	offset := 0
	for offset < len(samples) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[offset:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		offset += n
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
