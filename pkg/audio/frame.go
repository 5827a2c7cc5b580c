package audio

import (
	"encoding/binary"
	"math"
)

// Frame is one fixed window of PCM samples with its derived RMS loudness.
// Frames are ephemeral: produced continuously while a capture session is
// active and consumed immediately by the segmenter and barge-in detector.
type Frame struct {
	Samples []int16
	RMS     float64
}

// NewFrame wraps a sample window and computes its RMS.
func NewFrame(samples []int16) Frame {
	return Frame{Samples: samples, RMS: RMS(samples)}
}

// RMS computes root-mean-square loudness over normalized samples ([-1, 1]).
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// SamplesToBytes encodes int16 samples as little-endian PCM.
func SamplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// BytesToSamples decodes little-endian PCM into int16 samples.
// A trailing odd byte is dropped.
func BytesToSamples(data []byte) []int16 {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}
