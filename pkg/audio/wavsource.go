package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WAVSource replays a WAV file as a capture source. It decodes the file up
// front, mixes it to mono, and hands out fixed-size float blocks, which makes
// it useful for exercising the capture pipeline without a live microphone.
type WAVSource struct {
	samples    []float32
	sampleRate int
	pos        int
	file       *os.File
	closed     bool
}

// OpenWAV opens path and prepares it for block-wise replay.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("audio: %s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		f.Close()
		return nil, fmt.Errorf("audio: %s contains no samples", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	samples = MixToMono(samples, channels)

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		rate = CaptureSampleRate
	}

	return &WAVSource{
		samples:    samples,
		sampleRate: rate,
		file:       f,
	}, nil
}

// SampleRate returns the decoded file's sample rate in Hz.
func (s *WAVSource) SampleRate() int { return s.sampleRate }

// ReadBlock fills dst with the next mono samples and returns the number
// copied. It returns io.EOF once the file is exhausted or the source closed.
func (s *WAVSource) ReadBlock(dst []float32) (int, error) {
	if s.closed || s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

// Close releases the underlying file. Safe to call more than once.
func (s *WAVSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return nil
}
