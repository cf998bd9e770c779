// Package stt defines the Provider interface for streaming
// speech-to-text backends.
//
// A provider wraps a real-time transcription service and exposes a uniform
// streaming interface. The central abstraction is SessionHandle: once opened,
// a session accepts 16-bit PCM audio frames and emits Transcript values:
// low-latency partials for activity indicators and authoritative finals for
// the transcript buffer.
//
// Implementations must be safe for concurrent use. Audio input and transcript
// output channels are goroutine-safe by construction.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. The capture pipeline
	// produces 16000 Hz mono.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// Language is the BCP-47 primary language tag for recognition. Empty
	// lets the provider auto-detect, if supported.
	Language string

	// SecondaryLanguage, when non-empty, asks the provider to also detect
	// speech in a second language (multilingual sessions). Providers
	// without multi-language support may ignore it.
	SecondaryLanguage string
}

// SessionHandle represents an open streaming transcription session.
//
// Callers must call Close when the session is no longer needed; failing to do
// so leaks goroutines and the network connection inside the implementation.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a binary frame of 16-bit little-endian PCM to the
	// provider. The frame must match the SampleRate and Channels agreed in
	// StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(frame []byte) error

	// Partials returns a read-only channel emitting interim transcripts.
	// These drive activity indicators only and must never be committed to
	// the transcript buffer. Closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting authoritative transcripts
	// in provider-delivery order. These are the fragments committed to the
	// transcript buffer. Closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases all
	// associated resources. After Close returns the Partials and Finals
	// channels will be closed. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
type Provider interface {
	// StartStream opens a new streaming transcription session. The returned
	// SessionHandle is ready to accept audio immediately. Returns an error
	// if the session cannot be established (authentication failure,
	// unsupported configuration, or ctx already cancelled). The caller owns
	// the SessionHandle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
