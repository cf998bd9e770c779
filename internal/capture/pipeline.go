// Package capture runs the audio capture pipeline: it pulls float sample
// blocks from a source, converts them to 16-bit PCM, and streams them to a
// transcription session whose results are forwarded to the caller.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nohairblingbling/interview-assistant/pkg/audio"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/stt"
)

// Source produces mono float32 sample blocks from an audio device or file.
type Source interface {
	// SampleRate returns the source's sample rate in Hz.
	SampleRate() int
	// ReadBlock fills dst and returns the number of samples copied. io.EOF
	// signals the end of the source.
	ReadBlock(dst []float32) (int, error)
	// Close releases the source. Must be safe to call more than once.
	Close() error
}

// SourceFactory opens a Source when capture starts. Acquisition happens per
// start, mirroring how a microphone or system-audio stream is requested.
type SourceFactory func(ctx context.Context) (Source, error)

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithStreamConfig overrides the transcription stream configuration.
func WithStreamConfig(cfg stt.StreamConfig) Option {
	return func(p *Pipeline) { p.streamCfg = cfg }
}

// WithOnPartial registers a callback for interim transcripts.
func WithOnPartial(fn func(string)) Option {
	return func(p *Pipeline) { p.onPartial = fn }
}

// WithOnError registers a callback for delivery failures that abort an active
// capture.
func WithOnError(fn func(error)) Option {
	return func(p *Pipeline) { p.onError = fn }
}

// Pipeline is the Idle/Capturing state machine around one capture session.
// Safe for concurrent use.
type Pipeline struct {
	provider  stt.Provider
	newSource SourceFactory
	streamCfg stt.StreamConfig
	onFinal   func(string)
	onPartial func(string)
	onError   func(error)

	mu        sync.Mutex
	capturing bool
	cancel    context.CancelFunc
	source    Source
	session   stt.SessionHandle
	wg        *sync.WaitGroup
}

// New creates an idle Pipeline. onFinal receives every final transcript, in
// delivery order, while capture is active.
func New(provider stt.Provider, newSource SourceFactory, onFinal func(string), opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:  provider,
		newSource: newSource,
		onFinal:   onFinal,
		streamCfg: stt.StreamConfig{
			SampleRate: audio.CaptureSampleRate,
			Channels:   1,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Capturing reports whether a capture session is active.
func (p *Pipeline) Capturing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capturing
}

// Start acquires the audio source, opens a transcription session, and begins
// block delivery. On any acquisition failure everything already acquired is
// released and the pipeline stays idle.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capturing {
		return errors.New("capture: already capturing")
	}
	if p.provider == nil {
		return errors.New("capture: transcription provider not configured")
	}

	source, err := p.newSource(ctx)
	if err != nil {
		return fmt.Errorf("capture: acquire audio source: %w", err)
	}

	session, err := p.provider.StartStream(ctx, p.streamCfg)
	if err != nil {
		err = fmt.Errorf("capture: open transcription session: %w", err)
		if cerr := source.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("capture: close audio source: %w", cerr))
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	p.capturing = true
	p.cancel = cancel
	p.source = source
	p.session = session
	p.wg = wg

	wg.Add(2)
	go p.deliverLoop(loopCtx, source, session, wg)
	go p.forwardLoop(session, wg)

	slog.Info("capture started",
		"sourceRate", source.SampleRate(),
		"streamRate", p.streamCfg.SampleRate,
	)
	return nil
}

// Stop tears down an active capture session: block delivery is cancelled, the
// transcription session and the source are closed, and the worker goroutines
// are joined. Every release runs even when an earlier one fails; the failures
// are joined into one error. Calling Stop while idle is a no-op.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.capturing {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	source := p.source
	session := p.session
	wg := p.wg
	p.capturing = false
	p.cancel = nil
	p.source = nil
	p.session = nil
	p.wg = nil
	p.mu.Unlock()

	cancel()

	var errs []error
	if err := session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("capture: close transcription session: %w", err))
	}
	if err := source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("capture: close audio source: %w", err))
	}
	wg.Wait()

	slog.Info("capture stopped")
	return errors.Join(errs...)
}

// deliverLoop reads sample blocks, converts them to PCM, and sends them to
// the transcription session until cancelled or the source ends.
func (p *Pipeline) deliverLoop(ctx context.Context, source Source, session stt.SessionHandle, wg *sync.WaitGroup) {
	defer wg.Done()

	block := make([]float32, audio.BlockSize)
	srcRate := source.SampleRate()
	dstRate := p.streamCfg.SampleRate

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := source.ReadBlock(block)
		if err != nil {
			if err != io.EOF {
				p.reportError(fmt.Errorf("capture: read audio block: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}

		samples := block[:n]
		if srcRate != dstRate {
			samples = audio.ResampleFloat32(samples, srcRate, dstRate)
		}
		frame := audio.Float32ToPCM16(samples)

		if err := session.SendAudio(frame); err != nil {
			select {
			case <-ctx.Done():
				// Send raced with Stop closing the session.
			default:
				p.reportError(fmt.Errorf("capture: send audio frame: %w", err))
			}
			return
		}
	}
}

// forwardLoop pumps transcripts out of the session until its channels close.
func (p *Pipeline) forwardLoop(session stt.SessionHandle, wg *sync.WaitGroup) {
	defer wg.Done()

	partials := session.Partials()
	finals := session.Finals()
	for partials != nil || finals != nil {
		select {
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			if p.onFinal != nil {
				p.onFinal(t.Text)
			}
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			if p.onPartial != nil {
				p.onPartial(t.Text)
			}
		}
	}
}

func (p *Pipeline) reportError(err error) {
	slog.Error("capture pipeline failure", "error", err)
	if p.onError != nil {
		p.onError(err)
	}
}
