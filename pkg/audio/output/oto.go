// ABOUTME: Oto-based audio output implementation
// ABOUTME: Shares the single process-wide oto context and resamples rate changes
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vbansink/vbansink-go/pkg/audio"
	"github.com/vbansink/vbansink-go/pkg/audio/resample"
)

// oto only allows one context per process, so its format is fixed by
// the first Open and shared by every Oto output.
var (
	otoMu        sync.Mutex
	otoCtx       *oto.Context
	otoRate      int
	otoChannels  int
	otoSuspended bool
)

// Oto output implementation using oto library
type Oto struct {
	cfg Config
	log *slog.Logger
}

// NewOto creates a new Oto output
func NewOto(cfg Config) Output {
	cfg = cfg.withDefaults(BackendOto)
	return &Oto{
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Open creates a player on the shared context. A rate other than the
// context's is resampled; a different channel count cannot be served.
func (o *Oto) Open(channels, sampleRate int) (Sink, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if channels < 1 || sampleRate < 1 {
		return nil, o.openError(fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate))
	}
	if !isDefaultDevice(o.cfg.Device) {
		o.log.Warn("oto cannot select a device, using the system default", "device", o.cfg.Device)
	}

	if otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   o.cfg.BufferDuration,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, o.openError(fmt.Errorf("failed to create oto context: %w", err))
		}
		<-readyChan

		otoCtx = ctx
		otoRate = sampleRate
		otoChannels = channels
		o.log.Info("oto context created", "rate", sampleRate, "channels", channels)
	} else if otoSuspended {
		if err := otoCtx.Resume(); err != nil {
			return nil, o.openError(fmt.Errorf("failed to resume oto context: %w", err))
		}
		otoSuspended = false
	}

	if channels != otoChannels {
		return nil, o.openError(fmt.Errorf("%w: oto context is fixed at %d channels, stream has %d",
			ErrUnsupportedFormat, otoChannels, channels))
	}

	sink := &otoSink{
		channels:     channels,
		threshold:    o.cfg.StartThreshold * channels,
		stallTimeout: o.cfg.StallTimeout,
		drainTimeout: o.cfg.BufferDuration + o.cfg.StallTimeout,
	}
	if sampleRate != otoRate {
		sink.resampler = resample.New(sampleRate, otoRate, channels)
		o.log.Info("resampling stream to oto context rate", "from", sampleRate, "to", otoRate)
	}

	// Persistent player fed through a pipe
	sink.pipeReader, sink.pipeWriter = io.Pipe()
	sink.player = otoCtx.NewPlayer(sink.pipeReader)

	o.log.Info("audio output opened", "rate", sampleRate, "channels", channels)
	return sink, nil
}

func (o *Oto) openError(err error) error {
	return &DeviceError{Op: "open", Backend: BackendOto, Err: err}
}

// Close suspends the shared context; it cannot be destroyed
func (o *Oto) Close() error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil || otoSuspended {
		return nil
	}
	if err := otoCtx.Suspend(); err != nil {
		return &DeviceError{Op: "close", Backend: BackendOto, Err: err}
	}
	otoSuspended = true
	return nil
}

type otoSink struct {
	player       *oto.Player
	pipeReader   *io.PipeReader
	pipeWriter   *io.PipeWriter
	resampler    *resample.Resampler
	channels     int
	threshold    int // samples held back before Play
	stallTimeout time.Duration
	drainTimeout time.Duration

	pending   []int16
	converted []int16
	buf       []byte
	started   bool
	closed    bool
}

// Write holds samples back until the start threshold, then streams them
// to the player
func (s *otoSink) Write(samples []int16) error {
	if s.closed {
		return s.fail("write", ErrClosed)
	}

	if s.resampler != nil {
		s.converted = s.resampler.Resample(s.converted[:0], samples)
		samples = s.converted
	}

	if !s.started {
		s.pending = append(s.pending, samples...)
		if len(s.pending) < s.threshold {
			return nil
		}
		return s.start()
	}
	return s.push(samples)
}

func (s *otoSink) start() error {
	s.started = true
	s.player.Play()
	err := s.push(s.pending)
	s.pending = s.pending[:0]
	return err
}

// push blocks until the player has taken samples from the pipe
func (s *otoSink) push(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	if cap(s.buf) < len(samples)*2 {
		s.buf = make([]byte, len(samples)*2)
	}
	buf := s.buf[:len(samples)*2]
	audio.PutLE(buf, samples)

	stall := time.AfterFunc(s.stallTimeout, func() {
		s.pipeReader.CloseWithError(ErrStalled)
	})
	defer stall.Stop()

	if _, err := s.pipeWriter.Write(buf); err != nil {
		return s.fail("write", fmt.Errorf("pipe write failed: %w", err))
	}
	return nil
}

// Recover drops held-back samples; oto itself never reports underruns
func (s *otoSink) Recover(err error) error {
	if !IsRecoverable(err) {
		return err
	}
	if s.closed {
		return s.fail("recover", ErrClosed)
	}
	s.pending = s.pending[:0]
	if s.resampler != nil {
		s.resampler.Reset()
	}
	return nil
}

// Drain starts playback of anything held back and waits for the player
// buffer to empty
func (s *otoSink) Drain() error {
	if s.closed {
		return s.fail("drain", ErrClosed)
	}
	if !s.started && len(s.pending) > 0 {
		if err := s.start(); err != nil {
			return err
		}
	}
	if !s.started {
		return nil
	}

	deadline := time.Now().Add(s.drainTimeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.player.BufferedSize() > 0 {
		if time.Now().After(deadline) {
			return s.fail("drain", ErrStalled)
		}
		<-ticker.C
	}
	return nil
}

// Close releases the player and its pipe
func (s *otoSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.pipeWriter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.player.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pipeReader.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return s.fail("close", err)
	}
	return nil
}

func (s *otoSink) fail(op string, err error) error {
	return &DeviceError{Op: op, Backend: BackendOto, Err: err}
}
