// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a ring buffer fed callback
package output

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/vbansink/vbansink-go/pkg/audio"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	cfg      Config
	log      *slog.Logger
	malgoCtx *malgo.AllocatedContext
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo(cfg Config) Output {
	cfg = cfg.withDefaults(BackendMalgo)
	return &Malgo{
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Open initializes a playback device with the given format
func (m *Malgo) Open(channels, sampleRate int) (Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channels < 1 || sampleRate < 1 {
		return nil, m.openError(fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate))
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, m.openError(fmt.Errorf("failed to initialize malgo context: %w", err))
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	deviceName := "default"
	if !isDefaultDevice(m.cfg.Device) {
		info, err := m.findDevice(m.cfg.Device)
		if err != nil {
			return nil, m.openError(err)
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
		deviceName = info.Name()
	}

	sink := newMalgoSink(channels, sampleRate, m.cfg)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			sink.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, m.openError(fmt.Errorf("failed to initialize playback device: %w", err))
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, m.openError(fmt.Errorf("failed to start device: %w", err))
	}
	sink.device = device

	m.log.Info("audio output opened",
		"device", deviceName,
		"rate", sampleRate,
		"channels", channels,
		"start_threshold", m.cfg.StartThreshold)

	return sink, nil
}

func (m *Malgo) findDevice(name string) (*malgo.DeviceInfo, error) {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}

	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func (m *Malgo) openError(err error) error {
	return &DeviceError{Op: "open", Backend: BackendMalgo, Err: err}
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warn("malgo context uninit error", "err", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// malgoSink is one playback device fed from a ring buffer by the
// miniaudio data callback
type malgoSink struct {
	device       *malgo.Device
	channels     int
	threshold    int // samples
	stallTimeout time.Duration
	ring         *RingBuffer
	scratch      []int16

	// Guarded by mu; touched by the callback thread
	mu       sync.Mutex
	started  bool
	draining bool

	underrun atomic.Bool
	closed   atomic.Bool
	space    chan struct{}
}

func newMalgoSink(channels, sampleRate int, cfg Config) *malgoSink {
	threshold := cfg.StartThreshold * channels
	capacity := audio.NewFormat(sampleRate, channels).FramesFor(cfg.BufferDuration) * channels
	// The queue must hold the threshold with room to spare
	if capacity < 2*threshold {
		capacity = 2 * threshold
	}

	return &malgoSink{
		channels:     channels,
		threshold:    threshold,
		stallTimeout: cfg.StallTimeout,
		ring:         NewRingBuffer(capacity),
		space:        make(chan struct{}, 1),
	}
}

// dataCallback is called by malgo to fill the audio output buffer
func (s *malgoSink) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount) * s.channels
	if cap(s.scratch) < n {
		s.scratch = make([]int16, n)
	}
	samples := s.scratch[:n]

	s.mu.Lock()
	available := s.ring.Available()
	if !s.started && (available >= s.threshold || (s.draining && available > 0)) {
		s.started = true
	}

	if s.started {
		read := s.ring.Read(samples)
		if read < n && !s.draining {
			// Starved after start: report it and wait for the threshold again
			s.started = false
			s.underrun.Store(true)
		}
	} else {
		clear(samples)
	}
	s.mu.Unlock()

	audio.PutNative(pOutput, samples)

	select {
	case s.space <- struct{}{}:
	default:
	}
}

// Write queues samples for playback
func (s *malgoSink) Write(samples []int16) error {
	if s.closed.Load() {
		return s.fail("write", ErrClosed)
	}
	if s.underrun.Load() {
		return s.fail("write", ErrUnderrun)
	}

	var stall *time.Timer
	for {
		n := s.ring.Write(samples)
		samples = samples[n:]
		if len(samples) == 0 {
			break
		}

		// Buffer is full; the callback signals as it drains
		if stall == nil {
			stall = time.NewTimer(s.stallTimeout)
			defer stall.Stop()
		}
		select {
		case <-s.space:
		case <-stall.C:
			return s.fail("write", ErrStalled)
		}
		if s.closed.Load() {
			return s.fail("write", ErrClosed)
		}
	}
	return nil
}

// Recover clears the queue after an underrun and re-arms the start threshold
func (s *malgoSink) Recover(err error) error {
	if !IsRecoverable(err) {
		return err
	}
	if s.closed.Load() {
		return s.fail("recover", ErrClosed)
	}

	s.mu.Lock()
	s.ring.Reset()
	s.started = false
	s.mu.Unlock()
	s.underrun.Store(false)
	return nil
}

// Drain plays out whatever is queued, even below the start threshold
func (s *malgoSink) Drain() error {
	if s.closed.Load() {
		return s.fail("drain", ErrClosed)
	}

	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.draining = false
		s.started = false
		s.mu.Unlock()
	}()

	deadline := time.NewTimer(s.stallTimeout)
	defer deadline.Stop()
	for s.ring.Available() > 0 {
		select {
		case <-s.space:
		case <-deadline.C:
			return s.fail("drain", ErrStalled)
		}
	}
	return nil
}

// Close stops and uninitializes the device
func (s *malgoSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.device != nil {
		if err := s.device.Stop(); err != nil {
			s.device.Uninit()
			return s.fail("close", err)
		}
		s.device.Uninit()
	}
	return nil
}

func (s *malgoSink) fail(op string, err error) error {
	return &DeviceError{Op: op, Backend: BackendMalgo, Err: err}
}
