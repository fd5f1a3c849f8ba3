//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using the PortAudio blocking API
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the blocking write granularity
const framesPerBuffer = 256

// PortAudio output implementation
type PortAudio struct {
	cfg         Config
	log         *slog.Logger
	mu          sync.Mutex
	initialized bool
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(cfg Config) Output {
	cfg = cfg.withDefaults(BackendPortAudio)
	return &PortAudio{
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Open initializes PortAudio on first use and opens a blocking stream
func (p *PortAudio) Open(channels, sampleRate int) (Sink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if channels < 1 || sampleRate < 1 {
		return nil, p.openError(fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate))
	}

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, p.openError(fmt.Errorf("failed to initialize portaudio: %w", err))
		}
		p.initialized = true
	}

	device, err := p.findDevice(p.cfg.Device)
	if err != nil {
		return nil, p.openError(err)
	}

	params := portaudio.LowLatencyParameters(nil, device)
	params.Output.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer

	sink := &portAudioSink{
		channels:  channels,
		threshold: p.cfg.StartThreshold * channels,
		buffer:    make([]int16, framesPerBuffer*channels),
	}

	stream, err := portaudio.OpenStream(params, &sink.buffer)
	if err != nil {
		return nil, p.openError(fmt.Errorf("failed to open stream: %w", err))
	}
	sink.stream = stream

	p.log.Info("audio output opened",
		"device", device.Name,
		"rate", sampleRate,
		"channels", channels,
		"start_threshold", p.cfg.StartThreshold)

	return sink, nil
}

func (p *PortAudio) findDevice(name string) (*portaudio.DeviceInfo, error) {
	if isDefaultDevice(name) {
		device, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	want := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxOutputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func (p *PortAudio) openError(err error) error {
	return &DeviceError{Op: "open", Backend: BackendPortAudio, Err: err}
}

// Close terminates PortAudio
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type portAudioSink struct {
	stream    *portaudio.Stream
	buffer    []int16 // bound to the stream; resliced per write
	channels  int
	threshold int

	pending []int16
	started bool
	closed  bool
}

// Write queues samples until the start threshold, then writes blocking
func (s *portAudioSink) Write(samples []int16) error {
	if s.closed {
		return s.fail("write", ErrClosed)
	}

	if !s.started {
		s.pending = append(s.pending, samples...)
		if len(s.pending) < s.threshold {
			return nil
		}
		return s.start()
	}
	return s.write(samples)
}

func (s *portAudioSink) start() error {
	if err := s.stream.Start(); err != nil {
		return s.fail("write", fmt.Errorf("failed to start stream: %w", err))
	}
	s.started = true
	err := s.write(s.pending)
	s.pending = s.pending[:0]
	return err
}

func (s *portAudioSink) write(samples []int16) error {
	chunk := framesPerBuffer * s.channels
	for len(samples) > 0 {
		n := min(chunk, len(samples)-len(samples)%s.channels)
		if n == 0 {
			return nil
		}
		s.buffer = s.buffer[:n]
		copy(s.buffer, samples[:n])
		samples = samples[n:]

		if err := s.stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				return s.fail("write", ErrUnderrun)
			}
			return s.fail("write", err)
		}
	}
	return nil
}

// Recover aborts the stream after an underflow so the next write refills
// to the start threshold before playback resumes
func (s *portAudioSink) Recover(err error) error {
	if !IsRecoverable(err) {
		return err
	}
	if s.closed {
		return s.fail("recover", ErrClosed)
	}
	if s.started {
		if aerr := s.stream.Abort(); aerr != nil {
			return s.fail("recover", aerr)
		}
		s.started = false
	}
	s.pending = s.pending[:0]
	return nil
}

// Drain flushes anything held back and stops the stream, which plays out
// pending buffers
func (s *portAudioSink) Drain() error {
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
	s.started = false
	if err := s.stream.Stop(); err != nil {
		return s.fail("drain", err)
	}
	return nil
}

// Close releases the stream
func (s *portAudioSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.stream.Close(); err != nil {
		return s.fail("close", err)
	}
	return nil
}

func (s *portAudioSink) fail(op string, err error) error {
	return &DeviceError{Op: op, Backend: BackendPortAudio, Err: err}
}
