// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and backend selection
package output

import (
	"fmt"
	"log/slog"
	"time"
)

// Output represents an audio output backend
type Output interface {
	// Open configures a new stream on the device
	Open(channels, sampleRate int) (Sink, error)

	// Close releases backend resources. Sinks must be closed first.
	Close() error
}

// Sink is an open stream at a fixed channel count and sample rate
type Sink interface {
	// Write queues interleaved samples, blocking while the device buffer is full
	Write(samples []int16) error

	// Recover attempts to return the stream to a writable state after err
	Recover(err error) error

	// Drain blocks until queued samples have been played
	Drain() error

	// Close releases the stream without draining
	Close() error
}

const (
	// DefaultStartThreshold is the number of frames buffered before playback starts
	DefaultStartThreshold = 512

	// DefaultBufferDuration is the device-side queue length
	DefaultBufferDuration = 500 * time.Millisecond

	// DefaultStallTimeout bounds how long Write waits for buffer space
	DefaultStallTimeout = 2 * time.Second
)

// Backend names accepted by New
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
)

// Config holds settings shared by all backends
type Config struct {
	// Device selects an output by case-insensitive name substring.
	// Empty or "default" uses the system default device.
	Device string

	// StartThreshold in frames; 0 uses DefaultStartThreshold
	StartThreshold int

	// BufferDuration of the queue between Write and the device
	BufferDuration time.Duration

	// StallTimeout for a Write that finds no room in the queue
	StallTimeout time.Duration

	Logger *slog.Logger
}

func (c Config) withDefaults(backend string) Config {
	if c.StartThreshold <= 0 {
		c.StartThreshold = DefaultStartThreshold
	}
	if c.BufferDuration <= 0 {
		c.BufferDuration = DefaultBufferDuration
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Logger = c.Logger.With("component", "output", "backend", backend)
	return c
}

func isDefaultDevice(name string) bool {
	return name == "" || name == "default"
}

// New creates the named backend
func New(backend string, cfg Config) (Output, error) {
	switch backend {
	case "", BackendMalgo:
		return NewMalgo(cfg), nil
	case BackendOto:
		return NewOto(cfg), nil
	case BackendPortAudio:
		return NewPortAudio(cfg), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (supported: malgo, oto, portaudio)", backend)
	}
}
