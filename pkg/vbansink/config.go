// ABOUTME: Receiver configuration and validation
// ABOUTME: Rejects bad settings before any socket or device is acquired
package vbansink

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/vbansink/vbansink-go/internal/session"
	"github.com/vbansink/vbansink-go/pkg/audio/output"
	"github.com/vbansink/vbansink-go/pkg/vban"
)

// DefaultPort is the standard VBAN UDP port
const DefaultPort = 6980

// Status and Stats are snapshots of the stream session
type (
	Status = session.Status
	Stats  = session.Stats
)

// Session states
const (
	StateIdle    = session.StateIdle
	StatePlaying = session.StatePlaying
)

// Config holds receiver configuration
type Config struct {
	// BindAddress is the local IP to listen on; empty listens on all
	BindAddress string
	// Port to listen on; 0 picks a free port
	Port int

	// StreamName accepts only packets carrying this name (at most 16 bytes)
	StreamName string
	// Channels and SampleRate, when non-zero, accept only that format.
	// Packets in any other format are dropped, never converted.
	Channels   int
	SampleRate int

	// Device and Backend select the output when Output is nil
	Device  string
	Backend string

	PreRoll        time.Duration
	StartThreshold int // frames
	IdleTimeout    time.Duration

	// ReceiveBuffer sets the socket receive buffer in bytes when non-zero
	ReceiveBuffer int

	// Output overrides backend selection; the receiver does not close it
	Output output.Output

	Logger        *slog.Logger
	OnStateChange func(Status)
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.BindAddress != "" && net.ParseIP(c.BindAddress) == nil {
		return fmt.Errorf("invalid bind address %q", c.BindAddress)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := vban.ParseStreamName(c.StreamName); err != nil {
		return fmt.Errorf("invalid stream name: %w", err)
	}
	if c.Channels < 0 || c.Channels > vban.MaxChannels {
		return fmt.Errorf("channels %d out of range 1..%d", c.Channels, vban.MaxChannels)
	}
	if c.SampleRate != 0 {
		if _, ok := vban.SampleRateFromHz(c.SampleRate); !ok {
			return fmt.Errorf("sample rate %d Hz is not a VBAN rate", c.SampleRate)
		}
	}
	if c.PreRoll < 0 {
		return fmt.Errorf("negative pre-roll %v", c.PreRoll)
	}
	if c.StartThreshold < 0 {
		return fmt.Errorf("negative start threshold %d", c.StartThreshold)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("negative idle timeout %v", c.IdleTimeout)
	}
	if c.ReceiveBuffer < 0 {
		return fmt.Errorf("negative receive buffer %d", c.ReceiveBuffer)
	}
	if c.Output == nil {
		switch c.Backend {
		case "", output.BackendMalgo, output.BackendOto, output.BackendPortAudio:
		default:
			return fmt.Errorf("unknown output backend %q", c.Backend)
		}
	}
	return nil
}
