// ABOUTME: Message types for the monitor WebSocket feed
// ABOUTME: JSON envelope carrying hello, status and state change messages
package monitor

import (
	"time"

	"github.com/vbansink/vbansink-go/internal/session"
)

// Message types
const (
	TypeHello  = "monitor/hello"
	TypeStatus = "monitor/status"
	TypeState  = "monitor/state"
)

// Message is the envelope for every frame sent to clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hello identifies the receiver to a new client
type Hello struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	ListenAddr string `json:"listen_addr"`
}

// Meter is the last packet peak as a fraction of full scale
type Meter struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Snapshot is the periodic status report
type Snapshot struct {
	Status session.Status `json:"status"`
	Stats  session.Stats  `json:"stats"`
	Meter  Meter          `json:"meter"`
	At     time.Time      `json:"at"`
}
