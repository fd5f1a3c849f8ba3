// ABOUTME: Session status and counter snapshots
// ABOUTME: Read by the TUI and monitor from outside the receive goroutine
package session

import (
	"sync/atomic"
	"time"

	"github.com/vbansink/vbansink-go/pkg/audio"
)

// State names the session state
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
)

// Status is a point-in-time view of the session
type Status struct {
	State      State        `json:"state"`
	ID         string       `json:"id,omitempty"`
	StreamName string       `json:"stream,omitempty"`
	Format     audio.Format `json:"format"`
	Sender     string       `json:"sender,omitempty"`
	Since      time.Time    `json:"since"`
}

// Stats counts packets and device operations since start
type Stats struct {
	Received      uint64 `json:"received"`
	Accepted      uint64 `json:"accepted"`
	Rejected      uint64 `json:"rejected"`
	Filtered      uint64 `json:"filtered"`
	Opens         uint64 `json:"opens"`
	OpenFailures  uint64 `json:"open_failures"`
	Writes        uint64 `json:"writes"`
	WriteFailures uint64 `json:"write_failures"`
	Recoveries    uint64 `json:"recoveries"`
}

type counters struct {
	received      atomic.Uint64
	accepted      atomic.Uint64
	rejected      atomic.Uint64
	filtered      atomic.Uint64
	opens         atomic.Uint64
	openFailures  atomic.Uint64
	writes        atomic.Uint64
	writeFailures atomic.Uint64
	recoveries    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:      c.received.Load(),
		Accepted:      c.accepted.Load(),
		Rejected:      c.rejected.Load(),
		Filtered:      c.filtered.Load(),
		Opens:         c.opens.Load(),
		OpenFailures:  c.openFailures.Load(),
		Writes:        c.writes.Load(),
		WriteFailures: c.writeFailures.Load(),
		Recoveries:    c.recoveries.Load(),
	}
}
