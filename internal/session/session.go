// ABOUTME: Stream session state machine for a single VBAN sender
// ABOUTME: Opens, reconfigures and releases the output sink as packets arrive
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vbansink/vbansink-go/pkg/audio"
	"github.com/vbansink/vbansink-go/pkg/audio/output"
	"github.com/vbansink/vbansink-go/pkg/vban"
)

// DefaultIdleTimeout is how long a playing stream may go without an
// accepted packet before the sink is released
const DefaultIdleTimeout = 2 * time.Second

// Config holds session configuration
type Config struct {
	// StreamName filters packets by name; empty accepts any stream
	StreamName string

	// Channels and SampleRate, when non-zero, drop packets of any other format
	Channels   int
	SampleRate int

	// PreRoll is the silence written after every open
	PreRoll time.Duration

	IdleTimeout time.Duration

	Logger *slog.Logger

	// OnStateChange is called from the receive goroutine on every transition
	OnStateChange func(Status)

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// Session tracks the active stream and owns its sink. Handle, Tick and
// Close must be called from a single goroutine; Stats, Meter and Status
// are safe from any goroutine.
type Session struct {
	out        output.Output
	cfg        Config
	log        *slog.Logger
	filterName vban.StreamName
	state      state
	samples    []int16

	stats  counters
	left   atomic.Int32
	right  atomic.Int32
	status atomic.Pointer[Status]
}

// state is either idle or *playing; a sink exists only while playing
type state interface {
	status() Status
}

type idle struct{}

func (idle) status() Status {
	return Status{State: StateIdle}
}

type playing struct {
	id       string
	format   audio.Format
	sink     output.Sink
	name     vban.StreamName
	sender   string
	since    time.Time
	lastSeen time.Time
}

func (p *playing) status() Status {
	return Status{
		State:      StatePlaying,
		ID:         p.id,
		StreamName: p.name.String(),
		Format:     p.format,
		Sender:     p.sender,
		Since:      p.since,
	}
}

// New creates an idle session writing to out
func New(out output.Output, cfg Config) (*Session, error) {
	if out == nil {
		return nil, errors.New("session requires an output")
	}

	name, err := vban.ParseStreamName(cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("invalid stream name filter: %w", err)
	}
	if cfg.SampleRate != 0 {
		if _, ok := vban.SampleRateFromHz(cfg.SampleRate); !ok {
			return nil, fmt.Errorf("sample rate %d Hz is not a VBAN rate", cfg.SampleRate)
		}
	}
	if cfg.Channels < 0 || cfg.Channels > vban.MaxChannels {
		return nil, fmt.Errorf("channel count %d out of range 1..%d", cfg.Channels, vban.MaxChannels)
	}
	if cfg.PreRoll < 0 {
		return nil, fmt.Errorf("negative pre-roll %v", cfg.PreRoll)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Session{
		out:        out,
		cfg:        cfg,
		log:        cfg.Logger.With("component", "session"),
		filterName: name,
		state:      idle{},
	}
	initial := s.state.status()
	s.status.Store(&initial)
	return s, nil
}

// Handle processes one datagram received from sender
func (s *Session) Handle(datagram []byte, sender net.Addr) {
	s.stats.received.Add(1)

	pkt, err := vban.Decode(datagram)
	if err != nil {
		s.stats.rejected.Add(1)
		if errors.Is(err, vban.ErrNotVBAN) {
			s.log.Debug("ignoring non-VBAN datagram", "from", addrString(sender), "size", len(datagram))
		} else {
			s.log.Warn("rejected packet", "from", addrString(sender), "size", len(datagram), "err", err)
		}
		return
	}

	if reason := s.filter(pkt); reason != "" {
		s.stats.filtered.Add(1)
		s.log.Debug("filtered packet", "from", addrString(sender), "stream", pkt.StreamName, "reason", reason)
		return
	}
	s.stats.accepted.Add(1)

	samples, peak := audio.DecodeS16LE(s.samples[:0], pkt.Payload, pkt.Channels)
	s.samples = samples
	s.left.Store(int32(peak.Left))
	s.right.Store(int32(peak.Right))

	format := audio.NewFormat(pkt.SampleRate.Hz(), pkt.Channels)
	now := s.cfg.Now()
	from := addrString(sender)

	var p *playing
	switch st := s.state.(type) {
	case idle:
		p = s.open(format, pkt.StreamName, from, now, nil)
		if p == nil {
			return
		}
	case *playing:
		if st.format != format {
			s.log.Info("stream format changed, reopening output",
				"id", st.id, "from_format", st.format.String(), "to_format", format.String())
			s.release(st)
			p = s.open(format, pkt.StreamName, from, now, st)
			if p == nil {
				return
			}
		} else {
			p = st
			if st.sender != from || !st.name.Equal(pkt.StreamName) {
				st.sender = from
				st.name = pkt.StreamName
				s.publish()
			}
		}
	}

	p.lastSeen = now
	if err := s.write(p, samples); isDead(err) {
		s.abandon(p, err)
	}
}

// filter returns why pkt does not match the configured filters, or ""
func (s *Session) filter(pkt *vban.Packet) string {
	if !s.filterName.IsZero() && !pkt.StreamName.Equal(s.filterName) {
		return "stream name"
	}
	if s.cfg.Channels != 0 && pkt.Channels != s.cfg.Channels {
		return "channel count"
	}
	if s.cfg.SampleRate != 0 && pkt.SampleRate.Hz() != s.cfg.SampleRate {
		return "sample rate"
	}
	return ""
}

// open creates a sink for format and enters playing, continuing prev when
// reopening. Pre-roll silence is only written at the start of an episode.
// On failure the session is left idle and nil is returned; the next packet
// retries.
func (s *Session) open(format audio.Format, name vban.StreamName, sender string, now time.Time, prev *playing) *playing {
	sink, err := s.out.Open(format.Channels, format.SampleRate)
	if err != nil {
		s.stats.openFailures.Add(1)
		s.log.Error("failed to open output", "format", format.String(), "err", err)
		s.transition(idle{})
		return nil
	}
	s.stats.opens.Add(1)

	p := &playing{
		format:   format,
		sink:     sink,
		name:     name,
		sender:   sender,
		lastSeen: now,
	}
	if prev != nil {
		p.id, p.since = prev.id, prev.since
	} else {
		p.id, p.since = uuid.New().String(), now
	}
	s.log.Info("stream started",
		"id", p.id,
		"stream", name,
		"sender", sender,
		"format", format.String(),
		"preroll", s.cfg.PreRoll)

	if prev == nil && s.cfg.PreRoll > 0 {
		if err := s.write(p, audio.Silence(format.FramesFor(s.cfg.PreRoll), format.Channels)); isDead(err) {
			s.abandon(p, err)
			return nil
		}
	}
	s.transition(p)
	return p
}

// write applies the sink recovery policy; a failed write drops the packet
func (s *Session) write(p *playing, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	recovered, err := output.WriteWithRecovery(p.sink, samples)
	if recovered {
		s.stats.recoveries.Add(1)
		s.log.Warn("output underrun, recovered", "id", p.id)
	}
	if err != nil {
		s.stats.writeFailures.Add(1)
		s.log.Warn("output write failed, dropping packet", "id", p.id, "samples", len(samples), "err", err)
		return err
	}
	s.stats.writes.Add(1)
	return nil
}

// isDead reports whether err leaves the sink unable to take further writes
func isDead(err error) bool {
	return errors.Is(err, output.ErrStalled) || errors.Is(err, output.ErrClosed)
}

// abandon closes a sink that can no longer be written without draining it
// and goes idle, so the next packet opens a fresh one
func (s *Session) abandon(p *playing, err error) {
	s.log.Warn("output stopped accepting samples, releasing", "id", p.id, "err", err)
	if cerr := p.sink.Close(); cerr != nil {
		s.log.Warn("output close failed", "id", p.id, "err", cerr)
	}
	s.transition(idle{})
}

// release drains and closes the sink of p
func (s *Session) release(p *playing) {
	if err := p.sink.Drain(); err != nil {
		s.log.Warn("output drain failed", "id", p.id, "err", err)
	}
	if err := p.sink.Close(); err != nil {
		s.log.Warn("output close failed", "id", p.id, "err", err)
	}
}

// Tick releases the sink once the stream has been silent for longer than
// the idle timeout. It is called on every receive loop iteration.
func (s *Session) Tick(now time.Time) {
	p, ok := s.state.(*playing)
	if !ok {
		return
	}
	if silent := now.Sub(p.lastSeen); silent > s.cfg.IdleTimeout {
		s.log.Info("stream timed out", "id", p.id, "silent_for", silent.Round(time.Millisecond))
		s.release(p)
		s.transition(idle{})
	}
}

// Close releases a live sink
func (s *Session) Close() {
	if p, ok := s.state.(*playing); ok {
		s.log.Info("closing stream", "id", p.id)
		s.release(p)
		s.transition(idle{})
	}
}

func (s *Session) transition(next state) {
	s.state = next
	st := s.publish()
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

func (s *Session) publish() Status {
	st := s.state.status()
	s.status.Store(&st)
	return st
}

// Status returns a snapshot of the current state
func (s *Session) Status() Status {
	return *s.status.Load()
}

// Meter returns the peak of the most recent accepted packet
func (s *Session) Meter() audio.Peak {
	return audio.Peak{Left: int16(s.left.Load()), Right: int16(s.right.Load())}
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return s.stats.snapshot()
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
