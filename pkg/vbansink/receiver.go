// ABOUTME: UDP receive loop feeding the stream session
// ABOUTME: Blocks with a one second timeout that also drives liveness checks
package vbansink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/vbansink/vbansink-go/internal/session"
	"github.com/vbansink/vbansink-go/pkg/audio"
	"github.com/vbansink/vbansink-go/pkg/audio/output"
	"github.com/vbansink/vbansink-go/pkg/vban"
)

// ReadTimeout bounds each blocking receive
const ReadTimeout = time.Second

// Receiver owns the socket, the session and, unless injected, the output
type Receiver struct {
	conn       *net.UDPConn
	session    *session.Session
	out        output.Output
	ownsOutput bool
	log        *slog.Logger

	// One byte past the largest valid datagram so oversize is detectable
	buf []byte
}

// New validates cfg, opens the output backend and binds the socket
func New(cfg Config) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Receiver{
		out: cfg.Output,
		log: cfg.Logger.With("component", "receiver"),
		buf: make([]byte, vban.MaxDatagramSize+1),
	}

	if r.out == nil {
		out, err := output.New(cfg.Backend, output.Config{
			Device:         cfg.Device,
			StartThreshold: cfg.StartThreshold,
			Logger:         cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		r.out = out
		r.ownsOutput = true
	}

	sess, err := session.New(r.out, session.Config{
		StreamName:    cfg.StreamName,
		Channels:      cfg.Channels,
		SampleRate:    cfg.SampleRate,
		PreRoll:       cfg.PreRoll,
		IdleTimeout:   cfg.IdleTimeout,
		Logger:        cfg.Logger,
		OnStateChange: cfg.OnStateChange,
	})
	if err != nil {
		r.closeOutput()
		return nil, err
	}
	r.session = sess

	laddr := &net.UDPAddr{IP: net.ParseIP(cfg.BindAddress), Port: cfg.Port}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		r.closeOutput()
		return nil, fmt.Errorf("failed to bind %s: %w", laddr, err)
	}
	if cfg.ReceiveBuffer > 0 {
		if err := conn.SetReadBuffer(cfg.ReceiveBuffer); err != nil {
			conn.Close()
			r.closeOutput()
			return nil, fmt.Errorf("failed to set receive buffer: %w", err)
		}
	}
	r.conn = conn

	r.log.Info("listening for VBAN",
		"addr", conn.LocalAddr().String(),
		"stream", cfg.StreamName,
		"channels", cfg.Channels,
		"rate", cfg.SampleRate)

	return r, nil
}

// HandleNext waits for one datagram and feeds it to the session. The idle
// timeout is checked first on every call, including read timeouts. Only a
// closed socket is returned as an error.
func (r *Receiver) HandleNext() error {
	if err := r.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		r.log.Warn("failed to set read deadline", "err", err)
	}

	n, addr, err := r.conn.ReadFromUDP(r.buf)
	r.session.Tick(time.Now())

	if err != nil {
		var ne net.Error
		switch {
		case errors.As(err, &ne) && ne.Timeout():
			return nil
		case errors.Is(err, net.ErrClosed):
			return err
		default:
			r.log.Warn("receive failed", "err", err)
			return nil
		}
	}

	r.session.Handle(r.buf[:n], addr)
	return nil
}

// Run calls HandleNext until ctx is done or the socket is closed. A
// cancelled context closes the socket so the pending read returns.
func (r *Receiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		r.conn.Close()
	})
	defer stop()

	for {
		if err := r.HandleNext(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// LocalAddr returns the bound socket address
func (r *Receiver) LocalAddr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Status returns the session state snapshot
func (r *Receiver) Status() Status {
	return r.session.Status()
}

// Stats returns the session counters
func (r *Receiver) Stats() Stats {
	return r.session.Stats()
}

// Meter returns the peak of the most recent accepted packet
func (r *Receiver) Meter() audio.Peak {
	return r.session.Meter()
}

// Close releases the sink, the socket and an owned output. It must not
// be called while HandleNext is running; cancel Run and wait for it first.
func (r *Receiver) Close() error {
	r.session.Close()

	var errs []error
	if err := r.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}
	if err := r.closeOutput(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Receiver) closeOutput() error {
	if !r.ownsOutput || r.out == nil {
		return nil
	}
	return r.out.Close()
}
