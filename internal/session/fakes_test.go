// ABOUTME: Fake output, sink and clock for session tests
// ABOUTME: Records device calls and injects open and write failures
package session

import (
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/vbansink/vbansink-go/pkg/audio"
	"github.com/vbansink/vbansink-go/pkg/audio/output"
)

type fakeOutput struct {
	openErrs  []error // consumed one per Open; nil entries succeed
	writeErrs []error // handed to every new sink
	attempts  []audio.Format
	sinks     []*fakeSink
}

func (o *fakeOutput) Open(channels, sampleRate int) (output.Sink, error) {
	o.attempts = append(o.attempts, audio.NewFormat(sampleRate, channels))
	if len(o.openErrs) > 0 {
		err := o.openErrs[0]
		o.openErrs = o.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	sink := &fakeSink{format: audio.NewFormat(sampleRate, channels), writeErrs: append([]error(nil), o.writeErrs...)}
	o.sinks = append(o.sinks, sink)
	return sink, nil
}

func (o *fakeOutput) Close() error { return nil }

// opened returns the number of successful opens
func (o *fakeOutput) opened() int { return len(o.sinks) }

func (o *fakeOutput) last() *fakeSink {
	if len(o.sinks) == 0 {
		return nil
	}
	return o.sinks[len(o.sinks)-1]
}

type fakeSink struct {
	format    audio.Format
	writeErrs []error
	failAll   error
	writes    [][]int16
	attempts  int
	recovers  int
	drains    int
	closes    int
}

func (s *fakeSink) Write(samples []int16) error {
	s.attempts++
	if s.failAll != nil {
		return s.failAll
	}
	if len(s.writeErrs) > 0 {
		err := s.writeErrs[0]
		s.writeErrs = s.writeErrs[1:]
		if err != nil {
			return err
		}
	}
	s.writes = append(s.writes, append([]int16(nil), samples...))
	return nil
}

func (s *fakeSink) Recover(err error) error {
	s.recovers++
	return nil
}

func (s *fakeSink) Drain() error {
	s.drains++
	return nil
}

func (s *fakeSink) Close() error {
	s.closes++
	return nil
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var sender = &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 6980}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
