// ABOUTME: WebSocket status feed for the receiver
// ABOUTME: Pushes periodic snapshots and state changes to connected clients
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/vbansink/vbansink-go/internal/session"
	"github.com/vbansink/vbansink-go/pkg/audio"
)

const (
	// DefaultInterval between status snapshots
	DefaultInterval = 500 * time.Millisecond

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendQueue     = 16
)

// Source provides the receiver state to report
type Source interface {
	Status() session.Status
	Stats() session.Stats
	Meter() audio.Peak
}

// Config holds monitor configuration
type Config struct {
	Addr     string
	Interval time.Duration
	Source   Source
	Hello    Hello
	Logger   *slog.Logger
}

// Server serves the status feed
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[string]*client
}

type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Message
}

// New creates a monitor server
func New(config Config) (*Server, error) {
	if config.Source == nil {
		return nil, errors.New("monitor requires a status source")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		config: config,
		log:    config.Logger.With("component", "monitor"),
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network tool; any page may read the feed
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}

	s.mux.HandleFunc("/status", s.handleWebSocket)
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)

	return s, nil
}

// Handler returns the HTTP handler serving /status and /snapshot
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP on the configured address and broadcasts snapshots until
// ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("monitor listen on %s: %w", s.config.Addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("monitor listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.Broadcast(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.closeClients()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Broadcast sends a snapshot to every client each interval until ctx is done
func (s *Server) Broadcast(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.broadcast(Message{Type: TypeStatus, Payload: s.Snapshot()})
		case <-ctx.Done():
			return
		}
	}
}

// NotifyState pushes a state change to every client without blocking
func (s *Server) NotifyState(st session.Status) {
	s.broadcast(Message{Type: TypeState, Payload: st})
}

// Snapshot reads the current state from the source
func (s *Server) Snapshot() Snapshot {
	peak := s.config.Source.Meter()
	return Snapshot{
		Status: s.config.Source.Status(),
		Stats:  s.config.Source.Stats(),
		Meter:  Meter{Left: peak.LeftLevel(), Right: peak.RightLevel()},
		At:     time.Now(),
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(msg Message) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for _, c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
			s.log.Debug("monitor client too slow, dropping message", "client", c.id, "type", msg.Type)
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.log.Warn("failed to write snapshot", "err", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "err", err)
		return
	}

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Message, sendQueue),
	}
	s.log.Info("monitor client connected", "client", c.id, "remote", r.RemoteAddr)

	// Greeting and first snapshot are queued before registration so they
	// always arrive first
	c.sendChan <- Message{Type: TypeHello, Payload: s.config.Hello}
	c.sendChan <- Message{Type: TypeStatus, Payload: s.Snapshot()}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.clientWriter(c)
	}()

	// Read until the client goes away; incoming messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("monitor client read error", "client", c.id, "err", err)
			}
			break
		}
	}

	s.removeClient(c)
	<-done
	conn.Close()
	s.log.Info("monitor client disconnected", "client", c.id)
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn("failed to encode monitor message", "type", msg.Type, "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// removeClient unregisters c and stops its writer
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.sendChan)
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for id, c := range s.clients {
		delete(s.clients, id)
		close(c.sendChan)
	}
}
