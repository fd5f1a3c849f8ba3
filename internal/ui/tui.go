// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the receiver UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vbansink/vbansink-go/internal/session"
)

// Config holds the static details shown in the header
type Config struct {
	ListenAddr string
	StreamName string
	Backend    string
	Version    string
}

// Control holds channels for communication from the TUI
type Control struct {
	Quit chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Quit: make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(cfg Config, ctrl *Control) Model {
	return Model{
		listenAddr: cfg.ListenAddr,
		status:     session.Status{State: session.StateIdle},
		filter:     cfg.StreamName,
		backend:    cfg.Backend,
		version:    cfg.Version,
		control:    ctrl,
	}
}

// Run creates the TUI program; the caller runs it and sends StatusMsg updates
func Run(cfg Config, ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(cfg, ctrl), tea.WithAltScreen())
	return p, nil
}
