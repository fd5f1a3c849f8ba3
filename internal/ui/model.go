// ABOUTME: Bubbletea model for the receiver TUI
// ABOUTME: Renders stream state, format, counters and the L/R peak meter
package ui

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vbansink/vbansink-go/internal/session"
	"github.com/vbansink/vbansink-go/pkg/audio"
)

const meterWidth = 30

// Model represents the TUI state
type Model struct {
	// Static
	listenAddr string
	filter     string
	backend    string
	version    string

	// Stream
	status session.Status
	stats  session.Stats
	meter  audio.Peak
	at     time.Time

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderMeter()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders listener and state
func (m Model) renderHeader() string {
	state := "Idle, waiting for stream"
	if m.status.State == session.StatePlaying {
		state = fmt.Sprintf("Playing for %s", m.at.Sub(m.status.Since).Truncate(time.Second))
	}

	filter := m.filter
	if filter == "" {
		filter = "(any)"
	}

	return fmt.Sprintf(`┌─ VBAN Sink %-42s┐
│ Listen: %-21s Stream: %-15s │
│ Status: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(m.version+" ", 42), truncate(m.listenAddr, 21), truncate(filter, 15), truncate(state, 45))
}

// renderStreamInfo renders the current stream
func (m Model) renderStreamInfo() string {
	if m.status.State != session.StatePlaying {
		return "│ No stream                                            │\n"
	}

	f := m.status.Format
	format := fmt.Sprintf("PCM %dHz %s %d-bit", f.SampleRate, channelName(f.Channels), f.BitDepth)

	return fmt.Sprintf("│ Stream: %-45s │\n"+
		"│ Sender: %-45s │\n"+
		"│ Format: %-45s │\n",
		truncate(m.status.StreamName, 45), truncate(m.status.Sender, 45), truncate(format, 45))
}

// renderMeter renders the per-packet peak of the first two channels
func (m Model) renderMeter() string {
	return fmt.Sprintf("│                                                      │\n"+
		"│ L [%s] %9s        │\n"+
		"│ R [%s] %9s        │\n",
		renderBar(int(m.meter.Left), math.MaxInt16, meterWidth), dbfs(m.meter.LeftLevel()),
		renderBar(int(m.meter.Right), math.MaxInt16, meterWidth), dbfs(m.meter.RightLevel()))
}

// renderStats renders packet statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  RX: %-8d OK: %-8d Rejected: %-8d │
│         Filtered: %-8d Underruns: %-8d        │
`, m.stats.Received, m.stats.Accepted, m.stats.Rejected, m.stats.Filtered, m.stats.Recoveries)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders device counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Backend: %-42s │
│   Stream ID: %-40s │
│   Opens: %-6d Open failures: %-6d                │
│   Writes: %-8d Write failures: %-8d          │
`, truncate(m.backend, 42), truncate(m.status.ID, 40),
		m.stats.Opens, m.stats.OpenFailures, m.stats.Writes, m.stats.WriteFailures)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.status = msg.Status
	m.stats = msg.Stats
	m.meter = msg.Meter
	m.at = msg.At
}

// StatusMsg carries a snapshot of the receiver to the TUI
type StatusMsg struct {
	Status session.Status
	Stats  session.Stats
	Meter  audio.Peak
	At     time.Time
}

// QuitMsg signals that the user asked to quit
type QuitMsg struct{}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func dbfs(level float64) string {
	if level <= 0 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", 20*math.Log10(level))
}

// truncate shortens s to length runes so multi-byte names are never split
func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length-3]) + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
