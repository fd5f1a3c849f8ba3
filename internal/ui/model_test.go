// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, message handling, and rendering
package ui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vbansink/vbansink-go/internal/session"
	"github.com/vbansink/vbansink-go/pkg/audio"
)

func playingStatus() StatusMsg {
	since := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return StatusMsg{
		Status: session.Status{
			State:      session.StatePlaying,
			ID:         "episode-1",
			StreamName: "Stream1",
			Format:     audio.NewFormat(48000, 2),
			Sender:     "192.168.1.10:6980",
			Since:      since,
		},
		Stats: session.Stats{Received: 10, Accepted: 9, Rejected: 1, Opens: 1, Writes: 9},
		Meter: audio.Peak{Left: 32767, Right: 0},
		At:    since.Add(42 * time.Second),
	}
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestNewModel(t *testing.T) {
	model := NewModel(Config{ListenAddr: "0.0.0.0:6980", StreamName: "Stream1"}, nil)

	if model.status.State != session.StateIdle {
		t.Errorf("expected idle initial state, got %s", model.status.State)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if model.listenAddr != "0.0.0.0:6980" || model.filter != "Stream1" {
		t.Errorf("unexpected static config %q %q", model.listenAddr, model.filter)
	}
}

func TestViewBeforeSize(t *testing.T) {
	if v := NewModel(Config{}, nil).View(); v != "Loading..." {
		t.Errorf("expected loading view, got %q", v)
	}
}

func TestViewIdle(t *testing.T) {
	view := sized(NewModel(Config{ListenAddr: "0.0.0.0:6980"}, nil)).View()

	if !strings.Contains(view, "No stream") {
		t.Error("expected idle view to say no stream")
	}
	if !strings.Contains(view, "(any)") {
		t.Error("expected unfiltered stream to show (any)")
	}
	if !strings.Contains(view, "-inf dB") {
		t.Error("expected silent meter")
	}
}

func TestViewPlaying(t *testing.T) {
	m := sized(NewModel(Config{}, nil))
	updated, _ := m.Update(playingStatus())
	view := updated.(Model).View()

	for _, want := range []string{"Playing for 42s", "Stream1", "192.168.1.10:6980", "PCM 48000Hz Stereo 16-bit", "0.0 dB"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestDebugToggle(t *testing.T) {
	m := sized(NewModel(Config{Backend: "malgo"}, nil))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m = updated.(Model)
	if !m.showDebug {
		t.Fatal("expected debug on after d")
	}
	if !strings.Contains(m.View(), "Backend: malgo") {
		t.Error("expected debug section in view")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if updated.(Model).showDebug {
		t.Error("expected debug off after second d")
	}
}

func TestQuitKey(t *testing.T) {
	ctrl := NewControl()
	m := NewModel(Config{}, ctrl)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit signal on control channel")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{-5, 100, 10, 0},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d, %d, %d) filled %d, want %d", tt.value, tt.max, tt.width, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != tt.width {
			t.Errorf("renderBar width %d, want %d", got, tt.width)
		}
	}
}

func TestDBFS(t *testing.T) {
	if got := dbfs(0); got != "-inf dB" {
		t.Errorf("expected -inf, got %q", got)
	}
	if got := dbfs(0.5); got != "-6.0 dB" {
		t.Errorf("expected -6.0 dB, got %q", got)
	}
}

func TestChannelName(t *testing.T) {
	tests := map[int]string{1: "Mono", 2: "Stereo", 6: "6ch"}
	for ch, want := range tests {
		if got := channelName(ch); got != want {
			t.Errorf("channelName(%d) = %q, want %q", ch, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a very long stream name", 10); got != "a very ..." {
		t.Errorf("expected truncated, got %q", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	name := "ÄÖÜäöüßéèê" // 10 runes, 20 bytes

	if got := truncate(name, 10); got != name {
		t.Errorf("expected a 10 rune name to fit, got %q", got)
	}

	got := truncate(name, 8)
	if got != "ÄÖÜäö..." {
		t.Errorf("expected ÄÖÜäö..., got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated name is not valid UTF-8: %q", got)
	}
}
