// Package tui renders the live job-queue watch screen.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mpreston/jobq/internal/client"
)

// Model is the bubbletea model for the watch TUI.
type Model struct {
	Styles Styles

	// State
	Snapshot  *client.Snapshot
	LastError string
	StartTime time.Time
	Width     int
	Height    int

	// Control
	Quitting bool
}

// NewModel creates a watch model with default styles.
func NewModel() *Model {
	return &Model{
		Styles:    DefaultStyles(),
		StartTime: time.Now(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to refresh the elapsed timer.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// SnapshotMsg carries a fresh push frame from the server.
type SnapshotMsg struct {
	Snapshot *client.Snapshot
}

// StreamErrMsg reports a broken subscription.
type StreamErrMsg struct {
	Err error
}
