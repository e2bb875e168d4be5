package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the watch TUI.
type Styles struct {
	Title lipgloss.Style
	Timer lipgloss.Style

	Header lipgloss.Style

	StatusPending   lipgloss.Style
	StatusQueued    lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusDone      lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusCancelled lipgloss.Style

	ConsumerUp   lipgloss.Style
	ConsumerDown lipgloss.Style

	Error     lipgloss.Style
	Footer    lipgloss.Style
	FooterKey lipgloss.Style
}

// DefaultStyles returns the default watch styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),

		StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		StatusQueued:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		ConsumerUp:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		ConsumerDown: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
}

// Icons used in the TUI.
const (
	IconUp      = "●"
	IconDown    = "○"
	IconRunning = "▶"
)
