package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mpreston/jobq/internal/store"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderConsumers())
	b.WriteString("\n")

	b.WriteString(m.renderJobs())

	if m.LastError != "" {
		b.WriteString("\n")
		b.WriteString(m.Styles.Error.Render("  stream error: " + m.LastError))
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))

	return fmt.Sprintf("%s  %s",
		m.Styles.Title.Render("jobq"),
		m.Styles.Timer.Render(timer),
	)
}

// renderConsumers shows one liveness icon per queue.
func (m *Model) renderConsumers() string {
	if m.Snapshot == nil {
		return "  connecting...\n"
	}

	queues := make([]string, 0, len(m.Snapshot.ConsumerStatus))
	for queue := range m.Snapshot.ConsumerStatus {
		queues = append(queues, queue)
	}
	sort.Strings(queues)

	parts := make([]string, 0, len(queues))
	for _, queue := range queues {
		if m.Snapshot.ConsumerStatus[queue] {
			parts = append(parts, m.Styles.ConsumerUp.Render(IconUp)+" "+queue)
		} else {
			parts = append(parts, m.Styles.ConsumerDown.Render(IconDown)+" "+queue)
		}
	}

	return "  Consumers: " + strings.Join(parts, "   ") + "\n"
}

// renderJobs lists jobs newest first.
func (m *Model) renderJobs() string {
	if m.Snapshot == nil || len(m.Snapshot.Jobs) == 0 {
		return "  No jobs\n"
	}

	jobs := make([]*store.Job, len(m.Snapshot.Jobs))
	copy(jobs, m.Snapshot.Jobs)
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	var b strings.Builder
	b.WriteString(m.Styles.Header.Render(fmt.Sprintf("  %-10s %-24s %-8s %-8s %-9s",
		"QUEUE", "NAME", "TYPE", "PRIORITY", "STATUS")))
	b.WriteString("\n")

	for _, job := range jobs {
		name := job.Name
		if name == "" {
			name = job.ID.String()[:8]
		}
		if len(name) > 24 {
			name = name[:21] + "..."
		}

		line := fmt.Sprintf("  %-10s %-24s %-8s %-8s ",
			job.QueueName, name, job.Type, job.Priority)
		b.WriteString(line)
		b.WriteString(m.statusStyle(job.Status).Render(string(job.Status)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) statusStyle(status store.JobStatus) lipgloss.Style {
	switch status {
	case store.StatusQueued:
		return m.Styles.StatusQueued
	case store.StatusRunning:
		return m.Styles.StatusRunning
	case store.StatusDone:
		return m.Styles.StatusDone
	case store.StatusFailed, store.StatusError:
		return m.Styles.StatusFailed
	case store.StatusCancelled:
		return m.Styles.StatusCancelled
	default:
		return m.Styles.StatusPending
	}
}

func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render("q")
	return m.Styles.Footer.Render(fmt.Sprintf("  Press %s to quit", key))
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, min, s)
}
