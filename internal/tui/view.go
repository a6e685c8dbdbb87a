package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/transcodarr/monitor/internal/collector"
)

const gaugeWidth = 16

// render assembles the full dashboard frame.
func (m Model) render() string {
	var b strings.Builder

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderNodes())
	b.WriteString("\n")
	b.WriteString(m.renderJobs())
	b.WriteString("\n")

	if m.pane == paneHistory {
		b.WriteString(sectionTitleStyle.Render(" History "))
	} else {
		b.WriteString(sectionTitleStyle.Render(" Logs "))
	}
	b.WriteString("\n")
	if m.paneReady {
		b.WriteString(m.logView.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

// fixedContentHeight is the number of rows everything except the
// scrollable pane needs; used to size the viewport.
func (m Model) fixedContentHeight() int {
	// status bar + node cards + jobs + pane title + footer, plus spacing
	return 4 + lipgloss.Height(m.renderNodes()) + lipgloss.Height(m.renderJobs())
}

// renderStatusBar shows one glyph per monitored channel plus the refresh
// state.
func (m Model) renderStatusBar() string {
	s := m.data.Status

	mode := "remote"
	if s.LocalMode {
		mode = "local"
	}

	parts := []string{
		headerStyle.Render("Transcodarr"),
		mutedStyle.Render("[" + mode + "]"),
		statusGlyph("SSH", s.Transport, s.TransportError),
		statusGlyph("MEDIA", s.Media, s.MediaError),
		statusGlyph("CACHE", s.Cache, s.CacheError),
	}
	if s.Jellyfin != collector.StatusDisconnected || s.JellyfinError != "No API key" {
		parts = append(parts, statusGlyph("API", s.Jellyfin, s.JellyfinError))
	}

	if m.collecting {
		parts = append(parts, m.spin.View())
	} else if !m.data.LastUpdated.IsZero() {
		parts = append(parts, mutedStyle.Render(m.data.LastUpdated.Format("15:04:05")))
	}
	if m.cycleErr != "" {
		parts = append(parts, errorStyle.Render("cycle failed"))
	}

	return strings.Join(parts, "  ")
}

// statusGlyph renders one channel's state: ● up, ○ down, ◌ checking,
// ✗ error.
func statusGlyph(label string, status collector.ConnectionStatus, errMsg string) string {
	var glyph string
	switch status {
	case collector.StatusConnected:
		glyph = lipgloss.NewStyle().Foreground(ColorHealthy).Render("●")
	case collector.StatusDisconnected:
		glyph = lipgloss.NewStyle().Foreground(ColorWarning).Render("○")
	case collector.StatusError:
		glyph = errorStyle.Render("✗")
	default:
		glyph = mutedStyle.Render("◌")
	}

	out := glyph + " " + labelStyle.Render(label)
	if errMsg != "" && status != collector.StatusConnected {
		out += " " + mutedStyle.Render(truncateText(errMsg, 40))
	}
	return out
}

// renderNodes lays the per-node cards out horizontally.
func (m Model) renderNodes() string {
	if len(m.data.Nodes) == 0 {
		return mutedStyle.Render("  No transcode nodes registered. Add nodes with: rffmpeg add <ip>")
	}

	cards := make([]string, 0, len(m.data.Nodes))
	for _, node := range m.data.Nodes {
		cards = append(cards, m.renderNodeCard(node))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) renderNodeCard(node collector.NodeStats) string {
	var b strings.Builder

	if node.Online {
		b.WriteString(fmt.Sprintf("%s %s  %s w%d",
			lipgloss.NewStyle().Foreground(ColorHealthy).Render("●"),
			nodeNameStyle.Render(node.Hostname),
			labelStyle.Render(node.State),
			node.Weight))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("CPU %s %5.1f%%",
			renderGauge(node.CPUPercent, gaugeWidth), node.CPUPercent))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("MEM %s %.1f/%.0fGB",
			renderGauge(node.MemoryPercent, gaugeWidth),
			node.MemoryUsedGB, node.MemoryTotalGB))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d jobs today", node.JobsToday)))
		return cardStyle.Render(b.String())
	}

	b.WriteString(fmt.Sprintf("%s %s",
		errorStyle.Render("○"),
		nodeNameStyle.Render(node.Hostname)))
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(truncateText(node.Error, 30)))
	return offlineCardStyle.Render(b.String())
}

// renderJobs lists every active transcode across the fleet.
func (m Model) renderJobs() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render(" Active Transcodes "))
	b.WriteString("\n")

	if len(m.data.Jobs) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		return b.String()
	}

	for _, job := range m.data.Jobs {
		b.WriteString("  " + formatJob(job) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatJob builds one line describing a transcode job.
func formatJob(job collector.TranscodeJob) string {
	parts := []string{job.Filename}

	switch {
	case job.InputResolution != "" && job.OutputResolution != "":
		parts = append(parts, job.InputResolution+" → "+job.OutputResolution)
	case job.OutputResolution != "":
		parts = append(parts, "→ "+job.OutputResolution)
	case job.InputResolution != "":
		parts = append(parts, job.InputResolution)
	}
	if job.OutputCodec != "" {
		parts = append(parts, job.OutputCodec)
	}
	if job.Bitrate != "" {
		parts = append(parts, job.Bitrate)
	}
	if job.CPUPercent > 0 {
		parts = append(parts, fmt.Sprintf("CPU %.0f%%", job.CPUPercent))
	}
	if job.NodeAddress != "" {
		parts = append(parts, "on "+job.NodeAddress)
	}
	return strings.Join(parts, "  ")
}

// renderLogs is the scrollable pane's content in log view.
func (m Model) renderLogs() string {
	if len(m.data.Logs) == 0 {
		return mutedStyle.Render("  no log lines")
	}
	return strings.Join(m.data.Logs, "\n")
}

// renderHistory is the scrollable pane's content in history view.
func (m Model) renderHistory() string {
	if len(m.data.History) == 0 {
		return mutedStyle.Render("  no completed transcodes")
	}

	var b strings.Builder
	for _, item := range m.data.History {
		mark := lipgloss.NewStyle().Foreground(ColorHealthy).Render("✓")
		if !item.Success {
			mark = errorStyle.Render("✗")
		}
		ts := ""
		if !item.Timestamp.IsZero() {
			ts = item.Timestamp.Format("01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", mark, ts, item.Filename))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFooter() string {
	hints := "q quit · r refresh · d logs/history · ↑/↓ scroll"
	if m.reload != nil {
		hints += " · c reload config"
	}
	return footerStyle.Render(hints)
}

// renderGauge draws a fixed-width utilization bar colored by severity.
func renderGauge(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	style := lipgloss.NewStyle().Foreground(gaugeColor(percent))
	return style.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
