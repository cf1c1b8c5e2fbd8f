package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	colorAccent = lipgloss.Color("#2563EB") // Blue
	colorInfo   = lipgloss.Color("#06B6D4") // Cyan
	colorGood   = lipgloss.Color("#10B981") // Emerald
	colorBad    = lipgloss.Color("#EF4444") // Red
	colorSlow   = lipgloss.Color("#F59E0B") // Amber
	colorFaint  = lipgloss.Color("#6B7280")
	colorBright = lipgloss.Color("#F9FAFB")
	colorSoft   = lipgloss.Color("#9CA3AF")
	colorFrame  = lipgloss.Color("#374151")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(colorBright).Background(colorAccent).
			Padding(0, 2).MarginBottom(1)

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorInfo).MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame).
			Padding(0, 2).MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(colorFaint).Width(10)
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	pathStyle  = lipgloss.NewStyle().Foreground(colorSoft)
	noteStyle  = lipgloss.NewStyle().Foreground(colorSoft).MarginTop(1)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGood)
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBad)
	keysStyle  = lipgloss.NewStyle().Foreground(colorFaint).MarginTop(1)
)

// percentColor moves from amber to green as the encode advances
func percentColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 66:
		return colorGood
	case pct >= 33:
		return colorInfo
	default:
		return colorSlow
	}
}

func formatPercentage(pct float64) string {
	return fmt.Sprintf("%.1f%%", min(max(pct, 0), 100))
}

// View renders the TUI
func (m Model) View() string {
	sections := []string{headerStyle.Render(" ⚡ Video Compressor ")}

	switch m.State {
	case StateIdle:
		sections = append(sections, valueStyle.Render("  Preparing..."))
	case StateAnalyzing, StateRunning:
		sections = append(sections, m.progressSection(), m.settingsBox(), m.filesBox())
	case StateSucceeded:
		sections = append(sections, m.resultSection())
	case StateFailed:
		sections = append(sections, m.failureSection(), m.filesBox())
	}

	if m.ShowLogs && m.LogViewport.TotalLineCount() > 0 {
		sections = append(sections,
			headingStyle.Render("  Status History"),
			boxStyle.Padding(0, 1).Render(m.LogViewport.View()),
		)
	}

	sections = append(sections, keysStyle.Render("  "+m.helpText()))
	return strings.Join(sections, "\n") + "\n"
}

func (m Model) helpText() string {
	keys := "[L] Toggle history  •  [Q] Quit"
	if m.State.Terminal() {
		keys = "[Enter] Run again  •  " + keys
	}
	return keys
}

func (m Model) progressSection() string {
	label := "..."
	if m.State == StateRunning {
		label = formatPercentage(m.Percent)
	}
	pct := lipgloss.NewStyle().Bold(true).Foreground(percentColor(m.Percent)).Render(label)
	bar := m.Progress.ViewAs(min(max(m.Percent/100, 0), 1))

	return "\n  " + bar + "  " + pct + "\n" + noteStyle.Render("  "+m.StatusText)
}

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func (m Model) settingsBox() string {
	s := m.Job.Settings
	elapsed := time.Since(m.StartTime)

	left := lipgloss.JoinVertical(lipgloss.Left,
		field("CRF", strconv.Itoa(s.CRF)),
		field("Height", s.HeightLabel()),
		field("Elapsed", formatDuration(elapsed)),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		field("Preset", s.Preset),
		field("Audio", s.AudioBitrate),
	)
	gap := lipgloss.NewStyle().Width(4).Render("")
	return boxStyle.Padding(1, 2).Render(lipgloss.JoinHorizontal(lipgloss.Top, left, gap, right))
}

// pathWidth leaves room for the label column and the box frame
func (m Model) pathWidth() int {
	if w := m.Width - 18; w >= 20 {
		return w
	}
	return 60
}

func (m Model) filesBox() string {
	width := m.pathWidth()
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("Input")+pathStyle.Render(elidePath(m.Job.InputPath, width)),
		labelStyle.Render("Output")+pathStyle.Render(elidePath(m.Job.OutputPath, width)),
	))
}

// elidePath keeps the tail of a long path, where the file name is.
func elidePath(path string, width int) string {
	if len(path) <= width {
		return path
	}
	if width <= 3 {
		return path[len(path)-width:]
	}
	return "..." + path[len(path)-(width-3):]
}

func (m Model) resultSection() string {
	rows := []string{
		labelStyle.Render("Output") + pathStyle.Render(elidePath(m.Job.OutputPath, m.pathWidth())),
		field("Time", formatDuration(m.EndTime.Sub(m.StartTime))),
		field("Size", formatMegabytes(m.SizeMB)),
	}
	if m.Ratio > 0 {
		rows = append(rows, field("Ratio", fmt.Sprintf("%.1f%% of original", m.Ratio)))
	}

	return "\n" + okStyle.Render("  ✓ "+m.StatusText) + "\n" +
		boxStyle.Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) failureSection() string {
	box := boxStyle.BorderForeground(colorBad).Foreground(colorBad).Render(m.ErrorMessage)
	return "\n" + failStyle.Render("  ✗ Compression Failed") + "\n" + box
}

func formatMegabytes(mb float64) string {
	if mb <= 0 {
		return "—"
	}
	return formatBytes(int64(mb * 1024 * 1024))
}

func formatBytes(bytes int64) string {
	return humanize.IBytes(uint64(max(bytes, 0)))
}

// formatDuration renders m:ss, or h:mm:ss past the hour
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "—"
	}
	total := int64(d.Round(time.Second) / time.Second)
	hours, minutes, seconds := total/3600, total/60%60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
