package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC857")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	progressFillStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#96E6A1"))

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("238"))
)

// statusStyles maps task statuses to their display color.
var statusStyles = map[models.TaskStatus]lipgloss.Style{
	models.TaskStatusPending:          lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	models.TaskStatusReady:            lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1")),
	models.TaskStatusRunning:          lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")),
	models.TaskStatusRetrying:         lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8E53")),
	models.TaskStatusAwaitingApproval: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	models.TaskStatusCompleted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")),
	models.TaskStatusFailed:           lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	models.TaskStatusCancelled:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// statusGlyphs maps task statuses to a one-rune marker.
var statusGlyphs = map[models.TaskStatus]string{
	models.TaskStatusPending:          "·",
	models.TaskStatusReady:            "◌",
	models.TaskStatusRunning:          "▶",
	models.TaskStatusRetrying:         "↻",
	models.TaskStatusAwaitingApproval: "⏸",
	models.TaskStatusCompleted:        "✓",
	models.TaskStatusFailed:           "✗",
	models.TaskStatusCancelled:        "⊘",
}
