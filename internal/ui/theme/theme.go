// Package theme holds the terminal styles used by the status views.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#EAB308") // Amber
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Levels
var (
	High = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Medium = lipgloss.NewStyle().
		Foreground(Warning)

	Low = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Unknown = lipgloss.NewStyle().
		Foreground(TextDim)
)

// Level returns the style for an evaluation level or mastery tier.
func Level(name string) lipgloss.Style {
	switch name {
	case "high", "advanced":
		return High
	case "medium", "intermediate":
		return Medium
	case "low", "novice":
		return Low
	default:
		return Unknown
	}
}

// Phase returns the style for a session phase.
func Phase(name string) lipgloss.Style {
	switch name {
	case "active":
		return lipgloss.NewStyle().Foreground(Accent).Bold(true)
	case "completed":
		return High
	case "expired":
		return Low
	default:
		return Unknown
	}
}

// Cell pads s to width columns before styling, so colored cells line up.
func Cell(style lipgloss.Style, s string, width int) string {
	return style.Width(width).MaxWidth(width).Render(s)
}
