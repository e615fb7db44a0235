package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)
)

// FormatQuantity formats a signed fill quantity with a side marker.
func FormatQuantity(quantity float64) string {
	text := fmt.Sprintf("%.4f", quantity)

	switch {
	case quantity > 0:
		return text + " ▲"
	case quantity < 0:
		return text + " ▼"
	default:
		return text
	}
}
