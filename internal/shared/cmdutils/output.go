// Package cmdutils holds the terminal styling shared by CLI commands.
package cmdutils

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const Logo = "⛏"

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	OKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	FailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	LabelStyle  = lipgloss.NewStyle().Width(12)
)

// Mark renders a green check or a red cross.
func Mark(ok bool) string {
	if ok {
		return OKStyle.Render("✓")
	}
	return FailStyle.Render("✗")
}

// PrintResponse prints what the agent would say in chat.
func PrintResponse(name, text string) {
	if text == "" {
		return
	}
	fmt.Printf("\n%s %s\n%s\n\n", Logo, HeaderStyle.Render(name), text)
}
