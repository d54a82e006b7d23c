package finder

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Bar       lipgloss.Style
	Selected  lipgloss.Style
	Counter   lipgloss.Style
	Error     lipgloss.Style
	Enabled   lipgloss.Style
	Disabled  lipgloss.Style
	ToggleOn  lipgloss.Style
	ToggleOff lipgloss.Style
	Hint      lipgloss.Style
}

func DefaultStyles() Styles {
	muted := lipgloss.Color("#94A3B8")
	accent := lipgloss.Color("#95E1D3")
	return Styles{
		Bar:       lipgloss.NewStyle().Padding(0, 1),
		Selected:  lipgloss.NewStyle().Reverse(true),
		Counter:   lipgloss.NewStyle().Foreground(muted),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		Enabled:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Disabled:  lipgloss.NewStyle().Foreground(muted).Faint(true),
		ToggleOn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A2E")).Background(accent).Bold(true),
		ToggleOff: lipgloss.NewStyle().Foreground(muted),
		Hint:      lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
