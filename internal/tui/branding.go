package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/convo/internal/config"
)

const AppName = "convo"

var LogoLines = []string{
	" ▄████▄  ▄████▄  ██▄  ██ ██    ██  ▄████▄",
	"██▀  ▀▀ ██▀  ▀██ ███▄ ██ ██    ██ ██▀  ▀██",
	"██      ██    ██ ██▀████ ▀██  ██▀ ██    ██",
	"██▄  ▄▄ ██▄  ▄██ ██  ▀██  ▀████▀  ██▄  ▄██",
	" ▀████▀  ▀████▀  ██   ▀█    ▀▀     ▀████▀",
}

var BannerColors = []lipgloss.Color{
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#FFA86B"),
	lipgloss.Color("#95E1D3"),
	lipgloss.Color("#4ECDC4"),
	lipgloss.Color("#FF6B6B"),
}

var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	BackgroundColor = lipgloss.Color("#1A1A2E")
	SurfaceColor    = lipgloss.Color("#16213E")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	ErrorColor   = lipgloss.Color("#EF4444")
	SuccessColor = lipgloss.Color("#10B981")
	WarnColor    = lipgloss.Color("#FFE66D")

	MatchColor        = lipgloss.Color("#FFE66D")
	CurrentMatchColor = lipgloss.Color("#FF9F1C")
)

var (
	LogoStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	HeaderStyle       lipgloss.Style
	HelpStyle         lipgloss.Style
	TimeStyle         lipgloss.Style
	SeparatorStyle    lipgloss.Style
	MatchStyle        lipgloss.Style
	CurrentMatchStyle lipgloss.Style

	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style

	// Role label styles, keyed by storage role.
	RoleStyles map[string]lipgloss.Style
	BodyStyle  lipgloss.Style
	SystemBody lipgloss.Style
)

func init() {
	buildStyles()
}

// ApplyTheme replaces the palette with the configured colors. Empty values
// keep the current color.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&BackgroundColor, c.Background)
	set(&SurfaceColor, c.Surface)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	set(&MatchColor, c.Match)
	set(&CurrentMatchColor, c.CurrentMatch)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)
	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	TimeStyle = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)

	MatchStyle = lipgloss.NewStyle().Foreground(BackgroundColor).Background(MatchColor)
	CurrentMatchStyle = lipgloss.NewStyle().Foreground(BackgroundColor).Background(CurrentMatchColor).Bold(true)

	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(WarnColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

	RoleStyles = map[string]lipgloss.Style{
		"user":      lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true),
		"assistant": lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true),
		"system":    lipgloss.NewStyle().Foreground(MutedColor).Italic(true),
		"tool":      lipgloss.NewStyle().Foreground(AccentColor),
	}
	BodyStyle = lipgloss.NewStyle().Foreground(TextColor)
	SystemBody = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)
}

func GetWelcomeMessage() string {
	return GetCompactBanner("No sessions yet. Import one with: convo import FILE")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}
	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// ShowBanner writes the startup banner to w.
func ShowBanner(w io.Writer, version string) {
	lines := make([]string, len(LogoLines), len(LogoLines)+2)
	copy(lines, LogoLines)
	lines = append(lines, "")

	tagline := "    Conversation Viewer"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline += " " + version
	}
	lines = append(lines, tagline)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1)

	banner := borderStyle.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))
	fmt.Fprintln(w, lipgloss.NewStyle().Width(70).Align(lipgloss.Center).Render(banner))

	separator := lipgloss.NewStyle().Foreground(AccentColor).Render("◆ ◇ ◆ ◇ ◆")
	fmt.Fprintln(w, lipgloss.NewStyle().Width(70).Align(lipgloss.Center).MarginBottom(1).Render(separator))
}
