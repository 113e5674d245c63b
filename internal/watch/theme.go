package watch

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used by the watch TUI. Use DarkTheme() or
// LightTheme(), or construct a custom Theme.
type Theme struct {
	Primary        lipgloss.Color // title, cursor
	Secondary      lipgloss.Color // selected row text
	Error          lipgloss.Color // errors, failed tasks
	Warning        lipgloss.Color // busy panes
	Success        lipgloss.Color // idle panes, completed tasks
	Text           lipgloss.Color // primary text
	TextMuted      lipgloss.Color // hints, timestamps
	BackgroundElem lipgloss.Color // selected row background
	Border         lipgloss.Color // separators
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#fab283"),
		Secondary:      lipgloss.Color("#5c9cf5"),
		Error:          lipgloss.Color("#e06c75"),
		Warning:        lipgloss.Color("#f5a742"),
		Success:        lipgloss.Color("#7fd88f"),
		Text:           lipgloss.Color("#eeeeee"),
		TextMuted:      lipgloss.Color("#808080"),
		BackgroundElem: lipgloss.Color("#1e1e1e"),
		Border:         lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#b35c00"),
		Secondary:      lipgloss.Color("#0550ae"),
		Error:          lipgloss.Color("#cf222e"),
		Warning:        lipgloss.Color("#bf8700"),
		Success:        lipgloss.Color("#116329"),
		Text:           lipgloss.Color("#1f2328"),
		TextMuted:      lipgloss.Color("#656d76"),
		BackgroundElem: lipgloss.Color("#f6f8fa"),
		Border:         lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
// Constructed once from a Theme and stored in tuiModel.
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	selected lipgloss.Style
	busy     lipgloss.Style
	idle     lipgloss.Style
	err      lipgloss.Style
	dim      lipgloss.Style
	text     lipgloss.Style

	hintKey  lipgloss.Style
	hintDesc lipgloss.Style
}

// newStyles builds all styles from a theme.
func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:   lipgloss.NewStyle().Foreground(t.Border),
		selected: lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Background(t.BackgroundElem),
		busy:     lipgloss.NewStyle().Foreground(t.Warning),
		idle:     lipgloss.NewStyle().Foreground(t.Success),
		err:      lipgloss.NewStyle().Foreground(t.Error),
		dim:      lipgloss.NewStyle().Foreground(t.TextMuted),
		text:     lipgloss.NewStyle().Foreground(t.Text),

		hintKey:  lipgloss.NewStyle().Foreground(t.Text),
		hintDesc: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
