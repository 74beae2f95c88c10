package theme

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Title      lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style

	ArticleTitle lipgloss.Style
	FeedName     lipgloss.Style
	Timestamp    lipgloss.Style
	SummaryMark  lipgloss.Style
	BookmarkMark lipgloss.Style

	SummaryLabel lipgloss.Style
	SummaryBody  lipgloss.Style
	HelpKey      lipgloss.Style
	HelpText     lipgloss.Style
	InputPrompt  lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext0),
		StateIdle:  lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:  lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:  lipgloss.NewStyle().Foreground(cpPeach),

		ArticleTitle: lipgloss.NewStyle().Foreground(cpText),
		FeedName:     lipgloss.NewStyle().Foreground(cpLavender),
		Timestamp:    lipgloss.NewStyle().Foreground(cpOverlay1),
		SummaryMark:  lipgloss.NewStyle().Foreground(cpTeal),
		BookmarkMark: lipgloss.NewStyle().Foreground(cpYellow),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		SummaryBody:  lipgloss.NewStyle().Foreground(cpText),
		HelpKey:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		HelpText:     lipgloss.NewStyle().Foreground(cpSubtext0),
		InputPrompt:  lipgloss.NewStyle().Bold(true).Foreground(cpPeach),
	}
}
