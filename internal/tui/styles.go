package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor = lipgloss.Color("#7D56F4")
	mutedColor  = lipgloss.Color("#7D7A85")

	// greetingStyle 对应网页终端欢迎语的反色显示。
	greetingStyle = lipgloss.NewStyle().Reverse(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454"))
	hintStyle     = lipgloss.NewStyle().Foreground(mutedColor)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("#FFB454")).
			Background(lipgloss.Color("#1F1D2B"))
)

// renderHeader 绘制标题栏；终端打开时标题栏变暗，让出视觉焦点。
func renderHeader(endpoint string, dimmed bool, width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("GoofyGoHome Shell")
	info := lipgloss.NewStyle().Foreground(mutedColor).PaddingLeft(2).Render(endpoint)
	style := lipgloss.NewStyle().MaxWidth(max(width, 10))
	if dimmed {
		style = style.Faint(true)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, title, info))
}

func renderPane(body string, width, height int, open bool) string {
	border := lipgloss.Color("#5E6472")
	if open {
		border = accentColor
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Background(lipgloss.Color("#232E45")).
		Padding(0, 1).
		Width(max(width-2, 10)).
		Height(height)
	return style.Render(body)
}

func renderHints(width int, open bool) string {
	hints := []string{"enter send", "ctrl+v paste", "↑/↓ history", "ctrl+r search", "ctrl+d close", "ctrl+c quit"}
	if !open {
		hints = []string{"ctrl+o open", "ctrl+c quit"}
	}
	return hintStyle.Render(truncateToWidth(strings.Join(hints, " • "), max(width, 10)))
}
