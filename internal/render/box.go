package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// TitledBox renders content in a rounded border with the title embedded in
// the top edge: ╭─ Title ─────╮. Content lines are padded to width-2.
func TitledBox(content, title string, width int) string {
	borderStyle := lipgloss.NewStyle().Foreground(BorderDefaultColor)
	titleStyle := lipgloss.NewStyle().Foreground(AccentColor).Bold(true)

	inner := width - 2
	if inner < 1 {
		inner = 1
	}

	lines := strings.Split(lipgloss.NewStyle().Width(inner).Render(content), "\n")
	var b strings.Builder
	b.WriteString(topBorder(title, inner, borderStyle, titleStyle))
	for _, line := range lines {
		if w := lipgloss.Width(line); w < inner {
			line += strings.Repeat(" ", inner-w)
		}
		b.WriteString("\n" + borderStyle.Render(borderVertical) + line + borderStyle.Render(borderVertical))
	}
	b.WriteString("\n" + borderStyle.Render(borderBottomLeft+strings.Repeat(borderHorizontal, inner)+borderBottomRight))
	return b.String()
}

func topBorder(title string, inner int, borderStyle, titleStyle lipgloss.Style) string {
	// "─ " + title + " " needs four cells at minimum.
	if title == "" || inner < 4 {
		return borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, inner) + borderTopRight)
	}

	title = truncate(title, inner-4)
	rest := inner - 3 - lipgloss.Width(title)
	if rest < 0 {
		rest = 0
	}
	return borderStyle.Render(borderTopLeft+borderHorizontal+" ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+strings.Repeat(borderHorizontal, rest)+borderTopRight)
}

// truncate shortens s to maxWidth cells, ending in "..." when cut.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 && lipgloss.Width(s) > maxWidth {
		return strings.Repeat(".", max(maxWidth, 0))
	}
	return ansi.Truncate(s, maxWidth, "...")
}
