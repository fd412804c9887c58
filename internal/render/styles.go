// Package render formats kitties and ledger events for the terminal with Lip Gloss.
package render

import "github.com/charmbracelet/lipgloss"

var (
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CCCCCC"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#696969"}
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	AccentColor        = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}

	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Event kind colors
	CreatedColor     = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}
	TransferredColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	BredColor        = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Foreground(TextPrimaryColor).Padding(0, 1)
	MutedStyle  = lipgloss.NewStyle().Foreground(TextMutedColor)
	ErrorStyle  = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)
	OKStyle     = lipgloss.NewStyle().Foreground(StatusSuccessColor)
	LabelStyle  = lipgloss.NewStyle().Foreground(TextMutedColor).Width(9)
)
