package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zjrosen/kitties/internal/kitty"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(BorderDefaultColor)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// KittyTable renders kitties as a table of id, owner and genome.
func KittyTable(ks []kitty.Kitty) string {
	if len(ks) == 0 {
		return MutedStyle.Render("no kitties")
	}
	t := newTable("ID", "OWNER", "GENOME")
	for _, k := range ks {
		t.Row(k.ID.String(), k.Owner.String(), k.Genome.String())
	}
	return t.Render()
}

// EventTable renders journaled events in sequence order.
func EventTable(evs []kitty.Event) string {
	if len(evs) == 0 {
		return MutedStyle.Render("no events")
	}
	t := newTable("SEQ", "BLOCK", "OP", "KIND", "KITTY", "DETAIL")
	for _, ev := range evs {
		t.Row(
			fmt.Sprint(ev.Seq),
			fmt.Sprint(ev.Block),
			fmt.Sprint(ev.OpIndex),
			kindStyle(ev.Kind).Render(string(ev.Kind)),
			ev.ID.String(),
			detail(ev),
		)
	}
	return t.Render()
}

// EventLine renders one event on a single line, for streaming output.
func EventLine(ev kitty.Event) string {
	return fmt.Sprintf("%s %s %s kitty %d %s",
		MutedStyle.Render(fmt.Sprintf("#%d", ev.Seq)),
		MutedStyle.Render(fmt.Sprintf("[%d.%d]", ev.Block, ev.OpIndex)),
		kindStyle(ev.Kind).Render(string(ev.Kind)),
		ev.ID,
		detail(ev),
	)
}

// Card renders one kitty inside a titled border.
func Card(k kitty.Kitty) string {
	body := strings.Join([]string{
		LabelStyle.Render("owner") + k.Owner.String(),
		LabelStyle.Render("genome") + k.Genome.String(),
		LabelStyle.Render("") + Swatch(k.Genome),
	}, "\n")
	width := lipgloss.Width(body) + 4
	return TitledBox(body, fmt.Sprintf("Kitty %d", k.ID), width)
}

// Swatch draws one colored block per genome byte.
func Swatch(g kitty.Genome) string {
	var b strings.Builder
	for _, v := range g {
		c := lipgloss.Color(fmt.Sprint(16 + int(v)%216))
		b.WriteString(lipgloss.NewStyle().Foreground(c).Render("█"))
	}
	return b.String()
}

// Outcome renders the result line printed after a command.
func Outcome(ev kitty.Event) string {
	return OKStyle.Render("✓") + " " + EventLine(ev)
}

// Failure renders a rejected or failed command.
func Failure(err error) string {
	return ErrorStyle.Render("✗") + " " + err.Error()
}

func detail(ev kitty.Event) string {
	switch ev.Kind {
	case kitty.EventCreated:
		return "owner " + ev.Owner.String()
	case kitty.EventTransferred:
		return ev.From.String() + " → " + ev.To.String()
	case kitty.EventBred:
		return fmt.Sprintf("parents %d × %d, owner %s", ev.Parent1, ev.Parent2, ev.Owner)
	default:
		return ""
	}
}

func kindStyle(k kitty.EventKind) lipgloss.Style {
	switch k {
	case kitty.EventCreated:
		return lipgloss.NewStyle().Foreground(CreatedColor)
	case kitty.EventTransferred:
		return lipgloss.NewStyle().Foreground(TransferredColor)
	case kitty.EventBred:
		return lipgloss.NewStyle().Foreground(BredColor)
	default:
		return MutedStyle
	}
}
