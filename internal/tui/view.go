package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/actionsum/activitylog/internal/models"
	"github.com/actionsum/activitylog/pkg/utils"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	slotStyles = map[models.Slot]lipgloss.Style{
		models.SlotNoData:   lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A")),
		models.SlotExpected: lipgloss.NewStyle().Foreground(lipgloss.Color("#F7DC6F")),
		models.SlotActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		models.SlotIdle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

func (m Model) View() string {
	header := titleStyle.Render(fmt.Sprintf("activitylog  %s", m.day.Format("Mon Jan 2, 2006")))

	var body string
	switch {
	case m.err != nil:
		body = errorStyle.Render("Error: " + m.err.Error())
	case !m.loaded:
		body = "Loading..."
	default:
		side := lipgloss.JoinVertical(lipgloss.Left,
			boxStyle.Render(m.totalsView()),
			boxStyle.Render(m.programsView()),
		)
		body = lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(RenderGrid(&m.snapshot.Grid)), side)
	}

	help := helpStyle.Render("←/→ change day • t today • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, Legend(), help)
}

func (m Model) totalsView() string {
	t := m.snapshot.Totals

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Total "), t.Total)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Active"), slotStyles[models.SlotActive].Render(t.Active))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Idle  "), slotStyles[models.SlotIdle].Render(t.Idle))
	fmt.Fprintf(&b, "%s %.2f%%", labelStyle.Render("Idle %"), t.IdlePercentage)
	if t.Degraded {
		b.WriteString("\n" + errorStyle.Render("totals unavailable"))
	}

	if s := m.snapshot.OpenStatus; s != nil && models.SameDay(s.Span.Start, m.day) {
		fmt.Fprintf(&b, "\n\n%s %s since %s", labelStyle.Render("Now"), s.Status, s.Span.Start.Format("15:04"))
	}
	if f := m.snapshot.OpenFocus; f != nil && models.SameDay(f.Span.Start, m.day) {
		fmt.Fprintf(&b, "\n%s %s", labelStyle.Render("Focus"), clip(f.Focus().Label(), 32))
	}
	return b.String()
}

func (m Model) programsView() string {
	if len(m.programs) == 0 {
		return labelStyle.Render("No focus recorded")
	}

	var b strings.Builder
	for i, p := range m.programs {
		if i == maxPrograms {
			fmt.Fprintf(&b, "%s", labelStyle.Render(fmt.Sprintf("+%d more", len(m.programs)-maxPrograms)))
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-18s %s %5.1f%%", clip(p.Program, 18), utils.FormatHHMM(p.TotalSeconds), p.Percentage)
	}
	return b.String()
}

// RenderGrid draws 24 rows of 60 minutes, styling runs of equal slots at once.
func RenderGrid(g *models.Grid) string {
	var b strings.Builder
	for h := 0; h < 24; h++ {
		if h > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%02d ", h)))

		row := g[h*60 : h*60+60]
		for i := 0; i < len(row); {
			j := i
			for j < len(row) && row[j] == row[i] {
				j++
			}
			b.WriteString(slotStyles[row[i]].Render(strings.Repeat(string(row[i].Code()), j-i)))
			i = j
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Legend names the grid markers in their colours.
func Legend() string {
	parts := make([]string, 0, 4)
	for _, s := range []models.Slot{models.SlotActive, models.SlotIdle, models.SlotExpected, models.SlotNoData} {
		parts = append(parts, slotStyles[s].Render(string(s.Code()))+" "+s.String())
	}
	return strings.Join(parts, "  ")
}
