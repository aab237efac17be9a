package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tminus/internal/timer"
)

var (
	colorBrand = lipgloss.Color("#6C63FF")
	colorBars  = lipgloss.Color("#2EC4B6")
	colorAlarm = lipgloss.Color("#FF6B6B")
	colorLive  = lipgloss.Color("#2ECC71")
	colorHeld  = lipgloss.Color("#F39C12")
	colorError = lipgloss.Color("#E74C3C")
	colorText  = lipgloss.Color("#C0CAF5")
	colorDim   = lipgloss.Color("#666666")
	colorEdge  = lipgloss.Color("#414868")
	colorValue = lipgloss.Color("#7AA2F7")
)

// statusLook is how one countdown status is drawn: the big clock, the
// badge under it and the footer glyph.
type statusLook struct {
	color lipgloss.Color
	badge string
	glyph string
}

var statusLooks = map[timer.Status]statusLook{
	timer.Idle:      {color: colorBrand, badge: "SET", glyph: ""},
	timer.Running:   {color: colorLive, badge: "RUNNING", glyph: "●"},
	timer.Paused:    {color: colorHeld, badge: "PAUSED", glyph: "⏸"},
	timer.Completed: {color: colorAlarm, badge: "TIME'S UP", glyph: "◆"},
}

func lookFor(s timer.Status) statusLook {
	if l, ok := statusLooks[s]; ok {
		return l
	}
	return statusLooks[timer.Idle]
}

// clockStyle renders the remaining time for status s.
func clockStyle(s timer.Status) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lookFor(s).color).Align(lipgloss.Center)
}

func badgeStyle(s timer.Status) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lookFor(s).color)
}

func glyphStyle(s timer.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lookFor(s).color)
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorBrand).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim).
				Padding(0, 2)

	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorEdge).
			Padding(1, 2)

	// popups draw over the active view
	popupStyle = panelStyle.BorderForeground(colorBrand)

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorEdge).
			Padding(0, 1)

	focusedFieldStyle = fieldStyle.BorderForeground(colorBrand)

	separatorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	highlightStyle = lipgloss.NewStyle().Foreground(colorValue)
	progressStyle  = lipgloss.NewStyle().Foreground(colorLive)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = mutedStyle.Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	normalItemStyle   = lipgloss.NewStyle().Foreground(colorText)

	barStyle   = lipgloss.NewStyle().Foreground(colorBars)
	emptyStyle = lipgloss.NewStyle().Foreground(colorEdge)
)
