package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timefmt"
)

const recentLimit = 8

type historyModel struct {
	store  History
	width  int
	height int
	now    func() time.Time

	days         []store.DailyCompletions
	recent       []store.Completion
	count        int
	totalSeconds int64
	offset       int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newHistoryModel(h History) historyModel {
	return historyModel{
		store: h,
		now:   time.Now,
		chart: barchart.New(60, 12),
	}
}

func (m *historyModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type historyDataMsg struct {
	days         []store.DailyCompletions
	recent       []store.Completion
	count        int
	totalSeconds int64
	err          error
}

func (m historyModel) refresh() tea.Cmd {
	if m.store == nil {
		return nil
	}
	h := m.store
	from, to := m.dateRange()
	return func() tea.Msg {
		days, err := h.GetDailyCompletions(from, to)
		if err != nil {
			return historyDataMsg{err: err}
		}
		count, total, err := h.GetCompletionStats(from, to)
		if err != nil {
			return historyDataMsg{err: err}
		}
		recent, err := h.ListCompletions(store.CompletionFilter{From: &from, To: &to, Limit: recentLimit})
		if err != nil {
			return historyDataMsg{err: err}
		}
		return historyDataMsg{days: days, recent: recent, count: count, totalSeconds: total}
	}
}

// dateRange is the 7-day window ending today, shifted back by offset weeks.
func (m historyModel) dateRange() (time.Time, time.Time) {
	now := m.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*m.offset)
	return end.AddDate(0, 0, -7), end
}

func (m historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return m, statusCmd(fmt.Sprintf("History error: %v", msg.err), true)
		}
		m.days = msg.days
		m.recent = msg.recent
		m.count = msg.count
		m.totalSeconds = msg.totalSeconds
		m.buildChart()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			m.offset++
			return m, m.refresh()
		case key.Matches(msg, keys.Right):
			if m.offset > 0 {
				m.offset--
			}
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m *historyModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 30 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.DailyCompletions, len(m.days))
	for _, d := range m.days {
		byDate[d.Date] = d
	}

	from, to := m.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		style := barStyle
		day, ok := byDate[d.Format("2006-01-02")]
		if !ok {
			style = emptyStyle
		}
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon 02"),
			Values: []barchart.BarValue{{
				Name:  "completions",
				Value: float64(day.Count),
				Style: style,
			}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m historyModel) view() string {
	w := m.width - 4

	from, to := m.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("History"), "  ", dateLabel)

	stats := fmt.Sprintf("  %s completed  %s counted down",
		highlightStyle.Render(fmt.Sprintf("%d", m.count)),
		highlightStyle.Render(formatHours(m.totalSeconds)),
	)

	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.chart.View(), "", stats, "", m.renderRecent(w), "", nav,
		),
	)
}

func (m historyModel) renderRecent(w int) string {
	if len(m.recent) == 0 {
		return mutedStyle.Render("  No countdowns finished in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-18s %10s %-8s %s", "Completed", "Duration", "Alarm", "Channels")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))

	for _, c := range m.recent {
		rows = append(rows, fmt.Sprintf("  %-18s %10s %-8s %s",
			c.CompletedAt.Local().Format("Jan 02 15:04"),
			timefmt.Format(c.Duration),
			alarmLabel(c.AlarmSound),
			strings.Join(c.Channels(), ", "),
		))
	}

	return strings.Join(rows, "\n")
}
