package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/timefmt"
	"github.com/sadopc/tminus/internal/timer"
)

const (
	fieldHours = iota
	fieldMinutes
	fieldSeconds
)

var (
	fieldMax    = [3]int{23, 59, 59}
	fieldLabels = [3]string{"hours", "minutes", "seconds"}
)

// timerModel is the countdown screen: three duration fields while idle,
// the live countdown otherwise.
type timerModel struct {
	engine   Engine
	settings *settings.Store
	width    int
	height   int

	fields [3]textinput.Model
	focus  int

	state timer.State
}

func newTimerModel(e Engine, st *settings.Store, defaultSeconds int) timerModel {
	t := timerModel{
		engine:   e,
		settings: st,
		state:    e.State(),
	}
	for i := range t.fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 2
		ti.Width = 2
		ti.Placeholder = "00"
		t.fields[i] = ti
	}
	t.fields[fieldHours].Focus()

	seconds := defaultSeconds
	if st != nil {
		seconds = st.Duration(defaultSeconds)
	}
	t.setDuration(seconds)
	return t
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t *timerModel) setDuration(seconds int) {
	h, m, s := timefmt.Split(seconds)
	for i, v := range []int{h, m, s} {
		t.fields[i].SetValue(fmt.Sprintf("%02d", v))
	}
}

// seconds is the duration currently entered in the fields.
func (t timerModel) seconds() int {
	return timefmt.FromFields(t.fields[fieldHours].Value(), t.fields[fieldMinutes].Value(), t.fields[fieldSeconds].Value())
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case engineEventMsg:
		t.state = msg.event.State
		switch msg.event.Type {
		case timer.EventCompleted:
			return t, statusCmd("Time's up!", false)
		case timer.EventRepeated:
			return t, statusCmd("Repeating countdown", false)
		}
		return t, nil

	case tea.KeyMsg:
		switch t.engine.State().Status {
		case timer.Idle:
			return t.updateIdle(msg)
		case timer.Running:
			switch {
			case key.Matches(msg, keys.Pause):
				t.engine.Pause()
			case key.Matches(msg, keys.Reset):
				t.engine.Reset()
			}
		case timer.Paused:
			switch {
			case key.Matches(msg, keys.Pause):
				t.engine.Resume()
			case key.Matches(msg, keys.Reset):
				t.engine.Reset()
			}
		case timer.Completed:
			switch {
			case key.Matches(msg, keys.Start):
				t.engine.Restart()
			case key.Matches(msg, keys.Reset):
				t.engine.Reset()
			}
		}
		t.state = t.engine.State()
	}
	return t, nil
}

func (t timerModel) updateIdle(msg tea.KeyMsg) (timerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		return t.start()
	case msg.String() == "left" || msg.String() == "shift+tab":
		t.moveFocus(-1)
		return t, nil
	case msg.String() == "right":
		t.moveFocus(1)
		return t, nil
	case msg.String() == "up":
		t.step(1)
		return t, nil
	case msg.String() == "down":
		t.step(-1)
		return t, nil
	}

	if isDigit(msg) && len(t.fields[t.focus].Value()) >= 2 {
		// A full field starts over instead of rejecting the keystroke.
		t.fields[t.focus].SetValue("")
	}

	var cmd tea.Cmd
	t.fields[t.focus], cmd = t.fields[t.focus].Update(msg)
	t.fields[t.focus].SetValue(clampField(t.fields[t.focus].Value(), fieldMax[t.focus]))
	return t, cmd
}

func (t timerModel) start() (timerModel, tea.Cmd) {
	seconds := t.seconds()
	if err := t.engine.Start(seconds); err != nil {
		return t, statusCmd("Set a duration above zero", true)
	}
	if t.settings != nil {
		t.settings.SetDuration(seconds)
	}
	t.state = t.engine.State()
	return t, statusCmd("Countdown started", false)
}

func (t *timerModel) moveFocus(delta int) {
	t.fields[t.focus].Blur()
	t.focus = (t.focus + delta + len(t.fields)) % len(t.fields)
	t.fields[t.focus].Focus()
}

// step nudges the focused field, wrapping within its range.
func (t *timerModel) step(delta int) {
	limit := fieldMax[t.focus] + 1
	v, _ := strconv.Atoi(t.fields[t.focus].Value())
	v = (v + delta + limit) % limit
	t.fields[t.focus].SetValue(fmt.Sprintf("%02d", v))
}

func isDigit(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '0' && msg.Runes[0] <= '9'
}

// clampField keeps only digits and caps the value at max.
func clampField(v string, max int) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
	if digits == "" {
		return ""
	}
	if n, err := strconv.Atoi(digits); err == nil && n > max {
		return strconv.Itoa(max)
	}
	return digits
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

var controlHints = map[timer.Status]string{
	timer.Running:   "space: pause  r: reset",
	timer.Paused:    "space: resume  r: reset",
	timer.Completed: "s: restart  r: reset",
}

func (t timerModel) view() string {
	w := t.width - 4
	title := titleStyle.Render("Countdown")

	var display, label, controls string
	switch t.state.Status {
	case timer.Idle:
		display = t.renderFields()
		label = mutedStyle.Render("Set a duration")
		if t.seconds() == 0 {
			controls = mutedStyle.Render("←/→: field  ↑/↓: adjust  0-9: type")
		} else {
			controls = mutedStyle.Render("s: start  ←/→: field  ↑/↓: adjust")
		}
	default:
		display = clockStyle(t.state.Status).Width(w - 6).Render(t.state.Remaining())
		label = badgeStyle(t.state.Status).Render(lookFor(t.state.Status).badge)
		controls = mutedStyle.Render(controlHints[t.state.Status])
		if t.state.Status == timer.Completed && t.settings != nil && t.settings.Settings().RepeatEnabled {
			label += mutedStyle.Render("  repeating shortly")
		}
	}

	rows := []string{title, "", display, label}
	if t.state.Status != timer.Idle {
		rows = append(rows, "", t.renderProgress(w-10))
		rows = append(rows, mutedStyle.Render("of "+timefmt.Format(t.state.InitialTime)))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, rows...),
			"",
			controls,
		),
	)
}

func (t timerModel) renderFields() string {
	var parts []string
	for i, f := range t.fields {
		style := fieldStyle
		if i == t.focus {
			style = focusedFieldStyle
		}
		box := lipgloss.JoinVertical(lipgloss.Center,
			style.Render(f.View()),
			mutedStyle.Render(fieldLabels[i]),
		)
		parts = append(parts, box)
		if i < len(t.fields)-1 {
			parts = append(parts, separatorStyle.Render(" : "))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (t timerModel) renderProgress(width int) string {
	if width < 10 {
		width = 10
	}
	if width > 50 {
		width = 50
	}
	filled := int(t.state.Progress() * float64(width))
	bar := progressStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
	return bar
}
