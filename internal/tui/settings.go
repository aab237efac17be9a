package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tminus/internal/settings"
)

type settingsModel struct {
	store  *settings.Store
	sounds Sounds
	width  int
	height int

	current    settings.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	soundEnabled     *bool
	vibrationEnabled *bool
	repeatEnabled    *bool
	alarmSound       *settings.AlarmSound
}

func newSettingsModel(st *settings.Store, sounds Sounds) settingsModel {
	var se, ve, re bool
	var as settings.AlarmSound
	m := settingsModel{
		store:            st,
		sounds:           sounds,
		current:          settings.Defaults(),
		soundEnabled:     &se,
		vibrationEnabled: &ve,
		repeatEnabled:    &re,
		alarmSound:       &as,
	}
	if st != nil {
		m.current = st.Settings()
	}
	return m
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings settings.Settings
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		if s.store == nil {
			return settingsDataMsg{settings: settings.Defaults()}
		}
		return settingsDataMsg{settings: s.store.Settings()}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.current = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showForm()
		case key.Matches(msg, keys.Preview):
			return s, s.preview(s.current.AlarmSound)
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.soundEnabled = s.current.SoundEnabled
	*s.vibrationEnabled = s.current.VibrationEnabled
	*s.repeatEnabled = s.current.RepeatEnabled
	*s.alarmSound = s.current.AlarmSound

	options := make([]huh.Option[settings.AlarmSound], 0, len(settings.AlarmSounds))
	for _, a := range settings.AlarmSounds {
		options = append(options, huh.NewOption(a.Label(), a))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Sound").Affirmative("On").Negative("Off").Value(s.soundEnabled),
			huh.NewConfirm().Title("Vibration").Affirmative("On").Negative("Off").Value(s.vibrationEnabled),
			huh.NewConfirm().Title("Repeat").
				Description("Start over after the alarm").
				Affirmative("On").Negative("Off").Value(s.repeatEnabled),
		).Title("Alerts"),
		huh.NewGroup(
			huh.NewSelect[settings.AlarmSound]().Title("Alarm sound").
				Options(options...).
				Value(s.alarmSound),
		).Title("Sound"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s.save()
	}

	return s, cmd
}

// save applies the form as a patch. A newly chosen alarm is previewed
// when sound is on.
func (s settingsModel) save() (settingsModel, tea.Cmd) {
	prev := s.current
	patch := settings.Patch{
		SoundEnabled:     settings.Bool(*s.soundEnabled),
		VibrationEnabled: settings.Bool(*s.vibrationEnabled),
		RepeatEnabled:    settings.Bool(*s.repeatEnabled),
		AlarmSound:       settings.Sound(*s.alarmSound),
	}
	if s.store != nil {
		s.current = s.store.Update(patch)
	} else {
		s.current = prev.Merge(patch)
	}

	cmds := []tea.Cmd{statusCmd("Settings saved", false)}
	if s.current.SoundEnabled && s.current.AlarmSound != prev.AlarmSound {
		cmds = append(cmds, s.preview(s.current.AlarmSound))
	}
	return s, tea.Batch(cmds...)
}

func (s settingsModel) preview(sound settings.AlarmSound) tea.Cmd {
	if s.sounds == nil {
		return nil
	}
	sounds := s.sounds
	return func() tea.Msg {
		if err := sounds.PlaySound(context.Background(), sound); err != nil {
			return statusMsg{text: fmt.Sprintf("Preview failed: %v", err), isError: true}
		}
		return statusMsg{text: "Playing " + sound.Label()}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	for _, item := range []struct{ label, value string }{
		{"Sound", onOff(s.current.SoundEnabled)},
		{"Vibration", onOff(s.current.VibrationEnabled)},
		{"Repeat", onOff(s.current.RepeatEnabled)},
		{"Alarm sound", s.current.AlarmSound.Label()},
	} {
		label := lipgloss.NewStyle().Width(24).Render(item.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(item.value)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("enter: edit  p: preview sound"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
