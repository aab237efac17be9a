package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tminus/internal/export"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timer"
)

// Deps are the collaborators the TUI drives.
type Deps struct {
	Engine          Engine
	Settings        *settings.Store
	Sounds          Sounds
	History         History
	DefaultDuration int
	// ExportDir receives exports; empty means the home directory.
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	deps   Deps
	width  int
	height int

	events      <-chan timer.Event
	unsubscribe func()

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	timer    timerModel
	settings settingsModel
	history  historyModel

	help    help.Model
	status  string
	isError bool
}

func NewApp(d Deps) App {
	h := help.New()
	h.ShowAll = false

	if d.Settings != nil && !d.Settings.Loaded() {
		d.Settings.Load()
	}
	events, unsubscribe := d.Engine.Subscribe(16)

	return App{
		deps:        d,
		events:      events,
		unsubscribe: unsubscribe,
		activeView:  viewTimer,
		timer:       newTimerModel(d.Engine, d.Settings, d.DefaultDuration),
		settings:    newSettingsModel(d.Settings, d.Sounds),
		history:     newHistoryModel(d.History),
		help:        h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(a.events),
		a.requestPermission(),
		a.history.refresh(),
	)
}

// Close drops the engine subscription.
func (a App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func waitForEvent(ch <-chan timer.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}

func (a App) requestPermission() tea.Cmd {
	if a.deps.Sounds == nil {
		return nil
	}
	sounds := a.deps.Sounds
	return func() tea.Msg {
		return permissionMsg{granted: sounds.RequestPermission(context.Background())}
	}
}

// stopSound silences a ringing alarm once the countdown is dismissed.
func (a App) stopSound() tea.Cmd {
	if a.deps.Sounds == nil {
		return nil
	}
	sounds := a.deps.Sounds
	return func() tea.Msg {
		if err := sounds.StopSound(context.Background()); err != nil {
			return statusMsg{text: fmt.Sprintf("Stop sound: %v", err), isError: true}
		}
		return nil
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.history.buildChart()
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isCapturing(msg) {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case engineEventMsg:
		cmds := []tea.Cmd{waitForEvent(a.events)}
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		cmds = append(cmds, cmd)
		switch msg.event.Type {
		case timer.EventCompleted:
			cmds = append(cmds, a.history.refresh())
		case timer.EventReset:
			cmds = append(cmds, a.stopSound())
		}
		return a, tea.Batch(cmds...)

	case permissionMsg:
		if !msg.granted {
			a.status = "Notifications unavailable"
			a.isError = false
		}
		return a, nil

	case statusMsg:
		a.status = msg.text
		a.isError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isError = false
		a.exportPicking = false
		return a, nil

	case historyDataMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, cmd

	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	}
	return a, cmd
}

// isCapturing reports whether the active view wants msg before the
// global bindings see it.
func (a App) isCapturing(msg tea.KeyMsg) bool {
	switch a.activeView {
	case viewSettings:
		return a.settings.formActive
	case viewTimer:
		return isDigit(msg) && a.deps.Engine.State().Status == timer.Idle
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewSettings:
		return a.settings.refresh()
	case viewHistory:
		return a.history.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewSettings:
		content = a.settings.view()
	case viewHistory:
		content = a.history.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := brandStyle.Render("tminus")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.isError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Countdown indicator, visible from every view
	timerInfo := ""
	state := a.deps.Engine.State()
	if state.Status != timer.Idle {
		timerInfo = glyphStyle(state.Status).Render(" " + lookFor(state.Status).glyph + " " + state.Remaining())
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Completions")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return popupStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	h := a.deps.History
	dir := a.deps.ExportDir
	return func() tea.Msg {
		if h == nil {
			return statusMsg{text: "Export error: no history store", isError: true}
		}
		completions, err := h.ListCompletions(store.CompletionFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("tminus-export-%s.csv", dateStr))
			if err := export.ToCSV(completions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("tminus-export-%s.json", dateStr))
			if err := export.ToJSON(completions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
