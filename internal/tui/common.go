package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewSettings
	viewHistory
)

var viewNames = []string{"Timer", "Settings", "History"}

// Engine is the countdown the timer view drives.
type Engine interface {
	Start(seconds int) error
	Pause()
	Resume()
	Reset()
	Restart()
	State() timer.State
	Subscribe(buffer int) (<-chan timer.Event, func())
}

// Sounds previews alarm sounds and requests notification permission.
type Sounds interface {
	PlaySound(ctx context.Context, s settings.AlarmSound) error
	StopSound(ctx context.Context) error
	RequestPermission(ctx context.Context) bool
}

// History is the completion log behind the history view and exports.
type History interface {
	ListCompletions(f store.CompletionFilter) ([]store.Completion, error)
	GetDailyCompletions(from, to time.Time) ([]store.DailyCompletions, error)
	GetCompletionStats(from, to time.Time) (count int, totalSeconds int64, err error)
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type engineEventMsg struct {
	event timer.Event
}

type permissionMsg struct {
	granted bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func alarmLabel(id string) string {
	return settings.AlarmSound(id).Label()
}
