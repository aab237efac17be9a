package timer

import (
	"time"

	"github.com/sadopc/tminus/internal/timefmt"
)

// Status is the countdown's lifecycle position.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Completed
)

var statusNames = map[Status]string{
	Idle:      "idle",
	Running:   "running",
	Paused:    "paused",
	Completed: "completed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// State is a snapshot of the countdown. TimeRemaining never exceeds
// InitialTime and reaches 0 only on completion.
type State struct {
	TimeRemaining int
	InitialTime   int
	Status        Status
}

// Remaining formats TimeRemaining as HH:MM:SS.
func (s State) Remaining() string {
	return timefmt.Format(s.TimeRemaining)
}

// Progress is the elapsed fraction of the current countdown, 0 when idle.
func (s State) Progress() float64 {
	if s.InitialTime <= 0 {
		return 0
	}
	return float64(s.InitialTime-s.TimeRemaining) / float64(s.InitialTime)
}

// EventType names a state transition.
type EventType string

const (
	EventStarted   EventType = "started"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventReset     EventType = "reset"
	EventRestarted EventType = "restarted"
	EventTick      EventType = "tick"
	EventCompleted EventType = "completed"
	EventRepeated  EventType = "repeated"
)

// Event carries the state right after a transition.
type Event struct {
	Type  EventType
	State State
	At    time.Time
}
