package store

import "time"

type KeyValue struct {
	Key   string
	Value string
}

// Completion is one countdown reaching zero.
type Completion struct {
	ID               int64
	Duration         int // seconds
	AlarmSound       string
	SoundEnabled     bool
	VibrationEnabled bool
	Repeat           bool
	CompletedAt      time.Time
}

// CompletionFilter is used to filter completions in queries.
type CompletionFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// DailyCompletions aggregates completions per day.
type DailyCompletions struct {
	Date         string
	Count        int
	TotalSeconds int64
}

// Channels names the alert channels that were on, or "silent".
func (c Completion) Channels() []string {
	var out []string
	if c.SoundEnabled {
		out = append(out, "sound")
	}
	if c.VibrationEnabled {
		out = append(out, "vibration")
	}
	if c.Repeat {
		out = append(out, "repeat")
	}
	if len(out) == 0 {
		out = append(out, "silent")
	}
	return out
}
