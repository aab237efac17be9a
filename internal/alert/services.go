package alert

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrUnknownSound     = errors.New("unknown alarm sound")
	ErrAudioUnavailable = errors.New("audio unavailable")
)

// Intensity is the strength of a haptic pulse.
type Intensity int

const (
	Light Intensity = iota
	Medium
	Heavy
)

func (i Intensity) String() string {
	switch i {
	case Light:
		return "light"
	case Medium:
		return "medium"
	case Heavy:
		return "heavy"
	}
	return "unknown"
}

// Notification is a user-visible message delivered immediately.
type Notification struct {
	Title   string
	Body    string
	Sound   bool
	Vibrate []time.Duration
}

// Handle identifies a loaded sound.
type Handle uint64

// Notifier delivers desktop notifications.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	ScheduleImmediate(ctx context.Context, n Notification) error
}

// Haptics emits tactile (or tactile-substitute) pulses.
type Haptics interface {
	Pulse(ctx context.Context, i Intensity) error
}

// Audio loads and plays sound assets. A handle must be unloaded once it is
// no longer needed.
type Audio interface {
	Load(a Asset) (Handle, error)
	Play(h Handle) error
	Stop(h Handle) error
	Unload(h Handle) error
	SetVolume(h Handle, volume float64) error
}
