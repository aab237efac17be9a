package platform

import (
	"context"

	"github.com/sadopc/tminus/internal/alert"
)

// NoNotifier never grants permission.
type NoNotifier struct{}

func (NoNotifier) RequestPermission(context.Context) (bool, error) { return false, nil }

func (NoNotifier) ScheduleImmediate(context.Context, alert.Notification) error {
	return alert.ErrPermissionDenied
}

// NoHaptics drops every pulse.
type NoHaptics struct{}

func (NoHaptics) Pulse(context.Context, alert.Intensity) error { return nil }

// NoAudio refuses to load anything.
type NoAudio struct{}

func (NoAudio) Load(alert.Asset) (alert.Handle, error) { return 0, alert.ErrAudioUnavailable }
func (NoAudio) Play(alert.Handle) error                { return alert.ErrAudioUnavailable }
func (NoAudio) Stop(alert.Handle) error                { return nil }
func (NoAudio) Unload(alert.Handle) error              { return nil }
func (NoAudio) SetVolume(alert.Handle, float64) error  { return nil }
