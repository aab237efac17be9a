package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/settings"
	"pkt.systems/pslog"
)

const (
	NotificationTitle = "Time's Up!"
	NotificationBody  = "Your countdown timer has completed."
)

// VibratePattern is attached to the notification when vibration is on.
var VibratePattern = []time.Duration{0, 250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}

// Options configures a Dispatcher.
type Options struct {
	// Volume is the playback gain, an exponent of base 2 (0 is unchanged).
	Volume float64
	Logger pslog.Logger
}

// Dispatcher turns alert requests into notifications, haptic pulses and
// sound. It owns at most one live sound handle at a time.
type Dispatcher struct {
	notifier Notifier
	haptics  Haptics
	audio    Audio
	volume   float64
	log      pslog.Logger

	permMu    sync.Mutex
	permAsked bool
	permitted bool

	soundMu sync.Mutex
	current *Handle
}

// NewDispatcher wires the three collaborators together.
func NewDispatcher(n Notifier, h Haptics, a Audio, opts Options) *Dispatcher {
	return &Dispatcher{
		notifier: n,
		haptics:  h,
		audio:    a,
		volume:   opts.Volume,
		log:      logx.OrDiscard(opts.Logger),
	}
}

// RequestPermission asks the notifier once and caches a grant.
func (d *Dispatcher) RequestPermission(ctx context.Context) bool {
	d.permMu.Lock()
	defer d.permMu.Unlock()
	if d.permAsked && d.permitted {
		return true
	}
	ok, err := d.notifier.RequestPermission(ctx)
	if err != nil {
		d.log.Debug("notification permission request failed", "err", err)
		ok = false
	}
	d.permAsked = true
	d.permitted = ok
	return ok
}

func (d *Dispatcher) revokePermission() {
	d.permMu.Lock()
	d.permitted = false
	d.permMu.Unlock()
}

// Notify delivers the completion notification. Without permission it is
// skipped and nil is returned.
func (d *Dispatcher) Notify(ctx context.Context, soundEnabled, vibrationEnabled bool) error {
	if !d.RequestPermission(ctx) {
		d.log.Debug("notification skipped, permission not granted")
		return nil
	}
	n := Notification{
		Title: NotificationTitle,
		Body:  NotificationBody,
		Sound: soundEnabled,
	}
	if vibrationEnabled {
		n.Vibrate = append([]time.Duration(nil), VibratePattern...)
	}
	if err := d.notifier.ScheduleImmediate(ctx, n); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			d.revokePermission()
			d.log.Debug("notification skipped, permission revoked")
			return nil
		}
		return fmt.Errorf("schedule notification: %w", err)
	}
	return nil
}

// HapticPulse emits one heavy pulse.
func (d *Dispatcher) HapticPulse(ctx context.Context) error {
	if err := d.haptics.Pulse(ctx, Heavy); err != nil {
		return fmt.Errorf("haptic pulse: %w", err)
	}
	return nil
}

// PlaySound stops and releases any playing sound, then loads and plays s.
func (d *Dispatcher) PlaySound(ctx context.Context, s settings.AlarmSound) error {
	d.soundMu.Lock()
	defer d.soundMu.Unlock()

	d.releaseLocked()

	asset, err := AssetFor(s)
	if err != nil {
		return err
	}
	log := logx.WithSound(d.log, asset.ID)

	h, err := d.audio.Load(asset)
	if err != nil {
		return fmt.Errorf("load sound: %w", err)
	}
	if d.volume != 0 {
		if err := d.audio.SetVolume(h, d.volume); err != nil {
			log.Debug("set volume failed", "err", err)
		}
	}
	if err := d.audio.Play(h); err != nil {
		if uerr := d.audio.Unload(h); uerr != nil {
			log.Debug("unload after failed play", "err", uerr)
		}
		return fmt.Errorf("play sound: %w", err)
	}
	d.current = &h
	log.Debug("sound playing")
	return nil
}

// StopSound stops and releases the current sound, if any.
func (d *Dispatcher) StopSound(ctx context.Context) error {
	d.soundMu.Lock()
	defer d.soundMu.Unlock()
	return d.releaseLocked()
}

// Close releases the sound handle.
func (d *Dispatcher) Close() error {
	return d.StopSound(context.Background())
}

func (d *Dispatcher) releaseLocked() error {
	if d.current == nil {
		return nil
	}
	h := *d.current
	d.current = nil

	var errs []error
	if err := d.audio.Stop(h); err != nil {
		errs = append(errs, fmt.Errorf("stop sound: %w", err))
	}
	if err := d.audio.Unload(h); err != nil {
		errs = append(errs, fmt.Errorf("unload sound: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		d.log.Debug("release sound failed", "err", err)
	}
	return err
}
