package alert

import (
	"fmt"
	"time"

	"github.com/sadopc/tminus/internal/settings"
)

// Tone is one segment of a synthesized alarm. A zero frequency is silence.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

// Asset describes an alarm sound: a tone recipe plus the ID used to look up
// an on-disk override.
type Asset struct {
	ID    string
	Tones []Tone
}

// Length is the total play time of the recipe.
func (a Asset) Length() time.Duration {
	var d time.Duration
	for _, t := range a.Tones {
		d += t.Duration
	}
	return d
}

func repeat(n int, seq ...Tone) []Tone {
	out := make([]Tone, 0, n*len(seq))
	for i := 0; i < n; i++ {
		out = append(out, seq...)
	}
	return out
}

var assets = map[settings.AlarmSound]Asset{
	settings.Beep24: {
		ID:    string(settings.Beep24),
		Tones: repeat(3, Tone{880, 150 * time.Millisecond}, Tone{0, 100 * time.Millisecond}),
	},
	settings.Button35: {
		ID:    string(settings.Button35),
		Tones: []Tone{{660, 120 * time.Millisecond}, {990, 180 * time.Millisecond}},
	},
	settings.Button42: {
		ID:    string(settings.Button42),
		Tones: []Tone{{523.25, 400 * time.Millisecond}, {0, 80 * time.Millisecond}, {523.25, 200 * time.Millisecond}},
	},
	settings.Button49: {
		ID:    string(settings.Button49),
		Tones: repeat(4, Tone{1200, 60 * time.Millisecond}, Tone{0, 60 * time.Millisecond}),
	},
}

// AssetFor resolves an alarm sound to its asset.
func AssetFor(s settings.AlarmSound) (Asset, error) {
	a, ok := assets[s]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownSound, s)
	}
	return a, nil
}

// Request captures the alert preferences at the moment a countdown ends.
type Request struct {
	SoundEnabled     bool
	VibrationEnabled bool
	RepeatEnabled    bool
	AlarmSound       settings.AlarmSound
}

// RequestFrom snapshots s.
func RequestFrom(s settings.Settings) Request {
	return Request{
		SoundEnabled:     s.SoundEnabled,
		VibrationEnabled: s.VibrationEnabled,
		RepeatEnabled:    s.RepeatEnabled,
		AlarmSound:       s.AlarmSound,
	}
}
