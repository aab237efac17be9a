package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AlarmSound identifies one of the bundled alarm tones.
type AlarmSound string

const (
	Beep24   AlarmSound = "beep-24"
	Button35 AlarmSound = "button-35"
	Button42 AlarmSound = "button-42"
	Button49 AlarmSound = "button-49"
)

// AlarmSounds lists every selectable alarm in display order.
var AlarmSounds = []AlarmSound{Beep24, Button35, Button42, Button49}

var soundLabels = map[AlarmSound]string{
	Beep24:   "Beep",
	Button35: "Chime",
	Button42: "Bell",
	Button49: "Digital",
}

// Valid reports whether a is a known alarm sound.
func (a AlarmSound) Valid() bool {
	_, ok := soundLabels[a]
	return ok
}

// Label returns the human name shown in the settings form.
func (a AlarmSound) Label() string {
	if l, ok := soundLabels[a]; ok {
		return l
	}
	return string(a)
}

// ErrCorrupt is returned when a persisted settings payload cannot be decoded.
var ErrCorrupt = errors.New("corrupt settings")

// Settings is the user's alert preferences.
type Settings struct {
	SoundEnabled     bool       `json:"soundEnabled"`
	VibrationEnabled bool       `json:"vibrationEnabled"`
	RepeatEnabled    bool       `json:"repeatEnabled"`
	AlarmSound       AlarmSound `json:"alarmSound"`
}

// Defaults returns the settings used before anything is persisted.
func Defaults() Settings {
	return Settings{
		SoundEnabled:     true,
		VibrationEnabled: true,
		RepeatEnabled:    false,
		AlarmSound:       Beep24,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	SoundEnabled     *bool       `json:"soundEnabled,omitempty"`
	VibrationEnabled *bool       `json:"vibrationEnabled,omitempty"`
	RepeatEnabled    *bool       `json:"repeatEnabled,omitempty"`
	AlarmSound       *AlarmSound `json:"alarmSound,omitempty"`
}

// Merge returns s with every set field of p applied.
func (s Settings) Merge(p Patch) Settings {
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.VibrationEnabled != nil {
		s.VibrationEnabled = *p.VibrationEnabled
	}
	if p.RepeatEnabled != nil {
		s.RepeatEnabled = *p.RepeatEnabled
	}
	if p.AlarmSound != nil {
		s.AlarmSound = *p.AlarmSound
	}
	return s
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.SoundEnabled == nil && p.VibrationEnabled == nil && p.RepeatEnabled == nil && p.AlarmSound == nil
}

// Decode parses a persisted payload. Fields missing from the payload keep
// their default value; an unknown alarm sound is treated as corruption.
func Decode(data string) (Settings, error) {
	s := Defaults()
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Defaults(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !s.AlarmSound.Valid() {
		return Defaults(), fmt.Errorf("%w: unknown alarm sound %q", ErrCorrupt, s.AlarmSound)
	}
	return s, nil
}

// Encode serializes s for persistence.
func Encode(s Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return string(data), nil
}

// ParseAlarmSound accepts either the sound ID or its label, ignoring case.
func ParseAlarmSound(v string) (AlarmSound, error) {
	for _, a := range AlarmSounds {
		if strings.EqualFold(string(a), v) || strings.EqualFold(a.Label(), v) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown alarm sound %q", v)
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// Sound returns a pointer to a, for building patches.
func Sound(a AlarmSound) *AlarmSound { return &a }
