package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timefmt"
)

type jsonExport struct {
	ExportedAt   string      `json:"exported_at"`
	Count        int         `json:"count"`
	TotalSeconds int64       `json:"total_seconds"`
	Completions  []jsonEntry `json:"completions"`
}

type jsonEntry struct {
	ID               int64  `json:"id"`
	CompletedAt      string `json:"completed_at"`
	DurationSec      int    `json:"duration_seconds"`
	Duration         string `json:"duration"`
	AlarmSound       string `json:"alarm_sound"`
	SoundEnabled     bool   `json:"sound_enabled"`
	VibrationEnabled bool   `json:"vibration_enabled"`
	Repeat           bool   `json:"repeat"`
}

func ToJSON(completions []store.Completion, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()
	if err := WriteJSON(f, completions); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// WriteJSON writes the completions as one indented JSON document.
func WriteJSON(w io.Writer, completions []store.Completion) error {
	export := jsonExport{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Count:       len(completions),
		Completions: []jsonEntry{},
	}

	for _, c := range completions {
		export.TotalSeconds += int64(c.Duration)
		export.Completions = append(export.Completions, jsonEntry{
			ID:               c.ID,
			CompletedAt:      c.CompletedAt.Local().Format(time.RFC3339),
			DurationSec:      c.Duration,
			Duration:         timefmt.Format(c.Duration),
			AlarmSound:       c.AlarmSound,
			SoundEnabled:     c.SoundEnabled,
			VibrationEnabled: c.VibrationEnabled,
			Repeat:           c.Repeat,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return nil
}
