package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timefmt"
)

var csvHeader = []string{"ID", "Completed", "Duration (s)", "Duration", "Alarm", "Sound", "Vibration", "Repeat"}

func ToCSV(completions []store.Completion, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, completions)
}

// WriteCSV writes one row per completion, preceded by a header.
func WriteCSV(out io.Writer, completions []store.Completion) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, c := range completions {
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.CompletedAt.Local().Format(time.RFC3339),
			strconv.Itoa(c.Duration),
			timefmt.Format(c.Duration),
			c.AlarmSound,
			strconv.FormatBool(c.SoundEnabled),
			strconv.FormatBool(c.VibrationEnabled),
			strconv.FormatBool(c.Repeat),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
