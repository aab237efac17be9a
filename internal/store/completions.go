package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordCompletion inserts a completion. A zero CompletedAt means now.
func (s *Store) RecordCompletion(c Completion) (*Completion, error) {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO completions (duration, alarm_sound, sound_enabled, vibration_enabled, repeat, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Duration, c.AlarmSound, boolInt(c.SoundEnabled), boolInt(c.VibrationEnabled), boolInt(c.Repeat),
		c.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCompletion(id)
}

func (s *Store) GetCompletion(id int64) (*Completion, error) {
	row := s.db.QueryRow(
		`SELECT id, duration, alarm_sound, sound_enabled, vibration_enabled, repeat, completed_at
		 FROM completions WHERE id = ?`, id,
	)
	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get completion %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get completion %d: %w", id, err)
	}
	return c, nil
}

// ListCompletions returns completions newest first.
func (s *Store) ListCompletions(f CompletionFilter) ([]Completion, error) {
	query := `SELECT id, duration, alarm_sound, sound_enabled, vibration_enabled, repeat, completed_at
		FROM completions WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND completed_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND completed_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY completed_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

func (s *Store) GetDailyCompletions(from, to time.Time) ([]DailyCompletions, error) {
	rows, err := s.db.Query(`
		SELECT date(completed_at) AS day, COUNT(*), COALESCE(SUM(duration), 0)
		FROM completions
		WHERE completed_at >= ? AND completed_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily completions: %w", err)
	}
	defer rows.Close()

	var days []DailyCompletions
	for rows.Next() {
		var d DailyCompletions
		if err := rows.Scan(&d.Date, &d.Count, &d.TotalSeconds); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) GetCompletionStats(from, to time.Time) (count int, totalSeconds int64, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(duration), 0)
		FROM completions
		WHERE completed_at >= ? AND completed_at < ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&count, &totalSeconds)
	return
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompletion(r rowScanner) (*Completion, error) {
	c := &Completion{}
	var sound, vibration, repeat int
	var completedAt string
	if err := r.Scan(&c.ID, &c.Duration, &c.AlarmSound, &sound, &vibration, &repeat, &completedAt); err != nil {
		return nil, err
	}
	c.SoundEnabled = sound == 1
	c.VibrationEnabled = vibration == 1
	c.Repeat = repeat == 1
	c.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
	return c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
