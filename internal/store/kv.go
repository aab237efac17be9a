package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetValue returns the raw value stored under key, or ErrNotFound.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("get value %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("get value %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set value %q: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteValue(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete value %q: %w", key, err)
	}
	return nil
}

func (s *Store) AllValues() ([]KeyValue, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer rows.Close()

	var values []KeyValue
	for rows.Next() {
		var kv KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, err
		}
		values = append(values, kv)
	}
	return values, rows.Err()
}
