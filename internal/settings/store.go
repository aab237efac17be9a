package settings

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timefmt"
	"pkt.systems/pslog"
)

const (
	settingsKey = "settings"
	durationKey = "timerDuration"
)

// Backend is the key/value persistence the settings store writes through.
type Backend interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
	DeleteValue(key string) error
}

// Store holds the process-wide settings. Reads are served from memory;
// writes are applied in memory first and persisted in the background.
type Store struct {
	backend Backend
	log     pslog.Logger

	mu       sync.RWMutex
	current  Settings
	loaded   bool
	duration int
	// cleared is set by Reset until the next SetDuration, so a stale row
	// awaiting deletion is never read back.
	cleared bool

	writeMu sync.Mutex
	pending sync.WaitGroup
}

// NewStore returns a store that serves defaults until Load is called.
func NewStore(backend Backend, log pslog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     logx.OrDiscard(log),
		current: Defaults(),
	}
}

// Load reads persisted settings. A missing or corrupt record yields the
// defaults; it never fails.
func (s *Store) Load() Settings {
	loaded := Defaults()
	raw, err := s.backend.GetValue(settingsKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Debug("no persisted settings, using defaults")
	case err != nil:
		s.log.Warn("read settings failed, using defaults", "err", err)
	default:
		decoded, derr := Decode(raw)
		if derr != nil {
			s.log.Warn("persisted settings unreadable, using defaults", "err", derr)
		} else {
			loaded = decoded
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.loaded = true
	s.mu.Unlock()
	return loaded
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Settings returns the in-memory value.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update merges p into the in-memory settings and returns the result at
// once. Persistence happens in the background; failures are logged only.
func (s *Store) Update(p Patch) Settings {
	s.mu.Lock()
	s.current = s.current.Merge(p)
	next := s.current
	s.mu.Unlock()

	s.persist(func() (string, string, error) {
		// Latest value, not next: the last update wins on disk.
		v, err := Encode(s.Settings())
		return settingsKey, v, err
	})
	return next
}

// Duration returns the saved arm duration in seconds, or fallback when
// nothing valid is stored.
func (s *Store) Duration(fallback int) int {
	s.mu.RLock()
	cached, cleared := s.duration, s.cleared
	s.mu.RUnlock()
	if cached > 0 {
		return cached
	}
	if cleared {
		return fallback
	}

	raw, err := s.backend.GetValue(durationKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("read timer duration failed", "err", err)
		}
		return fallback
	}
	var seconds int
	if err := json.Unmarshal([]byte(raw), &seconds); err != nil || seconds <= 0 || seconds > timefmt.MaxSeconds {
		s.log.Warn("persisted timer duration unreadable", "value", raw)
		return fallback
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.duration > 0:
		return s.duration
	case s.cleared:
		return fallback
	}
	s.duration = seconds
	return seconds
}

// SetDuration saves the arm duration. Non-positive values are ignored.
func (s *Store) SetDuration(seconds int) {
	if seconds <= 0 {
		return
	}
	s.mu.Lock()
	s.duration = seconds
	s.cleared = false
	s.mu.Unlock()

	s.persist(func() (string, string, error) {
		s.mu.RLock()
		v := s.duration
		s.mu.RUnlock()
		return durationKey, strconv.Itoa(v), nil
	})
}

// Reset returns to the defaults and drops both persisted keys in the
// background.
func (s *Store) Reset() Settings {
	s.mu.Lock()
	s.current = Defaults()
	s.duration = 0
	s.cleared = true
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		for _, key := range []string{settingsKey, durationKey} {
			if err := s.backend.DeleteValue(key); err != nil {
				s.log.Warn("delete value failed", "key", key, "err", err)
			}
		}
	}()
	return Defaults()
}

// Wait blocks until every scheduled write has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) persist(value func() (key, val string, err error)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		key, val, err := value()
		if err != nil {
			s.log.Warn("encode value failed", "key", key, "err", err)
			return
		}
		if err := s.backend.SetValue(key, val); err != nil {
			s.log.Warn("persist value failed", "key", key, "err", err)
		}
	}()
}
