package settings

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sadopc/tminus/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.Store) {
	t.Helper()
	db, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, nil), db
}

// failingBackend rejects every operation.
type failingBackend struct{}

func (failingBackend) GetValue(string) (string, error) { return "", errors.New("disk gone") }
func (failingBackend) SetValue(string, string) error   { return errors.New("disk gone") }
func (failingBackend) DeleteValue(string) error         { return errors.New("disk gone") }

// ============================================================
// Settings value
// ============================================================

func TestDefaults(t *testing.T) {
	d := Defaults()
	if !d.SoundEnabled || !d.VibrationEnabled || d.RepeatEnabled || d.AlarmSound != Beep24 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestMergeOnlySetFields(t *testing.T) {
	s := Defaults().Merge(Patch{RepeatEnabled: Bool(true)})
	if !s.RepeatEnabled {
		t.Fatal("repeat should be set")
	}
	if !s.SoundEnabled || !s.VibrationEnabled || s.AlarmSound != Beep24 {
		t.Fatalf("untouched fields changed: %+v", s)
	}
	if !(Patch{}).IsZero() {
		t.Fatal("empty patch should be zero")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Settings
		corrupt bool
	}{
		{"full", `{"soundEnabled":false,"vibrationEnabled":false,"repeatEnabled":true,"alarmSound":"button-42"}`,
			Settings{false, false, true, Button42}, false},
		{"partial keeps defaults", `{"repeatEnabled":true}`,
			Settings{true, true, true, Beep24}, false},
		{"not json", `{{{`, Defaults(), true},
		{"unknown sound", `{"alarmSound":"siren"}`, Defaults(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if tt.corrupt != errors.Is(err, ErrCorrupt) {
				t.Fatalf("corrupt=%v, err=%v", tt.corrupt, err)
			}
			if got != tt.want {
				t.Fatalf("Decode = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAlarmSound(t *testing.T) {
	if a, err := ParseAlarmSound("button-35"); err != nil || a != Button35 {
		t.Fatalf("by id: %v %v", a, err)
	}
	if a, err := ParseAlarmSound("Digital"); err != nil || a != Button49 {
		t.Fatalf("by label: %v %v", a, err)
	}
	if a, err := ParseAlarmSound("chime"); err != nil || a != Button35 {
		t.Fatalf("label ignores case: %v %v", a, err)
	}
	if _, err := ParseAlarmSound("siren"); err == nil {
		t.Fatal("expected error for unknown sound")
	}
}

// ============================================================
// Store
// ============================================================

func TestSettingsBeforeLoad(t *testing.T) {
	s, _ := newTestStore(t)
	if s.Loaded() {
		t.Fatal("should not be loaded yet")
	}
	if s.Settings() != Defaults() {
		t.Fatal("expected defaults before load")
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Load(); got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if !s.Loaded() {
		t.Fatal("should be loaded")
	}
}

func TestLoadCorrupt(t *testing.T) {
	s, db := newTestStore(t)
	db.SetValue(settingsKey, "not json at all")
	if got := s.Load(); got != Defaults() {
		t.Fatalf("corrupt payload should yield defaults, got %+v", got)
	}
}

func TestLoadBackendError(t *testing.T) {
	s := NewStore(failingBackend{}, nil)
	if got := s.Load(); got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestUpdateThenReload(t *testing.T) {
	s, db := newTestStore(t)
	s.Load()

	got := s.Update(Patch{RepeatEnabled: Bool(true)})
	if !got.RepeatEnabled || !got.SoundEnabled {
		t.Fatalf("update returned %+v", got)
	}
	s.Wait()

	fresh := NewStore(db, nil)
	loaded := fresh.Load()
	want := Settings{SoundEnabled: true, VibrationEnabled: true, RepeatEnabled: true, AlarmSound: Beep24}
	if loaded != want {
		t.Fatalf("reload = %+v, want %+v", loaded, want)
	}
}

func TestUpdateWriteFailureKeepsMemory(t *testing.T) {
	s := NewStore(failingBackend{}, nil)
	got := s.Update(Patch{SoundEnabled: Bool(false)})
	s.Wait()
	if got.SoundEnabled || s.Settings().SoundEnabled {
		t.Fatal("in-memory value should reflect the update despite the write failure")
	}
}

func TestConcurrentUpdatesPersistLatest(t *testing.T) {
	s, db := newTestStore(t)
	s.Load()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update(Patch{AlarmSound: Sound(AlarmSounds[i%len(AlarmSounds)])})
		}(i)
	}
	wg.Wait()
	final := s.Update(Patch{AlarmSound: Sound(Button49)})
	s.Wait()

	persisted := NewStore(db, nil).Load()
	if persisted != final {
		t.Fatalf("persisted %+v, want latest %+v", persisted, final)
	}
}

func TestDurationFallback(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Duration(30); got != 30 {
		t.Fatalf("expected fallback 30, got %d", got)
	}
}

func TestSetDurationPersists(t *testing.T) {
	s, db := newTestStore(t)
	s.SetDuration(125)
	if got := s.Duration(30); got != 125 {
		t.Fatalf("expected cached 125, got %d", got)
	}
	s.Wait()

	if got := NewStore(db, nil).Duration(30); got != 125 {
		t.Fatalf("expected persisted 125, got %d", got)
	}
}

func TestSetDurationIgnoresNonPositive(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetDuration(0)
	s.SetDuration(-5)
	s.Wait()
	if got := s.Duration(30); got != 30 {
		t.Fatalf("expected fallback, got %d", got)
	}
}

func TestDurationInvalidPersisted(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3", fmt.Sprint(24 * 3600)} {
		s, db := newTestStore(t)
		db.SetValue(durationKey, raw)
		if got := s.Duration(30); got != 30 {
			t.Fatalf("%q: expected fallback, got %d", raw, got)
		}
	}
}

func TestResetDropsPersistedValues(t *testing.T) {
	s, db := newTestStore(t)
	s.Load()
	s.Update(Patch{SoundEnabled: Bool(false), AlarmSound: Sound(Button49)})
	s.SetDuration(90)
	s.Wait()

	got := s.Reset()
	s.Wait()
	if got != Defaults() || s.Settings() != Defaults() {
		t.Fatalf("expected defaults after reset, got %+v", s.Settings())
	}
	if d := s.Duration(30); d != 30 {
		t.Fatalf("expected fallback duration, got %d", d)
	}
	for _, key := range []string{settingsKey, durationKey} {
		if _, err := db.GetValue(key); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("%s still stored: %v", key, err)
		}
	}
}

func TestDurationAfterResetIgnoresPendingDelete(t *testing.T) {
	db, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.SetValue(durationKey, "90"); err != nil {
		t.Fatal(err)
	}

	gate := &gatedBackend{Backend: db, release: make(chan struct{})}
	s := NewStore(gate, nil)
	s.Reset()
	// The delete is still blocked, so the row is on disk.
	if got := s.Duration(30); got != 30 {
		t.Fatalf("duration right after reset = %d, want fallback 30", got)
	}
	close(gate.release)
	s.Wait()
	if got := s.Duration(30); got != 30 {
		t.Fatalf("duration after the delete = %d, want fallback 30", got)
	}

	s.SetDuration(45)
	s.Wait()
	if got := NewStore(db, nil).Duration(30); got != 45 {
		t.Fatalf("a new duration should persist after reset, got %d", got)
	}
}

// gatedBackend holds deletes until release is closed.
type gatedBackend struct {
	Backend
	release chan struct{}
}

func (g *gatedBackend) DeleteValue(key string) error {
	<-g.release
	return g.Backend.DeleteValue(key)
}

func TestResetBackendErrorKeepsDefaults(t *testing.T) {
	s := NewStore(failingBackend{}, nil)
	s.Reset()
	s.Wait()
	if s.Settings() != Defaults() {
		t.Fatalf("expected defaults, got %+v", s.Settings())
	}
}
