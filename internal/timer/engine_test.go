package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/tminus/internal/settings"
)

type fixedSettings struct {
	mu sync.Mutex
	s  settings.Settings
}

func (f *fixedSettings) Settings() settings.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fixedSettings) set(s settings.Settings) {
	f.mu.Lock()
	f.s = s
	f.mu.Unlock()
}

type recordingAlerter struct {
	mu        sync.Mutex
	notifies  []bool
	pulses    int
	sounds    []settings.AlarmSound
	soundErr  error
	notifyErr error
	pulseErr  error
	cancelled int
}

func (r *recordingAlerter) Notify(ctx context.Context, sound, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		r.cancelled++
	}
	r.notifies = append(r.notifies, sound)
	return r.notifyErr
}

func (r *recordingAlerter) HapticPulse(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		r.cancelled++
	}
	r.pulses++
	return r.pulseErr
}

func (r *recordingAlerter) PlaySound(_ context.Context, s settings.AlarmSound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, s)
	return r.soundErr
}

func (r *recordingAlerter) counts() (notifies, pulses, sounds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifies), r.pulses, len(r.sounds)
}

type harness struct {
	engine      *Engine
	clock       *manualClock
	alerts      *recordingAlerter
	settings    *fixedSettings
	completions []Completion
}

func newHarness(t *testing.T, s settings.Settings) *harness {
	t.Helper()
	h := &harness{
		clock:    newManualClock(),
		alerts:   &recordingAlerter{},
		settings: &fixedSettings{s: s},
	}
	h.engine = New(h.settings, h.alerts, Options{
		Clock:          h.clock,
		HapticFallback: true,
		Go:             func(f func()) { f() },
		OnComplete:     func(c Completion) { h.completions = append(h.completions, c) },
	})
	t.Cleanup(h.engine.Close)
	return h
}

func quiet() settings.Settings {
	return settings.Settings{AlarmSound: settings.Beep24}
}

func expectState(t *testing.T, e *Engine, remaining, initial int, status Status) {
	t.Helper()
	got := e.State()
	want := State{TimeRemaining: remaining, InitialTime: initial, Status: status}
	if got != want {
		t.Fatalf("state = %+v, want %+v", got, want)
	}
}

// ============================================================
// Commands
// ============================================================

func TestStart(t *testing.T) {
	for _, seconds := range []int{1, 5, 59, 3600, 86399} {
		h := newHarness(t, quiet())
		if err := h.engine.Start(seconds); err != nil {
			t.Fatal(err)
		}
		expectState(t, h.engine, seconds, seconds, Running)
	}
}

func TestStartInvalid(t *testing.T) {
	h := newHarness(t, quiet())
	for _, seconds := range []int{0, -1} {
		if err := h.engine.Start(seconds); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("Start(%d): expected ErrInvalidDuration, got %v", seconds, err)
		}
	}
	expectState(t, h.engine, 0, 0, Idle)
	if h.clock.pending() != 0 {
		t.Fatal("no tick should be scheduled")
	}
}

func TestStartWhileRunningRearms(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(10)
	h.clock.Advance(3 * time.Second)
	h.engine.Start(20)
	expectState(t, h.engine, 20, 20, Running)
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 19, 20, Running)
}

func TestResetFromEveryState(t *testing.T) {
	setups := map[string]func(h *harness){
		"idle":      func(h *harness) {},
		"running":   func(h *harness) { h.engine.Start(10) },
		"paused":    func(h *harness) { h.engine.Start(10); h.engine.Pause() },
		"completed": func(h *harness) { h.engine.Start(1); h.clock.Advance(time.Second) },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, quiet())
			setup(h)
			h.engine.Reset()
			expectState(t, h.engine, 0, 0, Idle)
			h.clock.Advance(5 * time.Second)
			expectState(t, h.engine, 0, 0, Idle)
		})
	}
}

func TestPauseResumePreservesRemaining(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(10)
	h.clock.Advance(4 * time.Second)
	h.engine.Pause()
	expectState(t, h.engine, 6, 10, Paused)

	h.clock.Advance(time.Hour)
	expectState(t, h.engine, 6, 10, Paused)

	h.engine.Resume()
	expectState(t, h.engine, 6, 10, Running)
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 5, 10, Running)
}

func TestInvalidCommandsAreNoops(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Pause()
	h.engine.Resume()
	expectState(t, h.engine, 0, 0, Idle)

	h.engine.Start(3)
	h.engine.Resume()
	expectState(t, h.engine, 3, 3, Running)

	h.clock.Advance(3 * time.Second)
	h.engine.Pause()
	h.engine.Resume()
	expectState(t, h.engine, 0, 3, Completed)
}

func TestResumeAtZeroStaysPaused(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.mu.Lock()
	h.engine.state = State{TimeRemaining: 0, InitialTime: 5, Status: Paused}
	h.engine.mu.Unlock()

	h.engine.Resume()
	expectState(t, h.engine, 0, 5, Paused)
}

func TestRestart(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(2)
	h.clock.Advance(2 * time.Second)
	expectState(t, h.engine, 0, 2, Completed)

	h.engine.Restart()
	expectState(t, h.engine, 2, 2, Running)
	h.clock.Advance(2 * time.Second)
	expectState(t, h.engine, 0, 2, Completed)
	if len(h.completions) != 2 {
		t.Fatalf("expected a second completion after restart, got %d", len(h.completions))
	}
}

func TestRestartWhileRunning(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(10)
	h.clock.Advance(7 * time.Second)
	h.engine.Restart()
	expectState(t, h.engine, 10, 10, Running)
}

func TestRestartWithoutDurationResets(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Restart()
	expectState(t, h.engine, 0, 0, Idle)
	if h.clock.pending() != 0 {
		t.Fatal("restart from idle must not schedule a tick")
	}
}

// ============================================================
// Ticking and completion
// ============================================================

func TestCountdownToCompletion(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(5)
	for i := 4; i >= 1; i-- {
		h.clock.Advance(time.Second)
		expectState(t, h.engine, i, 5, Running)
	}
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 0, 5, Completed)
	if len(h.completions) != 1 {
		t.Fatalf("expected exactly one completion, got %d", len(h.completions))
	}
	if h.completions[0].Duration != 5 {
		t.Fatalf("expected duration 5, got %d", h.completions[0].Duration)
	}
}

func TestCompletionFiresOnce(t *testing.T) {
	h := newHarness(t, settings.Defaults())
	h.engine.Start(1)
	h.clock.Advance(time.Second)
	h.clock.Advance(time.Minute)

	// A stray tick delivered after completion must not fire again.
	h.engine.onTick(h.engine.tickSeq)

	notifies, _, sounds := h.alerts.counts()
	if notifies != 1 || sounds != 1 || len(h.completions) != 1 {
		t.Fatalf("expected one completion, got notify=%d sound=%d hooks=%d", notifies, sounds, len(h.completions))
	}
	if h.clock.pending() != 0 {
		t.Fatal("ticking should stop on completion")
	}
}

func TestCompletionSideEffects(t *testing.T) {
	h := newHarness(t, settings.Settings{SoundEnabled: true, VibrationEnabled: true, AlarmSound: settings.Button35})
	h.engine.Start(1)
	h.clock.Advance(time.Second)

	notifies, pulses, sounds := h.alerts.counts()
	if notifies != 1 || sounds != 1 {
		t.Fatalf("expected notify and sound, got %d/%d", notifies, sounds)
	}
	if pulses != 1 {
		t.Fatalf("only the first pulse is due at completion, got %d", pulses)
	}
	h.clock.Advance(300 * time.Millisecond)
	if _, pulses, _ = h.alerts.counts(); pulses != 2 {
		t.Fatalf("expected 2 pulses at +300ms, got %d", pulses)
	}
	h.clock.Advance(300 * time.Millisecond)
	if _, pulses, _ = h.alerts.counts(); pulses != 3 {
		t.Fatalf("expected 3 pulses at +600ms, got %d", pulses)
	}
	if h.alerts.sounds[0] != settings.Button35 {
		t.Fatalf("wrong sound %q", h.alerts.sounds[0])
	}
}

func TestCompletionRespectsDisabledChannels(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(1)
	h.clock.Advance(time.Second)

	notifies, pulses, sounds := h.alerts.counts()
	if notifies != 1 {
		t.Fatal("notification content always fires")
	}
	if h.alerts.notifies[0] {
		t.Fatal("sound flag should be off")
	}
	if pulses != 0 || sounds != 0 {
		t.Fatalf("expected no pulses or sounds, got %d/%d", pulses, sounds)
	}
}

func TestSettingsReadAtCompletion(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(2)
	h.settings.set(settings.Settings{SoundEnabled: true, AlarmSound: settings.Button49})
	h.clock.Advance(2 * time.Second)

	if len(h.alerts.sounds) != 1 || h.alerts.sounds[0] != settings.Button49 {
		t.Fatalf("expected settings captured at completion, got %v", h.alerts.sounds)
	}
	if h.completions[0].Request.AlarmSound != settings.Button49 {
		t.Fatal("completion should carry the captured request")
	}
}

func TestSideEffectFailuresDoNotBlock(t *testing.T) {
	h := newHarness(t, settings.Settings{SoundEnabled: true, VibrationEnabled: true, RepeatEnabled: true, AlarmSound: settings.Beep24})
	h.alerts.notifyErr = errors.New("no bus")
	h.alerts.soundErr = errors.New("no device")
	h.alerts.pulseErr = errors.New("no tty")

	h.engine.Start(1)
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 0, 1, Completed)
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 1, 1, Running)
}

func TestSoundFailureFallsBackToPulse(t *testing.T) {
	h := newHarness(t, settings.Settings{SoundEnabled: true, AlarmSound: settings.Beep24})
	h.alerts.soundErr = errors.New("no device")
	h.engine.Start(1)
	h.clock.Advance(time.Second)

	if _, pulses, _ := h.alerts.counts(); pulses != 1 {
		t.Fatalf("expected one fallback pulse, got %d", pulses)
	}
}

func TestSoundFailureNoFallbackWhenVibrating(t *testing.T) {
	h := newHarness(t, settings.Settings{SoundEnabled: true, VibrationEnabled: true, AlarmSound: settings.Beep24})
	h.alerts.soundErr = errors.New("no device")
	h.engine.Start(1)
	h.clock.Advance(2 * time.Second)

	if _, pulses, _ := h.alerts.counts(); pulses != 3 {
		t.Fatalf("expected only the three completion pulses, got %d", pulses)
	}
}

// ============================================================
// Repeat
// ============================================================

func TestRepeatRearms(t *testing.T) {
	h := newHarness(t, settings.Settings{RepeatEnabled: true, AlarmSound: settings.Beep24})
	h.engine.Start(3)
	h.clock.Advance(3 * time.Second)
	expectState(t, h.engine, 0, 3, Completed)

	h.clock.Advance(999 * time.Millisecond)
	expectState(t, h.engine, 0, 3, Completed)
	h.clock.Advance(time.Millisecond)
	expectState(t, h.engine, 3, 3, Running)

	h.clock.Advance(3 * time.Second)
	if len(h.completions) != 2 {
		t.Fatalf("expected a second cycle, got %d completions", len(h.completions))
	}
}

func TestNoRepeatStaysCompleted(t *testing.T) {
	h := newHarness(t, quiet())
	h.engine.Start(1)
	h.clock.Advance(time.Hour)
	expectState(t, h.engine, 0, 1, Completed)
}

func TestResetCancelsPendingRepeat(t *testing.T) {
	h := newHarness(t, settings.Settings{RepeatEnabled: true, AlarmSound: settings.Beep24})
	h.engine.Start(1)
	h.clock.Advance(time.Second)
	h.engine.Reset()
	h.clock.Advance(5 * time.Second)
	expectState(t, h.engine, 0, 0, Idle)
}

func TestStaleRearmAfterStartNeverFires(t *testing.T) {
	h := newHarness(t, settings.Settings{RepeatEnabled: true, AlarmSound: settings.Beep24})
	events, cancel := h.engine.Subscribe(64)
	defer cancel()

	h.engine.Start(1)
	h.clock.Advance(time.Second)

	// Capture the rearm callback before Start cancels it, then deliver it late.
	gen := h.engine.generation
	h.engine.Start(10)
	h.engine.onRearm(gen)
	h.clock.Advance(time.Second)
	expectState(t, h.engine, 9, 10, Running)

	for len(events) > 0 {
		if ev := <-events; ev.Type == EventRepeated {
			t.Fatal("stale rearm must not fire")
		}
	}
}

// ============================================================
// Subscriptions and teardown
// ============================================================

func TestSubscribeEvents(t *testing.T) {
	h := newHarness(t, quiet())
	events, cancel := h.engine.Subscribe(16)

	h.engine.Start(2)
	h.clock.Advance(2 * time.Second)
	h.engine.Reset()

	want := []EventType{EventStarted, EventTick, EventCompleted, EventReset}
	for _, w := range want {
		ev := <-events
		if ev.Type != w {
			t.Fatalf("expected %s, got %s", w, ev.Type)
		}
	}
	cancel()
	if _, ok := <-events; ok {
		t.Fatal("channel should be closed after cancel")
	}
	cancel()
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	h := newHarness(t, quiet())
	events, cancel := h.engine.Subscribe(1)
	defer cancel()

	h.engine.Start(10)
	h.clock.Advance(5 * time.Second)
	expectState(t, h.engine, 5, 10, Running)
	if ev := <-events; ev.Type != EventStarted {
		t.Fatalf("expected the first event to be kept, got %s", ev.Type)
	}
}

func TestEventCarriesState(t *testing.T) {
	h := newHarness(t, quiet())
	events, cancel := h.engine.Subscribe(4)
	defer cancel()
	h.engine.Start(7)
	ev := <-events
	if ev.State.TimeRemaining != 7 || ev.State.Status != Running {
		t.Fatalf("unexpected event state %+v", ev.State)
	}
	if !ev.At.Equal(h.clock.Now()) {
		t.Fatalf("expected clock timestamp, got %v", ev.At)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, quiet())
	events, _ := h.engine.Subscribe(4)
	h.engine.Start(5)
	h.engine.Close()

	if h.clock.pending() != 0 {
		t.Fatal("close should cancel the tick")
	}
	for range events {
	}
	h.engine.Start(3)
	h.engine.Reset()
	expectState(t, h.engine, 5, 5, Running)

	ch, cancel := h.engine.Subscribe(1)
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
	h.engine.Close()
}

func TestCloseFlushesScheduledPulses(t *testing.T) {
	h := newHarness(t, settings.Settings{VibrationEnabled: true, AlarmSound: settings.Beep24})
	h.engine.Start(1)
	h.clock.Advance(time.Second)
	if _, pulses, _ := h.alerts.counts(); pulses != 1 {
		t.Fatalf("expected the first pulse at completion, got %d", pulses)
	}

	h.engine.Close()
	notifies, pulses, _ := h.alerts.counts()
	if notifies != 1 || pulses != 3 {
		t.Fatalf("close should deliver every alert, got %d notifies %d pulses", notifies, pulses)
	}
	if h.alerts.cancelled != 0 {
		t.Fatalf("%d alerts saw a cancelled context", h.alerts.cancelled)
	}
	if h.clock.pending() != 0 {
		t.Fatal("no pulse should stay scheduled after close")
	}
	h.clock.Advance(time.Second)
	if _, pulses, _ = h.alerts.counts(); pulses != 3 {
		t.Fatalf("pulses fired twice, got %d", pulses)
	}
}

func TestSettleWaitsForScheduledPulses(t *testing.T) {
	h := newHarness(t, settings.Settings{VibrationEnabled: true, AlarmSound: settings.Beep24})
	if err := h.engine.Settle(context.Background()); err != nil {
		t.Fatalf("settle with nothing in flight: %v", err)
	}
	h.engine.Start(1)
	h.clock.Advance(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.engine.Settle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("settle should wait for the +600ms pulse, got %v", err)
	}

	h.clock.Advance(600 * time.Millisecond)
	if err := h.engine.Settle(context.Background()); err != nil {
		t.Fatalf("settle after the last pulse: %v", err)
	}
	if _, pulses, _ := h.alerts.counts(); pulses != 3 {
		t.Fatalf("expected 3 pulses, got %d", pulses)
	}
}

func TestCloseRightAfterCompletionKeepsAlerts(t *testing.T) {
	alerts := &recordingAlerter{}
	var effects sync.WaitGroup
	e := New(&fixedSettings{s: settings.Settings{VibrationEnabled: true, AlarmSound: settings.Beep24}}, alerts, Options{
		TickInterval:  10 * time.Millisecond,
		HapticOffsets: []time.Duration{0, 30 * time.Millisecond, 60 * time.Millisecond},
		Go: func(f func()) {
			effects.Add(1)
			go func() {
				defer effects.Done()
				f()
			}()
		},
	})
	events, _ := e.Subscribe(8)
	if err := e.Start(1); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case ev := <-events:
			done = ev.Type == EventCompleted
		case <-deadline:
			t.Fatal("countdown never completed")
		}
	}

	e.Close()
	effects.Wait()
	notifies, pulses, _ := alerts.counts()
	if notifies != 1 || pulses != 3 {
		t.Fatalf("lost alerts: %d/1 notifies, %d/3 pulses", notifies, pulses)
	}
	alerts.mu.Lock()
	cancelled := alerts.cancelled
	alerts.mu.Unlock()
	if cancelled != 0 {
		t.Fatalf("%d alerts ran with a cancelled context", cancelled)
	}
}

func TestConcurrentCommandsKeepInvariants(t *testing.T) {
	h := newHarness(t, settings.Settings{RepeatEnabled: true, AlarmSound: settings.Beep24})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 5 {
				case 0:
					h.engine.Start(3)
				case 1:
					h.engine.Pause()
				case 2:
					h.engine.Resume()
				case 3:
					h.engine.Restart()
				case 4:
					h.engine.Reset()
				}
				st := h.engine.State()
				if st.TimeRemaining < 0 || st.TimeRemaining > st.InitialTime {
					t.Errorf("invariant broken: %+v", st)
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			h.clock.Advance(500 * time.Millisecond)
		}
	}()
	wg.Wait()
}

func TestStatusString(t *testing.T) {
	if Running.String() != "running" || Status(99).String() != "unknown" {
		t.Fatal("unexpected status names")
	}
}

func TestStateProgress(t *testing.T) {
	if (State{}).Progress() != 0 {
		t.Fatal("idle progress should be 0")
	}
	if p := (State{TimeRemaining: 1, InitialTime: 4}).Progress(); p != 0.75 {
		t.Fatalf("expected 0.75, got %v", p)
	}
	if r := (State{TimeRemaining: 3661}).Remaining(); r != "01:01:01" {
		t.Fatalf("unexpected remaining %q", r)
	}
}
