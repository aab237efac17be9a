package timer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sadopc/tminus/internal/alert"
	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/settings"
	"pkt.systems/pslog"
)

// ErrInvalidDuration is returned by Start for a non-positive duration.
var ErrInvalidDuration = errors.New("duration must be positive")

// Source provides the alert preferences read at completion time.
type Source interface {
	Settings() settings.Settings
}

// Alerter performs the completion side effects.
type Alerter interface {
	Notify(ctx context.Context, soundEnabled, vibrationEnabled bool) error
	HapticPulse(ctx context.Context) error
	PlaySound(ctx context.Context, s settings.AlarmSound) error
}

// Completion describes one countdown reaching zero.
type Completion struct {
	Duration   int
	Request    alert.Request
	At         time.Time
	Generation uint64
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Clock          Clock
	TickInterval   time.Duration
	RepeatDelay    time.Duration
	HapticOffsets  []time.Duration
	HapticFallback bool
	Logger         pslog.Logger

	// Go runs a side effect. Defaults to a new goroutine.
	Go func(func())

	// OnComplete is called, through Go, after each completion.
	OnComplete func(Completion)
}

// DefaultHapticOffsets are the start times of the three completion pulses.
var DefaultHapticOffsets = []time.Duration{0, 300 * time.Millisecond, 600 * time.Millisecond}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.RepeatDelay <= 0 {
		o.RepeatDelay = time.Second
	}
	if o.HapticOffsets == nil {
		o.HapticOffsets = DefaultHapticOffsets
	}
	if o.Go == nil {
		o.Go = func(f func()) { go f() }
	}
	o.Logger = logx.OrDiscard(o.Logger)
}

// Engine is the countdown state machine. All transitions, whether from
// callers or from the clock, are serialized on one mutex.
type Engine struct {
	settings Source
	alerts   Alerter
	opts     Options
	log      pslog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	alerting   bool
	generation uint64
	tickSeq    uint64
	tick       Handle
	rearm      Handle
	subs       map[int]chan Event
	nextSub    int
	closed     bool
	pulses     map[*scheduledPulse]struct{}

	effectsMu sync.Mutex
	inflight  int
	settled   chan struct{}
}

// scheduledPulse is a delayed haptic pulse. It runs exactly once, either
// from its timer or when Close flushes it.
type scheduledPulse struct {
	timer   Handle
	run     func()
	claimed atomic.Bool
}

func (p *scheduledPulse) fire() {
	if p.claimed.CompareAndSwap(false, true) {
		p.run()
	}
}

// New returns an idle engine.
func New(src Source, alerts Alerter, opts Options) *Engine {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		settings: src,
		alerts:   alerts,
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]chan Event),
		pulses:   make(map[*scheduledPulse]struct{}),
	}
}

// State returns a snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start arms the countdown for seconds and begins ticking. Starting while
// running re-arms; any pending repeat is cancelled.
func (e *Engine) Start(seconds int) error {
	if seconds <= 0 {
		return ErrInvalidDuration
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.generation++
	e.stopRearmLocked()
	e.alerting = false
	e.state = State{TimeRemaining: seconds, InitialTime: seconds, Status: Running}
	e.scheduleTickLocked()
	e.log.Debug("timer started", "seconds", seconds, "generation", e.generation)
	e.emitLocked(EventStarted)
	return nil
}

// Pause stops ticking. Only valid while running.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.state.Status != Running {
		return
	}
	e.stopTickLocked()
	e.state.Status = Paused
	e.emitLocked(EventPaused)
}

// Resume continues a paused countdown from where it stopped.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.state.Status != Paused {
		return
	}
	if e.state.TimeRemaining <= 0 {
		// Completion never leaves a paused timer at zero; stay paused.
		return
	}
	e.state.Status = Running
	e.scheduleTickLocked()
	e.emitLocked(EventResumed)
}

// Reset returns to idle from any state. Alerts already dispatched are not
// recalled.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.generation++
	e.stopTickLocked()
	e.stopRearmLocked()
	e.alerting = false
	e.state = State{Status: Idle}
	e.emitLocked(EventReset)
}

// Restart runs the previous duration again from the top. With no previous
// duration it resets instead.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.state.InitialTime <= 0 {
		e.resetLocked()
		return
	}
	e.generation++
	e.stopRearmLocked()
	e.alerting = false
	e.state.TimeRemaining = e.state.InitialTime
	e.state.Status = Running
	e.scheduleTickLocked()
	e.emitLocked(EventRestarted)
}

// Subscribe registers an observer. Events are dropped for a subscriber
// whose buffer is full. The returned func unsubscribes and closes the
// channel.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Close cancels the tick and any pending repeat and closes every
// subscriber. Completion side effects already under way, including pulses
// not yet due, are run to the end before Close returns. Commands after
// Close are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.generation++
	e.stopTickLocked()
	e.stopRearmLocked()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	pulses := e.pulses
	e.pulses = make(map[*scheduledPulse]struct{})
	e.mu.Unlock()

	for p := range pulses {
		p.timer.Stop()
		p.fire()
	}
	e.Settle(context.Background())
	e.cancel()
}

// Settle blocks until every completion side effect started so far has
// finished, pulses still scheduled included, or until ctx is done.
func (e *Engine) Settle(ctx context.Context) error {
	e.effectsMu.Lock()
	if e.inflight == 0 {
		e.effectsMu.Unlock()
		return nil
	}
	settled := e.settled
	e.effectsMu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) beginEffect() {
	e.effectsMu.Lock()
	if e.inflight == 0 {
		e.settled = make(chan struct{})
	}
	e.inflight++
	e.effectsMu.Unlock()
}

func (e *Engine) endEffect() {
	e.effectsMu.Lock()
	e.inflight--
	if e.inflight == 0 {
		close(e.settled)
	}
	e.effectsMu.Unlock()
}

// goEffect runs f through the effect runner and tracks it for Settle.
func (e *Engine) goEffect(f func()) {
	e.beginEffect()
	e.opts.Go(func() {
		defer e.endEffect()
		f()
	})
}

func (e *Engine) scheduleTickLocked() {
	e.stopTickLocked()
	seq := e.tickSeq
	e.tick = e.opts.Clock.AfterFunc(e.opts.TickInterval, func() { e.onTick(seq) })
}

// stopTickLocked cancels the pending tick and invalidates any tick callback
// already in flight.
func (e *Engine) stopTickLocked() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
	e.tickSeq++
}

func (e *Engine) stopRearmLocked() {
	if e.rearm != nil {
		e.rearm.Stop()
		e.rearm = nil
	}
}

func (e *Engine) onTick(seq uint64) {
	e.mu.Lock()
	if e.closed || seq != e.tickSeq || e.state.Status != Running {
		e.mu.Unlock()
		return
	}
	if e.state.TimeRemaining > 1 {
		e.state.TimeRemaining--
		e.scheduleTickLocked()
		e.emitLocked(EventTick)
		e.mu.Unlock()
		return
	}

	e.state.TimeRemaining = 0
	e.stopTickLocked()
	if e.alerting {
		e.mu.Unlock()
		return
	}
	e.alerting = true
	e.state.Status = Completed
	e.emitLocked(EventCompleted)

	req := alert.RequestFrom(e.settings.Settings())
	done := Completion{
		Duration:   e.state.InitialTime,
		Request:    req,
		At:         e.opts.Clock.Now(),
		Generation: e.generation,
	}
	if req.RepeatEnabled {
		gen := e.generation
		e.rearm = e.opts.Clock.AfterFunc(e.opts.RepeatDelay, func() { e.onRearm(gen) })
	} else {
		e.alerting = false
	}
	e.log.Info("timer completed", "seconds", done.Duration, "generation", done.Generation, "repeat", req.RepeatEnabled)
	// Counted before unlocking so a concurrent Close waits for dispatch.
	e.beginEffect()
	e.mu.Unlock()

	e.dispatch(done)
}

func (e *Engine) onRearm(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.generation || e.state.Status != Completed {
		e.log.Debug("stale repeat dropped", "generation", gen)
		return
	}
	e.rearm = nil
	e.state.TimeRemaining = e.state.InitialTime
	e.state.Status = Running
	e.alerting = false
	e.scheduleTickLocked()
	e.emitLocked(EventRepeated)
}

// dispatch runs the completion side effects. Each is best effort; errors
// are logged and never reach the state machine.
func (e *Engine) dispatch(done Completion) {
	defer e.endEffect()
	req := done.Request
	ctx := e.ctx

	e.goEffect(func() {
		if err := e.alerts.Notify(ctx, req.SoundEnabled, req.VibrationEnabled); err != nil {
			e.log.Warn("notification failed", "err", err)
		}
	})

	if req.VibrationEnabled {
		pulse := func() {
			if err := e.alerts.HapticPulse(ctx); err != nil {
				e.log.Debug("haptic pulse failed", "err", err)
			}
		}
		for _, offset := range e.opts.HapticOffsets {
			if offset <= 0 {
				e.goEffect(pulse)
				continue
			}
			e.schedulePulse(offset, pulse)
		}
	}

	if req.SoundEnabled {
		e.goEffect(func() {
			err := e.alerts.PlaySound(ctx, req.AlarmSound)
			if err == nil {
				return
			}
			logx.WithSound(e.log, string(req.AlarmSound)).Warn("alarm sound failed", "err", err)
			if e.opts.HapticFallback && !req.VibrationEnabled {
				if herr := e.alerts.HapticPulse(ctx); herr != nil {
					e.log.Debug("fallback pulse failed", "err", herr)
				}
			}
		})
	}

	if e.opts.OnComplete != nil {
		e.goEffect(func() { e.opts.OnComplete(done) })
	}
}

// schedulePulse runs pulse after offset. The pulse counts as in flight from
// now, so Settle and Close wait for it.
func (e *Engine) schedulePulse(offset time.Duration, pulse func()) {
	e.beginEffect()
	p := &scheduledPulse{}
	p.run = func() {
		e.opts.Go(func() {
			defer e.endEffect()
			pulse()
		})
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		p.fire()
		return
	}
	p.timer = e.opts.Clock.AfterFunc(offset, func() {
		e.mu.Lock()
		delete(e.pulses, p)
		e.mu.Unlock()
		p.fire()
	})
	e.pulses[p] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) emitLocked(t EventType) {
	ev := Event{Type: t, State: e.state, At: e.opts.Clock.Now()}
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
