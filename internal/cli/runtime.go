package cli

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sadopc/tminus/internal/alert"
	"github.com/sadopc/tminus/internal/config"
	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/platform"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timer"
	"pkt.systems/pslog"
)

const appName = "tminus"

// globalFlags are the persistent root flags.
type globalFlags struct {
	configPath string
	dbPath     string
	verbose    bool
}

func (g globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	return cfg, nil
}

// storage is the database plus the settings repository on top of it.
type storage struct {
	cfg      config.Config
	store    *store.Store
	settings *settings.Store
}

func openStorage(cfg config.Config, log pslog.Logger) (*storage, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	st := settings.NewStore(s, log)
	st.Load()
	log.Debug("storage opened", "path", cfg.DBPath)
	return &storage{cfg: cfg, store: s, settings: st}, nil
}

func (s *storage) Close() error {
	s.settings.Wait()
	return s.store.Close()
}

// runtime is the full countdown stack: storage, alert devices, dispatcher
// and engine.
type runtime struct {
	*storage
	log        pslog.Logger
	dispatcher *alert.Dispatcher
	engine     *timer.Engine
	closers    []io.Closer
	effects    sync.WaitGroup
}

// collaborators picks the alert devices enabled in cfg.
func collaborators(cfg config.AlertsConfig, log pslog.Logger) (alert.Notifier, alert.Haptics, alert.Audio) {
	var (
		n alert.Notifier = platform.NoNotifier{}
		h alert.Haptics  = platform.NoHaptics{}
		a alert.Audio    = platform.NoAudio{}
	)
	if cfg.Notifications {
		n = platform.NewDBusNotifier(appName)
	}
	if cfg.Haptics {
		h = platform.NewBell(os.Stderr)
	}
	if cfg.Audio {
		a = platform.NewBeepAudio(cfg.SoundsDir, log)
	}
	return n, h, a
}

func openRuntime(cfg config.Config, log pslog.Logger) (*runtime, error) {
	st, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{storage: st, log: log}

	n, h, a := collaborators(st.cfg.Alerts, log)
	if c, ok := n.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}
	rt.dispatcher = alert.NewDispatcher(n, h, a, alert.Options{
		Volume: st.cfg.Alerts.Volume,
		Logger: log,
	})
	rt.closers = append(rt.closers, rt.dispatcher)

	rt.engine = timer.New(st.settings, rt.dispatcher, timer.Options{
		RepeatDelay:    st.cfg.Timer.RepeatDelay(),
		HapticFallback: st.cfg.Alerts.HapticFallback,
		Logger:         log,
		Go:             rt.goEffect,
		OnComplete:     rt.recordCompletion,
	})
	return rt, nil
}

// goEffect runs a completion side effect so Close can wait for it.
func (rt *runtime) goEffect(f func()) {
	rt.effects.Add(1)
	go func() {
		defer rt.effects.Done()
		f()
	}()
}

// recordCompletion appends a finished countdown to the history log.
func (rt *runtime) recordCompletion(c timer.Completion) {
	_, err := rt.store.RecordCompletion(store.Completion{
		Duration:         c.Duration,
		AlarmSound:       string(c.Request.AlarmSound),
		SoundEnabled:     c.Request.SoundEnabled,
		VibrationEnabled: c.Request.VibrationEnabled,
		Repeat:           c.Request.RepeatEnabled,
		CompletedAt:      c.At,
	})
	if err != nil {
		rt.log.Warn("record completion failed", "err", err, "seconds", c.Duration)
		return
	}
	logx.WithSound(rt.log, string(c.Request.AlarmSound)).Info("countdown completed", "seconds", c.Duration, "generation", c.Generation)
}

func (rt *runtime) requestPermission(ctx context.Context) bool {
	granted := rt.dispatcher.RequestPermission(ctx)
	if !granted {
		rt.log.Info("notifications unavailable")
	}
	return granted
}

func (rt *runtime) Close() error {
	rt.engine.Close()
	rt.effects.Wait()
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := rt.storage.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
