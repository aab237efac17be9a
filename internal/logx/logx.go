package logx

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"pkt.systems/pslog"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// Discard returns a logger that writes nowhere.
func Discard() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log pslog.Logger) pslog.Logger {
	if log == nil {
		return Discard()
	}
	return log
}

// Console builds the stderr logger used by headless commands.
func Console() pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
}

// File opens path for appending and returns a structured logger writing to
// it. The TUI owns the terminal, so interactive sessions log here instead.
func File(path string, verbose bool) (pslog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	level := pslog.InfoLevel
	if verbose {
		level = pslog.DebugLevel
	}
	logger := pslog.NewWithOptions(f, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      level,
		VerboseFields: true,
	})
	return logger, f, nil
}

// WithSound annotates the logger with an alarm sound id when set.
func WithSound(log pslog.Logger, sound string) pslog.Logger {
	if sound != "" {
		log = log.With("sound", sound)
	}
	return log
}
