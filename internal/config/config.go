package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/tminus/internal/store"
)

// CurrentConfigVersion is the only config_version Load accepts.
const CurrentConfigVersion = 1

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int          `mapstructure:"config_version" yaml:"config_version"`
	DBPath        string       `mapstructure:"db_path" yaml:"db_path"`
	LogFile       string       `mapstructure:"log_file" yaml:"log_file"`
	Timer         TimerConfig  `mapstructure:"timer" yaml:"timer"`
	Alerts        AlertsConfig `mapstructure:"alerts" yaml:"alerts"`
}

// TimerConfig tunes the countdown.
type TimerConfig struct {
	DefaultDurationSeconds int `mapstructure:"default_duration_seconds" yaml:"default_duration_seconds"`
	RepeatDelayMS          int `mapstructure:"repeat_delay_ms" yaml:"repeat_delay_ms"`
}

// RepeatDelay returns the repeat delay as a duration.
func (t TimerConfig) RepeatDelay() time.Duration {
	return time.Duration(t.RepeatDelayMS) * time.Millisecond
}

// AlertsConfig selects which alert channels are wired to real devices.
type AlertsConfig struct {
	Notifications  bool    `mapstructure:"notifications" yaml:"notifications"`
	Haptics        bool    `mapstructure:"haptics" yaml:"haptics"`
	Audio          bool    `mapstructure:"audio" yaml:"audio"`
	Volume         float64 `mapstructure:"volume" yaml:"volume"`
	SoundsDir      string  `mapstructure:"sounds_dir" yaml:"sounds_dir"`
	HapticFallback bool    `mapstructure:"haptic_fallback" yaml:"haptic_fallback"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	dir, err := defaultDir()
	if err != nil {
		return Config{}, err
	}
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DBPath:        dbPath,
		LogFile:       filepath.Join(dir, "tminus.log"),
		Timer: TimerConfig{
			DefaultDurationSeconds: 30,
			RepeatDelayMS:          1000,
		},
		Alerts: AlertsConfig{
			Notifications:  true,
			Haptics:        true,
			Audio:          true,
			Volume:         0,
			SoundsDir:      "",
			HapticFallback: true,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	dir, err := defaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func defaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tminus"), nil
}
