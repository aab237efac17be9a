package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sadopc/tminus/internal/timefmt"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tminus")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("timer.default_duration_seconds", cfg.Timer.DefaultDurationSeconds)
	v.SetDefault("timer.repeat_delay_ms", cfg.Timer.RepeatDelayMS)
	v.SetDefault("alerts.notifications", cfg.Alerts.Notifications)
	v.SetDefault("alerts.haptics", cfg.Alerts.Haptics)
	v.SetDefault("alerts.audio", cfg.Alerts.Audio)
	v.SetDefault("alerts.volume", cfg.Alerts.Volume)
	v.SetDefault("alerts.sounds_dir", cfg.Alerts.SoundsDir)
	v.SetDefault("alerts.haptic_fallback", cfg.Alerts.HapticFallback)
	if err := v.BindEnv("db_path"); err != nil {
		return Config{}, err
	}

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBPath = os.ExpandEnv(cfg.DBPath)
	cfg.LogFile = os.ExpandEnv(cfg.LogFile)
	cfg.Alerts.SoundsDir = os.ExpandEnv(cfg.Alerts.SoundsDir)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	d := cfg.Timer.DefaultDurationSeconds
	if d <= 0 || d > timefmt.MaxSeconds {
		return fmt.Errorf("timer.default_duration_seconds must be between 1 and %d", timefmt.MaxSeconds)
	}
	if cfg.Timer.RepeatDelayMS <= 0 {
		return fmt.Errorf("timer.repeat_delay_ms must be positive")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}

// WriteDefault writes the default config to path, or DefaultConfigPath when
// path is empty. An existing file is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
