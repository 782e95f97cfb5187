package config

import (
	"log/slog"
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Autosave AutosaveConfig
	Export   ExportConfig
	MCP      MCPConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type AutosaveConfig struct {
	// Debounce is a Go duration string, e.g. "500ms".
	Debounce string
}

type ExportConfig struct {
	// Delay is how long a simulated export takes, as a Go duration string.
	Delay string
}

type MCPConfig struct {
	Enabled bool
}

const (
	defaultDebounce = 500 * time.Millisecond
	defaultDelay    = 1500 * time.Millisecond
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Autosave: AutosaveConfig{
			Debounce: defaultDebounce.String(),
		},
		Export: ExportConfig{
			Delay: defaultDelay.String(),
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.profileai.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/profileai/config.json.
//
// Environment variables (PROFILEAI_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DebounceDuration parses Autosave.Debounce, falling back to 500ms.
func (c AutosaveConfig) DebounceDuration() time.Duration {
	return parseDuration("autosave.debounce", c.Debounce, defaultDebounce)
}

// DelayDuration parses Export.Delay, falling back to 1.5s.
func (c ExportConfig) DelayDuration() time.Duration {
	return parseDuration("export.delay", c.Delay, defaultDelay)
}

func parseDuration(key, raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

// SlogLevel maps Log.Level to a slog level. Unknown names mean info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
