package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

// parse converts raw text into the Go value stored for t.
// Durations stay strings in Config and are normalized here.
func (t keyType) parse(raw string) (any, error) {
	switch t {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errors.New("must not be negative")
		}
		return d.String(), nil
	default:
		return raw, nil
	}
}

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kDuration:
		return "duration"
	default:
		return "string"
	}
}

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func lookupKey(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PROFILEAI_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PROFILEAI_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PROFILEAI_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "autosave.debounce", typ: kDuration, env: "PROFILEAI_AUTOSAVE_DEBOUNCE",
		apply:   func(cfg *Config, v any) { cfg.Autosave.Debounce = v.(string) },
		extract: func(cfg Config) any { return cfg.Autosave.Debounce },
	},
	{
		key: "export.delay", typ: kDuration, env: "PROFILEAI_EXPORT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Export.Delay = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Delay },
	},
	{
		key: "mcp.enabled", typ: kBool, env: "PROFILEAI_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.MCP.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Enabled },
	},
}

// applyBackend copies stored values over the defaults. Backend read errors
// abort the load; unparsable values are logged and skipped.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		if s.typ == kDuration {
			// Stored durations are checked when they are used.
			s.apply(cfg, raw)
			continue
		}
		v, err := s.typ.parse(raw)
		if err != nil {
			slog.Warn("ignoring invalid config value", "key", s.key, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		if s.typ == kDuration {
			s.apply(cfg, raw)
			continue
		}
		v, err := s.typ.parse(raw)
		if err != nil {
			slog.Warn("ignoring invalid environment override", "env", s.env, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}
