//go:build !darwin

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// xdgDir returns $env, or ~/rel when it is unset. It returns "" when
// neither is available.
func xdgDir(env, rel string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, rel)
	}
	return ""
}

func defaultDataDir() string {
	if dir := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")); dir != "" {
		return filepath.Join(dir, "profileai")
	}
	return "profileai-data"
}

// fileBackend keeps dotted config keys in one flat JSON object.
type fileBackend struct {
	path string
	data map[string]any
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(configFilePath())
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()
	return b
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "profileai", "config.json")
}

func (b *fileBackend) load() {
	data, err := os.ReadFile(b.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return
	case err != nil:
		slog.Warn("config file unreadable, using defaults", "path", b.path, "error", err)
		return
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		slog.Warn("config file malformed, using defaults", "path", b.path, "error", err)
		return
	}
	if m != nil {
		b.data = m
	}
}

func (b *fileBackend) save() error {
	data, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data, 0o600)
}

// GetString renders non-string JSON values (numbers, bools) as text.
func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, isStr := v.(string); isStr {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// GetInt accepts a JSON integer or a numeric string.
func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	var raw string
	switch val := v.(type) {
	case json.Number:
		raw = val.String()
	case int:
		return val, true, nil
	case string:
		raw = val
	default:
		return 0, true, fmt.Errorf("%s: expected an integer, got %T", key, v)
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %q is not an integer: %w", key, raw, err)
	}
	return i, true, nil
}

func (b *fileBackend) set(key string, v any) error {
	b.data[key] = v
	return b.save()
}

func (b *fileBackend) SetString(key, val string) error { return b.set(key, val) }

func (b *fileBackend) SetInt(key string, val int) error { return b.set(key, val) }

func (b *fileBackend) Delete(key string) error {
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	return b.save()
}
