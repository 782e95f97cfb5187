//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.profileai.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "profileai")
	}
	return "profileai-data"
}

type darwinBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain}
}

// defaults runs the defaults CLI against the app domain.
func (b *darwinBackend) defaults(verb, key string, args ...string) (string, error) {
	argv := append([]string{verb, b.domain, key}, args...)
	out, err := exec.Command("defaults", argv...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (b *darwinBackend) read(key string) (string, bool, error) {
	s, err := b.defaults("read", key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, s)
	}
	return s, true, nil
}

func (b *darwinBackend) write(key string, args ...string) error {
	if s, err := b.defaults("write", key, args...); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, s)
	}
	return nil
}

func (b *darwinBackend) GetString(key string) (string, bool, error) {
	return b.read(key)
}

func (b *darwinBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.read(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *darwinBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *darwinBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

// Delete treats a missing key as already deleted.
func (b *darwinBackend) Delete(key string) error {
	if _, ok, err := b.read(key); err != nil || !ok {
		return err
	}
	if s, err := b.defaults("delete", key); err != nil {
		return fmt.Errorf("defaults delete %s: %w (%s)", key, err, s)
	}
	return nil
}
