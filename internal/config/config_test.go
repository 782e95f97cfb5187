package config

import (
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"testing"
	"time"
)

// mockBackend is an in-memory ConfigBackend.
type mockBackend struct {
	data map[string]string
	err  error
}

func newMockBackend() *mockBackend {
	return &mockBackend{data: make(map[string]string)}
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	return i, true, err
}

func (m *mockBackend) SetString(key, val string) error {
	m.data[key] = val
	return nil
}

func (m *mockBackend) SetInt(key string, val int) error {
	m.data[key] = strconv.Itoa(val)
	return nil
}

func (m *mockBackend) Delete(key string) error {
	delete(m.data, key)
	return nil
}

// mockKeychain is a test double for the Keychain interface.
type mockKeychain struct {
	secrets map[string]string
	setErr  error
	sets    int
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	v, ok := m.secrets[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	if m.secrets == nil {
		m.secrets = make(map[string]string)
	}
	m.secrets[service+"/"+account] = value
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if got := cfg.Autosave.DebounceDuration(); got != 500*time.Millisecond {
		t.Errorf("DebounceDuration = %v, want 500ms", got)
	}
	if got := cfg.Export.DelayDuration(); got != 1500*time.Millisecond {
		t.Errorf("DelayDuration = %v, want 1.5s", got)
	}
	if !cfg.MCP.Enabled {
		t.Error("MCP.Enabled = false, want true")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

// TestBackendValues verifies that every key is read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.data = map[string]string{
		"server.port":       "5000",
		"storage.data_dir":  "/tmp/profileai-test",
		"log.level":         "debug",
		"autosave.debounce": "1s",
		"export.delay":      "0s",
		"mcp.enabled":       "false",
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/profileai-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.Log.SlogLevel())
	}
	if got := cfg.Autosave.DebounceDuration(); got != time.Second {
		t.Errorf("DebounceDuration = %v, want 1s", got)
	}
	if got := cfg.Export.DelayDuration(); got != 0 {
		t.Errorf("DelayDuration = %v, want 0", got)
	}
	if cfg.MCP.Enabled {
		t.Error("MCP.Enabled = true, want false")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.data["server.port"] = "5000"
	b.data["mcp.enabled"] = "true"

	t.Setenv("PROFILEAI_SERVER_PORT", "6000")
	t.Setenv("PROFILEAI_MCP_ENABLED", "0")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.MCP.Enabled {
		t.Error("MCP.Enabled = true, want env override false")
	}
}

// TestEnvOverride_InvalidKeepsValue verifies unparsable env values are ignored.
func TestEnvOverride_InvalidKeepsValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROFILEAI_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMockBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default 4100", cfg.Server.Port)
	}
}

func TestBackendValues_InvalidBoolSkipped(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.data["mcp.enabled"] = "maybe"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.MCP.Enabled {
		t.Error("MCP.Enabled = false, want default true for unparsable value")
	}
}

func TestBackendError(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.err = errors.New("backend down")

	if _, err := loadWith(b); err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	c := AutosaveConfig{Debounce: "soon"}
	if got := c.DebounceDuration(); got != 500*time.Millisecond {
		t.Errorf("DebounceDuration(soon) = %v, want 500ms", got)
	}
	e := ExportConfig{Delay: "-1s"}
	if got := e.DelayDuration(); got != 1500*time.Millisecond {
		t.Errorf("DelayDuration(-1s) = %v, want 1.5s", got)
	}
}

func TestSetKey(t *testing.T) {
	b := newMockBackend()

	tests := []struct {
		key, value string
		want       string
		wantErr    bool
	}{
		{"server.port", "4200", "4200", false},
		{"server.port", "abc", "", true},
		{"log.level", "debug", "debug", false},
		{"autosave.debounce", "750ms", "750ms", false},
		{"autosave.debounce", "later", "", true},
		{"export.delay", "-2s", "", true},
		{"mcp.enabled", "no", "", true},
		{"mcp.enabled", "FALSE", "false", false},
		{"nope.key", "x", "", true},
	}
	for _, tt := range tests {
		err := setKeyWith(b, tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("setKeyWith(%q, %q) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && b.data[tt.key] != tt.want {
			t.Errorf("backend[%q] = %q, want %q", tt.key, b.data[tt.key], tt.want)
		}
	}
}

func TestShowAllAndValidKeys(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	keys := ValidKeys()

	if len(infos) != len(keys) {
		t.Fatalf("ShowAll returned %d keys, ValidKeys %d", len(infos), len(keys))
	}
	var shown []string
	for _, ki := range infos {
		shown = append(shown, ki.Key)
		if ki.EnvVar == "" {
			t.Errorf("key %q has no env var", ki.Key)
		}
	}
	if !reflect.DeepEqual(shown, keys) {
		t.Errorf("ShowAll keys = %v, want %v", shown, keys)
	}
}

func TestGetAPIToken_GeneratesOnce(t *testing.T) {
	kc := &mockKeychain{}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("second GetAPIToken: %v", err)
	}
	if first != second {
		t.Error("token regenerated on second call")
	}
	if kc.sets != 1 {
		t.Errorf("keychain writes = %d, want 1", kc.sets)
	}
}

func TestGetAPIToken_StoreFailure(t *testing.T) {
	kc := &mockKeychain{setErr: errors.New("locked")}

	if _, err := GetAPIToken(kc); err == nil {
		t.Fatal("expected error when the token cannot be stored")
	}
}
