package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend.
type mapBackend struct {
	strs map[string]string
	ints map[string]int
	err  error
}

func newMapBackend() *mapBackend {
	return &mapBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mapBackend) SetString(key, val string) error {
	m.strs[key] = val
	return nil
}

func (m *mapBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *mapBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

// mockSecrets is a test double for SecretStore.
type mockSecrets struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *mockSecrets) Get(service, account string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (m *mockSecrets) Set(service, account, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service+"/"+account] = value
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Feed.Preset != "balanced" {
		t.Errorf("Feed.Preset = %q, want balanced", cfg.Feed.Preset)
	}
	if cfg.Feed.DefaultLimit != 20 || cfg.Feed.RelatedLimit != 12 {
		t.Errorf("Feed limits = %d/%d, want 20/12", cfg.Feed.DefaultLimit, cfg.Feed.RelatedLimit)
	}
	if cfg.Feed.CandidateLimit != 500 {
		t.Errorf("Feed.CandidateLimit = %d, want 500", cfg.Feed.CandidateLimit)
	}
	if !cfg.Feed.Perturb || cfg.Feed.TopFraction != 0.3 {
		t.Errorf("Feed perturbation = %v/%v, want true/0.3", cfg.Feed.Perturb, cfg.Feed.TopFraction)
	}
	if d, _ := cfg.PollInterval(); d.String() != "500ms" {
		t.Errorf("PollInterval = %v, want 500ms", d)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "clipfeed") {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestBackendValues(t *testing.T) {
	b := newMapBackend()
	b.ints["server.port"] = 5000
	b.strs["feed.preset"] = "explore"
	b.strs["feed.perturb"] = "false"
	b.strs["feed.top_fraction"] = "0.5"
	b.strs["worker.poll_interval"] = "2s"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Feed.Preset != "explore" {
		t.Errorf("Feed.Preset = %q", cfg.Feed.Preset)
	}
	if cfg.Feed.Perturb {
		t.Error("Feed.Perturb should be false")
	}
	if cfg.Feed.TopFraction != 0.5 {
		t.Errorf("Feed.TopFraction = %v", cfg.Feed.TopFraction)
	}
	if cfg.Worker.PollInterval != "2s" {
		t.Errorf("Worker.PollInterval = %q", cfg.Worker.PollInterval)
	}
}

func TestEnvOverride(t *testing.T) {
	b := newMapBackend()
	b.ints["server.port"] = 5000

	t.Setenv("CLIPFEED_SERVER_PORT", "6000")
	t.Setenv("CLIPFEED_FEED_PERTURB", "false")
	t.Setenv("CLIPFEED_FEED_DEFAULT_LIMIT", "not-a-number")
	t.Setenv("CLIPFEED_FEED_CANDIDATE_LIMIT", "2000")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Feed.Perturb {
		t.Error("env should disable perturbation")
	}
	if cfg.Feed.DefaultLimit != 20 {
		t.Errorf("unparsable env should keep default, got %d", cfg.Feed.DefaultLimit)
	}
	if cfg.Feed.CandidateLimit != 2000 {
		t.Errorf("Feed.CandidateLimit = %d, want 2000", cfg.Feed.CandidateLimit)
	}
}

func TestBackendError(t *testing.T) {
	b := newMapBackend()
	b.err = errors.New("io")
	if _, err := loadWith(b); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"zero default limit", func(c *Config) { c.Feed.DefaultLimit = 0 }},
		{"zero related limit", func(c *Config) { c.Feed.RelatedLimit = 0 }},
		{"candidate limit below page", func(c *Config) { c.Feed.CandidateLimit = 10 }},
		{"fraction zero", func(c *Config) { c.Feed.TopFraction = 0 }},
		{"fraction above one", func(c *Config) { c.Feed.TopFraction = 1.5 }},
		{"bad poll interval", func(c *Config) { c.Worker.PollInterval = "soon" }},
		{"negative poll interval", func(c *Config) { c.Worker.PollInterval = "-1s" }},
		{"negative rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipfeed", "config.json")
	b := newFileBackend(path)

	if err := setKey(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKey port: %v", err)
	}
	if err := setKey(b, "feed.perturb", "false"); err != nil {
		t.Fatalf("setKey perturb: %v", err)
	}
	if err := setKey(b, "feed.top_fraction", "0.25"); err != nil {
		t.Fatalf("setKey fraction: %v", err)
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Port != 4200 || cfg.Feed.Perturb || cfg.Feed.TopFraction != 0.25 {
		t.Errorf("reloaded config = %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("corrupt file should fall back to defaults: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestSetKeyRejects(t *testing.T) {
	b := newMapBackend()
	if err := setKey(b, "nope", "1"); err == nil {
		t.Error("expected unknown key error")
	}
	if err := setKey(b, "server.port", "abc"); err == nil {
		t.Error("expected integer parse error")
	}
	if err := setKey(b, "feed.perturb", "maybe"); err == nil {
		t.Error("expected bool parse error")
	}
}

func TestShowAllCoversValidKeys(t *testing.T) {
	infos := ShowAll(defaults())
	keys := ValidKeys()
	if len(infos) != len(keys) {
		t.Fatalf("ShowAll %d entries, ValidKeys %d", len(infos), len(keys))
	}
	for i, info := range infos {
		if info.Key != keys[i] {
			t.Errorf("entry %d: %q != %q", i, info.Key, keys[i])
		}
		if !strings.HasPrefix(info.EnvVar, "CLIPFEED_") {
			t.Errorf("%s env var = %q", info.Key, info.EnvVar)
		}
	}
}

func TestGetAPIToken_Env(t *testing.T) {
	t.Setenv("CLIPFEED_API_TOKEN", "env-token")
	tok, err := GetAPIToken(&mockSecrets{})
	if err != nil || tok != "env-token" {
		t.Errorf("GetAPIToken = %q, %v", tok, err)
	}
}

func TestGetAPIToken_Stored(t *testing.T) {
	t.Setenv("CLIPFEED_API_TOKEN", "")
	s := &mockSecrets{values: map[string]string{"clipfeed/api_token": "stored"}}
	tok, err := GetAPIToken(s)
	if err != nil || tok != "stored" {
		t.Errorf("GetAPIToken = %q, %v", tok, err)
	}
}

func TestGetAPIToken_GeneratesOnce(t *testing.T) {
	t.Setenv("CLIPFEED_API_TOKEN", "")
	s := &mockSecrets{}

	first, err := GetAPIToken(s)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 36 {
		t.Errorf("generated token %q is not a UUID", first)
	}
	second, _ := GetAPIToken(s)
	if second != first {
		t.Errorf("token regenerated: %q then %q", first, second)
	}

	rotated, err := RotateAPIToken(s)
	if err != nil || rotated == first {
		t.Errorf("RotateAPIToken = %q, %v", rotated, err)
	}
}

func TestGetAPIToken_StoreErrors(t *testing.T) {
	t.Setenv("CLIPFEED_API_TOKEN", "")
	if _, err := GetAPIToken(&mockSecrets{getErr: errors.New("perm denied")}); err == nil {
		t.Error("expected read error")
	}
	if _, err := GetAPIToken(&mockSecrets{setErr: errors.New("read-only")}); err == nil {
		t.Error("expected write error")
	}
}

func TestFileSecrets(t *testing.T) {
	s := fileSecrets{path: filepath.Join(t.TempDir(), "secrets.json")}

	if _, err := s.Get("clipfeed", "api_token"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
	if err := s.Set("clipfeed", "api_token", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("clipfeed", "api_token")
	if err != nil || got != "abc" {
		t.Errorf("Get = %q, %v", got, err)
	}
}
