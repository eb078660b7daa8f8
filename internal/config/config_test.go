package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Embedding.Provider != ProviderOllama {
		t.Errorf("Provider = %v, want %v", cfg.Embedding.Provider, ProviderOllama)
	}
	if cfg.Embedding.URL != DefaultOllamaURL {
		t.Errorf("URL = %v, want %v", cfg.Embedding.URL, DefaultOllamaURL)
	}
	if cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Embedding.Timeout)
	}
	if cfg.Align.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want 0.5", cfg.Align.Threshold)
	}
	if cfg.Align.Final {
		t.Error("Final should be false by default")
	}
	if cfg.Indent != "-" {
		t.Errorf("Indent = %q, want %q", cfg.Indent, "-")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDir_EnvOverride(t *testing.T) {
	t.Setenv("ALIGNMEET_CONFIG_DIR", "/tmp/alignmeet-test")
	dir, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/alignmeet-test" {
		t.Errorf("Dir() = %q", dir)
	}
	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/alignmeet-test/config.yaml" {
		t.Errorf("Path() = %q", path)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("ALIGNMEET_CONFIG_DIR", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Embedding.Model, DefaultModel)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALIGNMEET_CONFIG_DIR", dir)
	content := `
embedding:
  provider: hash
  timeout: 5s
  concurrency: 2
align:
  threshold: 0.3
  final: true
indent: "* "
annotator: alice
log:
  level: debug
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Provider != ProviderHash {
		t.Errorf("Provider = %q, want hash", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Embedding.Timeout)
	}
	if cfg.Embedding.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Embedding.Concurrency)
	}
	if cfg.Embedding.URL != DefaultOllamaURL {
		t.Errorf("URL = %q, missing keys should keep defaults", cfg.Embedding.URL)
	}
	if cfg.Align.Threshold != 0.3 || !cfg.Align.Final {
		t.Errorf("Align = %+v", cfg.Align)
	}
	if cfg.Indent != "* " {
		t.Errorf("Indent = %q", cfg.Indent)
	}
	if cfg.Annotator != "alice" {
		t.Errorf("Annotator = %q", cfg.Annotator)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALIGNMEET_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("embedding: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALIGNMEET_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("align:\n  threshold: 0.3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ALIGNMEET_ALIGN_THRESHOLD", "0.7")
	t.Setenv("ALIGNMEET_EMBEDDING_PROVIDER", "hash")
	t.Setenv("ALIGNMEET_EMBEDDING_RPS", "2.5")
	t.Setenv("ALIGNMEET_ALIGN_FINAL", "1")
	t.Setenv("ALIGNMEET_LOG_JSON", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Align.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Align.Threshold)
	}
	if cfg.Embedding.Provider != ProviderHash {
		t.Errorf("Provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.Embedding.RequestsPerSecond)
	}
	if !cfg.Align.Final || !cfg.Log.JSON {
		t.Error("boolean env overrides not applied")
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("ALIGNMEET_CONFIG_DIR", t.TempDir())
	t.Setenv("ALIGNMEET_EMBEDDING_CONCURRENCY", "many")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ALIGNMEET_EMBEDDING_CONCURRENCY") {
		t.Errorf("err = %v, want concurrency parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.provider"},
		{"ollama without url", func(c *Config) { c.Embedding.URL = "" }, "embedding.url"},
		{"hash without url", func(c *Config) { c.Embedding.Provider = ProviderHash; c.Embedding.URL = "" }, ""},
		{"zero timeout", func(c *Config) { c.Embedding.Timeout = 0 }, "timeout"},
		{"zero concurrency", func(c *Config) { c.Embedding.Concurrency = 0 }, "concurrency"},
		{"negative rps", func(c *Config) { c.Embedding.RequestsPerSecond = -1 }, "requests_per_second"},
		{"zero threshold", func(c *Config) { c.Align.Threshold = 0 }, "threshold"},
		{"large threshold", func(c *Config) { c.Align.Threshold = 3 }, "threshold"},
		{"empty indent", func(c *Config) { c.Indent = "" }, "indent"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errSub == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.errSub)
			}
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	t.Setenv("ALIGNMEET_CONFIG_DIR", "/tmp/am")
	cfg := Default()
	got, err := cfg.ResolveDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/am/alignmeet.sqlite" {
		t.Errorf("ResolveDBPath() = %q", got)
	}
	cfg.DBPath = "/data/export.sqlite"
	if got, _ := cfg.ResolveDBPath(); got != "/data/export.sqlite" {
		t.Errorf("ResolveDBPath() = %q", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("ALIGNMEET_CONFIG_DIR", filepath.Join(t.TempDir(), "cfg"))
	cfg := Default()
	cfg.Embedding.Provider = ProviderHash
	cfg.Embedding.Timeout = 45 * time.Second
	cfg.Align.Threshold = 0.25
	cfg.Annotator = "bob"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Embedding != cfg.Embedding {
		t.Errorf("Embedding = %+v, want %+v", loaded.Embedding, cfg.Embedding)
	}
	if loaded.Align != cfg.Align || loaded.Annotator != "bob" {
		t.Errorf("loaded = %+v", loaded)
	}
}
