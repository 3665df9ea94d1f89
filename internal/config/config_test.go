package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "FILES_DIRECTORY", "DIRECTORY_URL", "LOOKUP_CACHE_TTL", "DEFAULT_LIMIT", "LOG_FORMAT", "COLUMN_MAP_FILE", "LOOKUP_RETRIES"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8000" {
		t.Errorf("expected port 8000, got %q", cfg.Port)
	}
	if cfg.DirectoryURL != "https://localhost:7011" {
		t.Errorf("unexpected directory url %q", cfg.DirectoryURL)
	}
	if cfg.LookupCacheTTL != 0 {
		t.Errorf("expected lookup cache disabled by default, got %v", cfg.LookupCacheTTL)
	}
	if cfg.DefaultLimit != 5 {
		t.Errorf("expected default limit 5, got %d", cfg.DefaultLimit)
	}
	if cfg.LookupRetries != 2 {
		t.Errorf("expected 2 lookup retries, got %d", cfg.LookupRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOOKUP_CACHE_TTL", "5m")
	t.Setenv("DEFAULT_LIMIT", "-3")
	t.Setenv("DIRECTORY_INSECURE_TLS", "false")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOOKUP_RETRIES", "-1")

	cfg := Load()
	if cfg.LookupCacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache TTL, got %v", cfg.LookupCacheTTL)
	}
	if cfg.DefaultLimit != 5 {
		t.Errorf("expected non-positive limit to fall back to 5, got %d", cfg.DefaultLimit)
	}
	if cfg.DirectoryInsecureTLS {
		t.Error("expected insecure TLS disabled")
	}
	if cfg.LookupRetries != 0 {
		t.Errorf("expected negative retries clamped to 0, got %d", cfg.LookupRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Load()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestStudentColumnsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cols.yaml")
	if err := os.WriteFile(path, []byte("group: 21\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Config{ColumnMapFile: path}
	cols, err := cfg.StudentColumns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.Group != 21 || cols.Name != 3 {
		t.Errorf("unexpected columns %+v", cols)
	}

	cols, err = Config{}.StudentColumns()
	if err != nil || cols.Group != 18 {
		t.Errorf("expected default columns, got %+v (%v)", cols, err)
	}
}
