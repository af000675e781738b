package config

import "testing"

func TestLoad_RequiresServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when SERVICE_NAME is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 7 {
		t.Fatalf("unexpected log rotation defaults: %+v", cfg.Log)
	}
}

func TestLoad_Explicit(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PATH", "/var/log/threads/threads.log")
	t.Setenv("LOG_MAX_SIZE_MB", "50")
	t.Setenv("LOG_COMPRESS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" || cfg.Log.Level != "debug" {
		t.Fatalf("env values not applied: %+v", cfg)
	}
	if cfg.Log.Path == "" || cfg.Log.MaxSizeMB != 50 || !cfg.Log.Compress {
		t.Fatalf("log file knobs not applied: %+v", cfg.Log)
	}
}
