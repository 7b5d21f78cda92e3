package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Worker.Interval != 30*time.Second {
		t.Errorf("worker interval = %s, want 30s", cfg.Worker.Interval)
	}
	if cfg.Worker.BatchSize != 5 {
		t.Errorf("worker batch size = %d, want 5", cfg.Worker.BatchSize)
	}
	if cfg.Storage.MaxActiveResumes != 3 {
		t.Errorf("max active resumes = %d, want 3", cfg.Storage.MaxActiveResumes)
	}
	if cfg.Storage.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("max upload bytes = %d, want 10MiB", cfg.Storage.MaxUploadBytes)
	}
	if cfg.AI.Model == "" {
		t.Error("ai model default missing")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("WORKER_BATCH_SIZE", "12")
	t.Setenv("STORAGE_MAX_ACTIVE_RESUMES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Worker.BatchSize != 12 {
		t.Errorf("worker batch size = %d, want 12", cfg.Worker.BatchSize)
	}
	if cfg.Storage.MaxActiveResumes != 5 {
		t.Errorf("max active resumes = %d, want 5", cfg.Storage.MaxActiveResumes)
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "1s")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for too-short ai timeout")
	}
}

func TestOriginsSplitsAndTrims(t *testing.T) {
	cfg := APIConfig{AllowedOrigins: "https://a.example, https://b.example ,,"}
	origins := cfg.Origins()
	if len(origins) != 2 {
		t.Fatalf("origins = %v, want 2 entries", origins)
	}
	if origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("origins = %v", origins)
	}
}
