package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")
	t.Setenv("RETRY_BASE_DELAY", "")
	t.Setenv("BATCH_PACING_DELAY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.RetryMaxAttempts != 6 {
		t.Fatalf("RetryMaxAttempts = %d, want 6", cfg.RetryMaxAttempts)
	}
	if cfg.RetryBaseDelay != 2*time.Second {
		t.Fatalf("RetryBaseDelay = %s, want 2s", cfg.RetryBaseDelay)
	}
	if cfg.BatchPacingDelay != 2500*time.Millisecond {
		t.Fatalf("BatchPacingDelay = %s, want 2.5s", cfg.BatchPacingDelay)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:1919/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigDurations(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RETRY_BASE_DELAY", "500")
	t.Setenv("BATCH_PACING_DELAY", "1s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Fatalf("RetryBaseDelay = %s, want 500ms", cfg.RetryBaseDelay)
	}
	if cfg.BatchPacingDelay != time.Second {
		t.Fatalf("BatchPacingDelay = %s, want 1s", cfg.BatchPacingDelay)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigJWTSecretOptionalInDevelopment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "development")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error in development: %v", err)
	}

	t.Setenv("APP_ENV", "production")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected JWT_SECRET to be required in production")
	}
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
}

func TestLoadConfigPoolBounds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_MIN_CONNS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 1 {
		t.Fatalf("pool = %d..%d, want 1..10", cfg.DBMinConns, cfg.DBMaxConns)
	}

	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "5")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error when DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}
}
