package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:               "postgres://localhost:5432/jobs",
		HTTPAddr:                  ":8080",
		DBOpTimeoutStr:            "5s",
		DBOpTimeout:               5 * time.Second,
		DBMaxOpenConns:            25,
		DBMaxIdleConns:            5,
		DBConnMaxLifetimeStr:      "30m",
		DBConnMaxLifetime:         30 * time.Minute,
		DBConnMaxIdleTimeStr:      "5m",
		DBConnMaxIdleTime:         5 * time.Minute,
		HTTPShutdownTimeoutStr:    "10s",
		HTTPShutdownTimeout:       10 * time.Second,
		NotifyTimeoutStr:          "30s",
		NotifyTimeout:             30 * time.Second,
		NotifyBufferSize:          100,
		NotifyDrainTimeoutStr:     "30s",
		NotifyDrainTimeout:        30 * time.Second,
		CircuitBreakerThreshold:   5,
		CircuitBreakerCooldownStr: "2m",
		CircuitBreakerCooldown:    2 * time.Minute,
		RetentionSchedule:         "0 3 * * *",
		RetentionMaxAgeStr:        "8760h",
		RetentionMaxAge:           8760 * time.Hour,
		AnalyticsRetentionStr:     "720h",
		AnalyticsRetention:        720 * time.Hour,
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected error to mention DATABASE_URL, got: %v", err)
	}
}

func TestValidate_InvalidDuration(t *testing.T) {
	cfg := validConfig()
	cfg.DBOpTimeoutStr = "banana"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid DB_OP_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "DB_OP_TIMEOUT") {
		t.Errorf("expected error to mention DB_OP_TIMEOUT, got: %v", err)
	}
}

func TestValidate_NonPositiveDuration(t *testing.T) {
	cfg := validConfig()
	cfg.NotifyTimeoutStr = "-1s"
	cfg.NotifyTimeout = -time.Second

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for negative NOTIFY_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "NOTIFY_TIMEOUT") {
		t.Errorf("expected error to mention NOTIFY_TIMEOUT, got: %v", err)
	}
}

func TestValidate_IdleExceedsOpen(t *testing.T) {
	cfg := validConfig()
	cfg.DBMaxIdleConns = 50
	cfg.DBMaxOpenConns = 25

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when idle conns exceed open conns")
	}
	if !strings.Contains(err.Error(), "DB_MAX_IDLE_CONNS") {
		t.Errorf("expected error to mention DB_MAX_IDLE_CONNS, got: %v", err)
	}
}

func TestValidate_WebhookSecretRequired(t *testing.T) {
	cfg := validConfig()
	cfg.NotifyWebhookURL = "https://hooks.example.com/jobs"
	cfg.NotifyWebhookSecret = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing NOTIFY_WEBHOOK_SECRET")
	}
	if !strings.Contains(err.Error(), "NOTIFY_WEBHOOK_SECRET") {
		t.Errorf("expected error to mention NOTIFY_WEBHOOK_SECRET, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.DBOpTimeoutStr = "nope"
	cfg.CircuitBreakerThreshold = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verrs), verrs)
	}
}
