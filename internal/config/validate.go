package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all configuration problems found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns all problems found.
// It returns nil when the configuration is usable.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "is required",
		})
	}

	durations := []struct {
		field string
		str   string
		val   time.Duration
	}{
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr, cfg.DBOpTimeout},
		{"DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetimeStr, cfg.DBConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", cfg.DBConnMaxIdleTimeStr, cfg.DBConnMaxIdleTime},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr, cfg.HTTPShutdownTimeout},
		{"NOTIFY_TIMEOUT", cfg.NotifyTimeoutStr, cfg.NotifyTimeout},
		{"NOTIFY_DRAIN_TIMEOUT", cfg.NotifyDrainTimeoutStr, cfg.NotifyDrainTimeout},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr, cfg.CircuitBreakerCooldown},
		{"RETENTION_MAX_AGE", cfg.RetentionMaxAgeStr, cfg.RetentionMaxAge},
		{"ANALYTICS_RETENTION", cfg.AnalyticsRetentionStr, cfg.AnalyticsRetention},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.str); err != nil {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("invalid duration %q", d.str),
			})
			continue
		}
		if d.val <= 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "must be positive",
			})
		}
	}

	if cfg.DBMaxIdleConns > cfg.DBMaxOpenConns {
		errs = append(errs, ValidationError{
			Field:   "DB_MAX_IDLE_CONNS",
			Message: fmt.Sprintf("must not exceed DB_MAX_OPEN_CONNS (%d)", cfg.DBMaxOpenConns),
		})
	}

	if cfg.CircuitBreakerThreshold < 0 {
		errs = append(errs, ValidationError{
			Field:   "CIRCUIT_BREAKER_THRESHOLD",
			Message: "must not be negative",
		})
	}

	if cfg.NotifyWebhookURL != "" && cfg.NotifyWebhookSecret == "" {
		errs = append(errs, ValidationError{
			Field:   "NOTIFY_WEBHOOK_SECRET",
			Message: "is required when NOTIFY_WEBHOOK_URL is set",
		})
	}

	if cfg.RetentionEnabled && cfg.RetentionSchedule == "" {
		errs = append(errs, ValidationError{
			Field:   "RETENTION_SCHEDULE",
			Message: "is required when RETENTION_ENABLED is true",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
