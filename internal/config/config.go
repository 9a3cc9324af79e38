package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Config holds all configuration for the jobmanager service.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	// AdminToken gates the /admin endpoints. Empty disables them entirely.
	AdminToken string `json:"admin_token"`

	UploadDir      string `json:"upload_dir"`
	UploadBaseURL  string `json:"upload_base_url"`
	UploadMaxBytes int64  `json:"upload_max_bytes"`

	// NotifyWebhookURL: empty disables new-application notifications.
	NotifyWebhookURL    string        `json:"notify_webhook_url"`
	NotifyWebhookSecret string        `json:"notify_webhook_secret"`
	NotifyTimeout       time.Duration `json:"-"`
	NotifyTimeoutStr    string        `json:"notify_timeout"`
	NotifyBufferSize    int           `json:"notify_buffer_size"`

	NotifyDrainTimeout    time.Duration `json:"-"`
	NotifyDrainTimeoutStr string        `json:"notify_drain_timeout"`

	// CircuitBreakerThreshold: 0 disables the breaker on the notifier.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	RetentionEnabled   bool          `json:"retention_enabled"`
	RetentionSchedule  string        `json:"retention_schedule"`
	RetentionMaxAge    time.Duration `json:"-"`
	RetentionMaxAgeStr string        `json:"retention_max_age"`

	AnalyticsRetention    time.Duration `json:"-"`
	AnalyticsRetentionStr string        `json:"analytics_retention"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		HTTPAddr:               os.Getenv("HTTP_ADDR"),
		DBOpTimeoutStr:         os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:   os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:   os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr: os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		MetricsEnabled:         os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:            os.Getenv("METRICS_PATH"),
		MetricsPort:            os.Getenv("METRICS_PORT"),
		AdminToken:             os.Getenv("ADMIN_TOKEN"),
		UploadDir:              os.Getenv("UPLOAD_DIR"),
		UploadBaseURL:          os.Getenv("UPLOAD_BASE_URL"),
		NotifyWebhookURL:       os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyWebhookSecret:    os.Getenv("NOTIFY_WEBHOOK_SECRET"),
		NotifyTimeoutStr:       os.Getenv("NOTIFY_TIMEOUT"),
		NotifyDrainTimeoutStr:  os.Getenv("NOTIFY_DRAIN_TIMEOUT"),
		RetentionEnabled:       os.Getenv("RETENTION_ENABLED") == "true",
		RetentionSchedule:      os.Getenv("RETENTION_SCHEDULE"),
		RetentionMaxAgeStr:     os.Getenv("RETENTION_MAX_AGE"),
		AnalyticsRetentionStr:  os.Getenv("ANALYTICS_RETENTION"),
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := parseInt(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := parseInt(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	if maxBytesStr := os.Getenv("UPLOAD_MAX_BYTES"); maxBytesStr != "" {
		if n, err := parseInt(maxBytesStr); err == nil && n > 0 {
			cfg.UploadMaxBytes = int64(n)
		} else {
			log.Printf("config: invalid UPLOAD_MAX_BYTES %q (must be a positive integer), using default 5242880", maxBytesStr)
		}
	}
	if cfg.UploadMaxBytes == 0 {
		cfg.UploadMaxBytes = 5 << 20
	}

	if bufStr := os.Getenv("NOTIFY_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.NotifyBufferSize = n
		} else {
			log.Printf("config: invalid NOTIFY_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.NotifyBufferSize == 0 {
		cfg.NotifyBufferSize = 100
	}

	if cbThreshStr := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := parseInt(cbThreshStr); err == nil {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}
	if cfg.CircuitBreakerThreshold == 0 && os.Getenv("CIRCUIT_BREAKER_THRESHOLD") == "" {
		cfg.CircuitBreakerThreshold = 5
	}

	cfg.CircuitBreakerCooldownStr = os.Getenv("CIRCUIT_BREAKER_COOLDOWN")

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = "/uploads"
	}
	if cfg.NotifyTimeoutStr == "" {
		cfg.NotifyTimeoutStr = "30s"
	}
	if cfg.NotifyDrainTimeoutStr == "" {
		cfg.NotifyDrainTimeoutStr = "30s"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "2m"
	}
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = "0 3 * * *"
	}
	if cfg.RetentionMaxAgeStr == "" {
		cfg.RetentionMaxAgeStr = "8760h" // one year
	}
	if cfg.AnalyticsRetentionStr == "" {
		cfg.AnalyticsRetentionStr = "720h" // 30 days
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifyTimeoutStr); err == nil {
		cfg.NotifyTimeout = d
	}
	if d, err := time.ParseDuration(cfg.NotifyDrainTimeoutStr); err == nil {
		cfg.NotifyDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}
	if d, err := time.ParseDuration(cfg.RetentionMaxAgeStr); err == nil {
		cfg.RetentionMaxAge = d
	}
	if d, err := time.ParseDuration(cfg.AnalyticsRetentionStr); err == nil {
		cfg.AnalyticsRetention = d
	}

	return cfg
}

// parseInt parses a string as a non-negative integer.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, os.ErrInvalid
	}
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL             string `json:"database_url"`
		RedisAddr               string `json:"redis_addr,omitempty"`
		HTTPAddr                string `json:"http_addr"`
		DBOpTimeout             string `json:"db_op_timeout"`
		DBMaxOpenConns          int    `json:"db_max_open_conns"`
		DBMaxIdleConns          int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime       string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime       string `json:"db_conn_max_idle_time"`
		HTTPShutdownTimeout     string `json:"http_shutdown_timeout"`
		MetricsEnabled          bool   `json:"metrics_enabled"`
		MetricsPath             string `json:"metrics_path"`
		MetricsPort             string `json:"metrics_port"`
		AdminToken              string `json:"admin_token,omitempty"`
		UploadDir               string `json:"upload_dir"`
		UploadBaseURL           string `json:"upload_base_url"`
		UploadMaxBytes          int64  `json:"upload_max_bytes"`
		NotifyWebhookURL        string `json:"notify_webhook_url,omitempty"`
		NotifyWebhookSecret     string `json:"notify_webhook_secret,omitempty"`
		NotifyTimeout           string `json:"notify_timeout"`
		NotifyBufferSize        int    `json:"notify_buffer_size"`
		NotifyDrainTimeout      string `json:"notify_drain_timeout"`
		CircuitBreakerThreshold int    `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string `json:"circuit_breaker_cooldown"`
		RetentionEnabled        bool   `json:"retention_enabled"`
		RetentionSchedule       string `json:"retention_schedule"`
		RetentionMaxAge         string `json:"retention_max_age"`
		AnalyticsRetention      string `json:"analytics_retention"`
	}{
		DatabaseURL:             maskSecret(c.DatabaseURL),
		RedisAddr:               c.RedisAddr,
		HTTPAddr:                c.HTTPAddr,
		DBOpTimeout:             c.DBOpTimeoutStr,
		DBMaxOpenConns:          c.DBMaxOpenConns,
		DBMaxIdleConns:          c.DBMaxIdleConns,
		DBConnMaxLifetime:       c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime:       c.DBConnMaxIdleTimeStr,
		HTTPShutdownTimeout:     c.HTTPShutdownTimeoutStr,
		MetricsEnabled:          c.MetricsEnabled,
		MetricsPath:             c.MetricsPath,
		MetricsPort:             c.MetricsPort,
		AdminToken:              maskToken(c.AdminToken),
		UploadDir:               c.UploadDir,
		UploadBaseURL:           c.UploadBaseURL,
		UploadMaxBytes:          c.UploadMaxBytes,
		NotifyWebhookURL:        c.NotifyWebhookURL,
		NotifyWebhookSecret:     maskToken(c.NotifyWebhookSecret),
		NotifyTimeout:           c.NotifyTimeoutStr,
		NotifyBufferSize:        c.NotifyBufferSize,
		NotifyDrainTimeout:      c.NotifyDrainTimeoutStr,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldownStr,
		RetentionEnabled:        c.RetentionEnabled,
		RetentionSchedule:       c.RetentionSchedule,
		RetentionMaxAge:         c.RetentionMaxAgeStr,
		AnalyticsRetention:      c.AnalyticsRetentionStr,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}

// maskToken masks a token entirely.
func maskToken(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
