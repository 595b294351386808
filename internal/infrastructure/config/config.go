package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Event     EventConfig
	HTTP      HTTPConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
	Sentry    SentryConfig
	Ledger    LedgerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EventConfig holds event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration // how long a delivered event ID is remembered
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// Per-school token bucket guarding the bulk endpoints
	BulkRateLimitEnabled bool
	BulkRateLimitPerSec  float64
	BulkRateLimitBurst   int
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool     // Whether to enable Swagger endpoint
	AllowedIPs []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	MetricsEnabled    bool          // Expose Prometheus metrics on /metrics
	// OTLP export of logs and database client metrics
	LogsEnabled           bool
	LogsMinLevel          string // zap level forwarded to the collector
	MetricsExportEnabled  bool
	MetricsExportInterval time.Duration
	// Pyroscope continuous profiling
	ProfilingEnabled    bool
	ProfilingServer     string // e.g. http://pyroscope:4040
	ProfilingAuthUser   string
	ProfilingAuthPass   string
	ProfilingMemory     bool
	ProfilingGoroutines bool
	SpanProfiles        bool // link trace spans to profiles
}

// SentryConfig holds error reporting settings. An empty DSN disables reporting.
type SentryConfig struct {
	DSN              string
	Environment      string
	SampleRate       float64
	TracesSampleRate float64
	FlushTimeout     time.Duration
}

// LedgerConfig holds fee ledger settings
type LedgerConfig struct {
	Currency              string          // ISO 4217 code every school bills in
	CarryForwardThreshold decimal.Decimal // balances at or below this are not carried forward
	ReceiptCache          string          // redis, memory or none
	ReceiptCacheTTL       time.Duration
	// Nightly overdue refresh across every school with open fee records
	OverdueSweepEnabled  bool
	OverdueSweepSchedule string // cron minute and hour, e.g. "0 1 * * *"
	OverdueSweepWorkers  int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LEDGER_ prefix (e.g., LEDGER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	threshold, err := parseDecimal(v.GetString("ledger.carry_forward_threshold"))
	if err != nil {
		return nil, fmt.Errorf("ledger.carry_forward_threshold: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

			BulkRateLimitEnabled: v.GetBool("http.bulk_rate_limit_enabled"),
			BulkRateLimitPerSec:  v.GetFloat64("http.bulk_rate_limit_per_sec"),
			BulkRateLimitBurst:   v.GetInt("http.bulk_rate_limit_burst"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),

			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			LogsMinLevel:          v.GetString("telemetry.logs_min_level"),
			MetricsExportEnabled:  v.GetBool("telemetry.metrics_export_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),

			ProfilingEnabled:    v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:     v.GetString("telemetry.profiling_server"),
			ProfilingAuthUser:   v.GetString("telemetry.profiling_auth_user"),
			ProfilingAuthPass:   v.GetString("telemetry.profiling_auth_pass"),
			ProfilingMemory:     v.GetBool("telemetry.profiling_memory"),
			ProfilingGoroutines: v.GetBool("telemetry.profiling_goroutines"),
			SpanProfiles:        v.GetBool("telemetry.span_profiles"),
		},
		Sentry: SentryConfig{
			DSN:              v.GetString("sentry.dsn"),
			Environment:      v.GetString("sentry.environment"),
			SampleRate:       v.GetFloat64("sentry.sample_rate"),
			TracesSampleRate: v.GetFloat64("sentry.traces_sample_rate"),
			FlushTimeout:     v.GetDuration("sentry.flush_timeout"),
		},
		Ledger: LedgerConfig{
			Currency:              v.GetString("ledger.currency"),
			CarryForwardThreshold: threshold,
			ReceiptCache:          v.GetString("ledger.receipt_cache"),
			ReceiptCacheTTL:       v.GetDuration("ledger.receipt_cache_ttl"),
			OverdueSweepEnabled:   v.GetBool("ledger.overdue_sweep_enabled"),
			OverdueSweepSchedule:  v.GetString("ledger.overdue_sweep_schedule"),
			OverdueSweepWorkers:   v.GetInt("ledger.overdue_sweep_workers"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "school-ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "school_ledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	// An empty origin list allows no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-School-ID", "X-Actor-ID", "X-Actor-Kind"}
	}
	if cfg.HTTP.BulkRateLimitPerSec == 0 {
		cfg.HTTP.BulkRateLimitPerSec = 0.2 // one bulk run every 5s per school
	}
	if cfg.HTTP.BulkRateLimitBurst == 0 {
		cfg.HTTP.BulkRateLimitBurst = 2
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "school-ledger"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.LogsMinLevel == "" {
		cfg.Telemetry.LogsMinLevel = "warn"
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 30 * time.Second
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.App.Env
	}
	if cfg.Sentry.SampleRate == 0 {
		cfg.Sentry.SampleRate = 1.0
	}
	if cfg.Sentry.FlushTimeout == 0 {
		cfg.Sentry.FlushTimeout = 2 * time.Second
	}
	if cfg.Ledger.Currency == "" {
		cfg.Ledger.Currency = "INR"
	}
	cfg.Ledger.Currency = strings.ToUpper(cfg.Ledger.Currency)
	if cfg.Ledger.ReceiptCache == "" {
		cfg.Ledger.ReceiptCache = "memory"
	}
	if cfg.Ledger.ReceiptCacheTTL == 0 {
		cfg.Ledger.ReceiptCacheTTL = 24 * time.Hour
	}
	if cfg.Ledger.OverdueSweepSchedule == "" {
		cfg.Ledger.OverdueSweepSchedule = "0 1 * * *"
	}
	if cfg.Ledger.OverdueSweepWorkers <= 0 {
		cfg.Ledger.OverdueSweepWorkers = 2
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}
	if c.HTTP.BulkRateLimitPerSec < 0 || c.HTTP.BulkRateLimitBurst < 0 {
		return fmt.Errorf("http.bulk_rate_limit_per_sec and http.bulk_rate_limit_burst cannot be negative")
	}
	if c.Sentry.SampleRate < 0.0 || c.Sentry.SampleRate > 1.0 {
		return fmt.Errorf("sentry.sample_rate must be between 0.0 and 1.0, got %f", c.Sentry.SampleRate)
	}
	if len(c.Ledger.Currency) != 3 {
		return fmt.Errorf("ledger.currency must be a 3-letter ISO 4217 code, got %q", c.Ledger.Currency)
	}
	if c.Ledger.CarryForwardThreshold.IsNegative() {
		return fmt.Errorf("ledger.carry_forward_threshold cannot be negative")
	}
	switch c.Ledger.ReceiptCache {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("ledger.receipt_cache must be one of redis, memory, none; got %q", c.Ledger.ReceiptCache)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
