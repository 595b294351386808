package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

// DBMetrics records query counts, latency and connection pool state.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	registration   metric.Registration
	config         DBMetricsConfig
	logger         *zap.Logger
}

// NewDBMetrics creates the query instruments and, when sqlDB is set, an observable
// gauge reading the pool statistics on each collection.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	queryTotal, err := NewCounter(meter, "db_query_total", "Database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, "db_query_duration_seconds", "Database query latency", "s", DBDurationBuckets)
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}")
	if err != nil {
		return nil, err
	}

	m := &DBMetrics{
		queryTotal:     queryTotal,
		queryDuration:  queryDuration,
		slowQueryTotal: slowQueryTotal,
		config:         cfg,
		logger:         logger,
	}

	if sqlDB != nil {
		if err := m.observePool(meter, sqlDB); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DBMetrics) observePool(meter metric.Meter, sqlDB *sql.DB) error {
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}
	maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, connections, maxConnections)
	return err
}

// Stop unregisters the pool callback. Safe to call more than once.
func (m *DBMetrics) Stop() {
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		m.logger.Debug("Pool metrics callback already removed", zap.Error(err))
	}
	m.registration = nil
}

// RecordQuery records one completed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// DBMetricsPlugin is a GORM plugin feeding DBMetrics from statement callbacks.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

type dbMetricsContextKey struct{}

// Initialize registers before/after callbacks on every statement kind.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, dbMetricsContextKey{}, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			p.record(tx, op)
		}
	}

	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, ""},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, ""},
	}
	for _, s := range steps {
		if err := s.before("db_metrics:before_"+s.name, before); err != nil {
			return err
		}
		if err := s.after("db_metrics:after_"+s.name, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBMetricsPlugin) record(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var duration time.Duration
	if start, ok := ctx.Value(dbMetricsContextKey{}).(time.Time); ok {
		duration = time.Since(start)
	}
	p.metrics.RecordQuery(ctx, operation, db.Statement.Table, duration)
}

func detectOperationType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics installs query and pool metrics on db. It returns nil when the
// meter provider is not exporting.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || meterProvider == nil || !meterProvider.IsEnabled() {
		return nil, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), sqlDB, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics)); err != nil {
		metrics.Stop()
		return nil, err
	}

	logger.Info("Database metrics registered", zap.Duration("slow_query_threshold", metrics.config.SlowQueryThreshold))
	return metrics, nil
}
