package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const slowQueryThreshold = time.Second

var (
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marchelocal_db_query_duration_seconds",
			Help:    "Database query execution time in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table", "status"},
	)

	dbQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_db_query_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	dbErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	dbSlowQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_db_slow_queries_total",
			Help: "Total number of slow queries (>1 second)",
		},
		[]string{"operation", "table"},
	)

	dbConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marchelocal_db_connection_pool_size",
			Help: "Maximum number of database connections in the pool",
		},
	)

	dbConnectionPoolIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marchelocal_db_connection_pool_idle",
			Help: "Number of idle database connections in the pool",
		},
	)

	dbConnectionPoolInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marchelocal_db_connection_pool_in_use",
			Help: "Number of database connections currently in use",
		},
	)
)

// MetricsPlugin records per-query Prometheus metrics through GORM callbacks
type MetricsPlugin struct{}

func (p *MetricsPlugin) Name() string {
	return "metricsPlugin"
}

func (p *MetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", beforeCallback),
		cb.Create().After("gorm:create").Register("metrics:after_create", afterCallback("INSERT")),

		cb.Query().Before("gorm:query").Register("metrics:before_query", beforeCallback),
		cb.Query().After("gorm:query").Register("metrics:after_query", afterCallback("SELECT")),

		cb.Update().Before("gorm:update").Register("metrics:before_update", beforeCallback),
		cb.Update().After("gorm:update").Register("metrics:after_update", afterCallback("UPDATE")),

		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", beforeCallback),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", afterCallback("DELETE")),

		cb.Row().Before("gorm:row").Register("metrics:before_row", beforeCallback),
		cb.Row().After("gorm:row").Register("metrics:after_row", afterCallback("ROW")),

		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", beforeCallback),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", afterCallback("RAW")),
	}
	return errors.Join(errs...)
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet("metrics:start_time", time.Now())
}

// afterCallback labels the query with op, fixed per GORM processor
func afterCallback(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startTime, ok := db.InstanceGet("metrics:start_time")
		if !ok {
			return
		}
		observeQuery(op, db.Statement.Table, time.Since(startTime.(time.Time)), db.Error)
	}
}

func observeQuery(op, table string, elapsed time.Duration, err error) {
	if table == "" {
		table = "unknown"
	}

	status := "success"
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if failed {
		status = "error"
	}

	dbQueryDuration.WithLabelValues(op, table, status).Observe(elapsed.Seconds())
	dbQueryTotal.WithLabelValues(op, table, status).Inc()

	if failed {
		dbErrorsTotal.WithLabelValues(op, table, fmt.Sprintf("%T", err)).Inc()
	}
	if elapsed > slowQueryThreshold {
		dbSlowQueriesTotal.WithLabelValues(op, table).Inc()
	}
}

// UpdateConnectionPoolMetrics copies sql.DBStats into the pool gauges
func UpdateConnectionPoolMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	stats := sqlDB.Stats()
	dbConnectionPoolSize.Set(float64(stats.MaxOpenConnections))
	dbConnectionPoolIdle.Set(float64(stats.Idle))
	dbConnectionPoolInUse.Set(float64(stats.InUse))
}

// StartConnectionPoolMetricsCollector refreshes the pool gauges until ctx is done
func StartConnectionPoolMetricsCollector(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateConnectionPoolMetrics(db)
		}
	}
}
