package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/marchelocal/server/internal/logger"
)

var meter metric.Meter

// HTTP metrics
var (
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter
)

// Geocoder metrics
var (
	GeocodeRequestsTotal metric.Int64Counter
	GeocodeCacheHits     metric.Int64Counter
)

// Maintenance metrics
var (
	MaintenanceRunsTotal metric.Int64Counter
	MaintenanceRowsTotal metric.Int64Counter
	MaintenanceDuration  metric.Float64Histogram
)

// InitMeter initializes OpenTelemetry meter with OTLP HTTP exporter
func InitMeter(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	log := logger.GetLogger("telemetry")

	if endpoint == "" {
		log.Info("SIGNOZ_ENDPOINT not set, metrics disabled")
		return func(context.Context) error { return nil }, nil
	}

	// Create OTLP HTTP metric exporter
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	// Create meter provider with periodic reader
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(15*time.Second),
			),
		),
	)

	// Set global meter provider
	otel.SetMeterProvider(mp)

	// Create meter
	meter = mp.Meter(serviceName)

	if err := initHTTPMetrics(); err != nil {
		return nil, err
	}
	if err := initGeocodeMetrics(); err != nil {
		return nil, err
	}
	if err := initMaintenanceMetrics(); err != nil {
		return nil, err
	}

	log.Infof("OpenTelemetry metrics initialized with endpoint: %s", endpoint)

	return mp.Shutdown, nil
}

// initHTTPMetrics creates HTTP-related metrics instruments
func initHTTPMetrics() error {
	var err error

	HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return err
	}

	HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initGeocodeMetrics creates instruments for the address geocoder
func initGeocodeMetrics() error {
	var err error

	GeocodeRequestsTotal, err = meter.Int64Counter(
		"geocode_requests_total",
		metric.WithDescription("Geocoder API calls by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	GeocodeCacheHits, err = meter.Int64Counter(
		"geocode_cache_hits_total",
		metric.WithDescription("Addresses answered from the geocode cache"),
		metric.WithUnit("{request}"),
	)
	return err
}

// initMaintenanceMetrics creates instruments for the batch worker
func initMaintenanceMetrics() error {
	var err error

	MaintenanceRunsTotal, err = meter.Int64Counter(
		"maintenance_runs_total",
		metric.WithDescription("Maintenance task runs by task and status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	MaintenanceRowsTotal, err = meter.Int64Counter(
		"maintenance_rows_total",
		metric.WithDescription("Rows changed by maintenance tasks"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	MaintenanceDuration, err = meter.Float64Histogram(
		"maintenance_duration_seconds",
		metric.WithDescription("Maintenance task duration in seconds"),
		metric.WithUnit("s"),
	)
	return err
}

// RecordMaintenance records one task run. Instruments are nil until InitMeter succeeds.
func RecordMaintenance(ctx context.Context, task string, rows int64, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	taskAttr := metric.WithAttributes(attribute.String("task", task))

	if MaintenanceRunsTotal != nil {
		MaintenanceRunsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("task", task),
			attribute.String("status", status),
		))
	}
	if MaintenanceRowsTotal != nil && rows > 0 {
		MaintenanceRowsTotal.Add(ctx, rows, taskAttr)
	}
	if MaintenanceDuration != nil {
		MaintenanceDuration.Record(ctx, elapsed.Seconds(), taskAttr)
	}
}

// Meter returns the global meter
func Meter() metric.Meter {
	return meter
}
