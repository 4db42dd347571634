package telemetry

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Config tunes the tracing middleware. Zero fields take the defaults.
type Config struct {
	ServiceName string
	// SkipPrefixes are path prefixes that are neither traced nor counted
	SkipPrefixes []string
}

var defaultSkipPrefixes = []string{"/healthz", "/v1/healthz", "/metrics", "/v1/docs"}

// New returns a middleware that opens a server span per request and records
// the OTel HTTP instruments.
func New(config ...Config) fiber.Handler {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "marchelocal-api"
	}
	if cfg.SkipPrefixes == nil {
		cfg.SkipPrefixes = defaultSkipPrefixes
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, p := range cfg.SkipPrefixes {
			if strings.HasPrefix(path, p) {
				return c.Next()
			}
		}

		start := time.Now()
		method := c.Method()

		inflight := metric.WithAttributes(attribute.String("method", method))
		addActive(c.Context(), 1, inflight)
		defer addActive(c.Context(), -1, inflight)

		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := otel.Tracer(cfg.ServiceName).Start(ctx, method+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(method),
				semconv.HTTPTargetKey.String(c.OriginalURL()),
				semconv.NetHostNameKey.String(c.Hostname()),
				semconv.HTTPUserAgentKey.String(string(c.Request().Header.UserAgent())),
			),
		)
		defer span.End()

		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// the route pattern keeps /v1/markets/:id as one series
		if route := c.Route(); route != nil && route.Path != "" {
			path = route.Path
			span.SetName(method + " " + path)
		}

		status := c.Response().StatusCode()
		if err != nil {
			// the error handler has not run yet
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
			span.RecordError(err)
		}
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))

		attrs := metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.String("status", strconv.Itoa(status)),
		)
		if HTTPRequestsTotal != nil {
			HTTPRequestsTotal.Add(c.Context(), 1, attrs)
		}
		if HTTPRequestDuration != nil {
			HTTPRequestDuration.Record(c.Context(), time.Since(start).Seconds(), attrs)
		}

		return err
	}
}

func addActive(ctx context.Context, n int64, attrs metric.AddOption) {
	if HTTPActiveRequests != nil {
		HTTPActiveRequests.Add(ctx, n, attrs)
	}
}

// RecordGeocode counts one geocoder lookup. outcome is "hit", "miss" or "error";
// hits are served from the cache.
func RecordGeocode(ctx context.Context, outcome string) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if outcome == "hit" {
		if GeocodeCacheHits != nil {
			GeocodeCacheHits.Add(ctx, 1, attrs)
		}
		return
	}
	if GeocodeRequestsTotal != nil {
		GeocodeRequestsTotal.Add(ctx, 1, attrs)
	}
}
