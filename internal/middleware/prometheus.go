package middleware

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marchelocal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marchelocal_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// search pages dominate the payload sizes
	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marchelocal_http_response_size_bytes",
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)
)

// unmeteredPrefixes are paths left out of the HTTP metrics
var unmeteredPrefixes = []string{"/metrics", "/v1/docs"}

// PrometheusMiddleware records HTTP metrics labelled by route pattern so
// /v1/markets/:id stays a single series.
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, p := range unmeteredPrefixes {
			if strings.HasPrefix(c.Path(), p) {
				return c.Next()
			}
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(route).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// PrometheusHandler serves the default registry for scraping
func PrometheusHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// privatePrefixes are loopback and RFC 1918 / RFC 4193 ranges
var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
}

// InternalOnly restricts a route to loopback and private networks. X-Real-IP
// is only honored when trustProxy is set, since clients can forge it.
func InternalOnly(trustProxy bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientIP := c.IP()
		if realIP := c.Get("X-Real-IP"); trustProxy && realIP != "" {
			clientIP = realIP
		}

		if addr, err := netip.ParseAddr(clientIP); err == nil {
			addr = addr.Unmap()
			for _, p := range privatePrefixes {
				if p.Contains(addr) {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied. Internal network only.",
		})
	}
}
