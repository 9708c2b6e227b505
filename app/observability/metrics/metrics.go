package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginRequestsTotal         metric.Int64Counter
	RegisterRequestsTotal      metric.Int64Counter
	TokenValidationErrorsTotal metric.Int64Counter
	CalculationsTotal          metric.Int64Counter
	StaleWritesTotal           metric.Int64Counter
	DbQueryDurationSeconds     metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once.
// The global MeterProvider must be configured first.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("reccalc")
		var err error
		m := &AppMetrics{}

		m.LoginRequestsTotal, err = meter.Int64Counter(
			"login_requests_total",
			metric.WithDescription("Total number of login requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_requests_total: %v", err)
		}

		m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of register requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_requests_total: %v", err)
		}

		m.TokenValidationErrorsTotal, err = meter.Int64Counter(
			"token_validation_errors_total",
			metric.WithDescription("Token validation failures by kind (expired, malformed, signature)"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_validation_errors_total: %v", err)
		}

		m.CalculationsTotal, err = meter.Int64Counter(
			"route_calculations_total",
			metric.WithDescription("Carrying-capacity calculations performed"),
			metric.WithUnit("{calculation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_calculations_total: %v", err)
		}

		m.StaleWritesTotal, err = meter.Int64Counter(
			"route_stale_writes_total",
			metric.WithDescription("Route updates rejected by optimistic concurrency"),
			metric.WithUnit("{conflict}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_stale_writes_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized metrics bundle. Panics if InitAppMetrics was
// never called.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics: InitAppMetrics must be called before Get")
	}
	return appMetrics
}
