// Package telemetry wires OpenTelemetry tracing, metrics and log export,
// Prometheus ledger counters and Pyroscope profiling for the ledger service.
package telemetry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// DefaultServiceVersion is reported when no build version is configured.
const DefaultServiceVersion = "dev"

// shutdownTimeout bounds the flush performed by each provider's Shutdown.
const shutdownTimeout = 10 * time.Second

// Config holds the collector settings shared by the trace, metric and log providers.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
}

func (c Config) version() string {
	if c.ServiceVersion == "" {
		return DefaultServiceVersion
	}
	return c.ServiceVersion
}

// newResource describes this process to the collector.
func newResource(serviceName, version string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
