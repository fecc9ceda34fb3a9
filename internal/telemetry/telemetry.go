// Package telemetry configures OpenTelemetry tracing.
package telemetry

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catsapi/internal/logger"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider exporting spans over OTLP/gRPC to
// OTEL_EXPORTER_OTLP_ENDPOINT. Without an endpoint tracing stays disabled and
// the returned function does nothing. Exporter failures never stop the service.
func Setup(ctx context.Context, serviceName string) ShutdownFunc {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Log.Debugln("OTEL_EXPORTER_OTLP_ENDPOINT is not set, tracing disabled")
		return noop
	}

	opts := []otlptracegrpc.Option{endpointOption(endpoint)}
	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		logger.Log.Errorln("Error calling the `otlptracegrpc.New()`: ", zap.Error(err))
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		logger.Log.Warnln("Error calling the `resource.New()`: ", zap.Error(err))
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Log.Infow("tracing enabled", "endpoint", endpoint, "service", serviceName)

	return provider.Shutdown
}

// endpointOption accepts both the URL form of the variable ("http://host:4317",
// where an http scheme also disables TLS) and a bare host:port.
func endpointOption(endpoint string) otlptracegrpc.Option {
	if strings.Contains(endpoint, "://") {
		return otlptracegrpc.WithEndpointURL(endpoint)
	}

	return otlptracegrpc.WithEndpoint(endpoint)
}
