// Package telemetry wires OpenTelemetry tracing for runner binaries
package telemetry

import (
	"context"
	"io"
	"os"

	"moonmining/internal/platform/config"
	"moonmining/internal/platform/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Options configures the tracer provider
type Options struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
	Writer      io.Writer // stdout when nil
}

// FromConfig reads OTEL_STDOUT, OTEL_SERVICE_NAME and OTEL_SAMPLE_RATIO
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("OTEL_")
	return Options{
		Enabled:     c.MayBool("STDOUT", false),
		ServiceName: c.MayString("SERVICE_NAME", "moonmining"),
		SampleRatio: c.MayFloat64("SAMPLE_RATIO", 1),
	}
}

// Shutdown flushes and stops the installed provider
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs a global tracer provider exporting spans to stdout
// when disabled the global no-op provider stays in place
func Init(ctx context.Context, opt Options) (Shutdown, error) {
	if !opt.Enabled {
		return noop, nil
	}
	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", opt.ServiceName),
	))
	if err != nil {
		logger.Named("telemetry").Warn().Err(err).Msg("otel resource init failed (continuing)")
	}

	ratio := opt.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Named("telemetry").Info().Str("service", opt.ServiceName).Float64("ratio", ratio).Msg("otel tracing initialized")
	return tp.Shutdown, nil
}
