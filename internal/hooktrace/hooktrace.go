// Package hooktrace is an optional tracer for the test harness, adapted
// from the teacher's pkg/tracing. The hook engine opens no spans itself;
// cmd/hookctl opens one span around its demo run.
// Only the stdout exporter is carried over — the teacher's OTLP gRPC/HTTP
// exporters are dropped here because an in-process payload with no
// supervising process has nowhere appropriate to ship spans over the
// network (see DESIGN.md). Tracing defaults to disabled; spec.md's "the
// hook itself never blocks" rules out a synchronous exporter anywhere
// near the production attach path, so this is strictly a
// cmd/hookctl/test-harness facility (see internal/hookconfig.Config.Tracing).
package hooktrace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the optional tracer.
type Config struct {
	Enabled bool
	// ServiceName identifies this process in exported spans; cmd/hookctl
	// sets it to "hookctl-demo".
	ServiceName string
}

// Provider wraps an SDK tracer provider. The zero Provider is a valid
// no-op (Tracer returns otel.Tracer on a nil SDK provider).
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// New builds a Provider. When cfg.Enabled is false, it returns a Provider
// backed by an always-off sampler so Tracer()'s spans are free to create
// but never exported.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{sdk: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("hooktrace: new exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("component", "hookengine"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("hooktrace: new resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return &Provider{sdk: sdk}, nil
}

// Tracer returns a named tracer for span creation.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.sdk == nil {
		return otel.Tracer(name)
	}
	return p.sdk.Tracer(name)
}

// Shutdown flushes and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
