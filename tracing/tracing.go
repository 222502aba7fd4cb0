package tracing

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/viant/opflow"

// Span attributes recorded by the driver.
const (
	JobID     = attribute.Key("opflow.job.id")
	JobName   = attribute.Key("opflow.job.name")
	Tick      = attribute.Key("opflow.tick")
	TickSteps = attribute.Key("opflow.tick.steps")
	Affected  = attribute.Key("opflow.tick.affected")
)

// Config selects the stdout exporter.
type Config struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	ServiceName    string `yaml:"serviceName" json:"serviceName"`
	ServiceVersion string `yaml:"serviceVersion" json:"serviceVersion"`
	// OutputFile receives the exported spans; empty means os.Stdout.
	OutputFile string `yaml:"outputFile" json:"outputFile"`
}

var (
	mux      sync.Mutex
	provider *sdktrace.TracerProvider
)

// Setup installs the stdout exporter when cfg is enabled.
func Setup(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	exporter, err := stdoutExporter(cfg.OutputFile)
	if err != nil {
		return err
	}
	return Install(cfg, exporter)
}

func stdoutExporter(outputFile string) (sdktrace.SpanExporter, error) {
	if outputFile == "" {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("tracing: failed to create %v: %w", outputFile, err)
	}
	return stdouttrace.New(stdouttrace.WithWriter(f))
}

// Install registers a synchronous provider exporting to exporter.  While a
// provider is installed further calls are ignored; Shutdown releases it.
func Install(cfg Config, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	mux.Lock()
	defer mux.Unlock()
	if provider != nil {
		return nil
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return fmt.Errorf("tracing: failed to build resource: %w", err)
	}
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Shutdown flushes and releases the installed provider.
func Shutdown(ctx context.Context) error {
	mux.Lock()
	installed := provider
	provider = nil
	mux.Unlock()
	if installed == nil {
		return nil
	}
	return installed.Shutdown(ctx)
}

// Span is an in-flight span; a nil Span ignores every call.
type Span struct {
	otel trace.Span
}

// Start starts an internal span as a child of the span carried by ctx.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := otel.Tracer(scope).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	return ctx, &Span{otel: span}
}

// StartTick starts the span of one driver tick.
func StartTick(ctx context.Context, jobID, jobName string, tick int) (context.Context, *Span) {
	return Start(ctx, "opflow.tick", JobID.String(jobID), JobName.String(jobName), Tick.Int(tick))
}

func (s *Span) Set(attrs ...attribute.KeyValue) {
	if s == nil {
		return
	}
	s.otel.SetAttributes(attrs...)
}

// End records err, or an OK status when nil, and ends the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.otel.RecordError(err)
		s.otel.SetStatus(codes.Error, err.Error())
	} else {
		s.otel.SetStatus(codes.Ok, "")
	}
	s.otel.End()
}
