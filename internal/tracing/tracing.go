// Package tracing configures OpenTelemetry spans around registry startup and
// the seed fetch. Until NewProvider installs an exporter, spans go to the
// global no-op provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Exporters.
const (
	ExporterNone   = "none"
	ExporterFile   = "file"
	ExporterStdout = "stdout"
)

// FileName is the span log written by the file exporter inside the registry directory.
const FileName = "traces.jsonl"

const (
	tracerName         = "github.com/twiced-technology-gmbh/equilibrium"
	defaultServiceName = "equilibrium"
)

// Span attribute keys.
const (
	AttrBackend    = "store.backend"
	AttrExclusive  = "registry.exclusive"
	AttrInitState  = "registry.init_state"
	AttrTaskCount  = "registry.tasks"
	AttrSeedSource = "seed.source"
)

// Exporters returns the accepted exporter names.
func Exporters() []string {
	return []string{ExporterNone, ExporterFile, ExporterStdout}
}

// Valid reports whether name is an accepted exporter. Empty means none.
func Valid(name string) bool {
	return name == "" || slices.Contains(Exporters(), name)
}

// Config selects where spans go.
type Config struct {
	Exporter    string
	FilePath    string // required by the file exporter
	ServiceName string
}

// Provider owns the installed tracer provider and its output file.
type Provider struct {
	provider *sdktrace.TracerProvider
	file     *os.File
}

// NewProvider installs a global tracer provider for cfg. With no exporter the
// global no-op provider stays in place and the returned Provider is inert.
func NewProvider(cfg Config) (*Provider, error) {
	var (
		exporter sdktrace.SpanExporter
		file     *os.File
		err      error
	)

	switch cfg.Exporter {
	case "", ExporterNone:
		return &Provider{}, nil
	case ExporterFile:
		if cfg.FilePath == "" {
			return nil, errors.New("file path required for file exporter")
		}
		file, err = os.OpenFile(filepath.Clean(cfg.FilePath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(file))
	case ExporterStdout:
		// stderr keeps --json output on stdout parseable.
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider, file: file}, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown flushes pending spans and closes the trace file.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	err := p.provider.Shutdown(ctx)
	if p.file != nil {
		err = errors.Join(err, p.file.Close())
	}
	return err
}

// Start opens a span on the global tracer provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
