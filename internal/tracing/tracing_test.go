package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_NoneIsInert(t *testing.T) {
	for _, exp := range []string{"", ExporterNone} {
		p, err := NewProvider(Config{Exporter: exp})
		require.NoError(t, err)
		assert.False(t, p.Enabled())
		assert.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNewProvider_Rejects(t *testing.T) {
	_, err := NewProvider(Config{Exporter: "jaeger"})
	assert.Error(t, err)

	_, err = NewProvider(Config{Exporter: ExporterFile})
	assert.Error(t, err, "file exporter needs a path")
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid(ExporterFile))
	assert.False(t, Valid("otlp"))
}

func TestNewProvider_FileExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	path := filepath.Join(t.TempDir(), FileName)
	p, err := NewProvider(Config{Exporter: ExporterFile, FilePath: path})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := Start(context.Background(), "registry.open", attribute.Int(AttrTaskCount, 3))
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "registry.open")
	assert.Contains(t, string(data), AttrTaskCount)
}

func TestStartAndRecordError(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))

	ctx, parent := Start(context.Background(), "parent")
	_, child := Start(ctx, "child", attribute.String(AttrSeedSource, "embedded"))
	RecordError(child, nil)
	RecordError(child, errors.New("boom"))
	child.End()
	parent.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}
