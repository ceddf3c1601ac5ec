package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"salesintel/internal/infra/config"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TracerConfig
		wantNoop bool
		wantErr  bool
	}{
		{"disabled", config.TracerConfig{}, true, false},
		{"noop", config.TracerConfig{Enabled: true, Exporter: "noop"}, true, false},
		{"empty exporter", config.TracerConfig{Enabled: true}, true, false},
		{"stdout", config.TracerConfig{Enabled: true, Exporter: "stdout", SampleRatio: 0.5}, false, false},
		{"unsupported", config.TracerConfig{Enabled: true, Exporter: "jaeger"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer shutdown(context.Background())

			_, isNoop := otel.GetTracerProvider().(noop.TracerProvider)
			assert.Equal(t, tt.wantNoop, isNoop)
		})
	}
}

func TestSpanHelpersRecord(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "market.stage.trends",
		StringAttr("market.industry", "fintech"),
		IntAttr("market.trends", 3),
		Float64Attr("market.confidence", 0.75),
	)
	SetOK(span)
	span.End()

	_, failed := StartSpan(context.Background(), "agent.analyze")
	RecordError(failed, errors.New("catalog down"))
	failed.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "market.stage.trends", spans[0].Name())
	assert.Len(t, spans[0].Attributes(), 3)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "catalog down", spans[1].Status().Description)
}
