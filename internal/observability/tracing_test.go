package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/minesim/internal/logging"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("MINESIM_TRACING_ENABLED", "true")
	t.Setenv("MINESIM_TRACING_EXPORTER", "OTLP")
	t.Setenv("MINESIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("MINESIM_TRACING_SERVICE_NAME", "")
	t.Setenv("MINESIM_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 {
		t.Fatalf("TracingConfigFromEnv = %+v", cfg)
	}
	if cfg.ServiceName != "minesim" || cfg.Endpoint != "collector:4317" {
		t.Fatalf("TracingConfigFromEnv = %+v", cfg)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "minesim-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Output:      &buf,
		World:       WorldResource{Width: 40, Height: 30, Seed: 7},
	}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := Tracer().Start(ctx, "sim.step")
	span.SetAttributes(AttrTick.Int64(120))
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "sim.step") || !strings.Contains(out, string(AttrTick)) {
		t.Fatalf("span not exported: %s", out)
	}
	for _, key := range []attribute.Key{AttrWorldWidth, AttrWorldHeight, AttrSeed} {
		if !strings.Contains(out, string(key)) {
			t.Fatalf("resource missing %s: %s", key, out)
		}
	}

	if _, err := InitTracing(ctx, TracingConfig{Enabled: false}, nil); err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}
