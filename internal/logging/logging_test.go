package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "engine")).Debug(context.Background(), "entity transformed",
		String("name", "m"),
		Int64("tick", 42),
		Bool("finished", true),
		Duration("interval", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "entity transformed" || rec["component"] != "engine" || rec["name"] != "m" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["tick"] != float64(42) || rec["error"] != "boom" || rec["finished"] != true {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["interval"] != float64(1500*time.Millisecond) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %q", buf.String())
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvFormat, "")
	t.Setenv("LOG_FORMAT", "text")

	cfg := ConfigFromEnv(Config{Level: "info", Format: "json"})
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Fatalf("ConfigFromEnv = %+v", cfg)
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("request id not stored")
	}
	if _, again := EnsureRequestID(ctx); again != id {
		t.Fatalf("EnsureRequestID replaced an existing id")
	}

	ctx = ContextWithLogger(ctx, Noop())
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("logger not stored on context")
	}
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("empty context returned a logger")
	}
}
