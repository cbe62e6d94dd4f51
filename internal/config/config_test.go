package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/minesim/core"
	"github.com/signalsfoundry/minesim/timectrl"
)

func TestDefaultMatchesEngineTuning(t *testing.T) {
	if got, want := Default().EngineTuning(), core.DefaultTuning(); got != want {
		t.Fatalf("Default().EngineTuning() = %+v, want %+v", got, want)
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate(): %v", err)
	}
}

func TestParseEmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Parse(nil) = %+v, want defaults", cfg)
	}
}

func TestParseOverridesOnlyGivenKeys(t *testing.T) {
	raw := []byte(`
world:
  width: 12
  file: worlds/gaia.sav
sim:
  seed: 42
  mode: accelerated
  interval_ms: 0
tuning:
  quake_steps: 4
log:
  format: json
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.World.Width != 12 || cfg.World.Height != Default().World.Height || cfg.World.File != "worlds/gaia.sav" {
		t.Fatalf("world = %+v", cfg.World)
	}
	if cfg.Sim.Seed != 42 || cfg.TimeMode() != timectrl.Accelerated || cfg.Sim.Step != Default().Sim.Step {
		t.Fatalf("sim = %+v", cfg.Sim)
	}
	if cfg.Interval() != 0 {
		t.Fatalf("Interval = %v, want 0", cfg.Interval())
	}
	if cfg.EngineTuning().QuakeSteps != 4 || cfg.EngineTuning().QuakeDuration != 1100 {
		t.Fatalf("tuning = %+v", cfg.EngineTuning())
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log = %+v", cfg.Log)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown top-level key", "dragons: 3\n"},
		{"unknown nested key", "world:\n  depth: 3\n"},
		{"below minimum", "sim:\n  step: 0\n"},
		{"wrong type", "world:\n  width: wide\n"},
		{"bad enum", "log:\n  level: loud\n"},
		{"bad mode", "sim:\n  mode: warp\n"},
		{"inverted range", "tuning:\n  ore_corrupt_min: 10\n  ore_corrupt_max: 5\n"},
		{"quake outlives its frames", "tuning: {quake_animation_rate: 500, quake_steps: 10, quake_duration: 1100}\n"},
		{"quake dies on its last frame", "tuning: {quake_animation_rate: 110, quake_steps: 10, quake_duration: 1100}\n"},
		{"not yaml", "world: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.raw)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Parse err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, %v", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "minesim.yaml")
	if err := os.WriteFile(path, []byte("sim:\n  interval_ms: 25\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval() != 25*time.Millisecond {
		t.Fatalf("Interval = %v, want 25ms", cfg.Interval())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSchemaDescribesEverySection(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	for _, key := range []string{"world", "sim", "tuning", "blob_rate_scale", "journal", "observer_addr"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Fatalf("schema missing %q", key)
		}
	}
}

func TestValidateQuakeFramesFitDuration(t *testing.T) {
	cfg := Default()
	cfg.Tuning.QuakeAnimationRate = 109
	if err := cfg.Validate(); err != nil {
		t.Fatalf("10 frames of 109 within 1100: %v", err)
	}
	cfg.Tuning.QuakeAnimationRate = 110
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("10 frames of 110 within 1100: err = %v, want ErrInvalidConfig", err)
	}
}
