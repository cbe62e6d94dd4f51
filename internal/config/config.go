// Package config loads the simulator's YAML configuration. Documents are
// checked against a JSON schema reflected from Config before they are
// decoded, so unknown keys and out-of-range values fail early.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/minesim/core"
	"github.com/signalsfoundry/minesim/model"
	"github.com/signalsfoundry/minesim/timectrl"
)

// ErrInvalidConfig indicates a document that fails validation.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	World   WorldConfig   `yaml:"world" json:"world,omitempty"`
	Sim     SimConfig     `yaml:"sim" json:"sim,omitempty"`
	Tuning  TuningConfig  `yaml:"tuning" json:"tuning,omitempty"`
	Log     LogConfig     `yaml:"log" json:"log,omitempty"`
	Journal JournalConfig `yaml:"journal" json:"journal,omitempty"`
	Servers ServersConfig `yaml:"servers" json:"servers,omitempty"`
}

type WorldConfig struct {
	Width  int    `yaml:"width" json:"width,omitempty" jsonschema:"minimum=1"`
	Height int    `yaml:"height" json:"height,omitempty" jsonschema:"minimum=1"`
	File   string `yaml:"file" json:"file,omitempty" jsonschema:"description=World file to load at start"`
	Images string `yaml:"images" json:"images,omitempty" jsonschema:"description=Image list overriding the built-in glyphs"`
}

type SimConfig struct {
	Seed       int64  `yaml:"seed" json:"seed,omitempty" jsonschema:"description=Random seed; 0 seeds from the clock"`
	StartTick  int64  `yaml:"start_tick" json:"start_tick,omitempty" jsonschema:"minimum=0"`
	Step       int64  `yaml:"step" json:"step,omitempty" jsonschema:"minimum=1"`
	IntervalMS int64  `yaml:"interval_ms" json:"interval_ms,omitempty" jsonschema:"minimum=0"`
	Duration   int64  `yaml:"duration" json:"duration,omitempty" jsonschema:"minimum=0,description=Ticks to run; 0 runs until interrupted"`
	Mode       string `yaml:"mode" json:"mode,omitempty" jsonschema:"enum=realtime,enum=accelerated"`
}

type TuningConfig struct {
	BlobRateScale          int64 `yaml:"blob_rate_scale" json:"blob_rate_scale,omitempty" jsonschema:"minimum=1"`
	BlobAnimationRateScale int64 `yaml:"blob_animation_rate_scale" json:"blob_animation_rate_scale,omitempty" jsonschema:"minimum=1"`
	BlobAnimationMin       int   `yaml:"blob_animation_min" json:"blob_animation_min,omitempty" jsonschema:"minimum=1"`
	BlobAnimationMax       int   `yaml:"blob_animation_max" json:"blob_animation_max,omitempty" jsonschema:"minimum=1"`
	OreCorruptMin          int64 `yaml:"ore_corrupt_min" json:"ore_corrupt_min,omitempty" jsonschema:"minimum=0"`
	OreCorruptMax          int64 `yaml:"ore_corrupt_max" json:"ore_corrupt_max,omitempty" jsonschema:"minimum=0"`
	QuakeSteps             int   `yaml:"quake_steps" json:"quake_steps,omitempty" jsonschema:"minimum=1"`
	QuakeDuration          int64 `yaml:"quake_duration" json:"quake_duration,omitempty" jsonschema:"minimum=0"`
	QuakeAnimationRate     int64 `yaml:"quake_animation_rate" json:"quake_animation_rate,omitempty" jsonschema:"minimum=0"`
	VeinRateMin            int64 `yaml:"vein_rate_min" json:"vein_rate_min,omitempty" jsonschema:"minimum=0"`
	VeinRateMax            int64 `yaml:"vein_rate_max" json:"vein_rate_max,omitempty" jsonschema:"minimum=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format" json:"format,omitempty" jsonschema:"enum=text,enum=json"`
}

type JournalConfig struct {
	Dir          string `yaml:"dir" json:"dir,omitempty" jsonschema:"description=Directory for zstd JSONL segments; empty disables"`
	SQLite       string `yaml:"sqlite" json:"sqlite,omitempty" jsonschema:"description=SQLite index path; empty disables"`
	SegmentTicks int64  `yaml:"segment_ticks" json:"segment_ticks,omitempty" jsonschema:"minimum=1"`
}

type ServersConfig struct {
	GRPCAddr     string `yaml:"grpc_addr" json:"grpc_addr,omitempty"`
	MetricsAddr  string `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
	ObserverAddr string `yaml:"observer_addr" json:"observer_addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	t := core.DefaultTuning()
	return Config{
		World: WorldConfig{Width: 40, Height: 30},
		Sim: SimConfig{
			Step:       10,
			IntervalMS: 10,
			Mode:       timectrl.RealTime.String(),
		},
		Tuning: TuningConfig{
			BlobRateScale:          int64(t.BlobRateScale),
			BlobAnimationRateScale: int64(t.BlobAnimationRateScale),
			BlobAnimationMin:       t.BlobAnimationMin,
			BlobAnimationMax:       t.BlobAnimationMax,
			OreCorruptMin:          int64(t.OreCorruptMin),
			OreCorruptMax:          int64(t.OreCorruptMax),
			QuakeSteps:             t.QuakeSteps,
			QuakeDuration:          int64(t.QuakeDuration),
			QuakeAnimationRate:     int64(t.QuakeAnimationRate),
			VeinRateMin:            int64(t.VeinRateMin),
			VeinRateMax:            int64(t.VeinRateMax),
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Journal: JournalConfig{SegmentTicks: 60000},
		Servers: ServersConfig{GRPCAddr: "127.0.0.1:50061"},
	}
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates raw against the config schema and decodes it over
// Default, so absent keys keep their default values.
func Parse(raw []byte) (Config, error) {
	if err := validateDocument(raw); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks constraints that span fields.
func (c Config) Validate() error {
	t := c.Tuning
	switch {
	case t.BlobAnimationMin > t.BlobAnimationMax:
		return fmt.Errorf("%w: tuning.blob_animation_min %d > blob_animation_max %d", ErrInvalidConfig, t.BlobAnimationMin, t.BlobAnimationMax)
	case t.OreCorruptMin > t.OreCorruptMax:
		return fmt.Errorf("%w: tuning.ore_corrupt_min %d > ore_corrupt_max %d", ErrInvalidConfig, t.OreCorruptMin, t.OreCorruptMax)
	case t.VeinRateMin > t.VeinRateMax:
		return fmt.Errorf("%w: tuning.vein_rate_min %d > vein_rate_max %d", ErrInvalidConfig, t.VeinRateMin, t.VeinRateMax)
	case int64(t.QuakeSteps)*t.QuakeAnimationRate >= t.QuakeDuration:
		return fmt.Errorf("%w: tuning.quake_steps %d * quake_animation_rate %d must be below quake_duration %d",
			ErrInvalidConfig, t.QuakeSteps, t.QuakeAnimationRate, t.QuakeDuration)
	case c.World.Width < 1 || c.World.Height < 1:
		return fmt.Errorf("%w: world is %dx%d", ErrInvalidConfig, c.World.Width, c.World.Height)
	case !validMode(c.Sim.Mode):
		return fmt.Errorf("%w: sim.mode %q", ErrInvalidConfig, c.Sim.Mode)
	case c.Sim.Step < 1:
		return fmt.Errorf("%w: sim.step must be positive", ErrInvalidConfig)
	}
	return nil
}

// EngineTuning converts the tuning section for the engine.
func (c Config) EngineTuning() core.Tuning {
	t := c.Tuning
	return core.Tuning{
		BlobRateScale:          model.Tick(t.BlobRateScale),
		BlobAnimationRateScale: model.Tick(t.BlobAnimationRateScale),
		BlobAnimationMin:       t.BlobAnimationMin,
		BlobAnimationMax:       t.BlobAnimationMax,
		OreCorruptMin:          model.Tick(t.OreCorruptMin),
		OreCorruptMax:          model.Tick(t.OreCorruptMax),
		QuakeSteps:             t.QuakeSteps,
		QuakeDuration:          model.Tick(t.QuakeDuration),
		QuakeAnimationRate:     model.Tick(t.QuakeAnimationRate),
		VeinRateMin:            model.Tick(t.VeinRateMin),
		VeinRateMax:            model.Tick(t.VeinRateMax),
	}
}

func validMode(s string) bool {
	_, ok := timectrl.ParseMode(s)
	return ok
}

// TimeMode is the controller mode named by sim.mode.
func (c Config) TimeMode() timectrl.Mode {
	mode, _ := timectrl.ParseMode(c.Sim.Mode)
	return mode
}

// Interval is the wall-clock pause between steps in real-time mode.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Sim.IntervalMS) * time.Millisecond
}
