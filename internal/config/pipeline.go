package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// LaneClamp caps lane ids for one dataset. US-101 numbers its auxiliary
// lanes above the mainline, so ids >= MaxLane are folded into MaxLane.
type LaneClamp struct {
	DatasetID int `json:"dataset_id" yaml:"dataset_id" validate:"gt=0"`
	MaxLane   int `json:"max_lane" yaml:"max_lane" validate:"gt=0"`
}

// PipelineConfig is the on-disk configuration. Every field is optional;
// the Get* accessors fall back to the defaults used for the NGSIM corpus.
type PipelineConfig struct {
	// Window params (frames)
	HistoryFrames *int `json:"history_frames,omitempty" yaml:"history_frames,omitempty"`
	FutureFrames  *int `json:"future_frames,omitempty" yaml:"future_frames,omitempty"`
	Downsample    *int `json:"downsample,omitempty" yaml:"downsample,omitempty"`

	// Maneuver params (frames)
	LateralWindow         *int     `json:"lateral_window,omitempty" yaml:"lateral_window,omitempty"`
	LongitudinalLookahead *int     `json:"longitudinal_lookahead,omitempty" yaml:"longitudinal_lookahead,omitempty"`
	LongitudinalLookback  *int     `json:"longitudinal_lookback,omitempty" yaml:"longitudinal_lookback,omitempty"`
	BrakingRatio          *float64 `json:"braking_ratio,omitempty" yaml:"braking_ratio,omitempty"`

	// Split params
	TrainFraction *float64 `json:"train_fraction,omitempty" yaml:"train_fraction,omitempty"`
	ValFraction   *float64 `json:"val_fraction,omitempty" yaml:"val_fraction,omitempty"`

	// Ingestion params
	LaneClamps       []LaneClamp `json:"lane_clamps,omitempty" yaml:"lane_clamps,omitempty"`
	WeatherUTCOffset *string     `json:"weather_utc_offset,omitempty" yaml:"weather_utc_offset,omitempty"` // duration string like "-7h"

	// Annotation workers; 0 means one per CPU.
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Params is the resolved configuration with defaults applied. It is
// recorded alongside every preprocessing run.
type Params struct {
	HistoryFrames int `json:"history_frames" validate:"gte=0"`
	FutureFrames  int `json:"future_frames" validate:"gte=0"`
	Downsample    int `json:"downsample" validate:"gt=0"`

	LateralWindow         int     `json:"lateral_window" validate:"gt=0"`
	LongitudinalLookahead int     `json:"longitudinal_lookahead" validate:"gt=0"`
	LongitudinalLookback  int     `json:"longitudinal_lookback" validate:"gt=0"`
	BrakingRatio          float64 `json:"braking_ratio" validate:"gt=0"`

	TrainFraction float64 `json:"train_fraction" validate:"gt=0,lte=1"`
	ValFraction   float64 `json:"val_fraction" validate:"gte=0,lte=1"`

	LaneClamps       []LaneClamp   `json:"lane_clamps" validate:"dive"`
	WeatherUTCOffset time.Duration `json:"weather_utc_offset_ns"`

	Workers int `json:"workers" validate:"gte=0"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON or YAML file.
// Fields omitted from the file keep their defaults, so partial configs are safe.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded; intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/trajectory/sampler/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *PipelineConfig) Validate() error {
	_, err := c.Resolve()
	return err
}

var validate = validator.New()

// Resolve applies defaults and validates the result.
func (c *PipelineConfig) Resolve() (Params, error) {
	offset, err := c.GetWeatherUTCOffset()
	if err != nil {
		return Params{}, err
	}

	p := Params{
		HistoryFrames:         c.GetHistoryFrames(),
		FutureFrames:          c.GetFutureFrames(),
		Downsample:            c.GetDownsample(),
		LateralWindow:         c.GetLateralWindow(),
		LongitudinalLookahead: c.GetLongitudinalLookahead(),
		LongitudinalLookback:  c.GetLongitudinalLookback(),
		BrakingRatio:          c.GetBrakingRatio(),
		TrainFraction:         c.GetTrainFraction(),
		ValFraction:           c.GetValFraction(),
		LaneClamps:            c.GetLaneClamps(),
		WeatherUTCOffset:      offset,
		Workers:               c.GetWorkers(),
	}
	if err := validate.Struct(p); err != nil {
		return Params{}, err
	}
	if p.TrainFraction+p.ValFraction > 1+1e-9 {
		return Params{}, fmt.Errorf("train_fraction + val_fraction must not exceed 1, got %v", p.TrainFraction+p.ValFraction)
	}
	seen := make(map[int]bool, len(p.LaneClamps))
	for _, lc := range p.LaneClamps {
		if seen[lc.DatasetID] {
			return Params{}, fmt.Errorf("duplicate lane clamp for dataset %d", lc.DatasetID)
		}
		seen[lc.DatasetID] = true
	}
	return p, nil
}

// MaxLane returns the lane clamp for a dataset, or 0 when none is configured.
func (p Params) MaxLane(datasetID int) int {
	for _, lc := range p.LaneClamps {
		if lc.DatasetID == datasetID {
			return lc.MaxLane
		}
	}
	return 0
}

// GetHistoryFrames returns the history_frames value or the default.
func (c *PipelineConfig) GetHistoryFrames() int {
	if c.HistoryFrames == nil {
		return 30 // 3 s at 10 Hz
	}
	return *c.HistoryFrames
}

// GetFutureFrames returns the future_frames value or the default.
func (c *PipelineConfig) GetFutureFrames() int {
	if c.FutureFrames == nil {
		return 50 // 5 s at 10 Hz
	}
	return *c.FutureFrames
}

// GetDownsample returns the downsample value or the default.
func (c *PipelineConfig) GetDownsample() int {
	if c.Downsample == nil {
		return 2
	}
	return *c.Downsample
}

// GetLateralWindow returns the lateral_window value or the default.
func (c *PipelineConfig) GetLateralWindow() int {
	if c.LateralWindow == nil {
		return 40
	}
	return *c.LateralWindow
}

// GetLongitudinalLookahead returns the longitudinal_lookahead value or the default.
func (c *PipelineConfig) GetLongitudinalLookahead() int {
	if c.LongitudinalLookahead == nil {
		return 50
	}
	return *c.LongitudinalLookahead
}

// GetLongitudinalLookback returns the longitudinal_lookback value or the default.
func (c *PipelineConfig) GetLongitudinalLookback() int {
	if c.LongitudinalLookback == nil {
		return 30
	}
	return *c.LongitudinalLookback
}

// GetBrakingRatio returns the braking_ratio value or the default.
func (c *PipelineConfig) GetBrakingRatio() float64 {
	if c.BrakingRatio == nil {
		return 0.8
	}
	return *c.BrakingRatio
}

// GetTrainFraction returns the train_fraction value or the default.
func (c *PipelineConfig) GetTrainFraction() float64 {
	if c.TrainFraction == nil {
		return 0.7
	}
	return *c.TrainFraction
}

// GetValFraction returns the val_fraction value or the default.
func (c *PipelineConfig) GetValFraction() float64 {
	if c.ValFraction == nil {
		return 0.1
	}
	return *c.ValFraction
}

// GetLaneClamps returns the lane_clamps value or the default, which folds
// the US-101 auxiliary lanes of datasets 1-3 into lane 6. An explicit empty
// list disables clamping.
func (c *PipelineConfig) GetLaneClamps() []LaneClamp {
	if c.LaneClamps == nil {
		return []LaneClamp{
			{DatasetID: 1, MaxLane: 6},
			{DatasetID: 2, MaxLane: 6},
			{DatasetID: 3, MaxLane: 6},
		}
	}
	return c.LaneClamps
}

// GetWorkers returns the workers value or the default.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetWeatherUTCOffset parses and returns the WeatherUTCOffset as a time.Duration.
// Weather records are in local time; NGSIM global times are UTC epoch ms.
func (c *PipelineConfig) GetWeatherUTCOffset() (time.Duration, error) {
	if c.WeatherUTCOffset == nil || *c.WeatherUTCOffset == "" {
		return -7 * time.Hour, nil // Pacific daylight time
	}
	d, err := time.ParseDuration(*c.WeatherUTCOffset)
	if err != nil {
		return 0, fmt.Errorf("invalid weather_utc_offset '%s': %w", *c.WeatherUTCOffset, err)
	}
	return d, nil
}
