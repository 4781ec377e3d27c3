package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyPipelineConfig()

	p, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p.HistoryFrames != 30 || p.FutureFrames != 50 || p.Downsample != 2 {
		t.Errorf("window defaults = (%d, %d, %d), want (30, 50, 2)", p.HistoryFrames, p.FutureFrames, p.Downsample)
	}
	if p.LateralWindow != 40 || p.LongitudinalLookahead != 50 || p.LongitudinalLookback != 30 {
		t.Errorf("maneuver windows = (%d, %d, %d), want (40, 50, 30)", p.LateralWindow, p.LongitudinalLookahead, p.LongitudinalLookback)
	}
	if p.BrakingRatio != 0.8 {
		t.Errorf("BrakingRatio = %v, want 0.8", p.BrakingRatio)
	}
	if p.TrainFraction != 0.7 || p.ValFraction != 0.1 {
		t.Errorf("fractions = (%v, %v), want (0.7, 0.1)", p.TrainFraction, p.ValFraction)
	}
	if p.WeatherUTCOffset != -7*time.Hour {
		t.Errorf("WeatherUTCOffset = %v, want -7h", p.WeatherUTCOffset)
	}
	for ds := 1; ds <= 3; ds++ {
		if p.MaxLane(ds) != 6 {
			t.Errorf("MaxLane(%d) = %d, want 6", ds, p.MaxLane(ds))
		}
	}
	if p.MaxLane(4) != 0 {
		t.Errorf("MaxLane(4) = %d, want 0", p.MaxLane(4))
	}
}

func TestLaneClampsCanBeDisabled(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{"lane_clamps": []}`)

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p.MaxLane(1) != 0 {
		t.Errorf("MaxLane(1) = %d, want 0 with clamps disabled", p.MaxLane(1))
	}
}

func TestLoadPipelineConfigJSON(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{
  "history_frames": 20,
  "downsample": 4,
  "braking_ratio": 0.75,
  "lane_clamps": [{"dataset_id": 2, "max_lane": 5}],
  "weather_utc_offset": "-8h"
}`)

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.HistoryFrames == nil || *cfg.HistoryFrames != 20 {
		t.Errorf("Expected HistoryFrames 20, got %v", cfg.HistoryFrames)
	}
	if cfg.GetFutureFrames() != 50 {
		t.Errorf("GetFutureFrames() = %d, want default 50", cfg.GetFutureFrames())
	}
	p, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p.Downsample != 4 || p.BrakingRatio != 0.75 {
		t.Errorf("Downsample, BrakingRatio = %d, %v", p.Downsample, p.BrakingRatio)
	}
	if p.MaxLane(2) != 5 || p.MaxLane(1) != 0 {
		t.Errorf("MaxLane = %d/%d, want 5/0", p.MaxLane(2), p.MaxLane(1))
	}
	if p.WeatherUTCOffset != -8*time.Hour {
		t.Errorf("WeatherUTCOffset = %v, want -8h", p.WeatherUTCOffset)
	}
}

func TestLoadPipelineConfigYAML(t *testing.T) {
	path := writeConfig(t, "test_config.yaml", `
train_fraction: 0.6
val_fraction: 0.2
workers: 3
lane_clamps:
  - dataset_id: 1
    max_lane: 6
`)

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetTrainFraction() != 0.6 || cfg.GetValFraction() != 0.2 {
		t.Errorf("fractions = (%v, %v), want (0.6, 0.2)", cfg.GetTrainFraction(), cfg.GetValFraction())
	}
	if cfg.GetWorkers() != 3 {
		t.Errorf("GetWorkers() = %d, want 3", cfg.GetWorkers())
	}
	if len(cfg.LaneClamps) != 1 || cfg.LaneClamps[0].MaxLane != 6 {
		t.Errorf("LaneClamps = %+v", cfg.LaneClamps)
	}
}

func TestLoadPipelineConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "config.txt", `{}`},
		{"malformed json", "config.json", `{"history_frames": }`},
		{"zero downsample", "config.json", `{"downsample": 0}`},
		{"fractions exceed one", "config.json", `{"train_fraction": 0.9, "val_fraction": 0.2}`},
		{"bad offset", "config.json", `{"weather_utc_offset": "seven hours"}`},
		{"bad lane clamp", "config.json", `{"lane_clamps": [{"dataset_id": 1, "max_lane": 0}]}`},
		{"duplicate lane clamp", "config.yml", "lane_clamps:\n  - {dataset_id: 1, max_lane: 6}\n  - {dataset_id: 1, max_lane: 5}\n"},
		{"negative braking ratio", "config.json", `{"braking_ratio": -0.8}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			if _, err := LoadPipelineConfig(path); err == nil {
				t.Errorf("LoadPipelineConfig(%s) succeeded, want error", tt.name)
			}
		})
	}

	if _, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	p, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	for ds := 1; ds <= 3; ds++ {
		if p.MaxLane(ds) != 6 {
			t.Errorf("MaxLane(%d) = %d, want 6", ds, p.MaxLane(ds))
		}
	}
	if p.MaxLane(4) != 0 {
		t.Errorf("MaxLane(4) = %d, want 0", p.MaxLane(4))
	}
}
