package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/db"
	"github.com/banshee-data/trajprep/internal/monitoring"
	"github.com/banshee-data/trajprep/internal/ngsim"
	"github.com/banshee-data/trajprep/internal/trajectory"
	"github.com/banshee-data/trajprep/internal/trajectory/maneuver"
	"github.com/banshee-data/trajprep/internal/trajectory/split"
	"github.com/banshee-data/trajprep/internal/weather"
)

// Result is the output of a preprocessing run before persistence.
type Result struct {
	Index   *trajectory.Index
	Labeled []trajectory.LabeledObservation
	Split   *split.Split
}

// Ingest reads the trajectory files in order, tagging file i with dataset id
// i+1 and clamping lanes as configured. When weatherFiles is non-empty it
// must pair one weather export with each trajectory file.
func Ingest(p config.Params, files, weatherFiles []string) ([]trajectory.Observation, error) {
	if len(weatherFiles) > 0 && len(weatherFiles) != len(files) {
		return nil, fmt.Errorf("got %d weather files for %d trajectory files", len(weatherFiles), len(files))
	}

	stage := monitoring.StartStage("ingest")
	var all []trajectory.Observation
	for i, path := range files {
		ds := i + 1
		obs, err := ngsim.ReadFile(path, ds, p.MaxLane(ds))
		if err != nil {
			return nil, err
		}
		if len(weatherFiles) > 0 {
			recs, err := weather.ReadCSVFile(weatherFiles[i])
			if err != nil {
				return nil, err
			}
			obs = weather.Join(obs, recs, p.WeatherUTCOffset)
		}
		monitoring.Logf("[ingest] dataset=%d file=%s rows=%d", ds, path, len(obs))
		all = append(all, obs...)
	}
	stage.Done(len(all))
	return all, nil
}

// Run indexes, labels and partitions the observations.
func Run(ctx context.Context, p config.Params, obs []trajectory.Observation) (*Result, error) {
	stage := monitoring.StartStage("index")
	idx, err := trajectory.Build(obs)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	stage.Done(idx.Vehicles())

	stage = monitoring.StartStage("annotate")
	labeled, err := Annotate(ctx, idx, obs, maneuver.New(maneuver.ConfigFromParams(p)), p.Workers)
	if err != nil {
		return nil, err
	}
	stage.Done(len(labeled))

	stage = monitoring.StartStage("partition")
	s, err := split.Partition(labeled, p.TrainFraction, p.ValFraction)
	if err != nil {
		return nil, err
	}
	for _, th := range s.Thresholds {
		monitoring.Logf("[partition] dataset=%d max_id=%d train<=%d val<=%d",
			th.DatasetID, th.MaxVehicleID, th.TrainMax, th.ValMax)
	}
	stage.Done(len(s.Train) + len(s.Validation) + len(s.Test))

	return &Result{Index: idx, Labeled: labeled, Split: s}, nil
}

// SplitStore persists one split of a run.
type SplitStore interface {
	SaveSplit(ctx context.Context, runID, split string, rows []trajectory.LabeledObservation) error
}

// Persist saves every part of s under runID. When parquetDir is set each
// part is also exported as <parquetDir>/<part>.parquet.
func Persist(ctx context.Context, store SplitStore, runID string, s *split.Split, parquetDir string) error {
	if parquetDir != "" {
		if err := os.MkdirAll(parquetDir, 0755); err != nil {
			return fmt.Errorf("create parquet dir: %w", err)
		}
	}
	for _, name := range split.Names {
		rows, err := s.Part(name)
		if err != nil {
			return err
		}
		stage := monitoring.StartStage("persist " + name)
		if err := store.SaveSplit(ctx, runID, name, rows); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		if parquetDir != "" {
			if err := db.ExportParquet(filepath.Join(parquetDir, name+".parquet"), rows); err != nil {
				return fmt.Errorf("export %s: %w", name, err)
			}
		}
		stage.Done(len(rows))
	}
	return nil
}
