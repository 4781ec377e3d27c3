package db

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/trajectory"
)

// setupTestDB creates a migrated database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func defaultParams(t *testing.T) config.Params {
	t.Helper()
	p, err := config.EmptyPipelineConfig().Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return p
}

// sampleRows returns two vehicles over three frames with one weather-tagged row.
func sampleRows() []trajectory.LabeledObservation {
	var rows []trajectory.LabeledObservation
	for veh := 1; veh <= 2; veh++ {
		for f := int64(10); f < 13; f++ {
			r := trajectory.LabeledObservation{
				Observation: trajectory.Observation{
					DatasetID:    1,
					VehicleID:    veh,
					Time:         f,
					X:            float64(veh) * 12,
					Y:            float64(f) * 3,
					Lane:         veh,
					GlobalTimeMs: 1118846980000 + f*100,
				},
				Lateral:      trajectory.LateralKeep,
				Longitudinal: trajectory.LongitudinalNormal,
			}
			if veh == 1 {
				r.Grid[33] = 2
			}
			rows = append(rows, r)
		}
	}
	rows[2].Lateral = trajectory.LateralRight
	rows[2].Longitudinal = trajectory.LongitudinalBraking
	rows[4].Weather = &trajectory.Weather{Precip: 0.1, WindSpeed: 8, Visibility: 16}
	return rows
}
