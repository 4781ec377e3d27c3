// Package testutil provides shared test utilities and fixtures.
//
// The track builders produce synthetic NGSIM-like observations (frames every
// 100 ms, positions in feet) so labeling and windowing tests do not depend on
// real data files.
package testutil

import (
	"testing"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// StraightTrack returns one observation per frame in [start, end] for a
// vehicle holding its lane at a constant longitudinal speed of dy per frame.
// Lateral position is 12 ft per lane.
func StraightTrack(datasetID, vehicleID int, start, end int64, lane int, y0, dy float64) []trajectory.Observation {
	out := make([]trajectory.Observation, 0, end-start+1)
	for t := start; t <= end; t++ {
		out = append(out, trajectory.Observation{
			DatasetID: datasetID,
			VehicleID: vehicleID,
			Time:      t,
			X:         float64(lane) * 12,
			Y:         y0 + dy*float64(t-start),
			Lane:      lane,
		})
	}
	return out
}

// LaneChangeTrack is StraightTrack with the lane switching from fromLane to
// toLane at frame changeAt.
func LaneChangeTrack(datasetID, vehicleID int, start, end, changeAt int64, fromLane, toLane int, y0, dy float64) []trajectory.Observation {
	out := StraightTrack(datasetID, vehicleID, start, end, fromLane, y0, dy)
	for i := range out {
		if out[i].Time >= changeAt {
			out[i].Lane = toLane
			out[i].X = float64(toLane) * 12
		}
	}
	return out
}

// BrakingTrack moves at dy per frame until brakeAt, then at dyAfter per frame.
func BrakingTrack(datasetID, vehicleID int, start, end, brakeAt int64, lane int, y0, dy, dyAfter float64) []trajectory.Observation {
	out := make([]trajectory.Observation, 0, end-start+1)
	y := y0
	for t := start; t <= end; t++ {
		out = append(out, trajectory.Observation{
			DatasetID: datasetID,
			VehicleID: vehicleID,
			Time:      t,
			X:         float64(lane) * 12,
			Y:         y,
			Lane:      lane,
		})
		if t < brakeAt {
			y += dy
		} else {
			y += dyAfter
		}
	}
	return out
}

// Concat flattens several observation slices into one.
func Concat(parts ...[]trajectory.Observation) []trajectory.Observation {
	var out []trajectory.Observation
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// MustBuild indexes the given observations, failing the test on error.
func MustBuild(t testing.TB, parts ...[]trajectory.Observation) *trajectory.Index {
	t.Helper()
	idx, err := trajectory.Build(Concat(parts...))
	if err != nil {
		t.Fatalf("trajectory.Build: %v", err)
	}
	return idx
}

// MustTrack returns a track from the index, failing the test if it is absent.
func MustTrack(t testing.TB, idx *trajectory.Index, datasetID, vehicleID int) *trajectory.Track {
	t.Helper()
	tr, err := idx.Track(datasetID, vehicleID)
	if err != nil {
		t.Fatalf("Track(%d, %d): %v", datasetID, vehicleID, err)
	}
	return tr
}
