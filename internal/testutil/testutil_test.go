package testutil

import (
	"testing"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

func TestStraightTrack(t *testing.T) {
	t.Parallel()

	obs := StraightTrack(1, 7, 100, 104, 3, 50, 2)
	if len(obs) != 5 {
		t.Fatalf("len = %d, want 5", len(obs))
	}
	last := obs[4]
	want := trajectory.Observation{DatasetID: 1, VehicleID: 7, Time: 104, X: 36, Y: 58, Lane: 3}
	if last != want {
		t.Errorf("last = %+v, want %+v", last, want)
	}
}

func TestLaneChangeTrack(t *testing.T) {
	t.Parallel()

	obs := LaneChangeTrack(1, 1, 0, 9, 5, 2, 3, 0, 1)
	for _, o := range obs {
		wantLane := 2
		if o.Time >= 5 {
			wantLane = 3
		}
		if o.Lane != wantLane || o.X != float64(wantLane)*12 {
			t.Errorf("frame %d: lane %d x %v, want lane %d", o.Time, o.Lane, o.X, wantLane)
		}
	}
}

func TestBrakingTrack(t *testing.T) {
	t.Parallel()

	obs := BrakingTrack(1, 1, 0, 4, 2, 1, 0, 3, 1)
	got := make([]float64, len(obs))
	for i, o := range obs {
		got[i] = o.Y
	}
	want := []float64{0, 3, 6, 7, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Y = %v, want %v", got, want)
		}
	}
}

func TestMustBuildAndTrack(t *testing.T) {
	t.Parallel()

	idx := MustBuild(t, StraightTrack(1, 1, 0, 3, 1, 0, 1), StraightTrack(2, 1, 0, 1, 1, 0, 1))
	if idx.Vehicles() != 2 || idx.Len() != 6 {
		t.Errorf("Vehicles, Len = %d, %d; want 2, 6", idx.Vehicles(), idx.Len())
	}
	if tr := MustTrack(t, idx, 2, 1); tr.Len() != 2 {
		t.Errorf("track len = %d, want 2", tr.Len())
	}
}
