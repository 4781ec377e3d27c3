package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/monitoring"
	"github.com/banshee-data/trajprep/internal/testutil"
	"github.com/banshee-data/trajprep/internal/trajectory"
	"github.com/banshee-data/trajprep/internal/trajectory/maneuver"
	"github.com/banshee-data/trajprep/internal/trajectory/sampler"
	"github.com/banshee-data/trajprep/internal/trajectory/split"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func defaultParams(t *testing.T) config.Params {
	t.Helper()
	p, err := config.EmptyPipelineConfig().Resolve()
	require.NoError(t, err)
	return p
}

func TestAnnotateScenario(t *testing.T) {
	t.Parallel()

	obs := testutil.StraightTrack(1, 1, 100, 300, 2, 0, 3)
	idx := testutil.MustBuild(t, obs)

	labeled, err := Annotate(context.Background(), idx, obs, maneuver.New(maneuver.DefaultConfig()), 4)
	require.NoError(t, err)
	require.Len(t, labeled, len(obs))

	for _, r := range labeled {
		assert.Equal(t, trajectory.LateralKeep, r.Lateral)
		assert.Equal(t, 0, r.Grid.Count(), "a lone vehicle has no neighbors")
	}

	row := labeled[150]
	require.Equal(t, int64(250), row.Time)
	assert.Equal(t, trajectory.LongitudinalNormal, row.Longitudinal)

	d, err := sampler.NewDataset(labeled, sampler.DefaultWindowConfig())
	require.NoError(t, err)
	s, err := d.Sample(150)
	require.NoError(t, err)
	assert.Len(t, s.History, 16)
	assert.Len(t, s.Future, 25)
}

func TestAnnotateOrderIndependentOfWorkers(t *testing.T) {
	t.Parallel()

	obs := testutil.Concat(
		testutil.LaneChangeTrack(1, 3, 0, 120, 60, 2, 3, 0, 3),
		testutil.StraightTrack(1, 1, 0, 120, 3, 15, 3),
		testutil.BrakingTrack(1, 2, 0, 120, 60, 2, 30, 3, 1),
		testutil.StraightTrack(2, 1, 50, 90, 1, 0, 2),
	)
	idx := testutil.MustBuild(t, obs)
	c := maneuver.New(maneuver.DefaultConfig())

	serial, err := Annotate(context.Background(), idx, obs, c, 1)
	require.NoError(t, err)
	for _, workers := range []int{0, 2, 8} {
		got, err := Annotate(context.Background(), idx, obs, c, workers)
		require.NoError(t, err)
		assert.Equal(t, serial, got, "workers=%d", workers)
	}
	for i := range obs {
		assert.Equal(t, obs[i], serial[i].Observation)
	}
}

func TestAnnotateCanceled(t *testing.T) {
	t.Parallel()

	obs := testutil.StraightTrack(1, 1, 0, 50, 1, 0, 1)
	idx := testutil.MustBuild(t, obs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Annotate(ctx, idx, obs, maneuver.New(maneuver.DefaultConfig()), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnnotateMissingTrack(t *testing.T) {
	t.Parallel()

	idx := testutil.MustBuild(t, testutil.StraightTrack(1, 1, 0, 10, 1, 0, 1))
	stray := testutil.StraightTrack(1, 9, 0, 2, 1, 0, 1)

	_, err := Annotate(context.Background(), idx, stray, maneuver.New(maneuver.DefaultConfig()), 1)
	assert.ErrorIs(t, err, trajectory.ErrNotFound)
}

func TestRun(t *testing.T) {
	t.Parallel()

	var parts [][]trajectory.Observation
	for veh := 1; veh <= 10; veh++ {
		parts = append(parts, testutil.StraightTrack(1, veh, 0, 20, 1+veh%3, float64(veh*20), 2))
	}
	obs := testutil.Concat(parts...)

	res, err := Run(context.Background(), defaultParams(t), obs)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Index.Vehicles())
	require.Len(t, res.Labeled, len(obs))

	// 10 vehicles: train ids 1..7, val id 8, test ids 9..10.
	assert.Len(t, res.Split.Train, 7*21)
	assert.Len(t, res.Split.Validation, 21)
	assert.Len(t, res.Split.Test, 2*21)
}

func TestRunRejectsDuplicates(t *testing.T) {
	t.Parallel()

	obs := testutil.StraightTrack(1, 1, 0, 5, 1, 0, 1)
	obs = append(obs, obs[2])
	_, err := Run(context.Background(), defaultParams(t), obs)
	assert.ErrorIs(t, err, trajectory.ErrDuplicateObservation)
}

type recordingStore struct {
	saved map[string]int
	fail  string
}

func (r *recordingStore) SaveSplit(_ context.Context, _ string, name string, rows []trajectory.LabeledObservation) error {
	if name == r.fail {
		return errors.New("disk full")
	}
	r.saved[name] = len(rows)
	return nil
}

func TestPersist(t *testing.T) {
	t.Parallel()

	rows := make([]trajectory.LabeledObservation, 0, 10)
	for veh := 1; veh <= 10; veh++ {
		rows = append(rows, trajectory.LabeledObservation{
			Observation:  trajectory.Observation{DatasetID: 1, VehicleID: veh, Time: 1},
			Lateral:      trajectory.LateralKeep,
			Longitudinal: trajectory.LongitudinalNormal,
		})
	}
	s, err := split.Partition(rows, 0.7, 0.1)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "parquet")
	store := &recordingStore{saved: map[string]int{}}
	require.NoError(t, Persist(context.Background(), store, "run-1", s, dir))
	assert.Equal(t, map[string]int{"train": 7, "val": 1, "test": 2}, store.saved)
	for _, name := range split.Names {
		assert.FileExists(t, filepath.Join(dir, name+".parquet"))
	}

	failing := &recordingStore{saved: map[string]int{}, fail: "val"}
	err = Persist(context.Background(), failing, "run-1", s, "")
	assert.ErrorContains(t, err, "save val")
}

func ngsimLine(veh int, frame int64, x, y float64, lane int) string {
	return fmt.Sprintf("%d %d 100 %d %.3f %.3f 0 0 15 6 2 30 0 %d 0 0 0 0",
		veh, frame, 1113433136100+frame*100, x, y, lane)
}

func TestIngest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var a, b strings.Builder
	for f := int64(1); f <= 3; f++ {
		fmt.Fprintln(&a, ngsimLine(1, f, 12, float64(f), 7))
		fmt.Fprintln(&b, ngsimLine(4, f, 24, float64(f), 7))
	}
	fileA := filepath.Join(dir, "us101.txt")
	fileB := filepath.Join(dir, "i80.txt")
	require.NoError(t, os.WriteFile(fileA, []byte(a.String()), 0644))
	require.NoError(t, os.WriteFile(fileB, []byte(b.String()), 0644))

	p := defaultParams(t)
	p.LaneClamps = []config.LaneClamp{{DatasetID: 1, MaxLane: 6}}

	obs, err := Ingest(p, []string{fileA, fileB}, nil)
	require.NoError(t, err)
	require.Len(t, obs, 6)
	assert.Equal(t, 1, obs[0].DatasetID)
	assert.Equal(t, 6, obs[0].Lane, "dataset 1 clamps lane 7")
	assert.Equal(t, 2, obs[3].DatasetID)
	assert.Equal(t, 7, obs[3].Lane, "dataset 2 has no clamp")
	assert.Nil(t, obs[0].Weather)

	// 1113433136100 ms is 2005-04-13 22:58:56 UTC, 15:58 local.
	w := filepath.Join(dir, "weather.csv")
	require.NoError(t, os.WriteFile(w, []byte("datetime,precip,windspeed,visibility\n2005-04-13T15:00:00,0,12.5,9.9\n"), 0644))
	obs, err = Ingest(p, []string{fileA, fileB}, []string{w, w})
	require.NoError(t, err)
	require.NotNil(t, obs[5].Weather)
	assert.Equal(t, 12.5, obs[5].Weather.WindSpeed)
	assert.Equal(t, -7*time.Hour, p.WeatherUTCOffset)

	_, err = Ingest(p, []string{fileA, fileB}, []string{w})
	assert.Error(t, err)
}

func TestIngestDefaultLaneClamps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := make([]string, 4)
	for i := range files {
		files[i] = filepath.Join(dir, fmt.Sprintf("part%d.txt", i+1))
		require.NoError(t, os.WriteFile(files[i], []byte(ngsimLine(1, 1, 12, 0, 8)+"\n"), 0644))
	}

	obs, err := Ingest(defaultParams(t), files, nil)
	require.NoError(t, err)
	require.Len(t, obs, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 6, obs[i].Lane, "dataset %d folds auxiliary lane 8", obs[i].DatasetID)
	}
	assert.Equal(t, 8, obs[3].Lane, "dataset 4 is unclamped")
}
