package trajectory

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when a vehicle has no track in a dataset.
	ErrNotFound = errors.New("trajectory: vehicle not found")
	// ErrDuplicateObservation is returned when two observations share
	// (dataset, vehicle, time).
	ErrDuplicateObservation = errors.New("trajectory: duplicate observation")
	// ErrNonMonotonicTime is returned when a track's times are not strictly increasing.
	ErrNonMonotonicTime = errors.New("trajectory: non-monotonic time")
)

// TrackPoint is one entry of a vehicle track.
type TrackPoint struct {
	Time int64
	X    float64
	Y    float64
	Lane int
}

// Track is a single vehicle's ordered position history within one dataset.
type Track struct {
	Key    VehicleKey
	Points []TrackPoint
}

// Len returns the number of points in the track.
func (t *Track) Len() int { return len(t.Points) }

// Find returns the position of time within the track.
func (t *Track) Find(time int64) (int, bool) {
	i := sort.Search(len(t.Points), func(i int) bool { return t.Points[i].Time >= time })
	if i < len(t.Points) && t.Points[i].Time == time {
		return i, true
	}
	return -1, false
}

// Position returns the vehicle's (x, y) at the given time.
func (t *Track) Position(time int64) (x, y float64, ok bool) {
	i, ok := t.Find(time)
	if !ok {
		return 0, 0, false
	}
	return t.Points[i].X, t.Points[i].Y, true
}

// Validate checks that times are strictly increasing.
func (t *Track) Validate() error {
	for i := 1; i < len(t.Points); i++ {
		prev, cur := t.Points[i-1].Time, t.Points[i].Time
		switch {
		case cur == prev:
			return fmt.Errorf("%w: %s time=%d", ErrDuplicateObservation, t.Key, cur)
		case cur < prev:
			return fmt.Errorf("%w: %s time %d follows %d", ErrNonMonotonicTime, t.Key, cur, prev)
		}
	}
	return nil
}

// FrameSnapshot is the set of observations active at one frame of one dataset.
type FrameSnapshot struct {
	Key     FrameKey
	members []Observation
	lanes   map[int][]Observation
}

// Members returns all observations in the frame ordered by vehicle id.
func (f *FrameSnapshot) Members() []Observation { return f.members }

// Lane returns the frame's observations in the given lane, ordered by vehicle id.
func (f *FrameSnapshot) Lane(lane int) []Observation { return f.lanes[lane] }

// Len returns the number of observations in the frame.
func (f *FrameSnapshot) Len() int { return len(f.members) }

// Index groups observations by vehicle and by frame. It is immutable once
// built and safe for concurrent readers.
type Index struct {
	tracks   map[VehicleKey]*Track
	frames   map[FrameKey]*FrameSnapshot
	keys     []VehicleKey
	datasets []int
	count    int
}

// Build indexes the observations. Each vehicle's points are stably sorted by
// time; a repeated (dataset, vehicle, time) key is a hard failure.
func Build(obs []Observation) (*Index, error) {
	idx := &Index{
		tracks: make(map[VehicleKey]*Track),
		frames: make(map[FrameKey]*FrameSnapshot),
		count:  len(obs),
	}

	datasets := make(map[int]struct{})
	for _, o := range obs {
		key := o.Key()
		tr, ok := idx.tracks[key]
		if !ok {
			tr = &Track{Key: key}
			idx.tracks[key] = tr
			idx.keys = append(idx.keys, key)
		}
		tr.Points = append(tr.Points, TrackPoint{Time: o.Time, X: o.X, Y: o.Y, Lane: o.Lane})

		fk := o.FrameKey()
		fs, ok := idx.frames[fk]
		if !ok {
			fs = &FrameSnapshot{Key: fk}
			idx.frames[fk] = fs
		}
		fs.members = append(fs.members, o)
		datasets[o.DatasetID] = struct{}{}
	}

	for _, key := range idx.keys {
		tr := idx.tracks[key]
		sort.SliceStable(tr.Points, func(i, j int) bool { return tr.Points[i].Time < tr.Points[j].Time })
		if err := tr.Validate(); err != nil {
			return nil, err
		}
	}

	for _, fs := range idx.frames {
		sort.SliceStable(fs.members, func(i, j int) bool { return fs.members[i].VehicleID < fs.members[j].VehicleID })
		fs.lanes = make(map[int][]Observation)
		for _, m := range fs.members {
			fs.lanes[m.Lane] = append(fs.lanes[m.Lane], m)
		}
	}

	sort.Slice(idx.keys, func(i, j int) bool {
		if idx.keys[i].DatasetID != idx.keys[j].DatasetID {
			return idx.keys[i].DatasetID < idx.keys[j].DatasetID
		}
		return idx.keys[i].VehicleID < idx.keys[j].VehicleID
	})
	for d := range datasets {
		idx.datasets = append(idx.datasets, d)
	}
	sort.Ints(idx.datasets)

	return idx, nil
}

// Track returns the vehicle's track, or ErrNotFound.
func (idx *Index) Track(datasetID, vehicleID int) (*Track, error) {
	key := VehicleKey{DatasetID: datasetID, VehicleID: vehicleID}
	tr, ok := idx.tracks[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return tr, nil
}

// Frame returns the snapshot at (datasetID, time). A frame with no
// observations yields an empty snapshot.
func (idx *Index) Frame(datasetID int, time int64) *FrameSnapshot {
	key := FrameKey{DatasetID: datasetID, Time: time}
	if fs, ok := idx.frames[key]; ok {
		return fs
	}
	return &FrameSnapshot{Key: key}
}

// Keys returns all vehicle keys ordered by dataset then vehicle id.
func (idx *Index) Keys() []VehicleKey { return idx.keys }

// Datasets returns the dataset ids present in the index, ascending.
func (idx *Index) Datasets() []int { return idx.datasets }

// Len returns the number of indexed observations.
func (idx *Index) Len() int { return idx.count }

// Vehicles returns the number of distinct tracks.
func (idx *Index) Vehicles() int { return len(idx.tracks) }

// Frames returns the number of distinct (dataset, frame) snapshots.
func (idx *Index) Frames() int { return len(idx.frames) }

// FromTracks indexes a persisted track table. Frame snapshots are rebuilt
// from the track points, so they carry only the fields a track stores.
func FromTracks(tracks map[VehicleKey]*Track) (*Index, error) {
	n := 0
	for _, tr := range tracks {
		if tr != nil {
			n += tr.Len()
		}
	}
	obs := make([]Observation, 0, n)
	for key, tr := range tracks {
		if tr == nil {
			return nil, fmt.Errorf("nil track for %s", key)
		}
		for _, p := range tr.Points {
			obs = append(obs, Observation{
				DatasetID: key.DatasetID,
				VehicleID: key.VehicleID,
				Time:      p.Time,
				X:         p.X,
				Y:         p.Y,
				Lane:      p.Lane,
			})
		}
	}
	return Build(obs)
}
