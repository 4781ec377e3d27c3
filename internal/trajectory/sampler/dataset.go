package sampler

import (
	"fmt"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Sample is one training example built around an anchor observation.
type Sample struct {
	DatasetID int
	VehicleID int
	Time      int64

	History []Point // ego history relative to the ego at Time
	Future  []Point // ego future relative to the ego at Time
	// Neighbors holds one history per grid slot, relative to the ego.
	// Empty slots and neighbors without enough history are nil.
	Neighbors [trajectory.GridSize][]Point

	Lateral      [trajectory.LateralClasses]float32
	Longitudinal [trajectory.LongitudinalClasses]float32
}

// Usable reports whether the sample has a full history and any future.
func (s *Sample) Usable() bool {
	return len(s.History) > 0 && len(s.Future) > 0
}

// Dataset serves samples for one split. Each row of the split is an anchor.
type Dataset struct {
	rows    []trajectory.LabeledObservation
	sampler *Sampler
}

// NewDataset indexes the split's rows and returns a dataset over them.
func NewDataset(rows []trajectory.LabeledObservation, cfg WindowConfig) (*Dataset, error) {
	idx, err := trajectory.Build(trajectory.Observations(rows))
	if err != nil {
		return nil, fmt.Errorf("index split: %w", err)
	}
	s, err := New(idx, cfg)
	if err != nil {
		return nil, err
	}
	return &Dataset{rows: rows, sampler: s}, nil
}

// NewDatasetWithTracks returns a dataset whose windows are read from a
// persisted track table rather than from the rows themselves.
func NewDatasetWithTracks(rows []trajectory.LabeledObservation, tracks map[trajectory.VehicleKey]*trajectory.Track, cfg WindowConfig) (*Dataset, error) {
	idx, err := trajectory.FromTracks(tracks)
	if err != nil {
		return nil, fmt.Errorf("index tracks: %w", err)
	}
	s, err := New(idx, cfg)
	if err != nil {
		return nil, err
	}
	return &Dataset{rows: rows, sampler: s}, nil
}

// Len returns the number of anchors.
func (d *Dataset) Len() int { return len(d.rows) }

// Sampler returns the dataset's window sampler.
func (d *Dataset) Sampler() *Sampler { return d.sampler }

// Row returns the labeled observation behind anchor i.
func (d *Dataset) Row(i int) (trajectory.LabeledObservation, error) {
	if i < 0 || i >= len(d.rows) {
		return trajectory.LabeledObservation{}, fmt.Errorf("sample index %d out of range [0, %d)", i, len(d.rows))
	}
	return d.rows[i], nil
}

// Sample builds the training example for anchor i.
func (d *Dataset) Sample(i int) (Sample, error) {
	row, err := d.Row(i)
	if err != nil {
		return Sample{}, err
	}

	ds, veh, t := row.DatasetID, row.VehicleID, row.Time
	s := Sample{
		DatasetID:    ds,
		VehicleID:    veh,
		Time:         t,
		History:      d.sampler.History(ds, veh, t, veh),
		Future:       d.sampler.Future(ds, veh, t),
		Lateral:      row.Lateral.OneHot(),
		Longitudinal: row.Longitudinal.OneHot(),
	}
	for slot, nbr := range row.Grid {
		s.Neighbors[slot] = d.sampler.History(ds, nbr, t, veh)
	}
	return s, nil
}

// Usable returns the anchors with a full ego history and at least one
// future point, in row order.
func (d *Dataset) Usable() []int {
	var out []int
	for i, r := range d.rows {
		if len(d.sampler.History(r.DatasetID, r.VehicleID, r.Time, r.VehicleID)) == 0 {
			continue
		}
		if len(d.sampler.Future(r.DatasetID, r.VehicleID, r.Time)) == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Batch builds the samples for the given anchors and collates them.
func (d *Dataset) Batch(indices []int) (*Batch, error) {
	samples := make([]Sample, 0, len(indices))
	for _, i := range indices {
		s, err := d.Sample(i)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return Collate(samples, d.sampler.Config()), nil
}
