// Package split partitions labeled observations into train, validation and
// test sets by vehicle id, independently for each source dataset.
//
// Vehicle ids are assigned sequentially as vehicles enter the recording
// area, so an id threshold approximates a time cut while keeping every
// vehicle's track whole.
package split

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Part names used for persistence and reporting.
const (
	Train      = "train"
	Validation = "val"
	Test       = "test"
)

// Names lists the parts in their canonical order.
var Names = []string{Train, Validation, Test}

// thresholdTolerance absorbs float error in fraction sums (0.7+0.1 < 0.8).
const thresholdTolerance = 1e-9

// Threshold records the id cut points for one dataset.
type Threshold struct {
	DatasetID    int
	MaxVehicleID int
	TrainMax     int // ids <= TrainMax go to train
	ValMax       int // ids in (TrainMax, ValMax] go to validation
}

// Assign returns the part a vehicle id belongs to.
func (th Threshold) Assign(vehicleID int) string {
	switch {
	case vehicleID <= th.TrainMax:
		return Train
	case vehicleID <= th.ValMax:
		return Validation
	default:
		return Test
	}
}

// Split holds the three partitions.
type Split struct {
	Train      []trajectory.LabeledObservation
	Validation []trajectory.LabeledObservation
	Test       []trajectory.LabeledObservation
	Thresholds []Threshold // ordered by dataset id
}

// Part returns the partition with the given name.
func (s *Split) Part(name string) ([]trajectory.LabeledObservation, error) {
	switch name {
	case Train:
		return s.Train, nil
	case Validation:
		return s.Validation, nil
	case Test:
		return s.Test, nil
	default:
		return nil, fmt.Errorf("unknown split %q (expected train|val|test)", name)
	}
}

// ValidateFractions checks that the fractions describe a usable partition.
func ValidateFractions(trainFrac, valFrac float64) error {
	if !(trainFrac > 0) || trainFrac > 1 {
		return fmt.Errorf("train fraction must be in (0, 1], got %v", trainFrac)
	}
	if !(valFrac >= 0) || valFrac > 1 {
		return fmt.Errorf("validation fraction must be in [0, 1], got %v", valFrac)
	}
	if trainFrac+valFrac > 1+thresholdTolerance {
		return fmt.Errorf("train+validation fractions must not exceed 1, got %v", trainFrac+valFrac)
	}
	return nil
}

func floorFraction(frac float64, maxID int) int {
	return int(math.Floor(frac*float64(maxID) + thresholdTolerance))
}

// Thresholds computes the per-dataset cut points.
func Thresholds(rows []trajectory.LabeledObservation, trainFrac, valFrac float64) []Threshold {
	maxByDataset := make(map[int]int)
	for _, r := range rows {
		if cur, ok := maxByDataset[r.DatasetID]; !ok || r.VehicleID > cur {
			maxByDataset[r.DatasetID] = r.VehicleID
		}
	}

	out := make([]Threshold, 0, len(maxByDataset))
	for ds, maxID := range maxByDataset {
		out = append(out, Threshold{
			DatasetID:    ds,
			MaxVehicleID: maxID,
			TrainMax:     floorFraction(trainFrac, maxID),
			ValMax:       floorFraction(trainFrac+valFrac, maxID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatasetID < out[j].DatasetID })
	return out
}

// Partition splits rows by vehicle-id thresholds. Row order within each
// part follows the input order.
func Partition(rows []trajectory.LabeledObservation, trainFrac, valFrac float64) (*Split, error) {
	if err := ValidateFractions(trainFrac, valFrac); err != nil {
		return nil, err
	}

	ths := Thresholds(rows, trainFrac, valFrac)
	byDataset := make(map[int]Threshold, len(ths))
	for _, th := range ths {
		byDataset[th.DatasetID] = th
	}

	s := &Split{Thresholds: ths}
	for _, r := range rows {
		switch byDataset[r.DatasetID].Assign(r.VehicleID) {
		case Train:
			s.Train = append(s.Train, r)
		case Validation:
			s.Validation = append(s.Validation, r)
		default:
			s.Test = append(s.Test, r)
		}
	}
	return s, nil
}
