package trajectory

import "fmt"

// Weather holds the optional covariates joined onto an observation. A NaN
// field was missing from the source record.
type Weather struct {
	Precip     float64
	WindSpeed  float64
	Visibility float64
}

// Observation is a single vehicle position at a single frame.
// Coordinates are in the source coordinate system (feet for NGSIM).
type Observation struct {
	DatasetID int
	VehicleID int
	Time      int64 // frame index (100 ms at the NGSIM sampling rate)
	X         float64
	Y         float64
	Lane      int

	// GlobalTimeMs is the source epoch timestamp, used only to align weather.
	GlobalTimeMs int64
	Weather      *Weather
}

// VehicleKey identifies one vehicle within one source dataset.
type VehicleKey struct {
	DatasetID int
	VehicleID int
}

func (k VehicleKey) String() string {
	return fmt.Sprintf("dataset=%d vehicle=%d", k.DatasetID, k.VehicleID)
}

// FrameKey identifies one frame within one source dataset.
type FrameKey struct {
	DatasetID int
	Time      int64
}

// Key returns the observation's vehicle key.
func (o Observation) Key() VehicleKey {
	return VehicleKey{DatasetID: o.DatasetID, VehicleID: o.VehicleID}
}

// FrameKey returns the observation's frame key.
func (o Observation) FrameKey() FrameKey {
	return FrameKey{DatasetID: o.DatasetID, Time: o.Time}
}

// Lateral is the lane-change maneuver label.
type Lateral int

const (
	LateralKeep  Lateral = 1
	LateralLeft  Lateral = 2
	LateralRight Lateral = 3
)

// LateralClasses is the width of the lateral one-hot encoding.
const LateralClasses = 3

func (l Lateral) String() string {
	switch l {
	case LateralKeep:
		return "keep"
	case LateralLeft:
		return "left"
	case LateralRight:
		return "right"
	default:
		return fmt.Sprintf("lateral(%d)", int(l))
	}
}

// Valid reports whether l is one of the defined labels.
func (l Lateral) Valid() bool {
	return l >= LateralKeep && l <= LateralRight
}

// OneHot returns the label as a one-hot vector. Invalid labels encode as zeros.
func (l Lateral) OneHot() [LateralClasses]float32 {
	var v [LateralClasses]float32
	if l.Valid() {
		v[int(l)-1] = 1
	}
	return v
}

// Longitudinal is the speed-change maneuver label.
type Longitudinal int

const (
	LongitudinalNormal  Longitudinal = 1
	LongitudinalBraking Longitudinal = 2
)

// LongitudinalClasses is the width of the longitudinal one-hot encoding.
const LongitudinalClasses = 2

func (l Longitudinal) String() string {
	switch l {
	case LongitudinalNormal:
		return "normal"
	case LongitudinalBraking:
		return "braking"
	default:
		return fmt.Sprintf("longitudinal(%d)", int(l))
	}
}

// Valid reports whether l is one of the defined labels.
func (l Longitudinal) Valid() bool {
	return l == LongitudinalNormal || l == LongitudinalBraking
}

// OneHot returns the label as a one-hot vector. Invalid labels encode as zeros.
func (l Longitudinal) OneHot() [LongitudinalClasses]float32 {
	var v [LongitudinalClasses]float32
	if l.Valid() {
		v[int(l)-1] = 1
	}
	return v
}

// Grid geometry: three lanes (left, ego, right) of thirteen longitudinal buckets.
const (
	GridLanes   = 3
	GridBuckets = 13
	GridSize    = GridLanes * GridBuckets
)

// Grid holds neighbor vehicle ids per (lane, bucket) slot. Zero means empty.
// Slots 0-12 are the left lane, 13-25 the ego lane, 26-38 the right lane.
type Grid [GridSize]int

// Count returns the number of occupied slots.
func (g Grid) Count() int {
	n := 0
	for _, id := range g {
		if id != 0 {
			n++
		}
	}
	return n
}

// GridSlot is an occupied grid position.
type GridSlot struct {
	Slot      int
	VehicleID int
}

// Neighbors returns the occupied slots in slot order.
func (g Grid) Neighbors() []GridSlot {
	var out []GridSlot
	for i, id := range g {
		if id != 0 {
			out = append(out, GridSlot{Slot: i, VehicleID: id})
		}
	}
	return out
}

// LabeledObservation is an observation with its maneuver labels and
// occupancy grid. It is produced once and never mutated afterwards.
type LabeledObservation struct {
	Observation
	Lateral      Lateral
	Longitudinal Longitudinal
	Grid         Grid
}

// Observations strips labels, returning the underlying observations in order.
func Observations(rows []LabeledObservation) []Observation {
	out := make([]Observation, len(rows))
	for i := range rows {
		out[i] = rows[i].Observation
	}
	return out
}
