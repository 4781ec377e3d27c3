// Package sampler extracts fixed-length history and future windows around an
// anchor observation and assembles them into padded training batches.
//
// History windows are expressed relative to a reference vehicle's position at
// the anchor frame, so neighbor histories share the ego's frame of reference.
// Future windows are always relative to the target vehicle itself.
// A window that cannot be built is returned empty; callers treat an empty
// history as "no usable sample", never as zero displacement.
package sampler

import (
	"errors"
	"fmt"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Point is a displacement in the source coordinate system.
type Point struct {
	X float64
	Y float64
}

// WindowConfig holds the window lengths, in source frames.
type WindowConfig struct {
	HistoryFrames int // t_h
	FutureFrames  int // t_f
	Downsample    int // d_s
}

// DefaultWindowConfig returns 3 s of history and 5 s of future at 5 Hz.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{HistoryFrames: 30, FutureFrames: 50, Downsample: 2}
}

// WindowConfigFromParams builds a WindowConfig from resolved pipeline parameters.
func WindowConfigFromParams(p config.Params) WindowConfig {
	return WindowConfig{
		HistoryFrames: p.HistoryFrames,
		FutureFrames:  p.FutureFrames,
		Downsample:    p.Downsample,
	}
}

// Validate checks the window lengths.
func (c WindowConfig) Validate() error {
	if c.Downsample <= 0 {
		return fmt.Errorf("downsample must be positive, got %d", c.Downsample)
	}
	if c.HistoryFrames < 0 || c.FutureFrames < 0 {
		return errors.New("history and future frames must be non-negative")
	}
	return nil
}

// HistoryLen is the number of points in a full history window.
func (c WindowConfig) HistoryLen() int { return c.HistoryFrames/c.Downsample + 1 }

// FutureLen is the maximum number of points in a future window.
func (c WindowConfig) FutureLen() int { return c.FutureFrames / c.Downsample }

// Sampler reads windows from an immutable Track Index. It holds no mutable
// state and may be shared between goroutines.
type Sampler struct {
	index *trajectory.Index
	cfg   WindowConfig
}

// New returns a sampler over index.
func New(index *trajectory.Index, cfg WindowConfig) (*Sampler, error) {
	if index == nil {
		return nil, errors.New("sampler: nil index")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{index: index, cfg: cfg}, nil
}

// Config returns the window configuration.
func (s *Sampler) Config() WindowConfig { return s.cfg }

// Index returns the underlying Track Index.
func (s *Sampler) Index() *trajectory.Index { return s.index }

// History returns the downsampled positions of vehicleID over the t_h frames
// up to and including t, relative to refVehicleID's position at t. Vehicle id
// 0 means an empty grid slot. The result is empty when either vehicle or the
// anchor frame is missing, or when the track starts within t_h frames of t.
func (s *Sampler) History(datasetID, vehicleID int, t int64, refVehicleID int) []Point {
	if vehicleID == 0 {
		return nil
	}
	tr, err := s.index.Track(datasetID, vehicleID)
	if err != nil {
		return nil
	}
	i, ok := tr.Find(t)
	if !ok {
		return nil
	}
	ref, err := s.index.Track(datasetID, refVehicleID)
	if err != nil {
		return nil
	}
	rx, ry, ok := ref.Position(t)
	if !ok {
		return nil
	}

	start := max(0, i-s.cfg.HistoryFrames)
	out := make([]Point, 0, s.cfg.HistoryLen())
	for j := start; j <= i; j += s.cfg.Downsample {
		p := tr.Points[j]
		out = append(out, Point{X: p.X - rx, Y: p.Y - ry})
	}
	if len(out) < s.cfg.HistoryLen() {
		return nil
	}
	return out
}

// Future returns the downsampled positions of vehicleID from d_s frames after
// t through at most t_f frames after t, relative to its own position at t.
// Near the end of a track the result is shorter than FutureLen.
func (s *Sampler) Future(datasetID, vehicleID int, t int64) []Point {
	tr, err := s.index.Track(datasetID, vehicleID)
	if err != nil {
		return nil
	}
	i, ok := tr.Find(t)
	if !ok {
		return nil
	}

	ox, oy := tr.Points[i].X, tr.Points[i].Y
	end := min(tr.Len()-1, i+s.cfg.FutureFrames)
	out := make([]Point, 0, s.cfg.FutureLen())
	for j := i + s.cfg.Downsample; j <= end; j += s.cfg.Downsample {
		p := tr.Points[j]
		out = append(out, Point{X: p.X - ox, Y: p.Y - oy})
	}
	return out
}
