// Package maneuver labels each point of a vehicle track with lateral
// (lane keep / left / right) and longitudinal (normal / braking) maneuvers,
// looking only at the track's own lane and position history.
package maneuver

import (
	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Config holds the maneuver window parameters. Windows are in frames.
type Config struct {
	LateralWindow int     // frames looked back and ahead for lane changes (40 = 4 s)
	LookAhead     int     // frames ahead for the future velocity (50 = 5 s)
	LookBack      int     // frames back for the historical velocity (30 = 3 s)
	BrakingRatio  float64 // future/history velocity ratio below which the vehicle is braking
	Epsilon       float64 // added to displacement and duration to avoid 0/0
}

// DefaultConfig returns the window parameters used for the NGSIM corpus.
func DefaultConfig() Config {
	return Config{
		LateralWindow: 40,
		LookAhead:     50,
		LookBack:      30,
		BrakingRatio:  0.8,
		Epsilon:       1e-6,
	}
}

// ConfigFromParams builds a Config from resolved pipeline parameters.
func ConfigFromParams(p config.Params) Config {
	cfg := DefaultConfig()
	cfg.LateralWindow = p.LateralWindow
	cfg.LookAhead = p.LongitudinalLookahead
	cfg.LookBack = p.LongitudinalLookback
	cfg.BrakingRatio = p.BrakingRatio
	return cfg
}

// Classifier computes maneuver labels. The zero value is not usable; use New.
type Classifier struct {
	cfg Config
}

// New returns a classifier with the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the classifier's configuration.
func (c *Classifier) Config() Config { return c.cfg }

// Classify returns the labels for the point at index within track.
// An index outside the track yields (keep, normal).
func (c *Classifier) Classify(track *trajectory.Track, index int) (trajectory.Lateral, trajectory.Longitudinal) {
	if track == nil || index < 0 || index >= track.Len() {
		return trajectory.LateralKeep, trajectory.LongitudinalNormal
	}
	return c.lateral(track.Points, index), c.longitudinal(track.Points, index)
}

// lateral compares the lane at the window ends with the lane at index.
// Right is checked before left so a crossing in both directions is right.
func (c *Classifier) lateral(pts []trajectory.TrackPoint, i int) trajectory.Lateral {
	ub := min(len(pts)-1, i+c.cfg.LateralWindow)
	lb := max(0, i-c.cfg.LateralWindow)

	cur := pts[i].Lane
	switch {
	case pts[ub].Lane > cur || cur > pts[lb].Lane:
		return trajectory.LateralRight
	case pts[ub].Lane < cur || cur < pts[lb].Lane:
		return trajectory.LateralLeft
	default:
		return trajectory.LateralKeep
	}
}

// longitudinal compares average future and historical displacement per frame
// along the road axis.
func (c *Classifier) longitudinal(pts []trajectory.TrackPoint, i int) trajectory.Longitudinal {
	ub := min(len(pts)-1, i+c.cfg.LookAhead)
	lb := max(0, i-c.cfg.LookBack)

	if ub == i || lb == i {
		return trajectory.LongitudinalNormal
	}

	eps := c.cfg.Epsilon
	vHist := (pts[i].Y - pts[lb].Y + eps) / (float64(i-lb) + eps)
	vFut := (pts[ub].Y - pts[i].Y + eps) / (float64(ub-i) + eps)

	if vFut/vHist < c.cfg.BrakingRatio {
		return trajectory.LongitudinalBraking
	}
	return trajectory.LongitudinalNormal
}
