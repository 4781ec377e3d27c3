// Package trajectory owns the observation data model and the Track Index.
//
// Responsibilities: typed (dataset, vehicle) and (dataset, frame) keys,
// per-vehicle ordered tracks, per-frame snapshots grouped by lane, and the
// maneuver and grid label types attached to each observation.
// Key types: Observation, LabeledObservation, Track, FrameSnapshot, Index.
//
// Dependency rule: this package depends on nothing else in the module.
// Labeling (maneuver, occupancy), partitioning (split) and windowing
// (sampler) live in subpackages and only read from an Index.
// No SQL/database code is allowed in this package.
package trajectory
