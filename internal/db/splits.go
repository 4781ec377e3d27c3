package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// SaveSplit writes one split of a run: every labeled row plus the track
// table derived from them. The write is a single transaction.
func (db *DB) SaveSplit(ctx context.Context, runID, split string, rows []trajectory.LabeledObservation) (err error) {
	idx, err := trajectory.Build(trajectory.Observations(rows))
	if err != nil {
		return fmt.Errorf("index split %s: %w", split, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	obsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO labeled_observations (
			run_id, split, dataset_id, vehicle_id, frame_time, global_time_ms,
			local_x, local_y, lane_id, lateral, longitudinal, grid,
			precip, windspeed, visibility
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer obsStmt.Close()

	for _, r := range rows {
		var precip, wind, vis sql.NullFloat64
		if w := r.Weather; w != nil {
			precip, wind, vis = nullFloat(w.Precip), nullFloat(w.WindSpeed), nullFloat(w.Visibility)
		}
		if _, err = obsStmt.ExecContext(ctx,
			runID, split, r.DatasetID, r.VehicleID, r.Time, r.GlobalTimeMs,
			r.X, r.Y, r.Lane, int(r.Lateral), int(r.Longitudinal), EncodeGrid(r.Grid),
			precip, wind, vis,
		); err != nil {
			return fmt.Errorf("failed to insert %s@%d: %w", r.Key(), r.Time, err)
		}
	}

	trackStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_points (run_id, split, dataset_id, vehicle_id, frame_time, local_x, local_y)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer trackStmt.Close()

	for _, key := range idx.Keys() {
		tr, err := idx.Track(key.DatasetID, key.VehicleID)
		if err != nil {
			return err
		}
		for _, p := range tr.Points {
			if _, err = trackStmt.ExecContext(ctx, runID, split, key.DatasetID, key.VehicleID, p.Time, p.X, p.Y); err != nil {
				return fmt.Errorf("failed to insert track point %s@%d: %w", key, p.Time, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit split %s: %w", split, err)
	}
	return nil
}

// LoadSplit returns a split's labeled rows ordered by dataset, vehicle and time.
func (db *DB) LoadSplit(ctx context.Context, runID, split string) ([]trajectory.LabeledObservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT dataset_id, vehicle_id, frame_time, global_time_ms, local_x, local_y,
		       lane_id, lateral, longitudinal, grid, precip, windspeed, visibility
		FROM labeled_observations
		WHERE run_id = ? AND split = ?
		ORDER BY dataset_id, vehicle_id, frame_time`, runID, split)
	if err != nil {
		return nil, fmt.Errorf("failed to query split %s: %w", split, err)
	}
	defer rows.Close()

	var out []trajectory.LabeledObservation
	for rows.Next() {
		var (
			r                 trajectory.LabeledObservation
			lat, lon          int
			blob              []byte
			precip, wind, vis sql.NullFloat64
		)
		if err := rows.Scan(&r.DatasetID, &r.VehicleID, &r.Time, &r.GlobalTimeMs, &r.X, &r.Y,
			&r.Lane, &lat, &lon, &blob, &precip, &wind, &vis); err != nil {
			return nil, err
		}
		r.Lateral = trajectory.Lateral(lat)
		r.Longitudinal = trajectory.Longitudinal(lon)
		if !r.Lateral.Valid() || !r.Longitudinal.Valid() {
			return nil, fmt.Errorf("%s@%d: invalid labels (%d, %d)", r.Key(), r.Time, lat, lon)
		}
		if r.Grid, err = DecodeGrid(blob); err != nil {
			return nil, fmt.Errorf("%s@%d: %w", r.Key(), r.Time, err)
		}
		if precip.Valid || wind.Valid || vis.Valid {
			r.Weather = &trajectory.Weather{
				Precip:     floatOrNaN(precip),
				WindSpeed:  floatOrNaN(wind),
				Visibility: floatOrNaN(vis),
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadTracks returns the split's track table keyed by vehicle. Lanes are not
// stored in the track table and read as zero.
func (db *DB) LoadTracks(ctx context.Context, runID, split string) (map[trajectory.VehicleKey]*trajectory.Track, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT dataset_id, vehicle_id, frame_time, local_x, local_y
		FROM track_points
		WHERE run_id = ? AND split = ?
		ORDER BY dataset_id, vehicle_id, frame_time`, runID, split)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for %s: %w", split, err)
	}
	defer rows.Close()

	tracks := make(map[trajectory.VehicleKey]*trajectory.Track)
	for rows.Next() {
		var (
			key trajectory.VehicleKey
			p   trajectory.TrackPoint
		)
		if err := rows.Scan(&key.DatasetID, &key.VehicleID, &p.Time, &p.X, &p.Y); err != nil {
			return nil, err
		}
		tr, ok := tracks[key]
		if !ok {
			tr = &trajectory.Track{Key: key}
			tracks[key] = tr
		}
		tr.Points = append(tr.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, tr := range tracks {
		if err := tr.Validate(); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

// SplitSizes returns the number of labeled rows per split for a run.
func (db *DB) SplitSizes(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT split, COUNT(*) FROM labeled_observations
		WHERE run_id = ? GROUP BY split`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count splits: %w", err)
	}
	defer rows.Close()

	sizes := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		sizes[name] = n
	}
	return sizes, rows.Err()
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
