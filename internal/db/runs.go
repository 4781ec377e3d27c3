package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trajprep/internal/config"
	"github.com/banshee-data/trajprep/internal/version"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("db: run not found")

// Run describes one preprocessing run.
type Run struct {
	ID          string        `json:"run_id"`
	CreatedAt   time.Time     `json:"created_at"`
	ToolVersion string        `json:"tool_version"`
	Params      config.Params `json:"params"`
	Sources     []string      `json:"sources"`
}

// CreateRun records a new run with a fresh uuid.
func (db *DB) CreateRun(params config.Params, sources []string) (Run, error) {
	if sources == nil {
		sources = []string{}
	}
	run := Run{
		ID:          uuid.New().String(),
		CreatedAt:   db.Clock.Now().UTC().Truncate(time.Second),
		ToolVersion: version.Version,
		Params:      params,
		Sources:     sources,
	}

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return Run{}, fmt.Errorf("failed to marshal params: %w", err)
	}
	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return Run{}, fmt.Errorf("failed to marshal sources: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO prep_runs (run_id, created_unix, tool_version, params_json, sources_json)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Unix(), run.ToolVersion, string(paramsJSON), string(sourcesJSON),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (db *DB) GetRun(id string) (Run, error) {
	row := db.QueryRow(`
		SELECT run_id, created_unix, tool_version, params_json, sources_json
		FROM prep_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, created_unix, tool_version, params_json, sources_json
		FROM prep_runs ORDER BY created_unix DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, all of its splits.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM prep_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run                     Run
		created                 int64
		paramsJSON, sourcesJSON string
	)
	if err := s.Scan(&run.ID, &created, &run.ToolVersion, &paramsJSON, &sourcesJSON); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(created, 0).UTC()
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return Run{}, fmt.Errorf("run %s: failed to decode params: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &run.Sources); err != nil {
		return Run{}, fmt.Errorf("run %s: failed to decode sources: %w", run.ID, err)
	}
	return run, nil
}
