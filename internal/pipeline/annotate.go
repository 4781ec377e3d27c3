// Package pipeline wires ingestion, labeling, partitioning and persistence
// into the preprocessing run driven by `trajprep build`.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/trajprep/internal/trajectory"
	"github.com/banshee-data/trajprep/internal/trajectory/maneuver"
	"github.com/banshee-data/trajprep/internal/trajectory/occupancy"
)

// Annotate labels every observation with its maneuvers and occupancy grid.
// Work is sharded by vehicle; each shard writes only its own output
// positions, so the result is in input order for any worker count.
// workers <= 0 uses one worker per CPU.
func Annotate(ctx context.Context, idx *trajectory.Index, obs []trajectory.Observation, c *maneuver.Classifier, workers int) ([]trajectory.LabeledObservation, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	shards := make(map[trajectory.VehicleKey][]int)
	var order []trajectory.VehicleKey
	for i, o := range obs {
		k := o.Key()
		if _, ok := shards[k]; !ok {
			order = append(order, k)
		}
		shards[k] = append(shards[k], i)
	}

	out := make([]trajectory.LabeledObservation, len(obs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, k := range order {
		if gctx.Err() != nil {
			break
		}
		rows := shards[k]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := idx.Track(k.DatasetID, k.VehicleID)
			if err != nil {
				return fmt.Errorf("annotate %s: %w", k, err)
			}
			for _, i := range rows {
				o := obs[i]
				p, ok := tr.Find(o.Time)
				if !ok {
					return fmt.Errorf("annotate %s: time %d: %w", k, o.Time, trajectory.ErrNotFound)
				}
				lat, lon := c.Classify(tr, p)
				out[i] = trajectory.LabeledObservation{
					Observation:  o,
					Lateral:      lat,
					Longitudinal: lon,
					Grid:         occupancy.Build(idx.Frame(o.DatasetID, o.Time), o),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
