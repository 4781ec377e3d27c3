// Package occupancy builds the 13x3 neighbor grid around an ego vehicle.
//
// The grid covers the ego lane and the lanes immediately left and right of
// it, from 90 ft behind to 90 ft ahead of the ego in 15 ft buckets. Each
// slot holds the id of a vehicle occupying it at the same frame.
package occupancy

import (
	"math"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

const (
	// Range is the exclusive longitudinal reach of the grid in either direction.
	Range = 90.0
	// BucketWidth is the longitudinal size of one grid bucket.
	BucketWidth = 15.0
	// CenterBucket is the bucket containing the ego's own position.
	CenterBucket = trajectory.GridBuckets / 2
)

// Lane block offsets within the grid.
const (
	LeftOffset  = 0
	EgoOffset   = trajectory.GridBuckets
	RightOffset = 2 * trajectory.GridBuckets
)

// Bucket maps a longitudinal offset from the ego to its bucket.
// ok is false when the offset is outside the grid range.
func Bucket(dy float64) (bucket int, ok bool) {
	if math.Abs(dy) >= Range {
		return 0, false
	}
	// Ties round to even so bucket boundaries match the reference dataset.
	b := int(math.RoundToEven((dy + Range) / BucketWidth))
	return max(0, min(trajectory.GridBuckets-1, b)), true
}

// Build returns the occupancy grid for ego at its frame. When several
// vehicles fall in the same slot the last one in vehicle-id order wins.
func Build(frame *trajectory.FrameSnapshot, ego trajectory.Observation) trajectory.Grid {
	var grid trajectory.Grid
	if frame == nil {
		return grid
	}

	fill := func(members []trajectory.Observation, offset int) {
		for _, v := range members {
			if v.VehicleID == ego.VehicleID {
				continue
			}
			b, ok := Bucket(v.Y - ego.Y)
			if !ok {
				continue
			}
			grid[Slot(offset, b)] = v.VehicleID
		}
	}

	fill(frame.Lane(ego.Lane-1), LeftOffset)
	fill(frame.Lane(ego.Lane), EgoOffset)
	fill(frame.Lane(ego.Lane+1), RightOffset)

	return grid
}

// Slot returns the grid index for a lane block offset and bucket.
func Slot(offset, bucket int) int { return offset + bucket }
