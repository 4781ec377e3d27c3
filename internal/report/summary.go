// Package report summarizes labeled splits and renders them as charts.
package report

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Summary holds aggregate statistics for one split.
type Summary struct {
	Split    string `json:"split"`
	Rows     int    `json:"rows"`
	Vehicles int    `json:"vehicles"`
	Datasets []int  `json:"datasets"`

	// Label counts indexed by label value minus one.
	Lateral      [trajectory.LateralClasses]int      `json:"lateral"`
	Longitudinal [trajectory.LongitudinalClasses]int `json:"longitudinal"`

	TrackLenMean   float64 `json:"track_len_mean"`
	TrackLenStdDev float64 `json:"track_len_stddev"`
	MeanOccupied   float64 `json:"mean_occupied_slots"`
}

// Summarize computes the statistics for rows of the named split.
func Summarize(split string, rows []trajectory.LabeledObservation) Summary {
	s := Summary{Split: split, Rows: len(rows), Datasets: []int{}}
	if len(rows) == 0 {
		return s
	}

	for lat, n := range lo.CountValuesBy(rows, func(r trajectory.LabeledObservation) trajectory.Lateral { return r.Lateral }) {
		if lat.Valid() {
			s.Lateral[lat-1] = n
		}
	}
	for lon, n := range lo.CountValuesBy(rows, func(r trajectory.LabeledObservation) trajectory.Longitudinal { return r.Longitudinal }) {
		if lon.Valid() {
			s.Longitudinal[lon-1] = n
		}
	}

	s.Datasets = lo.Uniq(lo.Map(rows, func(r trajectory.LabeledObservation, _ int) int { return r.DatasetID }))
	sort.Ints(s.Datasets)

	perVehicle := lo.CountValuesBy(rows, func(r trajectory.LabeledObservation) trajectory.VehicleKey { return r.Key() })
	s.Vehicles = len(perVehicle)
	lengths := lo.Map(lo.Values(perVehicle), func(n int, _ int) float64 { return float64(n) })
	s.TrackLenMean, s.TrackLenStdDev = stat.MeanStdDev(lengths, nil)
	if len(lengths) < 2 || math.IsNaN(s.TrackLenStdDev) {
		s.TrackLenStdDev = 0
	}

	occupied := lo.Map(rows, func(r trajectory.LabeledObservation, _ int) float64 { return float64(r.Grid.Count()) })
	s.MeanOccupied = stat.Mean(occupied, nil)
	return s
}

// LabelNames lists the chart categories: lateral labels then longitudinal.
func LabelNames() []string {
	return []string{
		trajectory.LateralKeep.String(),
		trajectory.LateralLeft.String(),
		trajectory.LateralRight.String(),
		trajectory.LongitudinalNormal.String(),
		trajectory.LongitudinalBraking.String(),
	}
}

// LabelCounts returns the counts in LabelNames order.
func (s Summary) LabelCounts() []int {
	out := make([]int, 0, trajectory.LateralClasses+trajectory.LongitudinalClasses)
	out = append(out, s.Lateral[:]...)
	return append(out, s.Longitudinal[:]...)
}
