package db

import (
	"fmt"
	"math"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// ParquetRow is the flat export schema for one labeled observation. Grid
// holds the 39 slot vehicle ids; weather columns are null when absent or
// missing from the source record.
type ParquetRow struct {
	DatasetID    int32    `parquet:"name=dataset_id, type=INT32"`
	VehicleID    int32    `parquet:"name=vehicle_id, type=INT32"`
	FrameTime    int64    `parquet:"name=frame_time, type=INT64"`
	LocalX       float64  `parquet:"name=local_x, type=DOUBLE"`
	LocalY       float64  `parquet:"name=local_y, type=DOUBLE"`
	LaneID       int32    `parquet:"name=lane_id, type=INT32"`
	Lateral      int32    `parquet:"name=lateral, type=INT32"`
	Longitudinal int32    `parquet:"name=longitudinal, type=INT32"`
	Grid         []int32  `parquet:"name=grid, type=INT32, repetitiontype=REPEATED"`
	Precip       *float64 `parquet:"name=precip, type=DOUBLE, repetitiontype=OPTIONAL"`
	WindSpeed    *float64 `parquet:"name=windspeed, type=DOUBLE, repetitiontype=OPTIONAL"`
	Visibility   *float64 `parquet:"name=visibility, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// NewParquetRow converts a labeled observation to the export schema.
func NewParquetRow(r trajectory.LabeledObservation) ParquetRow {
	row := ParquetRow{
		DatasetID:    int32(r.DatasetID),
		VehicleID:    int32(r.VehicleID),
		FrameTime:    r.Time,
		LocalX:       r.X,
		LocalY:       r.Y,
		LaneID:       int32(r.Lane),
		Lateral:      int32(r.Lateral),
		Longitudinal: int32(r.Longitudinal),
		Grid:         make([]int32, trajectory.GridSize),
	}
	for i, id := range r.Grid {
		row.Grid[i] = int32(id)
	}
	if w := r.Weather; w != nil {
		row.Precip = optionalFloat(w.Precip)
		row.WindSpeed = optionalFloat(w.WindSpeed)
		row.Visibility = optionalFloat(w.Visibility)
	}
	return row
}

// optionalFloat maps NaN to a null column value.
func optionalFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// ExportParquet writes rows to a snappy-compressed parquet file at path.
func ExportParquet(path string, rows []trajectory.LabeledObservation) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return writeParquet(fw, rows)
}

// writeParquet writes rows to fw and closes it.
func writeParquet(fw source.ParquetFile, rows []trajectory.LabeledObservation) (err error) {
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close parquet file: %w", cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		if err := pw.Write(NewParquetRow(r)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
