package db

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

func TestExportParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.parquet")
	rows := sampleRows()
	if err := ExportParquet(path, rows); err != nil {
		t.Fatalf("ExportParquet failed: %v", err)
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 1)
	if err != nil {
		t.Fatalf("NewParquetReader failed: %v", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	if n != len(rows) {
		t.Fatalf("parquet has %d rows, want %d", n, len(rows))
	}
	got := make([]ParquetRow, n)
	if err := pr.Read(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got[2].Lateral != 3 || got[2].Longitudinal != 2 {
		t.Errorf("row 2 labels = (%d, %d), want (3, 2)", got[2].Lateral, got[2].Longitudinal)
	}
	if len(got[0].Grid) != 39 || got[0].Grid[33] != 2 {
		t.Errorf("row 0 grid = %v", got[0].Grid)
	}
	if got[0].Precip != nil {
		t.Errorf("row 0 precip = %v, want null", *got[0].Precip)
	}
	if got[4].Visibility == nil || *got[4].Visibility != 16 {
		t.Errorf("row 4 visibility = %v, want 16", got[4].Visibility)
	}
}

func TestNewParquetRowMissingWeather(t *testing.T) {
	r := sampleRows()[4]
	r.Weather = &trajectory.Weather{Precip: 0.1, WindSpeed: math.NaN(), Visibility: 0}

	row := NewParquetRow(r)
	if row.Precip == nil || *row.Precip != 0.1 {
		t.Errorf("precip = %v, want 0.1", row.Precip)
	}
	if row.WindSpeed != nil {
		t.Errorf("windspeed = %v, want null for a missing reading", *row.WindSpeed)
	}
	if row.Visibility == nil || *row.Visibility != 0 {
		t.Errorf("visibility = %v, want a real zero", row.Visibility)
	}
}

var errCloseFailed = errors.New("close failed")

type failingCloseFile struct {
	source.ParquetFile
}

func (f failingCloseFile) Close() error {
	f.ParquetFile.Close()
	return errCloseFailed
}

func TestExportParquetReportsCloseError(t *testing.T) {
	fw, err := local.NewLocalFileWriter(filepath.Join(t.TempDir(), "val.parquet"))
	if err != nil {
		t.Fatalf("NewLocalFileWriter failed: %v", err)
	}
	err = writeParquet(failingCloseFile{fw}, sampleRows())
	if !errors.Is(err, errCloseFailed) {
		t.Errorf("writeParquet error = %v, want %v", err, errCloseFailed)
	}
}
