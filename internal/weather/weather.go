// Package weather aligns hourly weather observations with trajectory rows.
package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Record is one weather reading. Time is local wall-clock time stored as UTC,
// matching how the station exports are written. Empty cells read as NaN.
type Record struct {
	Time       time.Time
	Precip     float64
	WindSpeed  float64
	Visibility float64
}

var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

// ReadCSVFile reads the weather export at path. See ReadCSV.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// ReadCSV reads the datetime, precip, windspeed and visibility columns by
// header name; other columns are ignored. Empty numeric cells read as 0.
// Records are returned sorted by time.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("weather csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"datetime", "precip", "windspeed", "visibility"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	slices.SortStableFunc(out, func(a, b Record) int { return a.Time.Compare(b.Time) })
	return out, nil
}

func parseRow(row []string, col map[string]int) (Record, error) {
	field := func(name string) (string, error) {
		i := col[name]
		if i >= len(row) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(row[i]), nil
	}
	number := func(name string) (float64, error) {
		s, err := field(name)
		if err != nil {
			return 0, err
		}
		if s == "" {
			return math.NaN(), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q: %w", name, s, err)
		}
		return v, nil
	}

	var (
		rec Record
		err error
	)
	s, err := field("datetime")
	if err != nil {
		return rec, err
	}
	if rec.Time, err = parseTime(s); err != nil {
		return rec, err
	}
	if rec.Precip, err = number("precip"); err != nil {
		return rec, err
	}
	if rec.WindSpeed, err = number("windspeed"); err != nil {
		return rec, err
	}
	if rec.Visibility, err = number("visibility"); err != nil {
		return rec, err
	}
	return rec, nil
}

// Join returns a copy of obs where each observation carries the latest record
// at or before its trajectory time, GlobalTimeMs shifted by offset into the
// records' local time. Observations earlier than every record get no weather.
// records must be sorted by time, as ReadCSV returns them.
func Join(obs []trajectory.Observation, records []Record, offset time.Duration) []trajectory.Observation {
	out := make([]trajectory.Observation, len(obs))
	for i, o := range obs {
		out[i] = o
		out[i].Weather = nil
		t := time.UnixMilli(o.GlobalTimeMs).UTC().Add(offset)
		// first record strictly after t
		j, _ := slices.BinarySearchFunc(records, t, func(r Record, t time.Time) int {
			if r.Time.After(t) {
				return 1
			}
			return -1
		})
		if j == 0 {
			continue
		}
		r := records[j-1]
		out[i].Weather = &trajectory.Weather{
			Precip:     r.Precip,
			WindSpeed:  r.WindSpeed,
			Visibility: r.Visibility,
		}
	}
	return out
}
