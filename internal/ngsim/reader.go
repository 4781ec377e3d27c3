// Package ngsim reads NGSIM vehicle trajectory files into observations.
//
// Each line holds 18 whitespace-separated columns: Vehicle_ID, Frame_ID,
// Total_Frames, Global_Time, Local_X, Local_Y, Global_X, Global_Y, v_Length,
// v_Width, v_Class, v_Vel, v_Acc, Lane_ID, Preceding, Following,
// Space_Headway, Time_Headway. Only the columns the pipeline uses are kept.
package ngsim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Columns is the number of fields on every data line.
const Columns = 18

const (
	colVehicleID  = 0
	colFrameID    = 1
	colGlobalTime = 3
	colLocalX     = 4
	colLocalY     = 5
	colLaneID     = 13
)

// ReadFile parses the file at path. See Read.
func ReadFile(path string, datasetID, maxLane int) ([]trajectory.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f, path, datasetID, maxLane)
}

// Read parses NGSIM rows from r and tags them with datasetID. When maxLane is
// positive, lane ids at or above it are folded into maxLane. Blank lines and
// lines starting with '#' are skipped.
func Read(r io.Reader, datasetID, maxLane int) ([]trajectory.Observation, error) {
	return read(r, "<input>", datasetID, maxLane)
}

func read(r io.Reader, name string, datasetID, maxLane int) ([]trajectory.Observation, error) {
	var out []trajectory.Observation
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		o, err := parseLine(text, datasetID, maxLane)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		out = append(out, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func parseLine(text string, datasetID, maxLane int) (trajectory.Observation, error) {
	fields := strings.Fields(text)
	if len(fields) != Columns {
		return trajectory.Observation{}, fmt.Errorf("expected %d columns, got %d", Columns, len(fields))
	}

	var (
		o   = trajectory.Observation{DatasetID: datasetID}
		err error
	)
	if o.VehicleID, err = parseInt(fields[colVehicleID], "Vehicle_ID"); err != nil {
		return o, err
	}
	frame, err := parseInt(fields[colFrameID], "Frame_ID")
	if err != nil {
		return o, err
	}
	o.Time = int64(frame)
	if o.GlobalTimeMs, err = strconv.ParseInt(fields[colGlobalTime], 10, 64); err != nil {
		return o, fmt.Errorf("Global_Time %q: %w", fields[colGlobalTime], err)
	}
	if o.X, err = strconv.ParseFloat(fields[colLocalX], 64); err != nil {
		return o, fmt.Errorf("Local_X %q: %w", fields[colLocalX], err)
	}
	if o.Y, err = strconv.ParseFloat(fields[colLocalY], 64); err != nil {
		return o, fmt.Errorf("Local_Y %q: %w", fields[colLocalY], err)
	}
	if o.Lane, err = parseInt(fields[colLaneID], "Lane_ID"); err != nil {
		return o, err
	}
	if maxLane > 0 && o.Lane >= maxLane {
		o.Lane = maxLane
	}
	return o, nil
}

// parseInt accepts integral values written as floats ("12.0"), which some
// NGSIM exports use for id columns.
func parseInt(s, column string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", column, s, err)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s %q: not an integer", column, s)
	}
	return int(f), nil
}
