package db

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// GridBlobSize is the encoded size of a grid: one uint32 vehicle id per slot.
const GridBlobSize = trajectory.GridSize * 4

// EncodeGrid packs a grid into little-endian uint32 slots.
func EncodeGrid(g trajectory.Grid) []byte {
	blob := make([]byte, GridBlobSize)
	for i, id := range g {
		binary.LittleEndian.PutUint32(blob[i*4:], uint32(id))
	}
	return blob
}

// DecodeGrid unpacks a blob written by EncodeGrid.
func DecodeGrid(blob []byte) (trajectory.Grid, error) {
	var g trajectory.Grid
	if len(blob) != GridBlobSize {
		return g, fmt.Errorf("grid blob is %d bytes, want %d", len(blob), GridBlobSize)
	}
	for i := range g {
		g[i] = int(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return g, nil
}
