package sampler

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trajprep/internal/trajectory"
)

// Tensor is a dense float32 array of rank 3 in row-major order.
type Tensor struct {
	Shape [3]int
	Data  []float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor(d0, d1, d2 int) *Tensor {
	return &Tensor{Shape: [3]int{d0, d1, d2}, Data: make([]float32, d0*d1*d2)}
}

func (t *Tensor) offset(i, j, k int) int {
	return (i*t.Shape[1]+j)*t.Shape[2] + k
}

// At returns the element at (i, j, k).
func (t *Tensor) At(i, j, k int) float32 { return t.Data[t.offset(i, j, k)] }

// Set stores v at (i, j, k).
func (t *Tensor) Set(i, j, k int, v float32) { t.Data[t.offset(i, j, k)] = v }

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	var s float64
	for _, v := range t.Data {
		s += float64(v)
	}
	return s
}

// Batch is a fixed-shape, zero-padded set of samples.
//
// Sequence tensors are time-major: (time, sample, xy). FutureMask is 1
// exactly where a future point exists, so losses can ignore padding
// without sentinel values.
type Batch struct {
	Size       int
	History    *Tensor    // (HistoryLen, Size, 2)
	Future     *Tensor    // (FutureLen, Size, 2)
	FutureMask *Tensor    // (FutureLen, Size, 2)
	Lateral    *mat.Dense // (Size, 3); nil when Size is 0
	// Longitudinal is (Size, 2); nil when Size is 0.
	Longitudinal *mat.Dense
	// Neighbors has one (HistoryLen, 39, 2) tensor per sample, keeping the
	// grid slot positions.
	Neighbors []*Tensor
}

// Collate pads the samples into a Batch.
func Collate(samples []Sample, cfg WindowConfig) *Batch {
	histLen, futLen, n := cfg.HistoryLen(), cfg.FutureLen(), len(samples)

	b := &Batch{
		Size:       n,
		History:    NewTensor(histLen, n, 2),
		Future:     NewTensor(futLen, n, 2),
		FutureMask: NewTensor(futLen, n, 2),
		Neighbors:  make([]*Tensor, n),
	}
	if n > 0 {
		b.Lateral = mat.NewDense(n, trajectory.LateralClasses, nil)
		b.Longitudinal = mat.NewDense(n, trajectory.LongitudinalClasses, nil)
	}

	for i := range samples {
		s := &samples[i]
		copySequence(b.History, i, s.History)
		filled := copySequence(b.Future, i, s.Future)
		for t := 0; t < filled; t++ {
			b.FutureMask.Set(t, i, 0, 1)
			b.FutureMask.Set(t, i, 1, 1)
		}
		for c, v := range s.Lateral {
			b.Lateral.Set(i, c, float64(v))
		}
		for c, v := range s.Longitudinal {
			b.Longitudinal.Set(i, c, float64(v))
		}

		nbrs := NewTensor(histLen, trajectory.GridSize, 2)
		for slot, h := range s.Neighbors {
			copySequence(nbrs, slot, h)
		}
		b.Neighbors[i] = nbrs
	}
	return b
}

// copySequence writes seq into column col of a (time, col, 2) tensor and
// returns the number of time steps written.
func copySequence(dst *Tensor, col int, seq []Point) int {
	n := min(len(seq), dst.Shape[0])
	for t := 0; t < n; t++ {
		dst.Set(t, col, 0, float32(seq[t].X))
		dst.Set(t, col, 1, float32(seq[t].Y))
	}
	return n
}
