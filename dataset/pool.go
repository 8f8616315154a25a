package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Pooled is the union of several per-trajectory datasets used for one joint
// hyperparameter fit. Samples keep their original order: all samples of the
// first dataset followed by all samples of the second.
type Pooled struct {
	// ID identifies the pooled record
	ID string
	// X is the concatenated input position matrix
	X *mat.Dense
	// YNoisy is the concatenated noisy velocity twist matrix
	YNoisy *mat.Dense
	// NoiseLevels holds each source dataset's noise level in pooling order
	NoiseLevels [][]float64
	// Sources are the pooled dataset identifiers in order
	Sources []string
}

// Pool concatenates the given datasets into a Pooled set.
// It returns error if no datasets are given, if any dataset has no injected
// noise yet or if output channel counts differ.
func Pool(id string, sets ...*Dataset) (*Pooled, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("no datasets to pool")
	}

	total := 0
	for _, d := range sets {
		if d.YNoisy == nil {
			return nil, fmt.Errorf("dataset %s has no noisy outputs", d.ID)
		}
		total += d.Len()
	}

	_, xc := sets[0].X.Dims()
	_, yc := sets[0].YNoisy.Dims()

	x := mat.NewDense(total, xc, nil)
	y := mat.NewDense(total, yc, nil)

	levels := make([][]float64, 0, len(sets))
	sources := make([]string, 0, len(sets))

	row := 0
	for _, d := range sets {
		_, dxc := d.X.Dims()
		_, dyc := d.YNoisy.Dims()
		if dxc != xc || dyc != yc {
			return nil, fmt.Errorf("dataset %s dimensions do not match pool: [%d, %d] vs [%d, %d]",
				d.ID, dxc, dyc, xc, yc)
		}

		for i := 0; i < d.Len(); i++ {
			for j := 0; j < xc; j++ {
				x.Set(row, j, d.X.At(i, j))
			}
			for j := 0; j < yc; j++ {
				y.Set(row, j, d.YNoisy.At(i, j))
			}
			row++
		}

		level := make([]float64, len(d.NoiseLevel))
		copy(level, d.NoiseLevel)
		levels = append(levels, level)
		sources = append(sources, d.ID)
	}

	return &Pooled{
		ID:          id,
		X:           x,
		YNoisy:      y,
		NoiseLevels: levels,
		Sources:     sources,
	}, nil
}

// Len returns the number of pooled samples.
func (p *Pooled) Len() int {
	r, _ := p.X.Dims()
	return r
}
