// Package dataset extracts GP training samples from simulated trajectories:
// deterministic subsampling of (position, velocity) pairs over a time window,
// noise injection and pooling of per-trajectory datasets.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/macoska/vpc-switched-motion/noise"
	"github.com/macoska/vpc-switched-motion/sim"
	"gonum.org/v1/gonum/mat"
)

// ErrOutOfRange is returned when the sampling window or count exceeds the recorded trajectory.
var ErrOutOfRange = errors.New("sampling window out of trajectory range")

// Dataset is an ordered set of (position, velocity) samples drawn from one
// trajectory, together with the injected noise level and the source trajectory.
type Dataset struct {
	// ID identifies the source trajectory in error reports and stored records
	ID string
	// X is the M x 3 input position matrix
	X *mat.Dense
	// Y is the M x 6 clean velocity twist matrix
	Y *mat.Dense
	// YNoisy is the M x 6 noise-injected velocity twist matrix
	YNoisy *mat.Dense
	// NoiseLevel is the per-channel noise standard deviation
	NoiseLevel []float64
	// Indices are the sampled trajectory step indices
	Indices []int
	// Trajectory is the full source trajectory
	Trajectory *sim.Trajectory
}

// SampleIndices returns m strictly increasing trajectory step indices spaced
// evenly across the window [tStart, tEnd], each rounded up to the nearest
// available simulation step of size dt.
// It returns error if the window is empty, dt is non-positive, m is
// non-positive or the even spacing collapses below the step size.
func SampleIndices(tStart, tEnd float64, m int, dt float64) ([]int, error) {
	if m <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", m)
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid timestep: %g", dt)
	}

	if tEnd <= tStart {
		return nil, fmt.Errorf("invalid sampling window: [%g, %g]", tStart, tEnd)
	}

	spacing := (tEnd - tStart) / float64(m)

	indices := make([]int, m)
	for k := 0; k < m; k++ {
		t := tStart + float64(k)*spacing
		indices[k] = int(math.Ceil(t / dt))
		if k > 0 && indices[k] <= indices[k-1] {
			return nil, fmt.Errorf("%w: %d samples collapse onto step %d (dt %g)", ErrOutOfRange, m, indices[k], dt)
		}
	}

	return indices, nil
}

// New draws m evenly spaced (position, velocity) samples from trj over the
// window [tStart, tEnd] and returns them as a Dataset identified by id.
// It returns ErrOutOfRange if the window lies outside the recorded trajectory
// or if m exceeds the available steps in the window.
func New(id string, trj *sim.Trajectory, tStart, tEnd float64, m int) (*Dataset, error) {
	if trj == nil || trj.Len() == 0 {
		return nil, fmt.Errorf("empty trajectory: %s", id)
	}

	last := trj.Time(trj.Len() - 1)
	if tStart < trj.Time(0) || tEnd > last {
		return nil, fmt.Errorf("%w: trajectory %s window [%g, %g] recorded [%g, %g]",
			ErrOutOfRange, id, tStart, tEnd, trj.Time(0), last)
	}

	available := int((tEnd-tStart)/trj.Dt()) + 1
	if m > available {
		return nil, fmt.Errorf("%w: trajectory %s requested %d samples, %d steps available",
			ErrOutOfRange, id, m, available)
	}

	indices, err := SampleIndices(tStart, tEnd, m, trj.Dt())
	if err != nil {
		return nil, fmt.Errorf("trajectory %s: %w", id, err)
	}

	if indices[m-1] >= trj.Len() {
		return nil, fmt.Errorf("%w: trajectory %s index %d exceeds length %d",
			ErrOutOfRange, id, indices[m-1], trj.Len())
	}

	x := mat.NewDense(m, 3, nil)
	y := mat.NewDense(m, 6, nil)

	for k, idx := range indices {
		p, tw, err := trj.At(idx)
		if err != nil {
			return nil, fmt.Errorf("trajectory %s: %w", id, err)
		}

		t := p.Translation()
		for j := 0; j < 3; j++ {
			x.Set(k, j, t.AtVec(j))
		}

		v := tw.Vec()
		for j := 0; j < 6; j++ {
			y.Set(k, j, v.AtVec(j))
		}
	}

	return &Dataset{
		ID:         id,
		X:          x,
		Y:          y,
		Indices:    indices,
		Trajectory: trj,
	}, nil
}

// ApplyNoise injects channel noise into the dataset outputs and records the
// injector's noise level.
// It returns error if the injector channel count does not match the outputs.
func (d *Dataset) ApplyNoise(inj *noise.Injector) error {
	noisy, err := inj.Inject(d.Y)
	if err != nil {
		return fmt.Errorf("trajectory %s: %v", d.ID, err)
	}

	d.YNoisy = noisy
	d.NoiseLevel = inj.StdDev()

	return nil
}

// Len returns the number of samples in the dataset.
func (d *Dataset) Len() int {
	r, _ := d.X.Dims()
	return r
}
