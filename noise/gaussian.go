package noise

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Injector adds independent zero-mean Gaussian noise to velocity targets,
// one standard-deviation parameter per output channel. Each element is
// perturbed by sigma^2 * N(0,1) for its channel's sigma.
type Injector struct {
	// stddev is the per-channel noise standard deviation
	stddev []float64
	// dist is the unit normal distribution
	dist distuv.Normal
	// seed is the random source seed
	seed uint64
}

// NewInjector creates new noise Injector with per-channel standard deviations
// stddev and an explicit random seed. The same seed with the same inputs
// reproduces identical noisy outputs byte for byte; callers wanting distinct
// datasets across runs must vary the seed themselves.
// It returns error if stddev is empty or contains a negative entry.
func NewInjector(stddev []float64, seed uint64) (*Injector, error) {
	if len(stddev) == 0 {
		return nil, fmt.Errorf("empty noise level vector")
	}

	for i, s := range stddev {
		if s < 0 {
			return nil, fmt.Errorf("negative noise level for channel %d: %g", i, s)
		}
	}

	sd := make([]float64, len(stddev))
	copy(sd, stddev)

	return &Injector{
		stddev: sd,
		dist: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
		seed: seed,
	}, nil
}

// StdDev returns the per-channel noise standard deviations.
func (n *Injector) StdDev() []float64 {
	sd := make([]float64, len(n.stddev))
	copy(sd, n.stddev)

	return sd
}

// Inject returns a copy of y with channel noise added to every element:
// noisy[i][j] = y[i][j] + stddev[j]^2 * N(0,1).
// It returns error if the number of columns of y does not match the noise
// level vector.
func (n *Injector) Inject(y *mat.Dense) (*mat.Dense, error) {
	if y == nil {
		return nil, fmt.Errorf("no output matrix supplied")
	}

	r, c := y.Dims()
	if c != len(n.stddev) {
		return nil, fmt.Errorf("invalid output dimensions: [%d x %d], noise channels: %d", r, c, len(n.stddev))
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s := n.stddev[j]
			out.Set(i, j, y.At(i, j)+s*s*n.dist.Rand())
		}
	}

	return out, nil
}

// Reset reseeds the injector with its original seed so the next Inject call
// reproduces the same noise sequence.
func (n *Injector) Reset() {
	n.dist.Src = rand.NewSource(n.seed)
}

// String implements the Stringer interface.
func (n *Injector) String() string {
	return fmt.Sprintf("Injector{\nStdDev=%v\nSeed=%d\n}", n.stddev, n.seed)
}
