package gp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// jitter escalation bounds for the Cholesky factorization of the Gram matrix
const (
	baseJitter    = 1e-10
	jitterRetries = 8
)

// SEard is a squared-exponential covariance function with automatic relevance
// determination: one length-scale per input dimension plus a signal variance.
type SEard struct {
	// dim is the input dimension
	dim int
}

// NewSEard creates a new SEard covariance for inputs of the given dimension.
// It returns error if dim is non-positive.
func NewSEard(dim int) (*SEard, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid input dimension: %d", dim)
	}

	return &SEard{dim: dim}, nil
}

// Dim returns the input dimension of the covariance.
func (k *SEard) Dim() int { return k.dim }

// Cov returns the covariance between inputs a and b under hp:
// sf * exp(-1/2 * sum_d (a_d - b_d)^2 / l_d^2).
func (k *SEard) Cov(hp *Hyperparameters, a, b mat.Vector) float64 {
	s := 0.0
	for d := 0; d < k.dim; d++ {
		r := (a.AtVec(d) - b.AtVec(d)) / hp.LengthScales[d]
		s += r * r
	}

	return hp.SignalVar * math.Exp(-s/2)
}

// Gram builds the noise-free Gram matrix of the inputs x (rows are samples)
// under hp.
// It returns error if x column count does not match the covariance dimension.
func (k *SEard) Gram(x *mat.Dense, hp *Hyperparameters) (*mat.SymDense, error) {
	n, c := x.Dims()
	if c != k.dim {
		return nil, fmt.Errorf("invalid input dimensions: [%d x %d], covariance dim: %d", n, c, k.dim)
	}

	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gram.SetSym(i, j, k.Cov(hp, x.RowView(i), x.RowView(j)))
		}
	}

	return gram, nil
}

// factorize adds the noise variance and an escalating jitter to the diagonal of
// gram until Cholesky factorization succeeds. It returns the factorization and
// the jitter that was needed, or ErrNotPositiveDefinite after the bounded
// number of retries.
func factorize(gram *mat.SymDense, noiseVar float64) (*mat.Cholesky, float64, error) {
	n := gram.SymmetricDim()

	jitter := 0.0
	for retry := 0; retry <= jitterRetries; retry++ {
		ky := mat.NewSymDense(n, nil)
		ky.CopySym(gram)
		for i := 0; i < n; i++ {
			ky.SetSym(i, i, ky.At(i, i)+noiseVar+jitter)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(ky); ok {
			return &chol, jitter, nil
		}

		if jitter == 0 {
			jitter = baseJitter
		} else {
			jitter *= 10
		}
	}

	return nil, jitter, fmt.Errorf("%w: jitter exhausted at %g", ErrNotPositiveDefinite, jitter)
}
