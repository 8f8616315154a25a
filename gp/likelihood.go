package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// likelihood evaluates the negative log marginal likelihood and its gradient
// in log-hyperparameter space for outputs sharing one Gram matrix.
type likelihood struct {
	kern *SEard
	x    *mat.Dense
	y    *mat.Dense
	// sqdist[d] holds the squared per-dimension input differences, row-major
	sqdist [][]float64
	n      int
	c      int
}

func newLikelihood(kern *SEard, x, y *mat.Dense) *likelihood {
	n, d := x.Dims()
	_, c := y.Dims()

	sqdist := make([][]float64, d)
	for dim := 0; dim < d; dim++ {
		sq := make([]float64, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				r := x.At(i, dim) - x.At(j, dim)
				sq[i*n+j] = r * r
			}
		}
		sqdist[dim] = sq
	}

	return &likelihood{kern: kern, x: x, y: y, sqdist: sqdist, n: n, c: c}
}

// eval computes the negative log marginal likelihood at log-parameters p and,
// when wantGrad is set, its gradient. It reports ok=false when the Gram matrix
// cannot be factorized at p even with jitter.
func (l *likelihood) eval(p []float64, wantGrad bool) (float64, []float64, bool) {
	d := l.kern.Dim()
	n := l.n

	ls2 := make([]float64, d)
	for i := 0; i < d; i++ {
		ls2[i] = math.Exp(2 * p[i])
	}
	sf2 := math.Exp(2 * p[d])
	sn2 := math.Exp(2 * p[d+1])

	if !finite(sf2) || !finite(sn2) {
		return 0, nil, false
	}

	// noise-free Gram matrix
	kf := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := 0.0
			for dim := 0; dim < d; dim++ {
				s += l.sqdist[dim][i*n+j] / ls2[dim]
			}
			kf.SetSym(i, j, sf2*math.Exp(-s/2))
		}
	}

	chol, _, err := factorize(kf, sn2)
	if err != nil {
		return 0, nil, false
	}

	logDet := chol.LogDet()

	// alpha_c = K^-1 y_c per channel
	alphas := make([]*mat.VecDense, l.c)
	lml := 0.0
	for ch := 0; ch < l.c; ch++ {
		yc := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			yc.SetVec(i, l.y.At(i, ch))
		}

		alpha := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(alpha, yc); err != nil {
			return 0, nil, false
		}
		alphas[ch] = alpha

		lml += -0.5*mat.Dot(yc, alpha) - 0.5*logDet - 0.5*float64(n)*log2Pi
	}

	if !finite(lml) {
		return 0, nil, false
	}

	if !wantGrad {
		return -lml, nil, true
	}

	var kinv mat.SymDense
	if err := chol.InverseTo(&kinv); err != nil {
		return 0, nil, false
	}

	// W = sum_c alpha_c alpha_c' - C * K^-1
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s := -float64(l.c) * kinv.At(i, j)
			for ch := 0; ch < l.c; ch++ {
				s += alphas[ch].AtVec(i) * alphas[ch].AtVec(j)
			}
			w.Set(i, j, s)
		}
	}

	grad := make([]float64, d+2)

	// d lml / d log(l_dim) = 1/2 sum_ij W_ij Kf_ij sqdist_ij / l_dim^2
	for dim := 0; dim < d; dim++ {
		g := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				g += w.At(i, j) * kf.At(i, j) * l.sqdist[dim][i*n+j] / ls2[dim]
			}
		}
		grad[dim] = -0.5 * g
	}

	// d lml / d log(sf) = sum_ij W_ij Kf_ij
	gsf := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gsf += w.At(i, j) * kf.At(i, j)
		}
	}
	grad[d] = -gsf

	// d lml / d log(sn) = sn^2 tr(W)
	tr := 0.0
	for i := 0; i < n; i++ {
		tr += w.At(i, i)
	}
	grad[d+1] = -sn2 * tr

	return -lml, grad, true
}
