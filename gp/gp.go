// Package gp fits squared-exponential ARD covariance hyperparameters to GP
// training data by maximizing the log marginal likelihood.
package gp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotPositiveDefinite is returned when the Gram matrix fails Cholesky
	// factorization even after the bounded jitter retries.
	ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")
	// ErrNoConvergence is returned when the optimizer fails to improve the
	// likelihood or the hyperparameters drift non-finite.
	ErrNoConvergence = errors.New("hyperparameter optimization did not converge")
)

// Hyperparameters holds fitted SEard covariance hyperparameters.
// All values are strictly positive for a valid fit.
type Hyperparameters struct {
	// LengthScales is one ARD length-scale per input dimension
	LengthScales []float64 `json:"length_scales"`
	// SignalVar is the signal variance
	SignalVar float64 `json:"signal_variance"`
	// NoiseVar is the observation noise variance
	NoiseVar float64 `json:"noise_variance"`
}

// Valid reports whether all hyperparameters are strictly positive and finite.
func (hp *Hyperparameters) Valid() bool {
	for _, l := range hp.LengthScales {
		if !(l > 0) || !finite(l) {
			return false
		}
	}

	return hp.SignalVar > 0 && finite(hp.SignalVar) &&
		hp.NoiseVar > 0 && finite(hp.NoiseVar)
}

// String implements the Stringer interface.
func (hp *Hyperparameters) String() string {
	return fmt.Sprintf("Hyperparameters{\nLengthScales=%v\nSignalVar=%v\nNoiseVar=%v\n}",
		hp.LengthScales, hp.SignalVar, hp.NoiseVar)
}

// FitMode selects how the output channels share covariance hyperparameters.
type FitMode int

const (
	// FitJoint fits one hyperparameter set shared by all output channels
	FitJoint FitMode = iota
	// FitPerChannel fits an independent hyperparameter set per output channel
	FitPerChannel
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
