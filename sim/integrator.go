package sim

import (
	"errors"
	"fmt"
	"math"

	vpc "github.com/macoska/vpc-switched-motion"
	"gonum.org/v1/gonum/mat"
)

// ErrDiverged is returned when integration produces non-finite state.
var ErrDiverged = errors.New("integration diverged: non-finite state")

// RK4 is a fixed-step 4th order Runge-Kutta integrator.
type RK4 struct{}

// NewRK4 creates a new RK4 integrator and returns it.
func NewRK4() *RK4 {
	return &RK4{}
}

// Step advances state x of dyn by timestep dt starting at time t.
// It returns error if dt is non-positive, if dyn rejects the state or
// if the next state is non-finite.
func (r *RK4) Step(dyn vpc.Dynamics, x mat.Vector, t, dt float64) (mat.Vector, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid timestep: %g", dt)
	}

	k1, err := dyn.Derivative(x, t)
	if err != nil {
		return nil, err
	}

	k2, err := dyn.Derivative(stageState(x, k1, dt/2), t+dt/2)
	if err != nil {
		return nil, err
	}

	k3, err := dyn.Derivative(stageState(x, k2, dt/2), t+dt/2)
	if err != nil {
		return nil, err
	}

	k4, err := dyn.Derivative(stageState(x, k3, dt), t+dt)
	if err != nil {
		return nil, err
	}

	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		inc := (k1.AtVec(i) + 2*k2.AtVec(i) + 2*k3.AtVec(i) + k4.AtVec(i)) / 6.0
		next := x.AtVec(i) + dt*inc
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return nil, fmt.Errorf("%w: component %d at t=%g", ErrDiverged, i, t)
		}
		out.SetVec(i, next)
	}

	return out, nil
}

func stageState(x, k mat.Vector, h float64) mat.Vector {
	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.SetVec(i, x.AtVec(i)+h*k.AtVec(i))
	}

	return out
}
