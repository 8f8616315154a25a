package vpc

import "gonum.org/v1/gonum/mat"

// Dynamics is a continuous-time dynamical system.
type Dynamics interface {
	// Derivative returns the state derivative at time t
	Derivative(x mat.Vector, t float64) (mat.Vector, error)
	// StateDim returns the state vector length
	StateDim() int
}

// Integrator propagates the state of a dynamical system by a fixed timestep.
type Integrator interface {
	// Step advances state x of dyn by timestep dt starting at time t
	Step(dyn Dynamics, x mat.Vector, t, dt float64) (mat.Vector, error)
}

// Estimate is an observer state estimate.
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
}
