package sim

import (
	"fmt"
	"math"

	vpc "github.com/macoska/vpc-switched-motion"
	"github.com/macoska/vpc-switched-motion/pose"
	"gonum.org/v1/gonum/mat"
)

// VanDerPol is a Van der Pol oscillator driving a planar limit cycle which is
// embedded into a world-frame translation through an offset and a scale.
//
//	dz1/dt = v * z2
//	dz2/dt = v * (eta*(1 - z1^2)*z2 - z1)
type VanDerPol struct {
	// Eta is the nonlinear damping parameter
	Eta float64
	// V is the time-scale parameter
	V float64
	// Offset shifts the limit cycle in the world frame
	Offset mat.Vector
	// Scale scales the limit cycle into world units
	Scale float64
}

// NewVanDerPol creates new Van der Pol dynamics and returns it.
// It returns error if the time scale or the spatial scale is non-positive
// or if offset is not a 3-vector.
func NewVanDerPol(eta, v float64, offset mat.Vector, scale float64) (*VanDerPol, error) {
	if v <= 0 {
		return nil, fmt.Errorf("invalid time-scale parameter: %g", v)
	}

	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale parameter: %g", scale)
	}

	if offset.Len() != 3 {
		return nil, fmt.Errorf("invalid offset dimension: %d", offset.Len())
	}

	off := &mat.VecDense{}
	off.CloneFromVec(offset)

	return &VanDerPol{Eta: eta, V: v, Offset: off, Scale: scale}, nil
}

// Derivative returns the oscillator state derivative at time t.
func (vdp *VanDerPol) Derivative(x mat.Vector, t float64) (mat.Vector, error) {
	if x.Len() != vdp.StateDim() {
		return nil, fmt.Errorf("invalid state dimension: %d", x.Len())
	}

	z1, z2 := x.AtVec(0), x.AtVec(1)

	return mat.NewVecDense(2, []float64{
		vdp.V * z2,
		vdp.V * (vdp.Eta*(1.0-z1*z1)*z2 - z1),
	}), nil
}

// StateDim returns the oscillator state vector length.
func (vdp *VanDerPol) StateDim() int { return 2 }

// Position embeds oscillator state x into a world-frame translation.
func (vdp *VanDerPol) Position(x mat.Vector) mat.Vector {
	p := mat.NewVecDense(3, []float64{x.AtVec(0), x.AtVec(1), 0})
	p.ScaleVec(vdp.Scale, p)
	p.AddVec(p, vdp.Offset)

	return p
}

// Velocity returns the world-frame translational velocity for oscillator state x.
func (vdp *VanDerPol) Velocity(x mat.Vector, t float64) (mat.Vector, error) {
	dx, err := vdp.Derivative(x, t)
	if err != nil {
		return nil, err
	}

	v := mat.NewVecDense(3, []float64{dx.AtVec(0), dx.AtVec(1), 0})
	v.ScaleVec(vdp.Scale, v)

	return v, nil
}

// Generate integrates the target dynamics over the horizon with fixed timestep dt
// and returns the resulting trajectory. The target keeps the orientation of the
// initial pose; its body-frame twist is the world velocity rotated into the body
// frame with zero angular part.
//
// It returns error if the horizon or timestep is invalid or if integration
// diverges (non-finite state).
func Generate(vdp *VanDerPol, integ vpc.Integrator, init *pose.Pose, x0 mat.Vector, horizon, dt float64) (*Trajectory, error) {
	if horizon <= 0 || dt <= 0 || dt > horizon {
		return nil, fmt.Errorf("invalid horizon/timestep: %g/%g", horizon, dt)
	}

	if x0.Len() != vdp.StateDim() {
		return nil, fmt.Errorf("invalid initial state dimension: %d", x0.Len())
	}

	steps := int(math.Round(horizon/dt)) + 1
	trj := NewTrajectory(steps, dt)

	r := init.Rotation()
	rT := new(mat.Dense)
	rT.CloneFrom(r.T())

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	for i := 0; i < steps; i++ {
		t := float64(i) * dt

		vw, err := vdp.Velocity(x, t)
		if err != nil {
			return nil, err
		}

		// body-frame linear velocity
		vb := new(mat.VecDense)
		vb.MulVec(rT, vw)

		tw, err := pose.NewTwist(mat.NewVecDense(6, []float64{
			vb.AtVec(0), vb.AtVec(1), vb.AtVec(2), 0, 0, 0,
		}))
		if err != nil {
			return nil, err
		}

		p, err := pose.New(r, vdp.Position(x))
		if err != nil {
			return nil, err
		}

		trj.Append(t, p, tw)

		if i == steps-1 {
			break
		}

		next, err := integ.Step(vdp, x, t, dt)
		if err != nil {
			return nil, err
		}
		x.CloneFromVec(next)
	}

	return trj, nil
}
