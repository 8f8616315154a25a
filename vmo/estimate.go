package vmo

import (
	"github.com/macoska/vpc-switched-motion/pose"
	"gonum.org/v1/gonum/mat"
)

// Estimate is a VMO state estimate: the estimated relative pose and the
// estimated body-frame velocity at one timestep.
type Estimate struct {
	// p is the estimated relative pose
	p *pose.Pose
	// vel is the estimated body-frame velocity
	vel *mat.VecDense
}

func newEstimate(p *pose.Pose, vel mat.Vector) (*Estimate, error) {
	ep, err := pose.New(p.Rotation(), p.Translation())
	if err != nil {
		return nil, err
	}

	v := &mat.VecDense{}
	v.CloneFromVec(vel)

	return &Estimate{p: ep, vel: v}, nil
}

// Val returns the estimated body-frame velocity as a 6-vector.
func (e *Estimate) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(e.vel)

	return v
}

// Pose returns the estimated relative pose.
func (e *Estimate) Pose() *pose.Pose {
	return e.p
}

// Twist returns the estimated body-frame velocity as a 6-vector.
func (e *Estimate) Twist() mat.Vector {
	return e.Val()
}
