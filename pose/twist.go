package pose

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Twist is a body-frame velocity: linear velocity in the first three
// components, angular velocity in the last three.
type Twist struct {
	vec *mat.VecDense
}

// NewTwist creates a new Twist from a 6-vector.
// It returns error if v is not a 6-vector.
func NewTwist(v mat.Vector) (*Twist, error) {
	if v.Len() != 6 {
		return nil, fmt.Errorf("invalid twist dimension: %d", v.Len())
	}

	vec := &mat.VecDense{}
	vec.CloneFromVec(v)

	return &Twist{vec: vec}, nil
}

// ZeroTwist creates a new zero Twist.
func ZeroTwist() *Twist {
	return &Twist{vec: mat.NewVecDense(6, nil)}
}

// Vec returns the twist as a 6-vector.
func (tw *Twist) Vec() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(tw.vec)

	return v
}

// Linear returns the linear velocity part of the twist.
func (tw *Twist) Linear() mat.Vector {
	return mat.NewVecDense(3, []float64{tw.vec.AtVec(0), tw.vec.AtVec(1), tw.vec.AtVec(2)})
}

// Angular returns the angular velocity part of the twist.
func (tw *Twist) Angular() mat.Vector {
	return mat.NewVecDense(3, []float64{tw.vec.AtVec(3), tw.vec.AtVec(4), tw.vec.AtVec(5)})
}
