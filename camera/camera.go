package camera

import (
	"errors"
	"fmt"

	"github.com/macoska/vpc-switched-motion/pose"
	"gonum.org/v1/gonum/mat"
)

// ErrBehindCamera is returned when a feature point projects at or behind the camera plane.
var ErrBehindCamera = errors.New("degenerate projection: feature point depth <= 0")

// FeaturePoints is a fixed constellation of target-frame 3D feature points.
type FeaturePoints struct {
	pts *mat.Dense
}

// NewFeaturePoints creates a new feature point set from an N x 3 matrix of
// target-frame coordinates. It returns error if fewer than 3 points are given
// or if all points are collinear.
func NewFeaturePoints(pts *mat.Dense) (*FeaturePoints, error) {
	if pts == nil {
		return nil, fmt.Errorf("no feature points supplied")
	}

	n, c := pts.Dims()
	if c != 3 {
		return nil, fmt.Errorf("invalid feature point dimensions: [%d x %d]", n, c)
	}

	if n < 3 {
		return nil, fmt.Errorf("insufficient feature points: %d", n)
	}

	if collinear(pts) {
		return nil, fmt.Errorf("feature points are collinear")
	}

	p := &mat.Dense{}
	p.CloneFrom(pts)

	return &FeaturePoints{pts: p}, nil
}

// Len returns the number of feature points.
func (fp *FeaturePoints) Len() int {
	n, _ := fp.pts.Dims()
	return n
}

// At returns feature point i in target-frame coordinates.
func (fp *FeaturePoints) At(i int) mat.Vector {
	return mat.NewVecDense(3, []float64{fp.pts.At(i, 0), fp.pts.At(i, 1), fp.pts.At(i, 2)})
}

// Pinhole is a pinhole projection model with a fixed focal length.
// The camera looks along the positive Z axis of its own frame.
type Pinhole struct {
	// FocalLength is the pinhole focal length
	FocalLength float64
}

// NewPinhole creates a new pinhole camera model and returns it.
// It returns error if the focal length is non-positive.
func NewPinhole(focal float64) (*Pinhole, error) {
	if focal <= 0 {
		return nil, fmt.Errorf("invalid focal length: %g", focal)
	}

	return &Pinhole{FocalLength: focal}, nil
}

// Project projects the feature points through the relative pose rel
// (target frame to camera frame) into image-plane coordinates and returns
// them stacked as a 2N-vector (u_0, v_0, u_1, v_1, ...).
//
// It returns ErrBehindCamera if any transformed point has depth at or
// below zero; a degenerate projection invalidates the measurement model
// and must abort the run rather than be clipped.
func (c *Pinhole) Project(rel *pose.Pose, fp *FeaturePoints) (mat.Vector, error) {
	n := fp.Len()
	out := mat.NewVecDense(2*n, nil)

	for i := 0; i < n; i++ {
		pt, err := rel.TransformPoint(fp.At(i))
		if err != nil {
			return nil, err
		}

		depth := pt.AtVec(2)
		if depth <= 0 {
			return nil, fmt.Errorf("%w: point %d depth %g", ErrBehindCamera, i, depth)
		}

		out.SetVec(2*i, c.FocalLength*pt.AtVec(0)/depth)
		out.SetVec(2*i+1, c.FocalLength*pt.AtVec(1)/depth)
	}

	return out, nil
}

// collinear reports whether all points lie on a single line.
func collinear(pts *mat.Dense) bool {
	n, _ := pts.Dims()

	// direction of the first distinct pair
	var d mat.VecDense
	d.SubVec(pts.RowView(1), pts.RowView(0))

	for i := 2; i < n; i++ {
		var e mat.VecDense
		e.SubVec(pts.RowView(i), pts.RowView(0))

		var cross mat.VecDense
		cross.CloneFromVec(mat.NewVecDense(3, []float64{
			d.AtVec(1)*e.AtVec(2) - d.AtVec(2)*e.AtVec(1),
			d.AtVec(2)*e.AtVec(0) - d.AtVec(0)*e.AtVec(2),
			d.AtVec(0)*e.AtVec(1) - d.AtVec(1)*e.AtVec(0),
		}))

		if mat.Norm(&cross, 2) > 1e-12 {
			return false
		}
	}

	return true
}
