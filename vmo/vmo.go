// Package vmo implements a visual motion observer: a continuous-time nonlinear
// estimator reconstructing the relative pose and body-frame velocity of a moving
// target from pinhole feature-point measurements.
package vmo

import (
	"fmt"

	"github.com/macoska/vpc-switched-motion/camera"
	"github.com/macoska/vpc-switched-motion/pose"
	"github.com/macoska/vpc-switched-motion/sim"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// VMO is a visual motion observer.
type VMO struct {
	// cam is the pinhole projection model
	cam *camera.Pinhole
	// fp is the tracked feature point set
	fp *camera.FeaturePoints
	// gain is the 6x6 positive-definite observer gain
	gain *mat.SymDense
	// est is the estimated relative pose
	est *pose.Pose
	// vel is the estimated body-frame velocity
	vel *mat.VecDense
	// inn is the image-space innovation vector
	inn *mat.VecDense
	// jac is the image Jacobian workspace
	jac *mat.Dense
}

// New creates a new VMO and returns it.
// It accepts the following parameters:
// - cam:  pinhole projection model
// - fp:   tracked feature point set
// - gain: observer gain matrix
// - init: initial relative pose estimate
// The velocity estimate starts at zero.
// It returns error if either of the following conditions is met:
// - the gain matrix is not 6x6
// - the gain matrix is not positive definite
func New(cam *camera.Pinhole, fp *camera.FeaturePoints, gain mat.Symmetric, init *pose.Pose) (*VMO, error) {
	if gain.SymmetricDim() != 6 {
		return nil, fmt.Errorf("invalid gain dimension: %d", gain.SymmetricDim())
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gain); !ok {
		return nil, fmt.Errorf("gain matrix is not positive definite")
	}

	g := mat.NewSymDense(6, nil)
	g.CopySym(gain)

	est, err := pose.New(init.Rotation(), init.Translation())
	if err != nil {
		return nil, err
	}

	n := fp.Len()

	return &VMO{
		cam:  cam,
		fp:   fp,
		gain: g,
		est:  est,
		vel:  mat.NewVecDense(6, nil),
		inn:  mat.NewVecDense(2*n, nil),
		jac:  mat.NewDense(2*n, 6, nil),
	}, nil
}

// Update corrects the observer state with the measured feature projections y
// and advances the pose estimate by timestep dt. The innovation is the
// image-space prediction error aggregated across feature points through the
// image Jacobian; the pose estimate integrates the corrected twist
// and the velocity estimate integrates the gain-weighted error.
//
// It returns error if y has unexpected length, if the predicted projection is
// degenerate or if dt is non-positive.
func (o *VMO) Update(y mat.Vector, dt float64) (*Estimate, error) {
	if y.Len() != o.inn.Len() {
		return nil, fmt.Errorf("invalid measurement dimension: %d", y.Len())
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid timestep: %g", dt)
	}

	yHat, err := o.cam.Project(o.est, o.fp)
	if err != nil {
		return nil, err
	}

	o.inn.SubVec(y, yHat)

	if err := o.imageJacobian(); err != nil {
		return nil, err
	}

	// measurement error pulled back into twist coordinates: least-squares
	// solution of jac * e = inn across all feature points
	e := new(mat.VecDense)
	if err := e.SolveVec(o.jac, o.inn); err != nil {
		return nil, fmt.Errorf("innovation solve failed: %v", err)
	}

	ke := new(mat.VecDense)
	ke.MulVec(o.gain, e)

	// velocity estimate integrates the weighted error
	dv := new(mat.VecDense)
	dv.ScaleVec(dt, ke)
	o.vel.AddVec(o.vel, dv)

	// pose estimate integrates the corrected twist
	corr := new(mat.VecDense)
	corr.AddVec(o.vel, ke)

	tw, err := pose.NewTwist(corr)
	if err != nil {
		return nil, err
	}

	o.est = o.est.Integrate(tw, dt)

	return newEstimate(o.est, o.vel)
}

// Track runs the observer over the target trajectory trg as seen from the fixed
// observer pose obs and returns the full estimated trajectory. Each step
// projects the true relative pose into feature measurements and feeds them to
// Update.
//
// It returns error as soon as a projection degenerates or an update fails;
// a degenerate measurement invalidates the whole run.
func (o *VMO) Track(trg *sim.Trajectory, obs *pose.Pose) (*sim.Trajectory, error) {
	out := sim.NewTrajectory(trg.Len(), trg.Dt())
	obsInv := obs.Inverse()

	for i := 0; i < trg.Len(); i++ {
		p, _, err := trg.At(i)
		if err != nil {
			return nil, err
		}

		rel := obsInv.Compose(p)

		y, err := o.cam.Project(rel, o.fp)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		est, err := o.Update(y, trg.Dt())
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		tw, err := pose.NewTwist(est.Twist())
		if err != nil {
			return nil, err
		}

		out.Append(trg.Time(i), est.Pose(), tw)
	}

	return out, nil
}

// imageJacobian fills o.jac with the numeric Jacobian of the predicted feature
// projections with respect to a body-frame twist perturbation of the pose
// estimate, evaluated at zero perturbation.
func (o *VMO) imageJacobian() error {
	var projErr error

	f := func(y, x []float64) {
		tw, err := pose.NewTwist(mat.NewVecDense(6, x))
		if err != nil {
			projErr = err
			return
		}

		perturbed := o.est.Integrate(tw, 1.0)
		yv, err := o.cam.Project(perturbed, o.fp)
		if err != nil {
			projErr = err
			return
		}

		for i := range y {
			y[i] = yv.AtVec(i)
		}
	}

	fd.Jacobian(o.jac, f, make([]float64, 6), &fd.JacobianSettings{
		Formula: fd.Central,
	})

	if projErr != nil {
		return projErr
	}

	return nil
}
