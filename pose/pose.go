package pose

import (
	"fmt"
	"math"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// orthoTol is the maximum allowed deviation of R'R from identity.
const orthoTol = 1e-6

// Pose is a rigid-body transform: an orthonormal rotation matrix R and a translation vector t.
type Pose struct {
	// r is the 3x3 rotation block
	r *mat.Dense
	// t is the translation vector
	t *mat.VecDense
}

// New creates a new Pose from rotation matrix r and translation t.
// It returns error if r is not 3x3 orthonormal with unit determinant or if t is not a 3-vector.
func New(r mat.Matrix, t mat.Vector) (*Pose, error) {
	rr, rc := r.Dims()
	if rr != 3 || rc != 3 {
		return nil, fmt.Errorf("invalid rotation dimensions: [%d x %d]", rr, rc)
	}

	if t.Len() != 3 {
		return nil, fmt.Errorf("invalid translation dimension: %d", t.Len())
	}

	R := &mat.Dense{}
	R.CloneFrom(r)

	if err := checkRotation(R); err != nil {
		return nil, err
	}

	T := &mat.VecDense{}
	T.CloneFromVec(t)

	return &Pose{r: R, t: T}, nil
}

// Identity creates a new identity Pose.
func Identity() *Pose {
	eye, _ := matrix.NewDenseValIdentity(3, 1.0)

	return &Pose{
		r: eye,
		t: mat.NewVecDense(3, nil),
	}
}

// Rotation returns the rotation block of the pose.
func (p *Pose) Rotation() mat.Matrix {
	r := &mat.Dense{}
	r.CloneFrom(p.r)

	return r
}

// Translation returns the translation vector of the pose.
func (p *Pose) Translation() mat.Vector {
	t := &mat.VecDense{}
	t.CloneFromVec(p.t)

	return t
}

// Homogeneous returns the pose as a 4x4 homogeneous transform.
func (p *Pose) Homogeneous() mat.Matrix {
	h := mat.NewDense(4, 4, nil)
	h.Slice(0, 3, 0, 3).(*mat.Dense).Copy(p.r)
	for i := 0; i < 3; i++ {
		h.Set(i, 3, p.t.AtVec(i))
	}
	h.Set(3, 3, 1.0)

	return h
}

// Compose returns the pose p*q, i.e. q expressed through p.
func (p *Pose) Compose(q *Pose) *Pose {
	r := new(mat.Dense)
	r.Mul(p.r, q.r)

	t := new(mat.VecDense)
	t.MulVec(p.r, q.t)
	t.AddVec(t, p.t)

	return &Pose{r: r, t: t}
}

// Inverse returns the inverse transform of the pose.
func (p *Pose) Inverse() *Pose {
	r := new(mat.Dense)
	r.CloneFrom(p.r.T())

	t := new(mat.VecDense)
	t.MulVec(r, p.t)
	t.ScaleVec(-1.0, t)

	return &Pose{r: r, t: t}
}

// TransformPoint maps a point given in the pose's source frame into its target frame.
func (p *Pose) TransformPoint(pt mat.Vector) (mat.Vector, error) {
	if pt.Len() != 3 {
		return nil, fmt.Errorf("invalid point dimension: %d", pt.Len())
	}

	out := new(mat.VecDense)
	out.MulVec(p.r, pt)
	out.AddVec(out, p.t)

	return out, nil
}

// Integrate advances the pose by body-frame twist tw over timestep dt using the
// exponential map: the rotation is advanced by exp of the skew of the angular part
// and the translation by the rotated linear part. The rotation block is
// renormalized after the step so the orthonormality invariant holds across
// arbitrarily long integration runs.
func (p *Pose) Integrate(tw *Twist, dt float64) *Pose {
	v := tw.Linear()
	w := tw.Angular()

	// translation: t' = t + R*v*dt
	dv := new(mat.VecDense)
	dv.MulVec(p.r, v)
	dv.ScaleVec(dt, dv)

	t := new(mat.VecDense)
	t.AddVec(p.t, dv)

	// rotation: R' = R * exp(hat(w)*dt)
	dw := new(mat.VecDense)
	dw.ScaleVec(dt, w)

	r := new(mat.Dense)
	r.Mul(p.r, expSO3(dw))
	renormalize(r)

	return &Pose{r: r, t: t}
}

// OrthoError returns the Frobenius norm of R'R - I for the pose rotation block.
func (p *Pose) OrthoError() float64 {
	var g mat.Dense
	g.Mul(p.r.T(), p.r)

	eye, _ := matrix.NewDenseValIdentity(3, 1.0)
	g.Sub(&g, eye)

	return mat.Norm(&g, 2)
}

// Adjoint returns the 6x6 adjoint of the pose, mapping body-frame twists
// into the pose's target frame.
func (p *Pose) Adjoint() mat.Matrix {
	adj := mat.NewDense(6, 6, nil)
	adj.Slice(0, 3, 0, 3).(*mat.Dense).Copy(p.r)
	adj.Slice(3, 6, 3, 6).(*mat.Dense).Copy(p.r)

	tr := new(mat.Dense)
	tr.Mul(HatSO3(p.t), p.r)
	adj.Slice(0, 3, 3, 6).(*mat.Dense).Copy(tr)

	return adj
}

// HatSO3 returns the 3x3 skew-symmetric matrix of a 3-vector.
func HatSO3(w mat.Vector) mat.Matrix {
	return mat.NewDense(3, 3, []float64{
		0, -w.AtVec(2), w.AtVec(1),
		w.AtVec(2), 0, -w.AtVec(0),
		-w.AtVec(1), w.AtVec(0), 0,
	})
}

// VeeSO3 returns the 3-vector of a skew-symmetric matrix.
func VeeSO3(m mat.Matrix) mat.Vector {
	return mat.NewVecDense(3, []float64{
		m.At(2, 1),
		m.At(0, 2),
		m.At(1, 0),
	})
}

// expSO3 returns the matrix exponential of hat(w) via the Rodrigues formula.
func expSO3(w mat.Vector) *mat.Dense {
	theta := math.Hypot(math.Hypot(w.AtVec(0), w.AtVec(1)), w.AtVec(2))

	hat := HatSO3(w)
	hat2 := new(mat.Dense)
	hat2.Mul(hat, hat)

	// series coefficients, stable near theta = 0
	var a, b float64
	if theta < 1e-10 {
		a = 1.0 - theta*theta/6.0
		b = 0.5 - theta*theta/24.0
	} else {
		a = math.Sin(theta) / theta
		b = (1.0 - math.Cos(theta)) / (theta * theta)
	}

	out, _ := matrix.NewDenseValIdentity(3, 1.0)

	term := new(mat.Dense)
	term.Scale(a, hat)
	out.Add(out, term)

	term.Scale(b, hat2)
	out.Add(out, term)

	return out
}

// renormalize projects r onto the nearest rotation matrix via SVD.
func renormalize(r *mat.Dense) {
	var svd mat.SVD
	if ok := svd.Factorize(r, mat.SVDFull); !ok {
		return
	}

	u, v := new(mat.Dense), new(mat.Dense)
	svd.UTo(u)
	svd.VTo(v)

	r.Mul(u, v.T())

	// keep det(R) = +1
	if mat.Det(r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(u, v.T())
	}
}

func checkRotation(r *mat.Dense) error {
	var g mat.Dense
	g.Mul(r.T(), r)

	eye, _ := matrix.NewDenseValIdentity(3, 1.0)
	g.Sub(&g, eye)

	if mat.Norm(&g, 2) > orthoTol {
		return fmt.Errorf("rotation matrix is not orthonormal: ||R'R - I|| = %g", mat.Norm(&g, 2))
	}

	if d := mat.Det(r); math.Abs(d-1.0) > orthoTol {
		return fmt.Errorf("rotation matrix determinant is not 1: %g", d)
	}

	return nil
}
