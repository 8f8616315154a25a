package sim

import (
	"fmt"

	"github.com/macoska/vpc-switched-motion/pose"
	"gonum.org/v1/gonum/mat"
)

// Trajectory is a time-ordered sequence of pose and body-frame twist samples
// recorded at a fixed integration step. It is read-only once generated.
type Trajectory struct {
	times  []float64
	poses  []*pose.Pose
	twists []*pose.Twist
	dt     float64
}

// NewTrajectory creates an empty trajectory recorded at fixed step dt.
func NewTrajectory(capacity int, dt float64) *Trajectory {
	return &Trajectory{
		times:  make([]float64, 0, capacity),
		poses:  make([]*pose.Pose, 0, capacity),
		twists: make([]*pose.Twist, 0, capacity),
		dt:     dt,
	}
}

// Append records a step. Producers append steps in time order; consumers treat
// the trajectory as read-only.
func (trj *Trajectory) Append(t float64, p *pose.Pose, tw *pose.Twist) {
	trj.times = append(trj.times, t)
	trj.poses = append(trj.poses, p)
	trj.twists = append(trj.twists, tw)
}

// Len returns the number of recorded steps.
func (trj *Trajectory) Len() int { return len(trj.times) }

// Dt returns the fixed integration step.
func (trj *Trajectory) Dt() float64 { return trj.dt }

// Time returns the timestamp of step i.
func (trj *Trajectory) Time(i int) float64 { return trj.times[i] }

// At returns the pose and twist recorded at step i.
// It returns error if i is out of bounds.
func (trj *Trajectory) At(i int) (*pose.Pose, *pose.Twist, error) {
	if i < 0 || i >= trj.Len() {
		return nil, nil, fmt.Errorf("trajectory index out of bounds: %d (len %d)", i, trj.Len())
	}

	return trj.poses[i], trj.twists[i], nil
}

// Positions returns the recorded translations as an L x 3 matrix.
func (trj *Trajectory) Positions() *mat.Dense {
	out := mat.NewDense(trj.Len(), 3, nil)
	for i, p := range trj.poses {
		t := p.Translation()
		for j := 0; j < 3; j++ {
			out.Set(i, j, t.AtVec(j))
		}
	}

	return out
}

// Velocities returns the recorded body-frame twists as an L x 6 matrix.
func (trj *Trajectory) Velocities() *mat.Dense {
	out := mat.NewDense(trj.Len(), 6, nil)
	for i, tw := range trj.twists {
		v := tw.Vec()
		for j := 0; j < 6; j++ {
			out.Set(i, j, v.AtVec(j))
		}
	}

	return out
}
