package camera

import (
	"errors"
	"testing"

	"github.com/macoska/vpc-switched-motion/pose"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func featureSquare() *mat.Dense {
	// unit square in the target XY plane
	return mat.NewDense(4, 3, []float64{
		0.5, 0.5, 0,
		-0.5, 0.5, 0,
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
	})
}

func TestNewFeaturePoints(t *testing.T) {
	assert := assert.New(t)

	fp, err := NewFeaturePoints(featureSquare())
	assert.NotNil(fp)
	assert.NoError(err)
	assert.Equal(4, fp.Len())

	fp, err = NewFeaturePoints(nil)
	assert.Nil(fp)
	assert.Error(err)

	fp, err = NewFeaturePoints(mat.NewDense(2, 3, nil))
	assert.Nil(fp)
	assert.Error(err)

	fp, err = NewFeaturePoints(mat.NewDense(3, 2, nil))
	assert.Nil(fp)
	assert.Error(err)

	// collinear points are rejected
	line := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1, 1, 1,
		2, 2, 2,
	})
	fp, err = NewFeaturePoints(line)
	assert.Nil(fp)
	assert.Error(err)
}

func TestNewPinhole(t *testing.T) {
	assert := assert.New(t)

	c, err := NewPinhole(20.0)
	assert.NotNil(c)
	assert.NoError(err)

	c, err = NewPinhole(0.0)
	assert.Nil(c)
	assert.Error(err)
}

func TestProject(t *testing.T) {
	assert := assert.New(t)

	fp, err := NewFeaturePoints(featureSquare())
	assert.NoError(err)

	c, err := NewPinhole(20.0)
	assert.NoError(err)

	// target 2 units in front of the camera
	rel, err := pose.New(pose.Identity().Rotation(), mat.NewVecDense(3, []float64{0, 0, 2}))
	assert.NoError(err)

	y, err := c.Project(rel, fp)
	assert.NoError(err)
	assert.Equal(8, y.Len())

	// first corner: u = f*x/z = 20*0.5/2 = 5
	assert.InDelta(5.0, y.AtVec(0), 1e-12)
	assert.InDelta(5.0, y.AtVec(1), 1e-12)

	// doubled depth halves the image coordinates
	relFar, err := pose.New(pose.Identity().Rotation(), mat.NewVecDense(3, []float64{0, 0, 4}))
	assert.NoError(err)
	yFar, err := c.Project(relFar, fp)
	assert.NoError(err)
	assert.InDelta(y.AtVec(0)/2, yFar.AtVec(0), 1e-12)
}

func TestProjectBehindCamera(t *testing.T) {
	assert := assert.New(t)

	fp, err := NewFeaturePoints(featureSquare())
	assert.NoError(err)

	c, err := NewPinhole(20.0)
	assert.NoError(err)

	// target behind the camera plane
	rel, err := pose.New(pose.Identity().Rotation(), mat.NewVecDense(3, []float64{0, 0, -2}))
	assert.NoError(err)

	y, err := c.Project(rel, fp)
	assert.Nil(y)
	assert.True(errors.Is(err, ErrBehindCamera))

	// target exactly at the camera plane
	relZero, err := pose.New(pose.Identity().Rotation(), mat.NewVecDense(3, nil))
	assert.NoError(err)

	y, err = c.Project(relZero, fp)
	assert.Nil(y)
	assert.True(errors.Is(err, ErrBehindCamera))
}
