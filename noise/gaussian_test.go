package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewInjector(t *testing.T) {
	assert := assert.New(t)

	n, err := NewInjector([]float64{0.1, 0.1, 0.1, 0.05, 0.05, 0.05}, 42)
	assert.NotNil(n)
	assert.NoError(err)
	assert.Equal(6, len(n.StdDev()))

	n, err = NewInjector(nil, 42)
	assert.Nil(n)
	assert.Error(err)

	n, err = NewInjector([]float64{0.1, -0.1}, 42)
	assert.Nil(n)
	assert.Error(err)
}

func TestInjectDeterministic(t *testing.T) {
	assert := assert.New(t)

	y := mat.NewDense(5, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
		9, 10,
	})

	n1, err := NewInjector([]float64{0.3, 0.7}, 7)
	assert.NoError(err)
	n2, err := NewInjector([]float64{0.3, 0.7}, 7)
	assert.NoError(err)

	out1, err := n1.Inject(y)
	assert.NoError(err)
	out2, err := n2.Inject(y)
	assert.NoError(err)

	// same seed, same inputs: identical outputs byte for byte
	assert.True(mat.Equal(out1, out2))

	// a different seed produces a different perturbation
	n3, err := NewInjector([]float64{0.3, 0.7}, 8)
	assert.NoError(err)
	out3, err := n3.Inject(y)
	assert.NoError(err)
	assert.False(mat.Equal(out1, out3))
}

func TestInjectZeroNoise(t *testing.T) {
	assert := assert.New(t)

	y := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	n, err := NewInjector([]float64{0, 0}, 1)
	assert.NoError(err)

	out, err := n.Inject(y)
	assert.NoError(err)

	// zero noise level returns the input unchanged
	assert.True(mat.Equal(y, out))
}

func TestInjectDims(t *testing.T) {
	assert := assert.New(t)

	n, err := NewInjector([]float64{0.1, 0.1, 0.1}, 1)
	assert.NoError(err)

	out, err := n.Inject(mat.NewDense(3, 2, nil))
	assert.Nil(out)
	assert.Error(err)

	out, err = n.Inject(nil)
	assert.Nil(out)
	assert.Error(err)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	n, err := NewInjector([]float64{0.5}, 99)
	assert.NoError(err)

	out1, err := n.Inject(y)
	assert.NoError(err)

	n.Reset()
	out2, err := n.Inject(y)
	assert.NoError(err)

	assert.True(mat.Equal(out1, out2))
}
