package store

import (
	"testing"

	"github.com/macoska/vpc-switched-motion/dataset"
	"github.com/macoska/vpc-switched-motion/gp"
	"github.com/macoska/vpc-switched-motion/noise"
	"github.com/macoska/vpc-switched-motion/pose"
	"github.com/macoska/vpc-switched-motion/sim"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func makeDataset(t *testing.T, id string) *dataset.Dataset {
	vdp, err := sim.NewVanDerPol(0.5, 1.0, mat.NewVecDense(3, []float64{0, 0, 2}), 1.0)
	assert.NoError(t, err)

	trj, err := sim.Generate(vdp, sim.NewRK4(), pose.Identity(), mat.NewVecDense(2, []float64{1, 0}), 20.0, 0.01)
	assert.NoError(t, err)

	d, err := dataset.New(id, trj, 7.0, 13.0, 10)
	assert.NoError(t, err)

	inj, err := noise.NewInjector([]float64{0.1, 0.1, 0.1, 0.05, 0.05, 0.05}, 42)
	assert.NoError(t, err)
	assert.NoError(t, d.ApplyNoise(inj))

	return d
}

func TestNewFileStore(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFileStore(t.TempDir())
	assert.NotNil(s)
	assert.NoError(err)

	s, err = NewFileStore("")
	assert.Nil(s)
	assert.Error(err)
}

func TestSaveLoad(t *testing.T) {
	assert := assert.New(t)

	s, err := NewFileStore(t.TempDir())
	assert.NoError(err)

	d := makeDataset(t, "vdp-1")

	hp := &gp.Hyperparameters{LengthScales: []float64{1, 2, 3}, SignalVar: 1.5, NoiseVar: 0.01}
	rec := NewRecord(d, &gp.Result{Mode: gp.FitJoint, Joint: hp})

	assert.Equal("vdp-1", rec.ID)
	assert.Equal(10, len(rec.X))
	assert.Equal(3, len(rec.X[0]))
	assert.Equal(10, len(rec.YNoisy))
	assert.Equal(6, len(rec.YNoisy[0]))
	assert.NotEmpty(rec.XFull)

	assert.NoError(s.Save(rec))

	got, err := s.Load("vdp-1")
	assert.NoError(err)
	assert.Equal(rec.ID, got.ID)
	assert.Equal(rec.X, got.X)
	assert.Equal(rec.YNoisy, got.YNoisy)
	assert.Equal(rec.NoiseLevel, got.NoiseLevel)
	assert.Equal(hp.LengthScales, got.Hyperparameters.LengthScales)
	assert.Equal(hp.SignalVar, got.Hyperparameters.SignalVar)

	// nameless record is rejected
	assert.Error(s.Save(&Record{}))

	// unknown records are reported
	got, err = s.Load("missing")
	assert.Nil(got)
	assert.Error(err)
}

func TestPooledRecord(t *testing.T) {
	assert := assert.New(t)

	d1 := makeDataset(t, "vdp-1")
	d2 := makeDataset(t, "vdp-2")

	p, err := dataset.Pool("pooled", d1, d2)
	assert.NoError(err)

	hp := &gp.Hyperparameters{LengthScales: []float64{1, 1, 1}, SignalVar: 1.0, NoiseVar: 0.01}
	rec := NewPooledRecord(p, &gp.Result{Mode: gp.FitJoint, Joint: hp})

	assert.Equal("pooled", rec.ID)
	assert.Equal(20, len(rec.X))
	assert.Equal([]string{"vdp-1", "vdp-2"}, rec.Sources)
	assert.Equal(2, len(rec.NoiseLevels))

	s, err := NewFileStore(t.TempDir())
	assert.NoError(err)
	assert.NoError(s.Save(rec))

	got, err := s.Load("pooled")
	assert.NoError(err)
	assert.Equal(rec.X, got.X)
	assert.Equal(rec.Sources, got.Sources)
}
