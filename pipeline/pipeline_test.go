package pipeline

import (
	"os"
	"testing"

	"github.com/macoska/vpc-switched-motion/gp"
	"github.com/macoska/vpc-switched-motion/pose"
	"github.com/macoska/vpc-switched-motion/store"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// newConfig builds the reference scenario: gain 30*I6, focal length 20,
// a 4-point feature square and two Van der Pol parameterizations.
func newConfig() *Config {
	gain := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		gain.SetSym(i, i, 30.0)
	}

	fp := mat.NewDense(4, 3, []float64{
		0.5, 0.5, 0,
		-0.5, 0.5, 0,
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
	})

	offset := mat.NewVecDense(3, []float64{0, 0, 4})

	initPose, _ := pose.New(pose.Identity().Rotation(), mat.NewVecDense(3, []float64{0.25, 0, 4}))

	return &Config{
		Gain:          gain,
		FocalLength:   20.0,
		FeaturePoints: fp,
		ObserverPose:  pose.Identity(),
		Horizon:       20.0,
		Dt:            0.01,
		Targets: [2]Target{
			{
				ID:           "vdp-1",
				Eta:          0.5,
				V:            1.0,
				Offset:       offset,
				Scale:        0.25,
				InitPose:     pose.Identity(),
				InitState:    mat.NewVecDense(2, []float64{1, 0}),
				EstimateInit: initPose,
				WindowStart:  7.0,
				WindowEnd:    13.0,
				Samples:      30,
			},
			{
				ID:           "vdp-2",
				Eta:          1.5,
				V:            0.5,
				Offset:       offset,
				Scale:        0.25,
				InitPose:     pose.Identity(),
				InitState:    mat.NewVecDense(2, []float64{1, 0}),
				EstimateInit: initPose,
				WindowStart:  6.0,
				WindowEnd:    20.0,
				Samples:      30,
			},
		},
		NoiseStdDev: []float64{0.1, 0.1, 0.1, 0.05, 0.05, 0.05},
		Seed:        42,
		Fit:         gp.DefaultConfig(),
	}
}

func TestMain(m *testing.M) {
	retCode := m.Run()
	os.Exit(retCode)
}

func TestGenerateDatasets(t *testing.T) {
	assert := assert.New(t)

	res, err := GenerateDatasets(newConfig())
	assert.NoError(err)
	assert.NotNil(res)

	// scenario A: exactly 30 samples, strictly increasing timestamps spaced
	// about (13-7)/30 s apart
	d1 := res.Dataset1.Dataset
	assert.Equal(30, d1.Len())
	for i := 1; i < len(d1.Indices); i++ {
		assert.Greater(d1.Indices[i], d1.Indices[i-1])
		dt := res.Dataset1.Observed.Time(d1.Indices[i]) - res.Dataset1.Observed.Time(d1.Indices[i-1])
		assert.InDelta(0.2, dt, 0.011)
	}

	// scenario B: 30 samples spanning the second window
	d2 := res.Dataset2.Dataset
	assert.Equal(30, d2.Len())
	assert.GreaterOrEqual(res.Dataset2.Observed.Time(d2.Indices[0]), 6.0)
	assert.LessOrEqual(res.Dataset2.Observed.Time(d2.Indices[29]), 20.0)

	// scenario C: pooling preserves all 60 pairs in order
	p := res.Pooled.Pooled
	assert.Equal(60, p.Len())
	for i := 0; i < 30; i++ {
		assert.Equal(d1.X.At(i, 0), p.X.At(i, 0))
		assert.Equal(d2.X.At(i, 0), p.X.At(30+i, 0))
	}

	// every fit produced strictly positive hyperparameters
	for _, fit := range []*gp.Result{res.Dataset1.Fit, res.Dataset2.Fit, res.Pooled.Fit} {
		assert.NotNil(fit.Joint)
		assert.True(fit.Joint.Valid())
	}

	// the observer reproduced full-length trajectories
	assert.Equal(res.Dataset1.Target.Len(), res.Dataset1.Observed.Len())
}

func TestGenerateDatasetsDeterministic(t *testing.T) {
	assert := assert.New(t)

	res1, err := GenerateDatasets(newConfig())
	assert.NoError(err)
	res2, err := GenerateDatasets(newConfig())
	assert.NoError(err)

	// identical seed and config reproduce identical noisy outputs
	assert.True(mat.Equal(res1.Dataset1.Dataset.YNoisy, res2.Dataset1.Dataset.YNoisy))
	assert.True(mat.Equal(res1.Dataset2.Dataset.YNoisy, res2.Dataset2.Dataset.YNoisy))

	// a different seed perturbs them differently
	cfg := newConfig()
	cfg.Seed = 1234
	res3, err := GenerateDatasets(cfg)
	assert.NoError(err)
	assert.False(mat.Equal(res1.Dataset1.Dataset.YNoisy, res3.Dataset1.Dataset.YNoisy))
}

func TestGenerateDatasetsPersists(t *testing.T) {
	assert := assert.New(t)

	cfg := newConfig()
	s, err := store.NewFileStore(t.TempDir())
	assert.NoError(err)
	cfg.Store = s

	_, err = GenerateDatasets(cfg)
	assert.NoError(err)

	for _, id := range []string{"vdp-1", "vdp-2", "pooled"} {
		rec, err := s.Load(id)
		assert.NoError(err)
		assert.Equal(id, rec.ID)
	}
}

func TestGenerateDatasetsDegenerateProjection(t *testing.T) {
	assert := assert.New(t)

	// target placed behind the camera: the run must abort, not clip
	cfg := newConfig()
	cfg.Targets[0].Offset = mat.NewVecDense(3, []float64{0, 0, -4})

	res, err := GenerateDatasets(cfg)
	assert.Nil(res)
	assert.Error(err)
	assert.Contains(err.Error(), "vdp-1")
}

func TestGenerateDatasetsValidation(t *testing.T) {
	assert := assert.New(t)

	res, err := GenerateDatasets(nil)
	assert.Nil(res)
	assert.Error(err)

	cfg := newConfig()
	cfg.NoiseStdDev = []float64{0.1}
	res, err = GenerateDatasets(cfg)
	assert.Nil(res)
	assert.Error(err)

	cfg = newConfig()
	cfg.Targets[1].WindowEnd = 25.0
	res, err = GenerateDatasets(cfg)
	assert.Nil(res)
	assert.Error(err)

	cfg = newConfig()
	cfg.Targets[0].Samples = 0
	res, err = GenerateDatasets(cfg)
	assert.Nil(res)
	assert.Error(err)
}
