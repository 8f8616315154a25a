package gp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Config configures a hyperparameter fit.
type Config struct {
	// Mode selects joint or per-channel fitting
	Mode FitMode
	// MaxIter bounds the optimizer iterations
	MaxIter int
	// InitLengthScale is the initial ARD length-scale
	InitLengthScale float64
	// InitSignalVar is the initial signal variance
	InitSignalVar float64
}

// DefaultConfig returns the default fit configuration: joint mode, 200
// iterations, unit initial length-scales and signal variance.
func DefaultConfig() *Config {
	return &Config{
		Mode:            FitJoint,
		MaxIter:         200,
		InitLengthScale: 1.0,
		InitSignalVar:   1.0,
	}
}

// Result is the outcome of a hyperparameter fit.
type Result struct {
	// Mode is the fit mode that produced the result
	Mode FitMode
	// Joint is the shared hyperparameter set (FitJoint)
	Joint *Hyperparameters
	// Channels are the per-channel hyperparameter sets (FitPerChannel)
	Channels []*Hyperparameters
	// LogML is the best log marginal likelihood found
	LogML float64
	// History records the running best log marginal likelihood at every
	// improvement. In joint mode it is non-decreasing by construction; in
	// per-channel mode the channel histories are concatenated in channel order
	History []float64
}

// Fit maximizes the log marginal likelihood of a GP with SEard covariance and
// i.i.d. Gaussian observation noise over the training inputs x (M x D) and
// noisy outputs y (M x C). noiseLevel holds the per-channel noise standard
// deviations used to initialize the noise variance; it must have one entry per
// output channel or a single entry for the whole set.
//
// In joint mode one hyperparameter set is shared by all output channels; in
// per-channel mode each channel is fit independently. Length-scales, signal
// variance and noise variance are optimized jointly in log space, so the
// returned values are strictly positive by construction.
//
// On non-convergence Fit returns ErrNoConvergence together with the last valid
// hyperparameter estimate found, never a silent degenerate fit.
func Fit(x, y *mat.Dense, noiseLevel []float64, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	n, d := x.Dims()
	yn, c := y.Dims()
	if n != yn {
		return nil, fmt.Errorf("input/output row mismatch: %d vs %d", n, yn)
	}

	if len(noiseLevel) != c && len(noiseLevel) != 1 {
		return nil, fmt.Errorf("invalid noise level length: %d, channels: %d", len(noiseLevel), c)
	}

	kern, err := NewSEard(d)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case FitJoint:
		return fitJoint(kern, x, y, noiseLevel, cfg)
	case FitPerChannel:
		return fitPerChannel(kern, x, y, noiseLevel, cfg)
	default:
		return nil, fmt.Errorf("invalid fit mode: %d", cfg.Mode)
	}
}

func fitJoint(kern *SEard, x, y *mat.Dense, noiseLevel []float64, cfg *Config) (*Result, error) {
	sn := meanVariance(noiseLevel)

	hp, lml, hist, err := maximize(kern, x, y, sn, cfg)
	if err != nil {
		if hp == nil {
			return nil, err
		}
		return &Result{Mode: FitJoint, Joint: hp, LogML: lml, History: hist}, err
	}

	return &Result{Mode: FitJoint, Joint: hp, LogML: lml, History: hist}, nil
}

func fitPerChannel(kern *SEard, x, y *mat.Dense, noiseLevel []float64, cfg *Config) (*Result, error) {
	n, c := y.Dims()

	res := &Result{Mode: FitPerChannel, Channels: make([]*Hyperparameters, c)}

	for j := 0; j < c; j++ {
		yc := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			yc.Set(i, 0, y.At(i, j))
		}

		sn := noiseLevel[0]
		if len(noiseLevel) > 1 {
			sn = noiseLevel[j]
		}

		hp, lml, hist, err := maximize(kern, x, yc, sn*sn, cfg)
		if err != nil {
			if hp != nil {
				res.Channels[j] = hp
			}
			return res, fmt.Errorf("channel %d: %w", j, err)
		}

		res.Channels[j] = hp
		res.LogML += lml
		res.History = append(res.History, hist...)
	}

	return res, nil
}

// maximize runs the gradient-based marginal likelihood maximization for one
// covariance over all columns of y sharing the same Gram matrix. It works in
// log-hyperparameter space: p = (log l_1..l_D, log sf, log sn).
func maximize(kern *SEard, x, y *mat.Dense, noiseVar float64, cfg *Config) (*Hyperparameters, float64, []float64, error) {
	d := kern.Dim()

	if noiseVar < 1e-8 {
		// log-space parameterization cannot express zero noise
		noiseVar = 1e-8
	}

	init := make([]float64, d+2)
	for i := 0; i < d; i++ {
		init[i] = math.Log(cfg.InitLengthScale)
	}
	init[d] = 0.5 * math.Log(cfg.InitSignalVar)
	init[d+1] = 0.5 * math.Log(noiseVar)

	lik := newLikelihood(kern, x, y)

	best := &tracker{lml: math.Inf(-1)}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			f, _, ok := lik.eval(p, false)
			if !ok {
				return math.Inf(1)
			}
			best.record(-f, p)
			return f
		},
		Grad: func(grad, p []float64) {
			_, g, ok := lik.eval(p, true)
			if !ok {
				for i := range grad {
					grad[i] = 0
				}
				return
			}
			copy(grad, g)
		},
	}

	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})

	hp := best.hyperparameters(d)
	if hp == nil {
		return nil, 0, nil, fmt.Errorf("%w: no finite likelihood evaluation", ErrNoConvergence)
	}

	if err != nil {
		// a failed line search or a zero-length step at a valid optimum means
		// no further improvement is possible, which is convergence, not failure
		stalled := errors.Is(err, optimize.ErrLinesearcherFailure) ||
			errors.Is(err, optimize.ErrNoProgress)
		if stalled && hp.Valid() {
			return hp, best.lml, best.history, nil
		}
		return hp, best.lml, best.history, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}

	if res.Status == optimize.Failure || res.Status == optimize.NotTerminated {
		return hp, best.lml, best.history, fmt.Errorf("%w: optimizer status %v", ErrNoConvergence, res.Status)
	}

	if !hp.Valid() {
		return hp, best.lml, best.history, fmt.Errorf("%w: degenerate hyperparameters %v", ErrNoConvergence, hp)
	}

	return hp, best.lml, best.history, nil
}

// tracker keeps the best finite likelihood and its parameters; the recorded
// history never decreases even when a line search overshoots.
type tracker struct {
	lml     float64
	params  []float64
	history []float64
}

func (t *tracker) record(lml float64, p []float64) {
	if !finite(lml) || lml <= t.lml {
		return
	}

	for _, v := range p {
		if !finite(v) {
			return
		}
	}

	t.lml = lml
	t.params = append(t.params[:0], p...)
	t.history = append(t.history, lml)
}

func (t *tracker) hyperparameters(dim int) *Hyperparameters {
	if t.params == nil {
		return nil
	}

	ls := make([]float64, dim)
	for i := 0; i < dim; i++ {
		ls[i] = math.Exp(t.params[i])
	}

	return &Hyperparameters{
		LengthScales: ls,
		SignalVar:    math.Exp(2 * t.params[dim]),
		NoiseVar:     math.Exp(2 * t.params[dim+1]),
	}
}

func meanVariance(stddev []float64) float64 {
	s := 0.0
	for _, sd := range stddev {
		s += sd * sd
	}

	return s / float64(len(stddev))
}
