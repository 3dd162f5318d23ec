package policy

import (
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// DefaultRestarts is the number of random restarts used by Optimize01 and
// Policy.Suggest when the caller does not ask for a specific count.
const DefaultRestarts = 10

// Restarter minimizes a scalar objective over a box domain by running a
// local bounded minimizer from several independent uniform random starting
// points and keeping the best result. Acquisition surfaces are often
// multi-modal, so a single local search is not enough.
//
// Determinism is not guaranteed unless the Restarter is seeded.
type Restarter struct {
	src    rand.Source
	logger *zap.Logger
}

// RestarterOption configures a Restarter.
type RestarterOption func(*Restarter)

// WithSeed seeds the restart random source for reproducible runs.
func WithSeed(seed uint64) RestarterOption {
	return func(r *Restarter) {
		r.src = rand.NewPCG(seed, seed)
	}
}

// WithRestarterLogger sets the logger used for restart diagnostics.
func WithRestarterLogger(logger *zap.Logger) RestarterOption {
	return func(r *Restarter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRestarter creates a Restarter with an unseeded random source.
func NewRestarter(opts ...RestarterOption) *Restarter {
	r := &Restarter{
		src:    rand.NewPCG(rand.Uint64(), rand.Uint64()),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Minimize returns the x achieving the lowest f(x) found across numRestarts
// independent local searches inside bounds, together with the achieved
// value. Each search starts from a per-dimension uniform draw inside bounds.
//
// If no restart produces a finite minimum, including the numRestarts == 0
// case, Minimize returns an error wrapping ErrOptimizationFailed. Callers
// must treat that as fatal rather than fall back to a default point.
func (r *Restarter) Minimize(f func([]float64) float64, bounds [][2]float64, numRestarts int) ([]float64, float64, error) {
	const op = "Restarter.Minimize"

	minF := math.Inf(1)
	var minX []float64

	for n := 0; n < numRestarts; n++ {
		x0 := r.randomStart(bounds)
		x, fx, err := minimizeLocal(f, x0, bounds)
		if err != nil {
			r.logger.Debug("restart failed",
				zap.Int("restart", n),
				zap.Error(err),
			)
			continue
		}
		if fx < minF {
			minF = fx
			minX = x
		}
	}

	if minX == nil {
		r.logger.Error("optimization unsuccessful",
			zap.Int("restarts", numRestarts),
		)
		return nil, 0, optimization.WrapError(optimization.ErrOptimizationFailed,
			"no restart produced a finite minimum").
			WithComponent("policy").WithOperation(op)
	}

	r.logger.Debug("minimization finished",
		zap.Int("restarts", numRestarts),
		zap.Float64("min", minF),
	)
	return minX, minF, nil
}

// randomStart draws a starting point uniformly inside bounds, one
// independent draw per dimension.
func (r *Restarter) randomStart(bounds [][2]float64) []float64 {
	x0 := make([]float64, len(bounds))
	for i, b := range bounds {
		u := distuv.Uniform{Min: b[0], Max: b[1], Src: r.src}
		x0[i] = u.Rand()
	}
	return x0
}

// minimizeLocal runs a derivative-free local search from x0, clamping every
// evaluation to the box so the method respects the constraints.
func minimizeLocal(f func([]float64) float64, x0 []float64, bounds [][2]float64) ([]float64, float64, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for i := range x {
				x[i] = math.Max(bounds[i][0], math.Min(x[i], bounds[i][1]))
			}
			return f(x)
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: 0.2,
	}

	result, err := optimize.Minimize(problem, x0, settings, method)
	if err != nil {
		return nil, 0, err
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, 0, optimization.NewError("local search ended at a non-finite value")
	}

	x := result.X
	for i := range x {
		x[i] = math.Max(bounds[i][0], math.Min(x[i], bounds[i][1]))
	}
	return x, result.F, nil
}

// Optimize01 minimizes f over bounds with a fresh unseeded Restarter. It
// assumes the objective acts on data normalized to the unit interval per
// dimension, although any finite box is accepted.
func Optimize01(f func([]float64) float64, bounds [][2]float64, numRestarts int) ([]float64, error) {
	x, _, err := NewRestarter().Minimize(f, bounds, numRestarts)
	return x, err
}
