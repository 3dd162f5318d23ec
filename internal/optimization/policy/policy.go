// Package policy implements the acquisition layer of KRIGE: a family of
// acquisition functions over a probabilistic surrogate model, each trading
// off exploration against exploitation differently, combined with a
// multi-restart bounded optimizer that searches the normalized input space
// for the acquisition maximizer.
package policy

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// Objective maps a model output vector to the scalar score a policy
// maximizes.
type Objective func(y []float64) float64

// DistanceToTarget returns the default objective: the negated squared L2
// distance between target and the output, maximized when they coincide.
func DistanceToTarget(target float64) Objective {
	return func(y []float64) float64 {
		sum := 0.0
		for _, v := range y {
			d := target - v
			sum -= d * d
		}
		return sum
	}
}

// Policy scores candidate points against a surrogate model. Acquisition
// returns a goodness score to maximize; Suggest finds the in-bounds point
// that maximizes it.
//
// Policies hold no reference to the model and no history, so one instance
// can be reused across many Suggest calls. Setters mutate in place; policies
// are not safe for concurrent use.
type Policy interface {
	// Acquisition scores the batch of points in X, one point per row.
	Acquisition(X *mat.Dense, m optimization.Model) (float64, error)

	// Suggest returns the point inside m.Bounds() that maximizes the
	// acquisition, using nRestarts random restarts (DefaultRestarts when
	// nRestarts <= 0).
	Suggest(m optimization.Model, nRestarts int) ([]float64, error)
}

// TargetSetter is implemented by policies whose objective measures distance
// to a desired output value. The target must be set before the first
// Acquisition or Suggest call.
type TargetSetter interface {
	SetTarget(target float64)
}

// YbestSetter is implemented by improvement-based policies. The best
// observed value must be set before the first Acquisition or Suggest call.
type YbestSetter interface {
	SetYbest(ybest float64)
}

// base carries the mutable state shared by every policy variant. The target
// and ybest values start unset and stay so until the explicit setters are
// called; using a variant that needs them earlier is a caller error.
type base struct {
	weight    float64
	target    *float64
	ybest     *float64
	objective Objective
	restarter *Restarter
	logger    *zap.Logger
}

func newBase(opts ...Option) base {
	b := base{
		weight: 1.0,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.restarter == nil {
		b.restarter = NewRestarter(WithRestarterLogger(b.logger))
	}
	return b
}

// Option configures a policy at construction time.
type Option func(*base)

// WithLogger sets the logger used for policy diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRestarter sets the bounded global optimizer used by Suggest, for
// example a seeded one.
func WithRestarter(r *Restarter) Option {
	return func(b *base) {
		if r != nil {
			b.restarter = r
		}
	}
}

// WithObjective overrides the default distance-to-target objective.
func WithObjective(obj Objective) Option {
	return func(b *base) {
		b.objective = obj
	}
}

// SetWeight sets the multiplier applied to every acquisition score. It does
// not change which point is best, only the magnitude, which matters when
// several policies are composed.
func (b *base) SetWeight(w float64) {
	b.logger.Debug("set acquisition weight", zap.Float64("weight", w))
	b.weight = w
}

// Weight returns the current acquisition weight.
func (b *base) Weight() float64 {
	return b.weight
}

// resolveObjective returns the objective to apply to model outputs: the
// explicit override when present, otherwise the distance to the configured
// target. The default requires the target to have been set.
func (b *base) resolveObjective() (Objective, error) {
	if b.objective != nil {
		return b.objective, nil
	}
	if b.target == nil {
		return nil, optimization.WrapError(optimization.ErrTargetNotSet,
			"default objective needs a target").WithComponent("policy")
	}
	return DistanceToTarget(*b.target), nil
}

// requireYbest returns the best observed value or an error when it was never
// set.
func (b *base) requireYbest() (float64, error) {
	if b.ybest == nil {
		return 0, optimization.WrapError(optimization.ErrYbestNotSet,
			"improvement policy needs the best observed value").
			WithComponent("policy")
	}
	return *b.ybest, nil
}

// suggest wraps acq as a function to minimize (negated) and runs the
// bounded global optimizer over the model's domain. Evaluation errors take
// precedence over the optimizer's own failure so that precondition
// violations surface as such.
func (b *base) suggest(acq func(*mat.Dense, optimization.Model) (float64, error), m optimization.Model, nRestarts int) ([]float64, error) {
	if nRestarts <= 0 {
		nRestarts = DefaultRestarts
	}

	bounds := m.Bounds()
	var evalErr error
	neg := func(x []float64) float64 {
		X := mat.NewDense(1, len(x), x)
		v, err := acq(X, m)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return math.Inf(1)
		}
		return -v
	}

	x, _, err := b.restarter.Minimize(neg, bounds, nRestarts)
	if err != nil {
		if evalErr != nil {
			return nil, evalErr
		}
		return nil, err
	}
	return x, nil
}

// requiresTarget provides the explicit target setter for variants that
// measure distance to a desired output value. It writes the same backing
// field the default objective reads.
type requiresTarget struct {
	*base
}

// SetTarget sets the desired output value.
func (r requiresTarget) SetTarget(target float64) {
	r.logger.Debug("set target", zap.Float64("target", target))
	r.base.target = &target
}

// requiresYbest provides the explicit setter for the best observed value.
type requiresYbest struct {
	*base
}

// SetYbest sets the best value observed so far in the campaign.
func (r requiresYbest) SetYbest(ybest float64) {
	r.logger.Debug("set ybest", zap.Float64("ybest", ybest))
	r.base.ybest = &ybest
}
