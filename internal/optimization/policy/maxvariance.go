package policy

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// DefaultSamples is the posterior sample count used by the Monte-Carlo
// policies when the caller does not ask for a specific count.
const DefaultSamples = 100

// MaxVariance scores a point by the predicted posterior variance alone,
// summed over output dimensions and scaled by the weight. It needs neither
// target nor ybest, which makes it the policy of choice for pure active
// learning.
type MaxVariance struct {
	base
}

// NewMaxVariance creates a pure-exploration policy.
func NewMaxVariance(opts ...Option) *MaxVariance {
	return &MaxVariance{base: newBase(opts...)}
}

// Acquisition returns sum(weight * std(x)^2) over every row of X.
func (p *MaxVariance) Acquisition(X *mat.Dense, m optimization.Model) (float64, error) {
	_, std, err := m.Predict(X)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for i := 0; i < std.Len(); i++ {
		sd := std.AtVec(i)
		sum += sd * sd * p.weight
	}
	p.logger.Debug("max variance acquisition", zap.Float64("value", sum))
	return sum, nil
}

// Suggest returns the in-bounds point of highest predicted variance.
func (p *MaxVariance) Suggest(m optimization.Model, nRestarts int) ([]float64, error) {
	return p.suggest(p.Acquisition, m, nRestarts)
}

// MaxVarianceOfObjective scores a point by the Monte-Carlo variance of an
// objective transform applied to posterior samples, exploring the regions
// where the downstream objective is most uncertain rather than the raw
// model output.
//
// The default distance-to-target objective is deliberately unavailable
// here: this variant never sets a target, so an inherited default would
// silently compare against nothing. The objective must be supplied.
type MaxVarianceOfObjective struct {
	base
	nSamples int
}

// NewMaxVarianceOfObjective creates an objective-weighted exploration
// policy drawing nSamples posterior samples per evaluation (DefaultSamples
// when nSamples <= 0). It panics when obj is nil.
func NewMaxVarianceOfObjective(obj Objective, nSamples int, opts ...Option) *MaxVarianceOfObjective {
	if obj == nil {
		panic("policy: MaxVarianceOfObjective requires an explicit objective")
	}
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}
	p := &MaxVarianceOfObjective{
		base:     newBase(opts...),
		nSamples: nSamples,
	}
	p.base.objective = obj
	return p
}

// Acquisition returns weight * Var[objective(posterior samples at X)].
func (p *MaxVarianceOfObjective) Acquisition(X *mat.Dense, m optimization.Model) (float64, error) {
	samples, err := m.Sample(X, p.nSamples)
	if err != nil {
		return 0, err
	}

	_, n := samples.Dims()
	scores := make([]float64, n)
	for j := 0; j < n; j++ {
		scores[j] = p.objective(mat.Col(nil, j, samples))
	}

	v := stat.Variance(scores, nil) * p.weight
	p.logger.Debug("objective variance acquisition",
		zap.Int("samples", n),
		zap.Float64("value", v),
	)
	return v, nil
}

// Suggest returns the in-bounds point where the objective is most uncertain.
func (p *MaxVarianceOfObjective) Suggest(m optimization.Model, nRestarts int) ([]float64, error) {
	return p.suggest(p.Acquisition, m, nRestarts)
}
