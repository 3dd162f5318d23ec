package policy

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// ExploitationTarget scores a point by the objective applied to the
// predicted mean, ignoring uncertainty entirely: pure exploitation toward a
// known target under the model's current beliefs.
//
// The target must be set before the first Acquisition or Suggest call
// unless the objective was overridden.
type ExploitationTarget struct {
	base
	requiresTarget
}

// NewExploitationTarget creates a pure-exploitation policy.
func NewExploitationTarget(opts ...Option) *ExploitationTarget {
	p := &ExploitationTarget{base: newBase(opts...)}
	p.requiresTarget = requiresTarget{&p.base}
	return p
}

// Acquisition returns weight * objective(mean(x)), summed over the rows of X.
func (p *ExploitationTarget) Acquisition(X *mat.Dense, m optimization.Model) (float64, error) {
	obj, err := p.resolveObjective()
	if err != nil {
		return 0, err
	}

	mean, _, err := m.Predict(X)
	if err != nil {
		return 0, err
	}

	v := obj(mean.RawVector().Data) * p.weight
	p.logger.Debug("exploitation acquisition", zap.Float64("value", v))
	return v, nil
}

// Suggest returns the in-bounds point the model currently believes closest
// to the target.
func (p *ExploitationTarget) Suggest(m optimization.Model, nRestarts int) ([]float64, error) {
	return p.suggest(p.Acquisition, m, nRestarts)
}
