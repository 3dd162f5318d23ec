package policy

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// ExpectedImprovement is the standard improvement-based acquisition,
// estimated by Monte-Carlo: draw posterior samples at a single point, score
// each with the objective, subtract the best observed value, clip negative
// improvements to zero and average.
//
// Both target and ybest must be set before the first Acquisition or Suggest
// call (the target only when the default objective is in use). The input
// batch must be exactly one point.
type ExpectedImprovement struct {
	base
	requiresTarget
	requiresYbest
	nSamples int
}

// NewExpectedImprovement creates an expected-improvement policy drawing
// nSamples posterior samples per evaluation (DefaultSamples when
// nSamples <= 0).
func NewExpectedImprovement(nSamples int, opts ...Option) *ExpectedImprovement {
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}
	p := &ExpectedImprovement{
		base:     newBase(opts...),
		nSamples: nSamples,
	}
	p.requiresTarget = requiresTarget{&p.base}
	p.requiresYbest = requiresYbest{&p.base}
	return p
}

// Acquisition returns weight * mean(max(objective(sample) - ybest, 0)) over
// nSamples posterior draws at the single point in X. The result is always
// non-negative.
func (p *ExpectedImprovement) Acquisition(X *mat.Dense, m optimization.Model) (float64, error) {
	if r, _ := X.Dims(); r != 1 {
		return 0, optimization.WrapErrorf(optimization.ErrBatchSize,
			"expected improvement scores one point at a time, got %d", r).
			WithComponent("policy")
	}

	ybest, err := p.requireYbest()
	if err != nil {
		return 0, err
	}
	obj, err := p.resolveObjective()
	if err != nil {
		return 0, err
	}

	samples, err := m.Sample(X, p.nSamples)
	if err != nil {
		return 0, err
	}

	_, n := samples.Dims()
	improvements := make([]float64, n)
	for j := 0; j < n; j++ {
		imp := obj(mat.Col(nil, j, samples)) - ybest
		if imp < 0 {
			imp = 0
		}
		improvements[j] = imp
	}

	v := stat.Mean(improvements, nil) * p.weight
	p.logger.Debug("expected improvement acquisition",
		zap.Int("samples", n),
		zap.Float64("ybest", ybest),
		zap.Float64("value", v),
	)
	return v, nil
}

// Suggest returns the in-bounds point of highest expected improvement.
func (p *ExpectedImprovement) Suggest(m optimization.Model, nRestarts int) ([]float64, error) {
	return p.suggest(p.Acquisition, m, nRestarts)
}
