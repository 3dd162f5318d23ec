package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

func TestTargetPerformanceEvaluate(t *testing.T) {
	// The model believes the target is met everywhere, but the ground
	// truth returns 4.0, one away from the target of 5.0. With weight 2
	// the score is -(-(5-4)^2) * 2 = 2.
	m := &mockModel{mean: 5.0, bounds: [][2]float64{{0, 1}}}
	tp := NewTargetPerformance(WithRestarter(NewRestarter(WithSeed(3))))
	tp.SetTarget(5.0)
	tp.SetWeight(2.0)

	truth := func(x []float64) (float64, error) { return 4.0, nil }

	score, err := tp.Evaluate(m, truth, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, score, 1e-12)
}

func TestTargetPerformancePerfectModel(t *testing.T) {
	m := &mockModel{mean: 5.0, bounds: [][2]float64{{0, 1}}}
	tp := NewTargetPerformance(WithRestarter(NewRestarter(WithSeed(3))))
	tp.SetTarget(5.0)
	tp.SetWeight(1.0)

	truth := func(x []float64) (float64, error) { return 5.0, nil }

	score, err := tp.Evaluate(m, truth, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-12)
}

func TestTargetPerformanceRequiresWeight(t *testing.T) {
	m := &mockModel{mean: 5.0, bounds: [][2]float64{{0, 1}}}
	tp := NewTargetPerformance()
	tp.SetTarget(5.0)

	truth := func(x []float64) (float64, error) { return 5.0, nil }

	_, err := tp.Evaluate(m, truth, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrWeightNotSet)
}

func TestTargetPerformanceRequiresTarget(t *testing.T) {
	m := &mockModel{mean: 5.0, bounds: [][2]float64{{0, 1}}}
	tp := NewTargetPerformance()
	tp.SetWeight(1.0)

	truth := func(x []float64) (float64, error) { return 5.0, nil }

	_, err := tp.Evaluate(m, truth, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrTargetNotSet)
}
