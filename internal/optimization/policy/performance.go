package policy

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/KRIGE/internal/optimization"
)

// TargetPerformance measures how close the surrogate model's believed-best
// point is to ground truth. It asks an internal exploitation policy for the
// point the model currently believes closest to the target, evaluates the
// true function there and scores the true output against the target.
//
// The score is cost-like: zero means the model's belief is exactly right,
// larger values mean a larger true performance gap. The weight scales only
// this final score; the internal policy keeps its own default weight.
type TargetPerformance struct {
	policy *ExploitationTarget
	weight *float64
	logger *zap.Logger
}

// NewTargetPerformance creates a target-performance evaluator.
func NewTargetPerformance(opts ...Option) *TargetPerformance {
	p := NewExploitationTarget(opts...)
	return &TargetPerformance{
		policy: p,
		logger: p.logger,
	}
}

// SetTarget forwards the desired output value to the internal policy.
func (tp *TargetPerformance) SetTarget(target float64) {
	tp.policy.SetTarget(target)
}

// SetWeight sets the multiplier applied to the final score. It must be
// called before Evaluate.
func (tp *TargetPerformance) SetWeight(weight float64) {
	tp.logger.Debug("set performance weight", zap.Float64("weight", weight))
	tp.weight = &weight
}

// Evaluate finds the model's believed-best point with nRestarts restarts
// (DefaultRestarts when nRestarts <= 0), evaluates truth there and returns
// -objective(truth(x)) * weight.
func (tp *TargetPerformance) Evaluate(m optimization.Model, truth optimization.GroundTruth, nRestarts int) (float64, error) {
	const op = "TargetPerformance.Evaluate"

	if tp.weight == nil {
		return 0, optimization.WrapError(optimization.ErrWeightNotSet,
			"performance weight must be set before evaluating").
			WithComponent("policy").WithOperation(op)
	}

	estimated, err := tp.policy.Suggest(m, nRestarts)
	if err != nil {
		return 0, err
	}

	yTrue, err := truth(estimated)
	if err != nil {
		return 0, optimization.WrapError(err, "ground truth evaluation failed").
			WithComponent("policy").WithOperation(op)
	}

	obj, err := tp.policy.resolveObjective()
	if err != nil {
		return 0, err
	}

	score := -obj([]float64{yTrue}) * *tp.weight
	tp.logger.Debug("target performance",
		zap.Float64s("estimated", estimated),
		zap.Float64("y_true", yTrue),
		zap.Float64("score", score),
	)
	return score, nil
}
