// Package optimization defines the shared contracts of the KRIGE
// acquisition layer: the surrogate model interface consumed by every
// acquisition policy, and the structured error type used across the
// optimization packages.
package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// Model is the probabilistic surrogate consumed by the acquisition layer.
// Implementations stand in for an expensive-to-evaluate true function and
// expose a posterior predictive distribution over a fixed-dimensional,
// normalized input domain.
//
// The model is always passed as an argument; policies never store it.
type Model interface {
	// Predict returns the posterior mean and standard deviation at each
	// row of X. Both vectors have one entry per row of X.
	Predict(X *mat.Dense) (mean, std *mat.VecDense, err error)

	// Sample draws nSamples realizations of the posterior at each row of
	// X. The result has one row per row of X and one column per sample.
	Sample(X *mat.Dense, nSamples int) (*mat.Dense, error)

	// Bounds returns the per-dimension [low, high] box of the model's
	// input domain. Its length equals the input dimensionality.
	Bounds() [][2]float64
}

// GroundTruth evaluates the true (non-surrogate) function at a point. It is
// used when benchmarking an optimization campaign against a known function.
type GroundTruth func(x []float64) (float64, error)
