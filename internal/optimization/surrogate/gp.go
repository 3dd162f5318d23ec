// Package surrogate implements the Gaussian Process surrogate model
// consumed by the acquisition layer. It is a thin native stand-in for an
// external probabilistic-modeling backend: fit to observations, predict
// posterior mean and standard deviation, draw posterior samples.
package surrogate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/KRIGE/internal/optimization"
	"github.com/copyleftdev/KRIGE/internal/optimization/kernels"
)

const component = "gaussian_process"

// GP is a Gaussian Process regression model over a normalized input domain.
// The domain defaults to the unit hypercube, matching the acquisition
// layer's assumption that inputs are scaled to [0, 1] per dimension.
type GP struct {
	kernel   kernels.Kernel
	noiseVar float64
	bounds   [][2]float64

	// Training data and precomputed factorization
	x     *mat.Dense
	y     *mat.VecDense
	chol  *mat.Cholesky
	alpha *mat.VecDense

	pool   *matrixPool
	src    rand.Source
	srcMu  sync.Mutex
	logger *zap.Logger
}

// Option configures a GP at construction time.
type Option func(*GP)

// WithLogger sets the logger used for fit and prediction diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(gp *GP) {
		if logger != nil {
			gp.logger = logger.Named("gaussian_process")
		}
	}
}

// WithSeed seeds the posterior sampling random source.
func WithSeed(seed uint64) Option {
	return func(gp *GP) {
		gp.src = rand.NewPCG(seed, seed)
	}
}

// WithBounds sets the input domain instead of the default unit hypercube.
func WithBounds(bounds [][2]float64) Option {
	return func(gp *GP) {
		gp.bounds = bounds
	}
}

// NewGP creates a Gaussian Process model with the given kernel and noise
// variance.
func NewGP(kernel kernels.Kernel, noiseVar float64, opts ...Option) *GP {
	gp := &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		pool:     newMatrixPool(),
		src:      rand.NewPCG(rand.Uint64(), rand.Uint64()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(gp)
	}
	return gp
}

// Fit conditions the model on the training data. X holds one sample per
// row; y holds one target per sample.
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		return optimization.NewError("input matrices must not be nil").
			WithComponent(component).WithOperation(op)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return optimization.NewError("input matrix X must not be empty").
			WithComponent(component).WithOperation(op)
	}
	if nSamples != y.Len() {
		return optimization.NewErrorf(
			"dimension mismatch: X has %d samples but y has length %d",
			nSamples, y.Len()).
			WithComponent(component).WithOperation(op)
	}

	gp.logger.Debug("fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	gp.x = mat.DenseCopyOf(X)
	gp.y = mat.VecDenseCopyOf(y)

	K := gp.pool.getSym(nSamples)
	defer gp.pool.putSym(K)
	for i := 0; i < nSamples; i++ {
		xi := gp.x.RawRowView(i)
		for j := i; j < nSamples; j++ {
			K.SetSym(i, j, gp.kernel.Eval(xi, gp.x.RawRowView(j)))
		}
		K.SetSym(i, i, K.At(i, i)+gp.noiseVar)
	}

	chol, err := gp.factorize(K, nSamples)
	if err != nil {
		return optimization.WrapError(err, "kernel factorization failed").
			WithComponent(component).WithOperation(op)
	}
	gp.chol = chol

	alpha := mat.NewVecDense(nSamples, nil)
	if err := gp.chol.SolveVecTo(alpha, gp.y); err != nil {
		return optimization.WrapError(err, "failed to solve for alpha").
			WithComponent(component).WithOperation(op)
	}
	gp.alpha = alpha

	if gp.bounds == nil {
		gp.bounds = unitBounds(nFeatures)
	}

	gp.logger.Debug("fitted GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
	)
	return nil
}

// factorize computes the Cholesky decomposition of K, escalating a diagonal
// jitter until the matrix is numerically positive definite.
func (gp *GP) factorize(K *mat.SymDense, n int) (*mat.Cholesky, error) {
	const maxAttempts = 8

	jitter := 0.0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		Kj := K
		if jitter > 0 {
			Kj = mat.NewSymDense(n, nil)
			Kj.CopySym(K)
			for i := 0; i < n; i++ {
				Kj.SetSym(i, i, Kj.At(i, i)+jitter)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(Kj) {
			if jitter > 0 {
				gp.logger.Debug("factorized with jitter",
					zap.Float64("jitter", jitter),
					zap.Int("attempt", attempt),
				)
			}
			return &chol, nil
		}

		if jitter == 0 {
			jitter = 1e-10
		} else {
			jitter *= 10
		}
	}

	return nil, fmt.Errorf("kernel matrix is not positive definite after %d jitter attempts", maxAttempts)
}

// Predict returns the posterior mean and standard deviation at each row of
// X.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, nil, optimization.NewError("input matrix X is nil").
			WithComponent(component).WithOperation(op)
	}
	if gp.x == nil || gp.alpha == nil || gp.chol == nil {
		return nil, nil, optimization.NewError("model not fitted").
			WithComponent(component).WithOperation(op)
	}

	nTest, nFeatures := X.Dims()
	nTrain, trainFeatures := gp.x.Dims()
	if nFeatures != trainFeatures {
		return nil, nil, optimization.NewErrorf(
			"dimension mismatch: model has %d features, got %d",
			trainFeatures, nFeatures).
			WithComponent(component).WithOperation(op)
	}

	// Cross-covariance between test and training points, and the prior
	// variance at each test point.
	kss := make([]float64, nTest)
	Kstar := gp.pool.getDense(nTest, nTrain)
	defer gp.pool.putDense(Kstar)
	for i := 0; i < nTest; i++ {
		xs := X.RawRowView(i)
		kss[i] = gp.kernel.Eval(xs, xs) + gp.noiseVar
		for j := 0; j < nTrain; j++ {
			Kstar.Set(i, j, gp.kernel.Eval(xs, gp.x.RawRowView(j)))
		}
	}

	mean := mat.NewVecDense(nTest, nil)
	mean.MulVec(Kstar, gp.alpha)

	// v = K^-1 K*^T, variance_i = kss_i - K*_i . v_i
	v := mat.NewDense(nTrain, nTest, nil)
	if err := gp.chol.SolveTo(v, Kstar.T()); err != nil {
		return nil, nil, optimization.WrapError(err, "failed to solve for predictive variance").
			WithComponent(component).WithOperation(op)
	}

	std := mat.NewVecDense(nTest, nil)
	for i := 0; i < nTest; i++ {
		reduction := 0.0
		for j := 0; j < nTrain; j++ {
			reduction += Kstar.At(i, j) * v.At(j, i)
		}
		variance := kss[i] - reduction
		if variance < 0 {
			gp.logger.Warn("negative variance clamped to zero",
				zap.Float64("variance", variance),
				zap.Int("test_point", i),
			)
			variance = 0
		}
		std.SetVec(i, math.Sqrt(variance))
	}

	return mean, std, nil
}

// Sample draws nSamples posterior realizations at each row of X. The result
// has one row per test point and one column per sample. Test points are
// treated as independent (diagonal predictive covariance).
func (gp *GP) Sample(X *mat.Dense, nSamples int) (*mat.Dense, error) {
	const op = "GP.Sample"

	if nSamples <= 0 {
		return nil, optimization.NewError("number of samples must be positive").
			WithComponent(component).WithOperation(op)
	}

	mean, std, err := gp.Predict(X)
	if err != nil {
		return nil, optimization.WrapError(err, "prediction for sampling failed").
			WithComponent(component).WithOperation(op)
	}

	nTest := mean.Len()
	samples := mat.NewDense(nTest, nSamples, nil)

	// The random source is shared by every caller of the fitted model, so
	// draws are serialized.
	gp.srcMu.Lock()
	defer gp.srcMu.Unlock()
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: gp.src}
	for i := 0; i < nTest; i++ {
		mu, sd := mean.AtVec(i), std.AtVec(i)
		for j := 0; j < nSamples; j++ {
			samples.Set(i, j, mu+sd*normal.Rand())
		}
	}
	return samples, nil
}

// Bounds returns the model's input domain. It is nil until the model is
// fitted or bounds are set explicitly.
func (gp *GP) Bounds() [][2]float64 {
	return gp.bounds
}

// SetBounds replaces the input domain. Each pair must satisfy low < high,
// and the length must match the training dimensionality when fitted.
func (gp *GP) SetBounds(bounds [][2]float64) error {
	for i, b := range bounds {
		if b[0] >= b[1] {
			return fmt.Errorf("invalid bounds at dimension %d: [%v, %v]", i, b[0], b[1])
		}
	}
	if gp.x != nil {
		if _, nFeatures := gp.x.Dims(); len(bounds) != nFeatures {
			return fmt.Errorf("bounds length %d does not match %d features",
				len(bounds), nFeatures)
		}
	}
	gp.bounds = bounds
	return nil
}

// NumSamples returns the number of training observations, zero before Fit.
func (gp *GP) NumSamples() int {
	if gp.x == nil {
		return 0
	}
	n, _ := gp.x.Dims()
	return n
}

// NumFeatures returns the input dimensionality, zero before Fit.
func (gp *GP) NumFeatures() int {
	if gp.x == nil {
		return 0
	}
	_, d := gp.x.Dims()
	return d
}

// Kernel returns the model's covariance function.
func (gp *GP) Kernel() kernels.Kernel {
	return gp.kernel
}

func unitBounds(d int) [][2]float64 {
	bounds := make([][2]float64, d)
	for i := range bounds {
		bounds[i] = [2]float64{0, 1}
	}
	return bounds
}
