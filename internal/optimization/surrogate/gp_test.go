package surrogate

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/KRIGE/internal/optimization"
	"github.com/copyleftdev/KRIGE/internal/optimization/kernels"
)

var _ optimization.Model = (*GP)(nil)

func fittedGP(t *testing.T, opts ...Option) *GP {
	t.Helper()

	X := mat.NewDense(5, 1, []float64{0.0, 0.25, 0.5, 0.75, 1.0})
	y := mat.NewVecDense(5, []float64{0.0, 0.5, 1.0, 1.5, 2.0})

	gp := NewGP(kernels.NewRBF(1.0, 1.0), 1e-6, opts...)
	require.NoError(t, gp.Fit(X, y))
	return gp
}

func TestGPFitPredict(t *testing.T) {
	gp := fittedGP(t)

	// At training points the posterior mean should reproduce the targets
	// and the uncertainty should be close to the noise floor.
	X := mat.NewDense(3, 1, []float64{0.0, 0.5, 1.0})
	mean, std, err := gp.Predict(X)
	require.NoError(t, err)
	require.Equal(t, 3, mean.Len())
	require.Equal(t, 3, std.Len())

	want := []float64{0.0, 1.0, 2.0}
	for i := range want {
		assert.InDelta(t, want[i], mean.AtVec(i), 0.05)
		assert.Less(t, std.AtVec(i), 0.1)
	}
}

func TestGPUncertaintyGrowsAwayFromData(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0.4, 0.6})
	y := mat.NewVecDense(2, []float64{1.0, 1.0})

	gp := NewGP(kernels.NewRBF(0.1, 1.0), 1e-6)
	require.NoError(t, gp.Fit(X, y))

	_, stdNear, err := gp.Predict(mat.NewDense(1, 1, []float64{0.4}))
	require.NoError(t, err)
	_, stdFar, err := gp.Predict(mat.NewDense(1, 1, []float64{0.0}))
	require.NoError(t, err)

	assert.Greater(t, stdFar.AtVec(0), stdNear.AtVec(0))
}

func TestGPPredictBeforeFit(t *testing.T) {
	gp := NewGP(kernels.NewRBF(1.0, 1.0), 1e-6)

	_, _, err := gp.Predict(mat.NewDense(1, 1, []float64{0.5}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not fitted")
}

func TestGPErrorsCarryComponentContext(t *testing.T) {
	gp := NewGP(kernels.NewRBF(1.0, 1.0), 1e-6)

	_, _, err := gp.Predict(mat.NewDense(1, 1, []float64{0.5}))
	require.Error(t, err)
	e, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, "gaussian_process", e.Component)
	assert.Equal(t, "GP.Predict", e.Op)

	err = gp.Fit(nil, nil)
	require.Error(t, err)
	e, ok = optimization.IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, "gaussian_process", e.Component)
	assert.Equal(t, "GP.Fit", e.Op)
}

func TestGPConcurrentPredictAndSample(t *testing.T) {
	// A fitted model is shared by every request handler; concurrent reads
	// must not corrupt the matrix pool or the sampling source. Run with the
	// race detector enabled.
	gp := fittedGP(t, WithSeed(11))
	X := mat.NewDense(2, 1, []float64{0.2, 0.8})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, _, err := gp.Predict(X); err != nil {
					t.Error(err)
					return
				}
				if _, err := gp.Sample(X, 4); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestGPFitDimensionMismatch(t *testing.T) {
	gp := NewGP(kernels.NewRBF(1.0, 1.0), 1e-6)

	X := mat.NewDense(3, 1, []float64{0.0, 0.5, 1.0})
	y := mat.NewVecDense(2, []float64{0.0, 1.0})
	err := gp.Fit(X, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestGPPredictFeatureMismatch(t *testing.T) {
	gp := fittedGP(t)

	_, _, err := gp.Predict(mat.NewDense(1, 2, []float64{0.5, 0.5}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestGPSample(t *testing.T) {
	gp := fittedGP(t, WithSeed(42))

	X := mat.NewDense(2, 1, []float64{0.1, 0.9})
	samples, err := gp.Sample(X, 7)
	require.NoError(t, err)

	r, c := samples.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 7, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(samples.At(i, j)))
			assert.False(t, math.IsInf(samples.At(i, j), 0))
		}
	}

	_, err = gp.Sample(X, 0)
	require.Error(t, err)
}

func TestGPSampleDeterministicWithSeed(t *testing.T) {
	X := mat.NewDense(1, 1, []float64{0.5})

	a, err := fittedGP(t, WithSeed(7)).Sample(X, 5)
	require.NoError(t, err)
	b, err := fittedGP(t, WithSeed(7)).Sample(X, 5)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(a, b, 1e-15))
}

func TestGPDefaultBounds(t *testing.T) {
	gp := fittedGP(t)
	assert.Equal(t, [][2]float64{{0, 1}}, gp.Bounds())
}

func TestGPSetBounds(t *testing.T) {
	gp := fittedGP(t)

	require.NoError(t, gp.SetBounds([][2]float64{{-1, 2}}))
	assert.Equal(t, [][2]float64{{-1, 2}}, gp.Bounds())

	assert.Error(t, gp.SetBounds([][2]float64{{1, 1}}))
	assert.Error(t, gp.SetBounds([][2]float64{{0, 1}, {0, 1}}))
}

func TestGPAccessors(t *testing.T) {
	gp := NewGP(kernels.NewMatern52(1.0, 1.0), 1e-6)
	assert.Equal(t, 0, gp.NumSamples())
	assert.Equal(t, 0, gp.NumFeatures())
	assert.Equal(t, "matern52", gp.Kernel().Name())

	X := mat.NewDense(4, 2, []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
		0.7, 0.8,
	})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	require.NoError(t, gp.Fit(X, y))

	assert.Equal(t, 4, gp.NumSamples())
	assert.Equal(t, 2, gp.NumFeatures())
	assert.Equal(t, [][2]float64{{0, 1}, {0, 1}}, gp.Bounds())
}
