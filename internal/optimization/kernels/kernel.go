// Package kernels provides covariance functions for the Gaussian Process
// surrogate.
package kernels

import (
	"fmt"
	"math"
)

// Kernel is a covariance function over pairs of points.
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2.
	Eval(x1, x2 []float64) float64

	// Name returns the kernel's registry name.
	Name() string

	// Hyperparameters returns the current hyperparameters.
	Hyperparameters() []float64

	// SetHyperparameters sets the kernel's hyperparameters.
	SetHyperparameters(params []float64) error
}

// New builds a kernel by registry name ("rbf" or "matern52"). Non-positive
// lengthScale or signalVar are rejected.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	if err := validate(lengthScale, signalVar); err != nil {
		return nil, err
	}
	switch name {
	case "rbf", "":
		return &RBF{lengthScale: lengthScale, signalVar: signalVar}, nil
	case "matern52":
		return &Matern52{lengthScale: lengthScale, signalVar: signalVar}, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

func validate(lengthScale, signalVar float64) error {
	if lengthScale <= 0 {
		return fmt.Errorf("lengthScale must be positive, got %v", lengthScale)
	}
	if signalVar <= 0 {
		return fmt.Errorf("signalVar must be positive, got %v", signalVar)
	}
	return nil
}

// sqDist returns the squared Euclidean distance between x1 and x2.
func sqDist(x1, x2 []float64) float64 {
	sum := 0.0
	for i := range x1 {
		d := x1[i] - x2[i]
		sum += d * d
	}
	return sum
}

// RBF is the squared-exponential kernel. Larger length scales produce
// smoother functions; the signal variance controls the amplitude.
type RBF struct {
	lengthScale float64
	signalVar   float64
}

// NewRBF creates an RBF kernel. It panics on non-positive parameters.
func NewRBF(lengthScale, signalVar float64) *RBF {
	if err := validate(lengthScale, signalVar); err != nil {
		panic(err.Error())
	}
	return &RBF{lengthScale: lengthScale, signalVar: signalVar}
}

// Eval computes the RBF kernel value between x1 and x2.
func (k *RBF) Eval(x1, x2 []float64) float64 {
	r2 := sqDist(x1, x2) / (2.0 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Name returns "rbf".
func (k *RBF) Name() string { return "rbf" }

// Hyperparameters returns the length scale and signal variance.
func (k *RBF) Hyperparameters() []float64 {
	return []float64{k.lengthScale, k.signalVar}
}

// SetHyperparameters sets the length scale and signal variance.
func (k *RBF) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if err := validate(params[0], params[1]); err != nil {
		return err
	}
	k.lengthScale, k.signalVar = params[0], params[1]
	return nil
}

// Matern52 is the Matérn 5/2 kernel, a common default for Bayesian
// optimization because it makes weaker smoothness assumptions than RBF.
type Matern52 struct {
	lengthScale float64
	signalVar   float64
}

// NewMatern52 creates a Matérn 5/2 kernel. It panics on non-positive
// parameters.
func NewMatern52(lengthScale, signalVar float64) *Matern52 {
	if err := validate(lengthScale, signalVar); err != nil {
		panic(err.Error())
	}
	return &Matern52{lengthScale: lengthScale, signalVar: signalVar}
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2.
func (k *Matern52) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(sqDist(x1, x2)) / k.lengthScale
	poly := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	return k.signalVar * poly * math.Exp(-math.Sqrt(5)*r)
}

// Name returns "matern52".
func (k *Matern52) Name() string { return "matern52" }

// Hyperparameters returns the length scale and signal variance.
func (k *Matern52) Hyperparameters() []float64 {
	return []float64{k.lengthScale, k.signalVar}
}

// SetHyperparameters sets the length scale and signal variance.
func (k *Matern52) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if err := validate(params[0], params[1]); err != nil {
		return err
	}
	k.lengthScale, k.signalVar = params[0], params[1]
	return nil
}
