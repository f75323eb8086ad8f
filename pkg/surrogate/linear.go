// Package surrogate provides fast approximate models of the façade objectives.
package surrogate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/windowshading"
)

const numObjectives = 2

// ErrNotTrained is returned by Predict before the first successful Refresh.
var ErrNotTrained = errors.New("surrogate model has not been trained")

// Linear is a ridge-regularised linear regression of each objective on the
// allele vector. Samples are collected through Observe and the model is refit
// on Refresh. A refit publishes a new immutable coefficient snapshot, so Predict
// may run concurrently with Observe and Refresh.
type Linear struct {
	dimension  int
	lambda     float64
	maxSamples int

	mu      sync.Mutex
	samples []sample

	model atomic.Pointer[linearModel]
}

type sample struct {
	alleles    []bool
	objectives [numObjectives]float64
}

type linearModel struct {
	// coefficients[k] holds the intercept followed by one weight per allele.
	coefficients [numObjectives][]float64
	samples      int
}

var (
	_ framework.SurrogateModel = &Linear{}
	_ windowshading.Predictor  = &Linear{}
	_ windowshading.Observer   = &Linear{}
)

// NewLinear creates an untrained model. lambda is the ridge penalty and
// maxSamples bounds the training set, dropping the oldest samples; zero keeps all.
func NewLinear(dimension int, lambda float64, maxSamples int) *Linear {
	return &Linear{
		dimension:  dimension,
		lambda:     lambda,
		maxSamples: maxSamples,
	}
}

// Observe records an exact evaluation as a training sample.
func (l *Linear) Observe(alleles []bool, objectives framework.ObjectiveSpacePoint) {
	if len(alleles) != l.dimension || len(objectives) < numObjectives {
		return
	}
	s := sample{alleles: make([]bool, len(alleles))}
	copy(s.alleles, alleles)
	copy(s.objectives[:], objectives)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, s)
	if l.maxSamples > 0 && len(l.samples) > l.maxSamples {
		l.samples = l.samples[len(l.samples)-l.maxSamples:]
	}
}

// Samples is the current size of the training set.
func (l *Linear) Samples() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.samples)
}

// Trained reports whether a model has been published.
func (l *Linear) Trained() bool {
	return l.model.Load() != nil
}

// Refresh refits the model on the current training set. Without samples the
// previous model is kept.
func (l *Linear) Refresh(ctx context.Context) error {
	logger := klog.FromContext(ctx)

	l.mu.Lock()
	samples := make([]sample, len(l.samples))
	copy(samples, l.samples)
	l.mu.Unlock()

	if len(samples) == 0 {
		logger.V(3).Info("No training samples, keeping current surrogate model")
		return nil
	}

	model, err := l.fit(samples)
	if err != nil {
		return fmt.Errorf("fitting surrogate on %d samples: %w", len(samples), err)
	}
	l.model.Store(model)
	logger.V(3).Info("Refreshed surrogate model", "samples", len(samples))
	return nil
}

// fit solves (XᵀX + λI) β = Xᵀy for each objective, with a leading intercept
// column in X that is not penalised.
func (l *Linear) fit(samples []sample) (*linearModel, error) {
	cols := l.dimension + 1
	x := mat.NewDense(len(samples), cols, nil)
	y := make([]*mat.VecDense, numObjectives)
	for k := range y {
		y[k] = mat.NewVecDense(len(samples), nil)
	}
	for i, s := range samples {
		x.Set(i, 0, 1)
		for j, a := range s.alleles {
			if a {
				x.Set(i, j+1, 1)
			}
		}
		for k := range y {
			y[k].SetVec(i, s.objectives[k])
		}
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j := 1; j < cols; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+l.lambda)
	}
	// keeps the system positive definite when no penalty is configured
	xtx.SetSym(0, 0, xtx.At(0, 0)+1e-9)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errors.New("normal equations are not positive definite, increase the regularization")
	}

	model := &linearModel{samples: len(samples)}
	for k := range y {
		var xty, beta mat.VecDense
		xty.MulVec(x.T(), y[k])
		if err := chol.SolveVecTo(&beta, &xty); err != nil {
			return nil, err
		}
		model.coefficients[k] = mat.Col(nil, 0, &beta)
	}
	return model, nil
}

// Predict returns the approximate objectives of a design.
func (l *Linear) Predict(alleles []bool) (framework.ObjectiveSpacePoint, error) {
	model := l.model.Load()
	if model == nil {
		return nil, ErrNotTrained
	}
	if len(alleles) != l.dimension {
		return nil, fmt.Errorf("expected %d alleles, got %d", l.dimension, len(alleles))
	}

	point := make(framework.ObjectiveSpacePoint, numObjectives)
	for k, coef := range model.coefficients {
		v := coef[0]
		for j, a := range alleles {
			if a {
				v += coef[j+1]
			}
		}
		point[k] = v
	}
	return point, nil
}
