// Package windowshading adapts a window shading problem to the fitness
// evaluator contract of the multi-objective engine.
package windowshading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

// FailurePolicy decides what happens when a design cannot be evaluated.
type FailurePolicy string

const (
	// FailurePolicyFail returns the error and aborts the run.
	FailurePolicyFail FailurePolicy = "Fail"
	// FailurePolicyPenalize assigns the maximal penalty fitness and carries on.
	FailurePolicyPenalize FailurePolicy = "Penalize"
)

// ErrNoPredictor is returned for approximate evaluations without a surrogate.
var ErrNoPredictor = errors.New("no surrogate predictor configured")

// Penalty is the fitness of a design that failed to evaluate. It is dominated
// by every design that evaluated successfully.
var Penalty = framework.Fitness{
	Fitness1:            math.MaxFloat64,
	Fitness2:            math.MaxFloat64,
	ConstraintViolation: math.MaxFloat64,
}

// Predictor approximates the objectives of a design. It must be safe for concurrent use.
type Predictor interface {
	Predict(alleles []bool) (framework.ObjectiveSpacePoint, error)
}

// Observer receives every objective vector computed by the exact problem.
type Observer interface {
	Observe(alleles []bool, objectives framework.ObjectiveSpacePoint)
}

// Options tune the evaluator.
type Options struct {
	// Constrained sums the positive constraint values into the violation.
	// Unconstrained evaluation reports every design as feasible.
	Constrained bool
	// ConstraintShortcut skips the objectives of infeasible designs.
	ConstraintShortcut bool
	// MemorySize bounds the number of memoised exact results. Zero disables memory.
	MemorySize int
	// FailurePolicy defaults to FailurePolicyFail.
	FailurePolicy FailurePolicy
}

// Evaluator evaluates designs exactly through a framework.Problem and
// approximately through a Predictor. It is safe for concurrent use.
type Evaluator struct {
	logger    logr.Logger
	problem   framework.Problem
	predictor Predictor
	observer  Observer
	opts      Options

	memory   *cache.Cache
	memoryMu sync.Mutex
	inflight singleflight.Group
	evals    atomic.Int64
}

var _ framework.Evaluator = &Evaluator{}

// NewEvaluator creates an evaluator. predictor and observer may be nil.
func NewEvaluator(logger logr.Logger, problem framework.Problem, predictor Predictor, observer Observer, opts Options) *Evaluator {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = FailurePolicyFail
	}
	e := &Evaluator{
		logger:    logger.WithValues("problem", problem.Name()),
		problem:   problem,
		predictor: predictor,
		observer:  observer,
		opts:      opts,
	}
	if opts.MemorySize > 0 {
		e.memory = cache.New(cache.NoExpiration, 0)
	}
	return e
}

// RealEvaluations is the number of exact evaluations that were not served from memory.
func (e *Evaluator) RealEvaluations() int64 {
	return e.evals.Load()
}

// Evaluate implements framework.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, alleles []bool, mode framework.EvaluationMode) (framework.Fitness, error) {
	var fitness framework.Fitness
	if e.opts.Constrained {
		fitness.ConstraintViolation = framework.TotalViolation(e.problem.Constraints(alleles))
	}
	if e.opts.ConstraintShortcut && !fitness.Feasible() {
		return fitness, nil
	}

	var (
		point framework.ObjectiveSpacePoint
		err   error
	)
	switch mode {
	case framework.Approximate:
		point, err = e.approximate(alleles)
	case framework.Exact:
		point, err = e.exact(ctx, alleles)
	default:
		err = fmt.Errorf("unknown evaluation mode %d", mode)
	}
	if err == nil {
		err = checkObjectives(point)
	}
	if err != nil {
		if e.opts.FailurePolicy == FailurePolicyPenalize {
			e.logger.Error(err, "Evaluation failed, assigning penalty fitness", "mode", mode, "design", framework.AllelesKey(alleles))
			return Penalty, nil
		}
		return framework.Fitness{}, fmt.Errorf("%s evaluation of %s: %w", mode, framework.AllelesKey(alleles), err)
	}

	fitness.Fitness1 = point[0]
	fitness.Fitness2 = point[1]
	return fitness, nil
}

func (e *Evaluator) approximate(alleles []bool) (framework.ObjectiveSpacePoint, error) {
	if e.predictor == nil {
		return nil, ErrNoPredictor
	}
	return e.predictor.Predict(alleles)
}

// exact runs the problem, sharing the result between concurrent callers of the
// same design and remembering it when memory is enabled.
func (e *Evaluator) exact(ctx context.Context, alleles []bool) (framework.ObjectiveSpacePoint, error) {
	key := framework.AllelesKey(alleles)
	if e.memory != nil {
		if v, ok := e.memory.Get(key); ok {
			return v.(framework.ObjectiveSpacePoint), nil
		}
	}

	v, err, _ := e.inflight.Do(key, func() (interface{}, error) {
		point, err := e.problem.Objectives(ctx, alleles)
		if err != nil {
			return nil, err
		}
		e.evals.Add(1)
		// non-finite results are neither learned nor remembered
		if err := checkObjectives(point); err != nil {
			return nil, err
		}
		if e.observer != nil {
			e.observer.Observe(alleles, point)
		}
		e.remember(key, point)
		return point, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(framework.ObjectiveSpacePoint), nil
}

// remember stores an exact result while memory holds fewer than MemorySize entries.
func (e *Evaluator) remember(key string, point framework.ObjectiveSpacePoint) {
	if e.memory == nil {
		return
	}
	e.memoryMu.Lock()
	defer e.memoryMu.Unlock()
	if e.memory.ItemCount() < e.opts.MemorySize {
		e.memory.Set(key, point, cache.NoExpiration)
	}
}

// checkObjectives rejects objective vectors that cannot be ranked.
func checkObjectives(point framework.ObjectiveSpacePoint) error {
	if len(point) < 2 {
		return fmt.Errorf("expected 2 objectives, got %d", len(point))
	}
	for i, v := range point[:2] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("objective %d is not finite: %v", i+1, v)
		}
	}
	return nil
}
