package algorithms

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/multiobjective/metrics"
)

// Shard is a half-open index range [Start, End) of a population.
type Shard struct {
	Start int
	End   int
}

// Len is the number of individuals in the shard.
func (s Shard) Len() int {
	return s.End - s.Start
}

// Shards splits n indices into numThreads contiguous, disjoint ranges. Every shard
// holds n/numThreads indices and the last one absorbs the remainder.
func Shards(n, numThreads int) []Shard {
	if numThreads < 1 {
		numThreads = 1
	}
	perThread := n / numThreads
	shards := make([]Shard, numThreads)
	for i := 0; i < numThreads; i++ {
		end := perThread * (i + 1)
		if i == numThreads-1 {
			end = n
		}
		shards[i] = Shard{Start: perThread * i, End: end}
	}
	return shards
}

// Dispatcher evaluates populations in parallel, one worker per shard.
type Dispatcher struct {
	evaluator  framework.Evaluator
	numThreads int
}

// NewDispatcher creates a dispatcher running at most numThreads workers.
func NewDispatcher(evaluator framework.Evaluator, numThreads int) *Dispatcher {
	if numThreads < 1 {
		numThreads = 1
	}
	return &Dispatcher{
		evaluator:  evaluator,
		numThreads: numThreads,
	}
}

// Evaluate assigns a fitness to every individual of the population and returns
// once all workers are done. Workers only write to their own shard, so the
// population needs no locking. Workers are never cancelled: a failing shard
// stops at its first error while the others run to completion, and every shard
// error is returned in one aggregate.
func (d *Dispatcher) Evaluate(ctx context.Context, population []*framework.Individual, mode framework.EvaluationMode) error {
	logger := klog.FromContext(ctx)
	start := time.Now()
	shards := Shards(len(population), d.numThreads)
	errs := make([]error, len(shards))

	g := &errgroup.Group{}
	g.SetLimit(d.numThreads)
	for i, shard := range shards {
		if shard.Len() == 0 {
			continue
		}
		g.Go(func() error {
			errs[i] = d.evaluateShard(ctx, population, shard, mode)
			return errs[i]
		})
	}
	// errs holds every failure; Wait only reports the first one
	_ = g.Wait()

	metrics.BatchDuration.WithLabelValues(mode.String()).Observe(metrics.SinceInSeconds(start))
	metrics.Evaluations.WithLabelValues(mode.String()).Add(float64(len(population)))

	for _, err := range errs {
		if err != nil {
			metrics.EvaluationErrors.WithLabelValues(mode.String()).Inc()
		}
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		return fmt.Errorf("%s evaluation of %d individuals failed: %w", mode, len(population), err)
	}
	logger.V(5).Info("Evaluated population", "mode", mode, "individuals", len(population), "shards", len(shards), "elapsed", time.Since(start))
	return nil
}

func (d *Dispatcher) evaluateShard(ctx context.Context, population []*framework.Individual, shard Shard, mode framework.EvaluationMode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shard [%d,%d): evaluator panicked: %v", shard.Start, shard.End, r)
		}
	}()

	for j := shard.Start; j < shard.End; j++ {
		fitness, err := d.evaluator.Evaluate(ctx, population[j].Alleles(), mode)
		if err != nil {
			return fmt.Errorf("shard [%d,%d): individual %d: %w", shard.Start, shard.End, j, err)
		}
		population[j].SetFitness(fitness)
	}
	return nil
}
