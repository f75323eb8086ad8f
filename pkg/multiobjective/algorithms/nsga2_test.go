package algorithms

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowshading/optimizer/pkg/multiobjective/benchmarks"
	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/windowshading"
)

// problemPredictor is a perfect surrogate: it asks the problem itself.
type problemPredictor struct {
	problem framework.Problem
}

func (p problemPredictor) Predict(alleles []bool) (framework.ObjectiveSpacePoint, error) {
	return p.problem.Objectives(context.Background(), alleles)
}

type countingSurrogate struct {
	calls int
	err   error
}

func (s *countingSurrogate) Refresh(context.Context) error {
	s.calls++
	return s.err
}

type recordingSink struct {
	snapshots [][]*framework.Individual
}

func (s *recordingSink) Observe(_ context.Context, population []*framework.Individual) {
	s.snapshots = append(s.snapshots, population)
}

func evaluated(f1, f2 float64) *framework.Individual {
	ind := framework.NewIndividual([]bool{false})
	ind.SetFitness(framework.Fitness{Fitness1: f1, Fitness2: f2})
	return ind
}

func facadeConfig() NSGA2Config {
	cfg := DefaultNSGA2Config()
	cfg.WindowsCount = 8
	cfg.PopulationSize = 20
	cfg.NumThreads = 4
	cfg.MaxIterations = 150
	cfg.RefreshPeriod = 50
	cfg.Seed = 1
	return cfg
}

func facadeEvaluator() *windowshading.Evaluator {
	facade := benchmarks.NewFacade(8, 7)
	return windowshading.NewEvaluator(logr.Discard(), facade, problemPredictor{facade}, nil, windowshading.Options{
		Constrained:        true,
		ConstraintShortcut: true,
		MemorySize:         1000,
	})
}

// Test problem: synthetic façade benchmark
func TestNSGAIIWithFacade(t *testing.T) {
	cfg := facadeConfig()
	surrogate := &countingSurrogate{}
	sink := &recordingSink{}
	nsga := NewNSGAII(cfg, facadeEvaluator(), surrogate, sink)

	result, err := nsga.Run(context.Background())
	require.NoError(t, err)

	// Basic validation
	finalPop := result.Population
	require.Len(t, finalPop, cfg.PopulationSize)
	assert.Equal(t, cfg.MaxIterations, result.Iterations)
	assert.Equal(t, 3, surrogate.calls, "refresh at iterations 0, 50 and 100")
	require.Len(t, sink.snapshots, 1)
	assert.Len(t, sink.snapshots[0], cfg.PopulationSize)

	// front 0 first, ranks never decrease
	for i := 1; i < len(finalPop); i++ {
		assert.LessOrEqual(t, finalPop[i-1].Rank, finalPop[i].Rank)
	}

	assert.Greater(t, result.LastHypervolume, result.FirstHypervolume)
	assert.Greater(t, result.Improvement(), 0.0)

	// the surrogate is perfect, so validation finds no deviation
	assert.True(t, result.Validated)
	assert.InDelta(t, 0, result.MeanDeviation, 1e-9)
	require.Len(t, result.ApproximateFitness, cfg.PopulationSize)
	assert.Greater(t, result.RealEvaluations, int64(0))
	assert.LessOrEqual(t, result.RealEvaluations, int64(cfg.PopulationSize))

	// Check if first front is non-dominated
	firstFront := result.ParetoFront()
	require.NotEmpty(t, firstFront)
	for i := 0; i < len(firstFront); i++ {
		for j := 0; j < len(firstFront); j++ {
			if i != j && framework.Dominates(firstFront[i], firstFront[j]) {
				t.Error("First front contains dominated solutions")
			}
		}
	}
}

func TestNSGAIIDeterministicWithSeed(t *testing.T) {
	cfg := facadeConfig()
	cfg.MaxIterations = 40

	keys := func() []string {
		result, err := NewNSGAII(cfg, facadeEvaluator(), nil, nil).Run(context.Background())
		require.NoError(t, err)
		out := make([]string, len(result.Population))
		for i, ind := range result.Population {
			out[i] = ind.Key()
		}
		return out
	}

	assert.Equal(t, keys(), keys())
}

func TestNSGAIIMeanDeviation(t *testing.T) {
	evaluator := newCountEvaluator()
	evaluator.offset = 1.5
	cfg := NSGA2Config{
		WindowsCount:   3,
		PopulationSize: 10,
		NumThreads:     5,
		MaxIterations:  5,
		SelectionRate:  0.5,
		CrossoverRate:  0.5,
		MutationRate:   0.2,
		ValidateExact:  true,
		Seed:           4,
	}

	result, err := NewNSGAII(cfg, evaluator, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.5, result.MeanDeviation, 1e-9)
	assert.EqualValues(t, 10, result.RealEvaluations)
	for i, ind := range result.Population {
		assert.InDelta(t, result.ApproximateFitness[i].Fitness1+1.5, ind.Fitness1, 1e-9)
	}
}

func TestNSGAIIRanksByExactFitnessAfterValidation(t *testing.T) {
	evaluator := newCountEvaluator()
	evaluator.invertExact = true
	cfg := NSGA2Config{
		WindowsCount:   4,
		PopulationSize: 16,
		NumThreads:     4,
		MaxIterations:  20,
		SelectionRate:  0.5,
		CrossoverRate:  0.5,
		MutationRate:   0.2,
		ValidateExact:  true,
		Seed:           9,
	}

	result, err := NewNSGAII(cfg, evaluator, nil, nil).Run(context.Background())
	require.NoError(t, err)

	population := result.Population
	require.Len(t, population, cfg.PopulationSize)
	for i := 1; i < len(population); i++ {
		assert.LessOrEqual(t, population[i-1].Rank, population[i].Rank)
	}
	for _, a := range population {
		for _, b := range population {
			if framework.Dominates(a, b) {
				assert.Less(t, a.Rank, b.Rank, "%s dominates %s under exact fitness", a.Key(), b.Key())
			}
		}
	}
	// approximate fitness1 counts set bits and stays aligned with its individual
	for i, ind := range population {
		ones := 0.0
		for _, a := range ind.Alleles() {
			if a {
				ones++
			}
		}
		assert.Equal(t, ones, result.ApproximateFitness[i].Fitness1)
		assert.Equal(t, float64(ind.Len())-ones, ind.Fitness1)
	}
}

func TestNSGAIIWithoutValidation(t *testing.T) {
	evaluator := newCountEvaluator()
	cfg := NSGA2Config{WindowsCount: 2, PopulationSize: 6, NumThreads: 2, MaxIterations: 3, SelectionRate: 0.5, CrossoverRate: 0.5, MutationRate: 0.2, Seed: 2}

	result, err := NewNSGAII(cfg, evaluator, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Validated)
	assert.Nil(t, result.ApproximateFitness)
	assert.Zero(t, evaluator.modes[framework.Exact])
	// initial population, initial offspring, one offspring per iteration
	assert.Equal(t, 6*(2+3), evaluator.modes[framework.Approximate])
}

func TestNSGAIIPropagatesEvaluationErrors(t *testing.T) {
	evaluator := newCountEvaluator()
	boom := errors.New("no simulator licence")
	evaluator.fail = func([]bool) error { return boom }
	cfg := NSGA2Config{WindowsCount: 2, PopulationSize: 4, NumThreads: 2, MaxIterations: 3, Seed: 2}

	_, err := NewNSGAII(cfg, evaluator, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestNSGAIIPropagatesRefreshErrors(t *testing.T) {
	boom := errors.New("training diverged")
	cfg := NSGA2Config{WindowsCount: 2, PopulationSize: 4, NumThreads: 2, MaxIterations: 3, RefreshPeriod: 1, Seed: 2}

	_, err := NewNSGAII(cfg, newCountEvaluator(), &countingSurrogate{err: boom}, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestShouldRefresh(t *testing.T) {
	n := NewNSGAII(NSGA2Config{MaxIterations: 201, RefreshPeriod: 100}, nil, &countingSurrogate{}, nil)
	var got []int
	for iter := 0; iter < n.Config.MaxIterations; iter++ {
		if n.shouldRefresh(iter) {
			got = append(got, iter)
		}
	}
	assert.Equal(t, []int{0, 100}, got, "the final iteration never refreshes")

	n.Config.RefreshPeriod = 0
	assert.False(t, n.shouldRefresh(0))

	n = NewNSGAII(NSGA2Config{MaxIterations: 201, RefreshPeriod: 100}, nil, nil, nil)
	assert.False(t, n.shouldRefresh(0), "no surrogate, no refresh")
}

func TestCrowdingDistance(t *testing.T) {
	a, b, c, d := evaluated(1, 4), evaluated(2, 3), evaluated(3, 2), evaluated(4, 1)
	front := []*framework.Individual{c, a, d, b}

	CrowdingDistance(front)

	assert.True(t, math.IsInf(a.Distance, 1))
	assert.True(t, math.IsInf(d.Distance, 1))
	assert.InDelta(t, 4.0/3.0, b.Distance, 1e-12)
	assert.InDelta(t, 4.0/3.0, c.Distance, 1e-12)
	assert.Equal(t, []*framework.Individual{c, a, d, b}, front, "order is preserved")
}

func TestCrowdingDistanceSmallFronts(t *testing.T) {
	a, b := evaluated(1, 2), evaluated(2, 1)
	CrowdingDistance([]*framework.Individual{a, b})
	assert.True(t, math.IsInf(a.Distance, 1))
	assert.True(t, math.IsInf(b.Distance, 1))

	single := evaluated(5, 5)
	CrowdingDistance([]*framework.Individual{single})
	assert.True(t, math.IsInf(single.Distance, 1))

	CrowdingDistance(nil)
}

func TestCrowdingDistanceDegenerateObjective(t *testing.T) {
	// every member shares fitness1, so only fitness2 separates them
	front := []*framework.Individual{evaluated(3, 1), evaluated(3, 2), evaluated(3, 4), evaluated(3, 5)}

	CrowdingDistance(front)

	for _, ind := range front {
		assert.False(t, math.IsNaN(ind.Distance))
	}
	assert.True(t, math.IsInf(front[0].Distance, 1))
	assert.True(t, math.IsInf(front[3].Distance, 1))
	assert.InDelta(t, 3.0/4.0, front[1].Distance, 1e-12)
	assert.InDelta(t, 3.0/4.0, front[2].Distance, 1e-12)
}

func TestCrowdingDistanceAllEqual(t *testing.T) {
	front := []*framework.Individual{evaluated(1, 1), evaluated(1, 1), evaluated(1, 1), evaluated(1, 1)}

	CrowdingDistance(front)

	infinite := 0
	for _, ind := range front {
		require.False(t, math.IsNaN(ind.Distance))
		if math.IsInf(ind.Distance, 1) {
			infinite++
		} else {
			assert.Zero(t, ind.Distance)
		}
	}
	assert.GreaterOrEqual(t, infinite, 2)
}

func TestCrowdingDistanceBoundaryProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	for k := 0; k < 50; k++ {
		n := 2 + r.IntN(15)
		front := make([]*framework.Individual, n)
		for i := range front {
			front[i] = evaluated(r.Float64(), r.Float64())
		}
		CrowdingDistance(front)

		lo1, hi1, lo2, hi2 := front[0], front[0], front[0], front[0]
		for _, ind := range front {
			if ind.Fitness1 < lo1.Fitness1 {
				lo1 = ind
			}
			if ind.Fitness1 > hi1.Fitness1 {
				hi1 = ind
			}
			if ind.Fitness2 < lo2.Fitness2 {
				lo2 = ind
			}
			if ind.Fitness2 > hi2.Fitness2 {
				hi2 = ind
			}
		}
		for _, ind := range []*framework.Individual{lo1, hi1, lo2, hi2} {
			assert.True(t, math.IsInf(ind.Distance, 1))
		}
	}
}

func TestSelectNextGenerationTruncatesByCrowding(t *testing.T) {
	f0 := []*framework.Individual{evaluated(0, 0), evaluated(0.5, 0.5)}
	left, middle, right := evaluated(1, 4), evaluated(2, 3), evaluated(4, 1)
	f1 := []*framework.Individual{middle, left, right}
	f2 := []*framework.Individual{evaluated(9, 9)}

	next := SelectNextGeneration([][]*framework.Individual{f0, f1, f2}, 4)

	require.Len(t, next, 4)
	assert.Equal(t, f0, next[:2])
	assert.ElementsMatch(t, []*framework.Individual{left, right}, next[2:])
	assert.Equal(t, []*framework.Individual{middle, left, right}, f1, "input front untouched")
}

func TestSelectNextGenerationExactFit(t *testing.T) {
	f0 := []*framework.Individual{evaluated(0, 1), evaluated(1, 0)}
	f1 := []*framework.Individual{evaluated(2, 2), evaluated(1, 3)}
	f2 := []*framework.Individual{evaluated(5, 5)}

	next := SelectNextGeneration([][]*framework.Individual{f0, f1, f2}, 4)

	assert.Equal(t, append(append([]*framework.Individual{}, f0...), f1...), next)
}

func TestSelectNextGenerationElitism(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 8))
	for k := 0; k < 30; k++ {
		n := 10 + r.IntN(20)
		pool := make([]*framework.Individual, 2*n)
		for i := range pool {
			pool[i] = evaluated(float64(r.IntN(30)), float64(r.IntN(30)))
		}
		fronts := framework.NonDominatedSort(pool)

		next := SelectNextGeneration(fronts, n)

		require.Len(t, next, n)
		if len(fronts[0]) <= n {
			assert.Subset(t, next, fronts[0])
		}
		seen := map[*framework.Individual]bool{}
		for _, ind := range next {
			assert.False(t, seen[ind], "duplicate survivor")
			seen[ind] = true
		}
	}
}
