package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/multiobjective/metrics"
	"github.com/windowshading/optimizer/pkg/multiobjective/util"
)

const (
	Name = "NSGA-II"

	// hypervolumeMargin pushes the reference point past the worst initial value.
	hypervolumeMargin = 0.1
)

// NSGA2Config holds the NSGA-II parameters.
type NSGA2Config struct {
	// WindowsCount is the number of windows of the façade. Every window is
	// encoded by two alleles (shading device and overhang).
	WindowsCount int
	// PopulationSize is the constant number of solutions per generation.
	PopulationSize int
	// NumThreads is the number of evaluation workers per generation.
	NumThreads int
	// MaxIterations is the number of generational replacement steps.
	MaxIterations int

	SelectionRate float64
	CrossoverRate float64
	MutationRate  float64

	// RefreshPeriod triggers a surrogate refresh every RefreshPeriod iterations,
	// except on the final one. Zero disables refreshing.
	RefreshPeriod int
	// ValidateExact re-evaluates the final population with the exact evaluator.
	ValidateExact bool
	// Seed seeds the random source. Zero picks a random seed.
	Seed uint64
}

// DefaultNSGA2Config returns the configuration used for the 120 window façade.
func DefaultNSGA2Config() NSGA2Config {
	return NSGA2Config{
		WindowsCount:   120,
		PopulationSize: 100,
		NumThreads:     10,
		MaxIterations:  5000,
		SelectionRate:  0.5,
		CrossoverRate:  0.5,
		MutationRate:   0.25,
		RefreshPeriod:  100,
		ValidateExact:  true,
	}
}

// Dimension is the number of alleles of a design.
func (c NSGA2Config) Dimension() int {
	return 2 * c.WindowsCount
}

// NSGAII represents the NSGA-II engine. It is not safe for concurrent Run calls.
type NSGAII struct {
	Config NSGA2Config

	evaluator  framework.Evaluator
	surrogate  framework.SurrogateModel
	sink       framework.PopulationSink
	dispatcher *Dispatcher
	rng        *rand.Rand
}

var _ framework.Algorithm = &NSGAII{}

// NewNSGAII creates a new instance of NSGA-II. surrogate and sink may be nil.
func NewNSGAII(config NSGA2Config, evaluator framework.Evaluator, surrogate framework.SurrogateModel, sink framework.PopulationSink) *NSGAII {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &NSGAII{
		Config:     config,
		evaluator:  evaluator,
		surrogate:  surrogate,
		sink:       sink,
		dispatcher: NewDispatcher(evaluator, config.NumThreads),
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (n *NSGAII) Name() string {
	return Name
}

// Result is the outcome of a run.
type Result struct {
	// Population is the final population, front 0 first. After exact validation
	// it carries the exact fitness and ranks.
	Population []*framework.Individual
	// ApproximateFitness holds the surrogate fitness of Population, index by
	// index, when the population was re-evaluated exactly.
	ApproximateFitness []framework.Fitness
	Iterations         int

	ReferencePoint   framework.ObjectiveSpacePoint
	FirstHypervolume float64
	LastHypervolume  float64

	// Validated is set when the final population was re-evaluated exactly.
	Validated bool
	// MeanDeviation is the mean of exact minus approximate fitness1.
	MeanDeviation float64

	RealEvaluations int64
	Elapsed         time.Duration
}

// Improvement is the hypervolume gained between the first and last generation.
func (r *Result) Improvement() float64 {
	return r.LastHypervolume - r.FirstHypervolume
}

// ParetoFront returns the rank 0 members of the final population.
func (r *Result) ParetoFront() []*framework.Individual {
	var front []*framework.Individual
	for _, ind := range r.Population {
		if ind.Rank == 0 {
			front = append(front, ind)
		}
	}
	return front
}

// Run executes the NSGA-II algorithm. The search always performs MaxIterations
// steps; ctx carries the logger and is handed to the collaborators.
func (n *NSGAII) Run(ctx context.Context) (*Result, error) {
	logger := klog.FromContext(ctx).WithValues("algorithm", n.Name())
	ctx = klog.NewContext(ctx, logger)
	start := time.Now()
	cfg := n.Config

	logger.Info("Starting optimization",
		"dimension", cfg.Dimension(),
		"populationSize", cfg.PopulationSize,
		"threads", cfg.NumThreads,
		"iterations", cfg.MaxIterations)

	// 1 - initialize random population
	initial := Initialize(n.rng, cfg.Dimension(), cfg.PopulationSize)
	if err := n.dispatcher.Evaluate(ctx, initial, framework.Approximate); err != nil {
		return nil, fmt.Errorf("evaluating initial population: %w", err)
	}
	initial = framework.AscendFronts(framework.NonDominatedSort(initial))

	// 2 - offspring
	offspring := n.CreateOffspring(initial)
	if err := n.dispatcher.Evaluate(ctx, offspring, framework.Approximate); err != nil {
		return nil, fmt.Errorf("evaluating initial offspring: %w", err)
	}

	result := &Result{
		ReferencePoint: util.ReferencePoint(initial, hypervolumeMargin),
	}
	result.FirstHypervolume = util.PopulationHypervolume(initial, result.ReferencePoint)
	metrics.Hypervolume.WithLabelValues("first").Set(result.FirstHypervolume)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		// Combine populations
		combined := make([]*framework.Individual, 0, len(initial)+len(offspring))
		combined = append(combined, initial...)
		combined = append(combined, offspring...)

		fronts := framework.NonDominatedSort(combined)
		metrics.FrontSize.Set(float64(len(fronts[0])))

		initial = SelectNextGeneration(fronts, cfg.PopulationSize)

		offspring = n.CreateOffspring(initial)
		if err := n.dispatcher.Evaluate(ctx, offspring, framework.Approximate); err != nil {
			return nil, fmt.Errorf("iteration %d: evaluating offspring: %w", iter, err)
		}

		if n.shouldRefresh(iter) {
			logger.V(3).Info("Refreshing surrogate model", "iteration", iter)
			if err := n.surrogate.Refresh(ctx); err != nil {
				return nil, fmt.Errorf("iteration %d: refreshing surrogate model: %w", iter, err)
			}
			metrics.SurrogateRefreshes.Inc()
		}

		metrics.Iterations.Inc()
		result.Iterations = iter + 1
		if (iter+1)%100 == 0 {
			logger.V(2).Info("Optimization progress",
				"iteration", iter+1,
				"fronts", len(fronts),
				"paretoFrontSize", len(fronts[0]))
		}
	}

	result.Population = initial
	result.LastHypervolume = util.PopulationHypervolume(initial, result.ReferencePoint)
	metrics.Hypervolume.WithLabelValues("last").Set(result.LastHypervolume)

	if n.sink != nil {
		n.sink.Observe(ctx, initial)
	}

	if cfg.ValidateExact {
		if err := n.validate(ctx, result); err != nil {
			return nil, err
		}
	}

	result.RealEvaluations = n.evaluator.RealEvaluations()
	result.Elapsed = time.Since(start)

	logger.Info("Optimization finished",
		"iterations", result.Iterations,
		"firstHypervolume", result.FirstHypervolume,
		"lastHypervolume", result.LastHypervolume,
		"improvement", result.Improvement(),
		"meanDeviation", result.MeanDeviation,
		"realEvaluations", humanize.Comma(result.RealEvaluations),
		"elapsed", result.Elapsed)

	return result, nil
}

func (n *NSGAII) shouldRefresh(iter int) bool {
	period := n.Config.RefreshPeriod
	return n.surrogate != nil && period > 0 && iter%period == 0 && iter != n.Config.MaxIterations-1
}

// validate re-evaluates the final population exactly, records the mean signed
// deviation of fitness1 and re-sorts the population by its exact ranks.
func (n *NSGAII) validate(ctx context.Context, result *Result) error {
	population := result.Population
	approx := make([]float64, len(population))
	result.ApproximateFitness = make([]framework.Fitness, len(population))
	for i, ind := range population {
		approx[i] = ind.Fitness1
		result.ApproximateFitness[i] = ind.Fitness
	}

	if err := n.dispatcher.Evaluate(ctx, population, framework.Exact); err != nil {
		return fmt.Errorf("exact validation of final population: %w", err)
	}

	exact := make([]float64, len(population))
	for i, ind := range population {
		exact[i] = ind.Fitness1
	}
	deviation, err := util.MeanSignedDeviation(approx, exact)
	if err != nil {
		return fmt.Errorf("computing approximation deviation: %w", err)
	}
	result.MeanDeviation = deviation

	// rank the final population again under its exact fitness
	approxOf := make(map[*framework.Individual]framework.Fitness, len(population))
	for i, ind := range population {
		approxOf[ind] = result.ApproximateFitness[i]
	}
	result.Population = framework.AscendFronts(framework.NonDominatedSort(population))
	for i, ind := range result.Population {
		result.ApproximateFitness[i] = approxOf[ind]
	}
	result.Validated = true
	return nil
}

// SelectNextGeneration fills a population of popSize from fronts: whole fronts
// are taken in order while they fit, and the first front that does not fit is
// truncated to its most isolated members by crowding distance.
func SelectNextGeneration(fronts [][]*framework.Individual, popSize int) []*framework.Individual {
	population := make([]*framework.Individual, 0, popSize)
	frontIndex := 0

	// Add fronts to new population
	for frontIndex < len(fronts) && len(population)+len(fronts[frontIndex]) <= popSize {
		population = append(population, fronts[frontIndex]...)
		frontIndex++
	}

	// If needed, add remaining individuals based on crowding distance
	if len(population) < popSize && frontIndex < len(fronts) {
		front := make([]*framework.Individual, len(fronts[frontIndex]))
		copy(front, fronts[frontIndex])
		CrowdingDistance(front)
		sort.SliceStable(front, func(i, j int) bool {
			return front[i].Distance > front[j].Distance
		})
		population = append(population, front[:popSize-len(population)]...)
	}

	return population
}

// CrowdingDistance calculates crowding distance for individuals in a front.
// Boundary individuals of each objective get +Inf. An objective with zero range
// over the front adds nothing to the interior distances. The order of front is
// left unchanged.
func CrowdingDistance(front []*framework.Individual) {
	if len(front) <= 2 {
		for i := range front {
			front[i].Distance = math.Inf(1)
		}
		return
	}

	for i := range front {
		front[i].Distance = 0
	}

	sorted := make([]*framework.Individual, len(front))
	copy(sorted, front)
	objectives := []func(*framework.Individual) float64{
		func(ind *framework.Individual) float64 { return ind.Fitness1 },
		func(ind *framework.Individual) float64 { return ind.Fitness2 },
	}

	last := len(sorted) - 1
	for _, value := range objectives {
		// Sort by each objective
		sort.SliceStable(sorted, func(i, j int) bool {
			return value(sorted[i]) < value(sorted[j])
		})

		// Set boundary points to infinity
		sorted[0].Distance = math.Inf(1)
		sorted[last].Distance = math.Inf(1)

		objectiveRange := value(sorted[last]) - value(sorted[0])
		if objectiveRange == 0 {
			continue
		}

		// Calculate distance for intermediate points
		for i := 1; i < last; i++ {
			sorted[i].Distance += (value(sorted[i+1]) - value(sorted[i-1])) / objectiveRange
		}
	}
}
