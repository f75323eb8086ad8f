// Package multiobjective wires the window shading optimizer: the façade
// problem, the surrogate, the fitness evaluator and the NSGA-II engine.
package multiobjective

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/apis/config/v1alpha1"
	"github.com/windowshading/optimizer/pkg/multiobjective/algorithms"
	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/multiobjective/util"
	"github.com/windowshading/optimizer/pkg/surrogate"
	"github.com/windowshading/optimizer/pkg/windowshading"
)

const (
	Name = "WindowShadingOptimizer"
)

// Optimizer runs one configured optimisation.
type Optimizer struct {
	args      *v1alpha1.OptimizerArgs
	problem   framework.Problem
	surrogate *surrogate.Linear
	evaluator *windowshading.Evaluator
	engine    *algorithms.NSGAII
	sink      framework.PopulationSink
	plotPath  string
}

// Option customises an Optimizer.
type Option func(*Optimizer)

// WithSink sends the final population to sink.
func WithSink(sink framework.PopulationSink) Option {
	return func(o *Optimizer) {
		o.sink = sink
	}
}

// WithPlot renders the final population as an HTML scatter plot at path.
func WithPlot(path string) Option {
	return func(o *Optimizer) {
		o.plotPath = path
	}
}

// New validates args and builds the optimizer. args must be defaulted.
func New(ctx context.Context, args *v1alpha1.OptimizerArgs, opts ...Option) (*Optimizer, error) {
	logger := klog.FromContext(ctx)
	logger.V(5).Info("Creating instance of optimizer", "name", Name)

	if errs := v1alpha1.ValidateOptimizerArgs(field.NewPath("optimizerArgs"), args); len(errs) > 0 {
		return nil, fmt.Errorf("invalid optimizer args: %w", errs.ToAggregate())
	}

	problem, err := newProblem(args)
	if err != nil {
		return nil, err
	}

	o := &Optimizer{
		args:    args,
		problem: problem,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil && o.plotPath != "" {
		o.sink = &util.HTMLSink{Path: o.plotPath, Problem: problem, AlgorithmName: algorithms.Name}
	}

	config := nsga2Config(args)
	o.surrogate = surrogate.NewLinear(config.Dimension(), *args.Surrogate.Regularization, int(args.Surrogate.MaxSamples))
	o.evaluator = windowshading.NewEvaluator(logger, problem, o.surrogate, o.surrogate, windowshading.Options{
		Constrained:        *args.Evaluation.Constrained,
		ConstraintShortcut: *args.Evaluation.ConstraintShortcut,
		MemorySize:         int(*args.Evaluation.MemorySize),
		FailurePolicy:      windowshading.FailurePolicy(args.Evaluation.FailurePolicy),
	})
	o.engine = algorithms.NewNSGAII(config, o.evaluator, o.surrogate, o.sink)

	logger.V(2).Info("Created optimizer", "problem", problem.Name(), "dimension", problem.Dimension())
	return o, nil
}

func nsga2Config(args *v1alpha1.OptimizerArgs) algorithms.NSGA2Config {
	return algorithms.NSGA2Config{
		WindowsCount:   int(args.WindowsCount),
		PopulationSize: int(args.NumSolutions),
		NumThreads:     int(args.NumThreads),
		MaxIterations:  int(args.MaxEvals),
		SelectionRate:  *args.SelectionRate,
		CrossoverRate:  *args.CrossoverRate,
		MutationRate:   *args.MutationRate,
		RefreshPeriod:  int(*args.SurrogateRefreshPeriod),
		ValidateExact:  *args.ValidateExact,
		Seed:           args.Seed,
	}
}

// Problem is the problem being optimised.
func (o *Optimizer) Problem() framework.Problem {
	return o.problem
}

// Run trains the surrogate, runs the search and reports its Pareto front.
func (o *Optimizer) Run(ctx context.Context) (*v1alpha1.ParetoReport, error) {
	logger := klog.FromContext(ctx).WithValues("optimizer", Name)
	ctx = klog.NewContext(ctx, logger)
	started := metav1.Now()

	if err := o.bootstrap(ctx); err != nil {
		return nil, err
	}

	result, err := o.engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", o.engine.Name(), err)
	}

	report := newReport(result, started)
	logger.Info("Optimization report ready", "solutions", len(report.Solutions), "improvement", report.Summary.Improvement)
	return report, nil
}

// bootstrap trains the surrogate on exact evaluations of random feasible designs.
func (o *Optimizer) bootstrap(ctx context.Context) error {
	logger := klog.FromContext(ctx)
	n := int(*o.args.Surrogate.BootstrapSamples)
	start := time.Now()

	seed := o.args.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	r := rand.New(rand.NewPCG(seed^0x5bd1e995, seed))
	designs := make([]*framework.Individual, n)
	for i := range designs {
		designs[i] = framework.NewIndividual(windowshading.RandomDesign(r, int(o.args.WindowsCount)))
	}

	// the evaluator feeds every exact result to the surrogate
	dispatcher := algorithms.NewDispatcher(o.evaluator, int(o.args.NumThreads))
	if err := dispatcher.Evaluate(ctx, designs, framework.Exact); err != nil {
		return fmt.Errorf("bootstrapping surrogate: %w", err)
	}
	if err := o.surrogate.Refresh(ctx); err != nil {
		return fmt.Errorf("bootstrapping surrogate: %w", err)
	}
	if !o.surrogate.Trained() {
		return fmt.Errorf("bootstrapping surrogate: no usable sample among %d designs", n)
	}

	logger.V(2).Info("Trained surrogate", "samples", o.surrogate.Samples(), "elapsed", time.Since(start))
	return nil
}

// newReport keeps one solution per distinct design of the final Pareto front.
func newReport(result *algorithms.Result, started metav1.Time) *v1alpha1.ParetoReport {
	finished := metav1.Now()
	report := &v1alpha1.ParetoReport{
		TypeMeta: metav1.TypeMeta{APIVersion: v1alpha1.GroupVersion, Kind: v1alpha1.ParetoReportKind},
		ObjectMeta: metav1.ObjectMeta{
			Name:              fmt.Sprintf("pareto-%d", finished.Unix()),
			CreationTimestamp: finished,
		},
		Solutions: []v1alpha1.OptimizationSolution{},
		Summary: v1alpha1.RunSummary{
			Iterations:       int32(result.Iterations),
			FirstHypervolume: result.FirstHypervolume,
			LastHypervolume:  result.LastHypervolume,
			Improvement:      result.Improvement(),
			RealEvaluations:  result.RealEvaluations,
			StartedAt:        &started,
			FinishedAt:       &finished,
		},
	}
	if result.Validated {
		deviation := result.MeanDeviation
		report.Summary.MeanDeviation = &deviation
	}

	seen := map[string]bool{}
	for _, ind := range result.ParetoFront() {
		key := ind.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		report.Solutions = append(report.Solutions, v1alpha1.OptimizationSolution{
			Rank:                ind.Rank,
			Design:              key,
			Objectives:          v1alpha1.ObjectiveValues{Energy: ind.Fitness1, Cost: ind.Fitness2},
			ConstraintViolation: ind.ConstraintViolation,
			ShadedWindows:       windowshading.ShadedWindows(ind.Alleles()),
		})
	}
	return report
}
