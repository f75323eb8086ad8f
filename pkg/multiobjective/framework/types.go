package framework

import (
	"context"
	"strings"
)

// EvaluationMode selects which collaborator produces the fitness of an individual.
type EvaluationMode int

const (
	// Approximate evaluates with the surrogate model.
	Approximate EvaluationMode = iota
	// Exact evaluates with the ground-truth simulator.
	Exact
)

func (m EvaluationMode) String() string {
	switch m {
	case Approximate:
		return "approximate"
	case Exact:
		return "exact"
	default:
		return "unknown"
	}
}

// Fitness is the outcome of evaluating one design. Both objectives are minimized.
// A ConstraintViolation of 0 means the design is feasible.
type Fitness struct {
	Fitness1            float64
	Fitness2            float64
	ConstraintViolation float64
}

// Feasible reports whether the fitness carries no constraint violation.
func (f Fitness) Feasible() bool {
	return f.ConstraintViolation == 0
}

// Individual represents a solution in the population.
// Alleles are never modified after construction; operators build new individuals.
// Two individuals may share equal alleles, so identity is the pointer.
type Individual struct {
	alleles []bool

	Fitness
	// Evaluated is set once a fitness has been assigned.
	Evaluated bool

	// Rank is the index of the front the individual was last sorted into.
	Rank int
	// Distance is the crowding distance within the front it was last truncated in.
	Distance float64
}

// NewIndividual takes ownership of alleles; callers must not modify the slice afterwards.
func NewIndividual(alleles []bool) *Individual {
	return &Individual{alleles: alleles}
}

// Alleles returns a copy of the bit vector.
func (ind *Individual) Alleles() []bool {
	out := make([]bool, len(ind.alleles))
	copy(out, ind.alleles)
	return out
}

// Allele returns the bit at position i.
func (ind *Individual) Allele(i int) bool {
	return ind.alleles[i]
}

// Len is the problem dimension of the individual.
func (ind *Individual) Len() int {
	return len(ind.alleles)
}

// SetFitness records an evaluation result.
func (ind *Individual) SetFitness(f Fitness) {
	ind.Fitness = f
	ind.Evaluated = true
}

// Point returns the objective space coordinates of the individual.
func (ind *Individual) Point() ObjectiveSpacePoint {
	return ObjectiveSpacePoint{ind.Fitness1, ind.Fitness2}
}

// Key encodes the alleles as a bit string, e.g. "0110".
func (ind *Individual) Key() string {
	return AllelesKey(ind.alleles)
}

// AllelesKey encodes alleles as a string of '0' and '1'.
func AllelesKey(alleles []bool) string {
	var sb strings.Builder
	sb.Grow(len(alleles))
	for _, a := range alleles {
		if a {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// ObjectiveSpacePoint represents an N-dimensional point in the objective space.
// As an example, for a problem with 2 objective functions f1 and f2, a point
// in the objective space could be [f1(x'), f2(x')], for the input of x'.
type ObjectiveSpacePoint []float64

// Evaluator produces the fitness of an allele vector.
//
// Implementations are called from several dispatcher workers at once and must be
// safe for concurrent use without external locking.
type Evaluator interface {
	Evaluate(ctx context.Context, alleles []bool, mode EvaluationMode) (Fitness, error)
	// RealEvaluations is the number of non-cached ground-truth evaluations so far.
	RealEvaluations() int64
}

// SurrogateModel is refreshed periodically by the engine. Refresh is never
// called while a generation is being evaluated.
type SurrogateModel interface {
	Refresh(ctx context.Context) error
}

// PopulationSink receives population snapshots for reporting. It cannot affect the search.
type PopulationSink interface {
	Observe(ctx context.Context, population []*Individual)
}

// Algorithm describes the contract that a MOO algorithm needs to implement.
type Algorithm interface {
	Name() string
}
