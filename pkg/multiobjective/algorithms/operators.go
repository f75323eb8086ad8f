package algorithms

import (
	"math/rand/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

// Initialize creates a population of popSize individuals of dimension numAlleles.
// Index 0 is the all-false baseline design; the rest are uniformly random.
// No fitness is assigned.
func Initialize(r *rand.Rand, numAlleles, popSize int) []*framework.Individual {
	population := make([]*framework.Individual, popSize)
	if popSize == 0 {
		return population
	}
	population[0] = framework.NewIndividual(make([]bool, numAlleles))

	for i := 1; i < popSize; i++ {
		alleles := make([]bool, numAlleles)
		for j := range alleles {
			alleles[j] = r.IntN(2) == 1
		}
		population[i] = framework.NewIndividual(alleles)
	}
	return population
}

// TournamentSelect draws two distinct individuals. With probability selectionRate
// the lower ranked one wins, otherwise the higher ranked one does. On a rank tie
// the first drawn wins. The returned individual is shared, not copied.
func TournamentSelect(r *rand.Rand, population []*framework.Individual, selectionRate float64) *framework.Individual {
	if len(population) == 1 {
		return population[0]
	}
	i, j := r.IntN(len(population)), r.IntN(len(population))
	for i == j {
		j = r.IntN(len(population))
	}
	p1, p2 := population[i], population[j]

	// the draw is taken even on a tie so the random stream does not depend on ranks
	preferLower := r.Float64() < selectionRate
	if p1.Rank == p2.Rank {
		return p1
	}
	if (p1.Rank < p2.Rank) == preferLower {
		return p1
	}
	return p2
}

// Crossover performs uniform crossover. Every allele of every child comes from
// parent1 with probability crossoverRate and from parent2 otherwise; the two
// children are drawn independently.
func Crossover(r *rand.Rand, parent1, parent2 *framework.Individual, crossoverRate float64) (*framework.Individual, *framework.Individual) {
	child := func() *framework.Individual {
		alleles := make([]bool, parent1.Len())
		for b := range alleles {
			if r.Float64() < crossoverRate {
				alleles[b] = parent1.Allele(b)
			} else {
				alleles[b] = parent2.Allele(b)
			}
		}
		return framework.NewIndividual(alleles)
	}
	child1 := child()
	child2 := child()
	return child1, child2
}

// Mutate performs bit-flip mutation and returns a new individual.
func Mutate(r *rand.Rand, individual *framework.Individual, mutationRate float64) *framework.Individual {
	mutated := make([]bool, individual.Len())
	for i := range mutated {
		if r.Float64() < mutationRate {
			mutated[i] = !individual.Allele(i)
		} else {
			mutated[i] = individual.Allele(i)
		}
	}
	return framework.NewIndividual(mutated)
}

// CreateOffspring builds a population of the same size as parents through
// selection, crossover and mutation. For an odd size the second child of the
// last pair is discarded.
func (n *NSGAII) CreateOffspring(parents []*framework.Individual) []*framework.Individual {
	offspring := make([]*framework.Individual, len(parents))

	for i := 0; i < len(offspring); i += 2 {
		parent1 := TournamentSelect(n.rng, parents, n.Config.SelectionRate)
		parent2 := TournamentSelect(n.rng, parents, n.Config.SelectionRate)

		child1, child2 := Crossover(n.rng, parent1, parent2, n.Config.CrossoverRate)

		offspring[i] = Mutate(n.rng, child1, n.Config.MutationRate)
		if i+1 < len(offspring) {
			offspring[i+1] = Mutate(n.rng, child2, n.Config.MutationRate)
		}
	}

	return offspring
}
