package framework

// NonDominatedSort performs non-dominated sorting on the population.
// Every individual's Rank is set as a side effect and the fronts are returned
// best first. Domination bookkeeping is keyed by population index and lives
// only for the duration of the call. The cost is O(P²) comparisons.
func NonDominatedSort(population []*Individual) [][]*Individual {
	var fronts [][]*Individual
	dominated := make([][]int, len(population))
	domCount := make([]int, len(population))

	// Calculate domination for each individual
	for i := 0; i < len(population); i++ {
		for j := 0; j < len(population); j++ {
			if i == j {
				continue
			}
			if Dominates(population[i], population[j]) {
				dominated[i] = append(dominated[i], j)
			} else if Dominates(population[j], population[i]) {
				domCount[i]++
			}
		}
	}

	// Find first front
	currentFrontIndices := []int{}
	for i := 0; i < len(population); i++ {
		if domCount[i] == 0 {
			currentFrontIndices = append(currentFrontIndices, i)
		}
	}

	// Find subsequent fronts
	for frontIndex := 0; len(currentFrontIndices) > 0; frontIndex++ {
		front := make([]*Individual, len(currentFrontIndices))
		for k, idx := range currentFrontIndices {
			population[idx].Rank = frontIndex
			front[k] = population[idx]
		}
		fronts = append(fronts, front)

		nextFrontIndices := []int{}
		for _, idx := range currentFrontIndices {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					nextFrontIndices = append(nextFrontIndices, dominatedIdx)
				}
			}
		}
		currentFrontIndices = nextFrontIndices
	}

	return fronts
}

// Dominates checks if individual a dominates individual b under constrained
// minimization: a feasible individual dominates an infeasible one, two infeasible
// individuals compare by violation, and two feasible ones by Pareto dominance.
func Dominates(a, b *Individual) bool {
	aFeasible, bFeasible := a.Feasible(), b.Feasible()
	switch {
	case aFeasible && bFeasible:
		if a.Fitness1 > b.Fitness1 || a.Fitness2 > b.Fitness2 {
			return false
		}
		return a.Fitness1 < b.Fitness1 || a.Fitness2 < b.Fitness2
	case aFeasible:
		return true
	case bFeasible:
		return false
	default:
		return a.ConstraintViolation < b.ConstraintViolation
	}
}

// AscendFronts flattens fronts into one population, front 0 first, keeping the
// order inside each front.
func AscendFronts(fronts [][]*Individual) []*Individual {
	n := 0
	for _, f := range fronts {
		n += len(f)
	}
	population := make([]*Individual, 0, n)
	for _, f := range fronts {
		population = append(population, f...)
	}
	return population
}
