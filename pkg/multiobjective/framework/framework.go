package framework

import "context"

// Problem describes the contract a specific binary multi-objective problem needs to implement.
type Problem interface {
	Name() string

	// Dimension is the number of alleles of a design.
	Dimension() int

	// Constraints returns one value per constraint. Positive values are violations.
	Constraints(alleles []bool) []float64

	// Objectives computes the objective values of a design. It may be slow
	// (e.g. a building simulation) and must be safe for concurrent use.
	Objectives(ctx context.Context, alleles []bool) (ObjectiveSpacePoint, error)

	// TrueParetoFront is optional due to the difficulty of finding the true front
	// in some types of problems. When there isn't a way to find the true front,
	// just return nil.
	TrueParetoFront(int) []ObjectiveSpacePoint
}

// TotalViolation sums the positive entries of a constraint vector.
func TotalViolation(constraints []float64) float64 {
	total := 0.0
	for _, c := range constraints {
		if c > 0 {
			total += c
		}
	}
	return total
}
