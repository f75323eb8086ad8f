package util

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

// Hypervolume2D computes the area dominated by points relative to reference,
// for two minimized objectives. Points that do not strictly dominate the
// reference contribute nothing.
func Hypervolume2D(points []framework.ObjectiveSpacePoint, reference framework.ObjectiveSpacePoint) float64 {
	if len(reference) != 2 {
		return 0
	}
	inside := make([]framework.ObjectiveSpacePoint, 0, len(points))
	for _, p := range points {
		if len(p) == 2 && p[0] < reference[0] && p[1] < reference[1] {
			inside = append(inside, p)
		}
	}
	sort.Slice(inside, func(i, j int) bool {
		if inside[i][0] != inside[j][0] {
			return inside[i][0] < inside[j][0]
		}
		return inside[i][1] < inside[j][1]
	})

	volume := 0.0
	lastF2 := reference[1]
	for _, p := range inside {
		// dominated by an earlier point
		if p[1] >= lastF2 {
			continue
		}
		volume += (reference[0] - p[0]) * (lastF2 - p[1])
		lastF2 = p[1]
	}
	return volume
}

// PopulationHypervolume is the hypervolume of the feasible members of a population.
func PopulationHypervolume(population []*framework.Individual, reference framework.ObjectiveSpacePoint) float64 {
	return Hypervolume2D(FeasiblePoints(population), reference)
}

// FeasiblePoints returns the objective vectors of the feasible, evaluated individuals.
func FeasiblePoints(population []*framework.Individual) []framework.ObjectiveSpacePoint {
	points := make([]framework.ObjectiveSpacePoint, 0, len(population))
	for _, ind := range population {
		if ind.Evaluated && ind.Feasible() {
			points = append(points, ind.Point())
		}
	}
	return points
}

// ReferencePoint places a hypervolume reference beyond the worst feasible value of
// each objective, pushed out by margin times the objective's spread.
// It returns nil when the population has no feasible member.
func ReferencePoint(population []*framework.Individual, margin float64) framework.ObjectiveSpacePoint {
	points := FeasiblePoints(population)
	if len(points) == 0 {
		return nil
	}
	reference := make(framework.ObjectiveSpacePoint, 2)
	column := make([]float64, len(points))
	for m := 0; m < 2; m++ {
		for i, p := range points {
			column[i] = p[m]
		}
		hi, lo := floats.Max(column), floats.Min(column)
		span := hi - lo
		if span == 0 {
			span = math.Abs(hi)
		}
		if span == 0 {
			span = 1
		}
		reference[m] = hi + margin*span
	}
	return reference
}

// MeanSignedDeviation returns the mean of exact[i] - approx[i].
func MeanSignedDeviation(approx, exact []float64) (float64, error) {
	if len(approx) != len(exact) {
		return 0, fmt.Errorf("length mismatch: %d approximate values, %d exact values", len(approx), len(exact))
	}
	if len(approx) == 0 {
		return 0, fmt.Errorf("no values to compare")
	}
	diff := make([]float64, len(exact))
	floats.SubTo(diff, exact, approx)
	return stat.Mean(diff, nil), nil
}
