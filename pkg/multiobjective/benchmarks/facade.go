package benchmarks

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

const (
	Name = "Facade"

	baseEnergyPerWindow = 100.0
	// Shading more than daylightThreshold of the windows raises lighting energy.
	daylightThreshold = 0.6
	daylightPenalty   = 2.0
)

// Facade is a synthetic window shading problem. Allele i switches the shading
// device of window i on, allele windows+i adds an overhang to it. Shading lowers
// cooling energy and costs money; an overhang adds more savings only when the
// window also has a device, and an overhang without a device violates a constraint.
// Both objectives are minimized: annual energy and installation cost.
type Facade struct {
	windows int

	deviceGain    []float64
	overhangGain  []float64
	deviceCost    []float64
	overhangCost  []float64
	baselineValue float64
}

var _ framework.Problem = &Facade{}

// NewFacade builds a façade of the given number of windows. The per-window
// coefficients derive from seed, so equal seeds give identical problems.
func NewFacade(windows int, seed uint64) *Facade {
	r := rand.New(rand.NewPCG(seed, seed+1))
	p := &Facade{
		windows:       windows,
		deviceGain:    make([]float64, windows),
		overhangGain:  make([]float64, windows),
		deviceCost:    make([]float64, windows),
		overhangCost:  make([]float64, windows),
		baselineValue: baseEnergyPerWindow * float64(windows),
	}
	for i := 0; i < windows; i++ {
		// south facing windows gain more from shading
		orientation := 0.5 + 0.5*math.Sin(2*math.Pi*float64(i)/float64(max(windows, 1)))
		p.deviceGain[i] = 5 + 25*orientation + 5*r.Float64()
		p.overhangGain[i] = 2 + 8*orientation*r.Float64()
		p.deviceCost[i] = 50 + 100*r.Float64()
		p.overhangCost[i] = 20 + 60*r.Float64()
	}
	return p
}

func (p *Facade) Name() string {
	return Name
}

func (p *Facade) Dimension() int {
	return 2 * p.windows
}

// Constraints returns one value per window: 1 when it has an overhang but no device.
func (p *Facade) Constraints(alleles []bool) []float64 {
	c := make([]float64, p.windows)
	for i := 0; i < p.windows && p.windows+i < len(alleles); i++ {
		if alleles[p.windows+i] && !alleles[i] {
			c[i] = 1
		}
	}
	return c
}

// Objectives returns [energy, cost] of a design.
func (p *Facade) Objectives(_ context.Context, alleles []bool) (framework.ObjectiveSpacePoint, error) {
	if len(alleles) != p.Dimension() {
		return nil, fmt.Errorf("%s: expected %d alleles, got %d", p.Name(), p.Dimension(), len(alleles))
	}

	energy, cost := p.baselineValue, 0.0
	shaded := 0
	for i := 0; i < p.windows; i++ {
		device, overhang := alleles[i], alleles[p.windows+i]
		if device {
			shaded++
			energy -= p.deviceGain[i]
			cost += p.deviceCost[i]
		}
		if overhang {
			cost += p.overhangCost[i]
			if device {
				energy -= p.overhangGain[i]
			}
		}
	}

	if p.windows > 0 {
		if excess := float64(shaded)/float64(p.windows) - daylightThreshold; excess > 0 {
			energy += daylightPenalty * excess * excess * p.baselineValue
		}
	}
	return framework.ObjectiveSpacePoint{energy, cost}, nil
}

// TrueParetoFront is unknown for the façade.
func (p *Facade) TrueParetoFront(int) []framework.ObjectiveSpacePoint {
	return nil
}

// Baseline is the energy of the façade without any shading.
func (p *Facade) Baseline() float64 {
	return p.baselineValue
}
