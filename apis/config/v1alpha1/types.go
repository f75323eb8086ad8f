/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package v1alpha1 holds the versioned configuration and result documents of
// the window shading optimizer.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// GroupVersion of every document in this package.
	GroupVersion = "shading.optimizer.io/v1alpha1"

	OptimizerArgsKind = "OptimizerArgs"
	ParetoReportKind  = "ParetoReport"
)

// OptimizerArgs configures one optimisation run
type OptimizerArgs struct {
	metav1.TypeMeta `json:",inline"`

	// WindowsCount is the number of windows of the façade. A design has two
	// alleles per window.
	WindowsCount int32 `json:"windowsCount,omitempty"`

	// NumSolutions is the population size
	NumSolutions int32 `json:"numSolutions,omitempty"`

	// NumThreads is the number of parallel evaluation workers. It must divide NumSolutions.
	NumThreads int32 `json:"numThreads,omitempty"`

	// MaxEvals is the number of generations
	MaxEvals int32 `json:"maxEvals,omitempty"`

	SelectionRate *float64 `json:"selectionRate,omitempty"`
	CrossoverRate *float64 `json:"crossoverRate,omitempty"`
	MutationRate  *float64 `json:"mutationRate,omitempty"`

	// SurrogateRefreshPeriod is the number of generations between surrogate
	// refreshes. Zero disables refreshing.
	SurrogateRefreshPeriod *int32 `json:"surrogateRefreshPeriod,omitempty"`

	// ValidateExact re-evaluates the final population with the exact evaluator
	ValidateExact *bool `json:"validateExact,omitempty"`

	// Seed of the random source. Zero picks a random seed.
	Seed uint64 `json:"seed,omitempty"`

	Evaluation EvaluationArgs `json:"evaluation,omitempty"`
	Surrogate  SurrogateArgs  `json:"surrogate,omitempty"`
}

// EvaluationArgs configures fitness evaluation
type EvaluationArgs struct {
	// Constrained enables constraint violation accounting
	Constrained *bool `json:"constrained,omitempty"`

	// ConstraintShortcut skips objectives for infeasible designs
	ConstraintShortcut *bool `json:"constraintShortcut,omitempty"`

	// MemorySize bounds the number of remembered exact evaluations. Zero disables memory.
	MemorySize *int32 `json:"memorySize,omitempty"`

	// FailurePolicy is applied when a design cannot be evaluated
	// +kubebuilder:validation:Enum=Fail;Penalize
	FailurePolicy string `json:"failurePolicy,omitempty"`

	// SimulatorCommand is the argv of an external simulator. Empty selects the
	// built-in façade model.
	SimulatorCommand []string `json:"simulatorCommand,omitempty"`

	// ModelSeed seeds the built-in façade model
	ModelSeed uint64 `json:"modelSeed,omitempty"`
}

// SurrogateArgs configures the surrogate model behind approximate evaluation
type SurrogateArgs struct {
	// BootstrapSamples is the number of random designs evaluated exactly to
	// train the surrogate before the search starts. Approximate evaluation
	// needs a trained surrogate, so at least one sample is required.
	BootstrapSamples *int32 `json:"bootstrapSamples,omitempty"`

	// Regularization is the ridge penalty of the linear model
	Regularization *float64 `json:"regularization,omitempty"`

	// MaxSamples caps the training set. Zero keeps every sample.
	MaxSamples int32 `json:"maxSamples,omitempty"`
}

// ParetoReport is the outcome of an optimisation run
type ParetoReport struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// Solutions contains the final Pareto front
	Solutions []OptimizationSolution `json:"solutions"`

	// Summary of the run
	Summary RunSummary `json:"summary"`
}

// RunSummary holds the run level figures of a report
type RunSummary struct {
	Iterations       int32   `json:"iterations"`
	FirstHypervolume float64 `json:"firstHypervolume"`
	LastHypervolume  float64 `json:"lastHypervolume"`
	Improvement      float64 `json:"improvement"`

	// MeanDeviation is the mean of exact minus approximate energy of the final population
	MeanDeviation *float64 `json:"meanDeviation,omitempty"`

	RealEvaluations int64 `json:"realEvaluations"`

	StartedAt  *metav1.Time `json:"startedAt,omitempty"`
	FinishedAt *metav1.Time `json:"finishedAt,omitempty"`
}

// OptimizationSolution represents a single solution from multi-objective optimization
type OptimizationSolution struct {
	// Rank is the solution's Pareto rank (0 = non-dominated), under exact
	// fitness when the run was validated
	Rank int `json:"rank"`

	// Design is the bit string of the design, '1' for a set allele
	Design string `json:"design"`

	// Objectives contains the individual objective values
	Objectives ObjectiveValues `json:"objectives"`

	// ConstraintViolation is zero for feasible designs
	ConstraintViolation float64 `json:"constraintViolation,omitempty"`

	// ShadedWindows is the number of windows carrying a shading device
	ShadedWindows int `json:"shadedWindows"`
}

// ObjectiveValues contains the values for each optimization objective
type ObjectiveValues struct {
	// Energy is the annual energy demand
	Energy float64 `json:"energy"`

	// Cost is the installation cost
	Cost float64 `json:"cost"`
}
