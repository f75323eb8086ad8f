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

package v1alpha1

import (
	"k8s.io/utils/ptr"
)

var (
	defaultWindowsCount           int32 = 120
	defaultNumSolutions           int32 = 100
	defaultNumThreads             int32 = 10
	defaultMaxEvals               int32 = 5000
	defaultSelectionRate                = 0.5
	defaultCrossoverRate                = 0.5
	defaultMutationRate                 = 0.25
	defaultSurrogateRefreshPeriod int32 = 100

	defaultMemorySize       int32 = 10000
	defaultFailurePolicy          = "Fail"
	defaultBootstrapSamples int32 = 200
	defaultRegularization         = 1e-3
)

// SetDefaults_OptimizerArgs sets the default parameters for an optimisation run.
func SetDefaults_OptimizerArgs(obj *OptimizerArgs) {
	if obj.APIVersion == "" {
		obj.APIVersion = GroupVersion
	}
	if obj.Kind == "" {
		obj.Kind = OptimizerArgsKind
	}
	if obj.WindowsCount == 0 {
		obj.WindowsCount = defaultWindowsCount
	}
	if obj.NumSolutions == 0 {
		obj.NumSolutions = defaultNumSolutions
	}
	if obj.NumThreads == 0 {
		obj.NumThreads = defaultNumThreads
	}
	if obj.MaxEvals == 0 {
		obj.MaxEvals = defaultMaxEvals
	}
	if obj.SelectionRate == nil {
		obj.SelectionRate = ptr.To(defaultSelectionRate)
	}
	if obj.CrossoverRate == nil {
		obj.CrossoverRate = ptr.To(defaultCrossoverRate)
	}
	if obj.MutationRate == nil {
		obj.MutationRate = ptr.To(defaultMutationRate)
	}
	if obj.SurrogateRefreshPeriod == nil {
		obj.SurrogateRefreshPeriod = ptr.To(defaultSurrogateRefreshPeriod)
	}
	if obj.ValidateExact == nil {
		obj.ValidateExact = ptr.To(true)
	}

	SetDefaults_EvaluationArgs(&obj.Evaluation)
	SetDefaults_SurrogateArgs(&obj.Surrogate)
}

func SetDefaults_EvaluationArgs(obj *EvaluationArgs) {
	if obj.Constrained == nil {
		obj.Constrained = ptr.To(true)
	}
	if obj.ConstraintShortcut == nil {
		obj.ConstraintShortcut = ptr.To(true)
	}
	if obj.MemorySize == nil {
		obj.MemorySize = ptr.To(defaultMemorySize)
	}
	if obj.FailurePolicy == "" {
		obj.FailurePolicy = defaultFailurePolicy
	}
}

func SetDefaults_SurrogateArgs(obj *SurrogateArgs) {
	if obj.BootstrapSamples == nil {
		obj.BootstrapSamples = ptr.To(defaultBootstrapSamples)
	}
	if obj.Regularization == nil {
		obj.Regularization = ptr.To(defaultRegularization)
	}
}
