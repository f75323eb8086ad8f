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
	"slices"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

var validFailurePolicies = []string{"Fail", "Penalize"}

// ValidateOptimizerArgs validates defaulted OptimizerArgs.
func ValidateOptimizerArgs(path *field.Path, args *OptimizerArgs) field.ErrorList {
	var allErrs field.ErrorList

	allErrs = append(allErrs, validatePositive(path.Child("windowsCount"), args.WindowsCount)...)
	allErrs = append(allErrs, validatePositive(path.Child("numSolutions"), args.NumSolutions)...)
	allErrs = append(allErrs, validatePositive(path.Child("numThreads"), args.NumThreads)...)
	allErrs = append(allErrs, validatePositive(path.Child("maxEvals"), args.MaxEvals)...)

	if args.NumSolutions > 0 && args.NumThreads > 0 {
		if args.NumThreads > args.NumSolutions {
			allErrs = append(allErrs, field.Invalid(path.Child("numThreads"), args.NumThreads, "must not exceed numSolutions"))
		} else if args.NumSolutions%args.NumThreads != 0 {
			allErrs = append(allErrs, field.Invalid(path.Child("numThreads"), args.NumThreads, "must divide numSolutions"))
		}
	}

	allErrs = append(allErrs, validateRate(path.Child("selectionRate"), args.SelectionRate)...)
	allErrs = append(allErrs, validateRate(path.Child("crossoverRate"), args.CrossoverRate)...)
	allErrs = append(allErrs, validateRate(path.Child("mutationRate"), args.MutationRate)...)

	if p := args.SurrogateRefreshPeriod; p != nil && *p < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("surrogateRefreshPeriod"), *p, "must be non-negative"))
	}

	allErrs = append(allErrs, validateEvaluationArgs(path.Child("evaluation"), &args.Evaluation)...)
	allErrs = append(allErrs, validateSurrogateArgs(path.Child("surrogate"), &args.Surrogate)...)
	return allErrs
}

func validateEvaluationArgs(path *field.Path, args *EvaluationArgs) field.ErrorList {
	var allErrs field.ErrorList
	if args.MemorySize != nil && *args.MemorySize < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("memorySize"), *args.MemorySize, "must be non-negative"))
	}
	if !slices.Contains(validFailurePolicies, args.FailurePolicy) {
		allErrs = append(allErrs, field.NotSupported(path.Child("failurePolicy"), args.FailurePolicy, validFailurePolicies))
	}
	if len(args.SimulatorCommand) > 0 && args.SimulatorCommand[0] == "" {
		allErrs = append(allErrs, field.Required(path.Child("simulatorCommand").Index(0), "executable must not be empty"))
	}
	return allErrs
}

func validateSurrogateArgs(path *field.Path, args *SurrogateArgs) field.ErrorList {
	var allErrs field.ErrorList
	if args.BootstrapSamples == nil {
		allErrs = append(allErrs, field.Required(path.Child("bootstrapSamples"), ""))
	} else {
		allErrs = append(allErrs, validatePositive(path.Child("bootstrapSamples"), *args.BootstrapSamples)...)
	}
	if args.Regularization != nil && *args.Regularization < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("regularization"), *args.Regularization, "must be non-negative"))
	}
	if args.MaxSamples < 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("maxSamples"), args.MaxSamples, "must be non-negative"))
	}
	return allErrs
}

func validatePositive(path *field.Path, v int32) field.ErrorList {
	if v <= 0 {
		return field.ErrorList{field.Invalid(path, v, "must be greater than 0")}
	}
	return nil
}

func validateRate(path *field.Path, rate *float64) field.ErrorList {
	if rate == nil {
		return field.ErrorList{field.Required(path, "")}
	}
	if *rate < 0 || *rate > 1 {
		return field.ErrorList{field.Invalid(path, *rate, "must be in the range [0, 1]")}
	}
	return nil
}

