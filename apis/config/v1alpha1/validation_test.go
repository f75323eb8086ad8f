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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
)

func defaulted(mutate func(*OptimizerArgs)) *OptimizerArgs {
	args := &OptimizerArgs{}
	SetDefaults_OptimizerArgs(args)
	if mutate != nil {
		mutate(args)
	}
	return args
}

func TestSetDefaults_OptimizerArgs(t *testing.T) {
	got := defaulted(nil)

	want := &OptimizerArgs{
		WindowsCount:           120,
		NumSolutions:           100,
		NumThreads:             10,
		MaxEvals:               5000,
		SelectionRate:          ptr.To(0.5),
		CrossoverRate:          ptr.To(0.5),
		MutationRate:           ptr.To(0.25),
		SurrogateRefreshPeriod: ptr.To[int32](100),
		ValidateExact:          ptr.To(true),
		Evaluation: EvaluationArgs{
			Constrained:        ptr.To(true),
			ConstraintShortcut: ptr.To(true),
			MemorySize:         ptr.To[int32](10000),
			FailurePolicy:      "Fail",
		},
		Surrogate: SurrogateArgs{
			BootstrapSamples: ptr.To[int32](200),
			Regularization:   ptr.To(1e-3),
		},
	}
	want.APIVersion = GroupVersion
	want.Kind = OptimizerArgsKind

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected defaults (-want,+got):\n%s", diff)
	}
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	args := &OptimizerArgs{
		NumSolutions:           40,
		MutationRate:           ptr.To(0.0),
		SurrogateRefreshPeriod: ptr.To[int32](0),
		ValidateExact:          ptr.To(false),
		Evaluation:             EvaluationArgs{MemorySize: ptr.To[int32](0), FailurePolicy: "Penalize"},
	}

	SetDefaults_OptimizerArgs(args)

	assert.EqualValues(t, 40, args.NumSolutions)
	assert.Zero(t, *args.MutationRate)
	assert.Zero(t, *args.SurrogateRefreshPeriod)
	assert.False(t, *args.ValidateExact)
	assert.Zero(t, *args.Evaluation.MemorySize)
	assert.Equal(t, "Penalize", args.Evaluation.FailurePolicy)
}

func TestValidateOptimizerArgs(t *testing.T) {
	root := field.NewPath("optimizerArgs")
	tests := []struct {
		name   string
		mutate func(*OptimizerArgs)
		want   []string
	}{
		{
			name: "defaults are valid",
		},
		{
			name:   "odd population with matching threads",
			mutate: func(a *OptimizerArgs) { a.NumSolutions, a.NumThreads = 21, 7 },
		},
		{
			name:   "non positive sizes",
			mutate: func(a *OptimizerArgs) { a.WindowsCount, a.MaxEvals = 0, -1 },
			want:   []string{"optimizerArgs.windowsCount", "optimizerArgs.maxEvals"},
		},
		{
			name:   "threads exceed population",
			mutate: func(a *OptimizerArgs) { a.NumSolutions, a.NumThreads = 4, 8 },
			want:   []string{"optimizerArgs.numThreads"},
		},
		{
			name:   "threads do not divide population",
			mutate: func(a *OptimizerArgs) { a.NumThreads = 7 },
			want:   []string{"optimizerArgs.numThreads"},
		},
		{
			name: "rates out of range",
			mutate: func(a *OptimizerArgs) {
				a.SelectionRate = ptr.To(1.5)
				a.MutationRate = ptr.To(-0.1)
				a.CrossoverRate = nil
			},
			want: []string{"optimizerArgs.selectionRate", "optimizerArgs.crossoverRate", "optimizerArgs.mutationRate"},
		},
		{
			name:   "negative refresh period",
			mutate: func(a *OptimizerArgs) { a.SurrogateRefreshPeriod = ptr.To[int32](-1) },
			want:   []string{"optimizerArgs.surrogateRefreshPeriod"},
		},
		{
			name: "evaluation",
			mutate: func(a *OptimizerArgs) {
				a.Evaluation.FailurePolicy = "Retry"
				a.Evaluation.MemorySize = ptr.To[int32](-5)
				a.Evaluation.SimulatorCommand = []string{"", "--fast"}
			},
			want: []string{"optimizerArgs.evaluation.memorySize", "optimizerArgs.evaluation.failurePolicy", "optimizerArgs.evaluation.simulatorCommand[0]"},
		},
		{
			name: "surrogate",
			mutate: func(a *OptimizerArgs) {
				a.Surrogate.BootstrapSamples = ptr.To[int32](-1)
				a.Surrogate.Regularization = ptr.To(-1.0)
				a.Surrogate.MaxSamples = -2
			},
			want: []string{"optimizerArgs.surrogate.bootstrapSamples", "optimizerArgs.surrogate.regularization", "optimizerArgs.surrogate.maxSamples"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateOptimizerArgs(root, defaulted(tt.mutate))

			var got []string
			for _, err := range errs {
				got = append(got, err.Field)
			}
			assert.Equal(t, tt.want, got, errs.ToAggregate())
		})
	}
}
