package multiobjective

import (
	"github.com/windowshading/optimizer/apis/config/v1alpha1"
	"github.com/windowshading/optimizer/pkg/multiobjective/benchmarks"
	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
	"github.com/windowshading/optimizer/pkg/windowshading"
)

// newProblem returns the façade model for args. A configured simulator command
// replaces the model objectives; constraints always come from the model.
func newProblem(args *v1alpha1.OptimizerArgs) (framework.Problem, error) {
	facade := benchmarks.NewFacade(int(args.WindowsCount), args.Evaluation.ModelSeed)
	if len(args.Evaluation.SimulatorCommand) == 0 {
		return facade, nil
	}
	return windowshading.NewCommandProblem(facade, args.Evaluation.SimulatorCommand)
}
