package util

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective/framework"
)

// PlotResults renders a scatter plot of a population to w. Rank 0 members are
// drawn as the found front; when the problem knows its true Pareto front it is
// drawn as well.
func PlotResults(w io.Writer, population []*framework.Individual, problem framework.Problem, algorithmName string) error {
	if len(population) == 0 {
		return fmt.Errorf("population is empty for %s", problem.Name())
	}

	// Create scatter chart
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s Results for %s", algorithmName, problem.Name()),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "energy",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "cost",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	var front, dominated, infeasible []opts.ScatterData
	for _, ind := range population {
		point := scatterPoint(ind.Point(), "circle")
		switch {
		case !ind.Feasible():
			point.Symbol = "rect"
			infeasible = append(infeasible, point)
		case ind.Rank == 0:
			point.Symbol = "triangle"
			front = append(front, point)
		default:
			dominated = append(dominated, point)
		}
	}

	if trueParetoFront := problem.TrueParetoFront(100); len(trueParetoFront) > 0 {
		trueX := make([]opts.ScatterData, len(trueParetoFront))
		for i, p := range trueParetoFront {
			trueX[i] = scatterPoint(p, "circle")
		}
		scatter.AddSeries("True Pareto Front", trueX)
	}

	scatter.AddSeries(fmt.Sprintf("%s Pareto Front", algorithmName), front).
		AddSeries("Dominated", dominated).
		AddSeries("Infeasible", infeasible).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)

	return scatter.Render(w)
}

func scatterPoint(p framework.ObjectiveSpacePoint, symbol string) opts.ScatterData {
	return opts.ScatterData{
		Value:      []float64{p[0], p[1]},
		Symbol:     symbol,
		SymbolSize: 10,
	}
}

// HTMLSink writes every observed population to an HTML scatter plot at Path.
type HTMLSink struct {
	Path          string
	Problem       framework.Problem
	AlgorithmName string
}

var _ framework.PopulationSink = &HTMLSink{}

// Observe renders the population. Failures are logged; a sink never stops the search.
func (s *HTMLSink) Observe(ctx context.Context, population []*framework.Individual) {
	logger := klog.FromContext(ctx)

	f, err := os.Create(s.Path)
	if err != nil {
		logger.Error(err, "Failed to create plot file", "path", s.Path)
		return
	}
	defer f.Close()

	if err := PlotResults(f, population, s.Problem, s.AlgorithmName); err != nil {
		logger.Error(err, "Failed to render population plot", "path", s.Path)
		return
	}
	logger.V(2).Info("Wrote population plot", "path", s.Path, "individuals", len(population))
}
