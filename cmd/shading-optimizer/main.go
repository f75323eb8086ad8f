package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/windowshading/optimizer/pkg/multiobjective"
	"github.com/windowshading/optimizer/pkg/multiobjective/metrics"
)

type options struct {
	configFile         string
	simulatorCommand   []string
	plotFile           string
	reportFile         string
	metricsBindAddress string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		klog.ErrorS(err, "Optimization failed")
		klog.FlushAndExit(klog.ExitFlushTimeout, 1)
	}
	klog.Flush()
}

func newCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "shading-optimizer",
		Short:         "Searches the energy/cost trade-off of window shading designs with NSGA-II",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, o)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(wordSepNormalizeFunc)
	fs.StringVar(&o.configFile, "config", "", "Path to an OptimizerArgs YAML or JSON file. Defaults are used when empty.")
	fs.StringSliceVar(&o.simulatorCommand, "simulator-command", nil, "Simulator command and arguments, overriding evaluation.simulatorCommand.")
	fs.StringVar(&o.plotFile, "plot", "", "Write an HTML scatter plot of the final population to this file.")
	fs.StringVar(&o.reportFile, "report", "pareto.yaml", "Write the Pareto report to this file (.json for JSON).")
	fs.StringVar(&o.metricsBindAddress, "metrics-bind-address", "", "Serve Prometheus metrics on this address, e.g. :8080. Disabled when empty.")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
	return cmd
}

// wordSepNormalizeFunc accepts "_" in flag names as "-".
func wordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}
	return pflag.NormalizedName(name)
}

func run(ctx context.Context, o *options) error {
	logger := klog.FromContext(ctx)

	args, err := multiobjective.LoadOptimizerArgs(o.configFile)
	if err != nil {
		return err
	}
	if len(o.simulatorCommand) > 0 {
		args.Evaluation.SimulatorCommand = o.simulatorCommand
	}

	if o.metricsBindAddress != "" {
		stop := serveMetrics(ctx, o.metricsBindAddress)
		defer stop()
	}

	var opts []multiobjective.Option
	if o.plotFile != "" {
		opts = append(opts, multiobjective.WithPlot(o.plotFile))
	}
	optimizer, err := multiobjective.New(ctx, args, opts...)
	if err != nil {
		return err
	}

	report, err := optimizer.Run(ctx)
	if err != nil {
		return err
	}
	if err := multiobjective.WriteReport(o.reportFile, report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("Wrote Pareto report", "path", o.reportFile, "solutions", len(report.Solutions))
	return nil
}

func serveMetrics(ctx context.Context, addr string) func() {
	logger := klog.FromContext(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "Shutting down metrics server")
		}
	}
}
