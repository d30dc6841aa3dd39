package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"crowdtasks-admin/internal/assignment"
	"crowdtasks-admin/internal/config"
	"crowdtasks-admin/internal/confirm"
	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/params"
	"crowdtasks-admin/internal/provision"
	runpkg "crowdtasks-admin/internal/run"
	"crowdtasks-admin/internal/shared/infra"
	"crowdtasks-admin/internal/spend"
	"crowdtasks-admin/internal/task"
	"crowdtasks-admin/pkg/logging"
)

// app 命令共享的组件
type app struct {
	cfg      *config.Config
	infra    *infra.Infrastructure
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	logger   *logging.Logger

	tasks *task.Registry
	runs  *runpkg.Manager
	agg   *assignment.Aggregator
	calc  *spend.Calculator

	out io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*app, error) {
	logCfg := cfg.Log
	logCfg.Component = "crowdtasks"
	logger := logging.New(logCfg)
	logger.Debug("Loaded config", "config", cfg.String())

	inf, err := infra.New(ctx, cfg, logger.Named("infra"))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "")
	layout := provision.NewLayout(cfg.Paths.DataDir, cfg.Paths.TasksDir)
	schemas := params.NewRegistry()

	runOpts := runpkg.Options{Params: schemas, Metrics: m, Logger: logger.Named("run"), Events: inf.Events}
	if inf.Archive != nil {
		runOpts.Archive = inf.Archive
	}

	return &app{
		cfg:      cfg,
		infra:    inf,
		registry: reg,
		metrics:  m,
		logger:   logger,
		tasks: task.NewRegistry(inf.Storage, layout, task.Options{
			Locker:    inf.Locker,
			Confirmer: confirm.NewPrompt(in, out),
			Params:    schemas,
			Metrics:   m,
			Logger:    logger.Named("task"),
			Events:    inf.Events,
		}),
		runs: runpkg.NewManager(inf.Storage, layout, runOpts),
		agg:  assignment.NewAggregator(inf.Storage, m),
		calc: spend.NewCalculator(inf.Storage, m),
		out:  out,
	}, nil
}

func (a *app) Close() error {
	return a.infra.Close()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
