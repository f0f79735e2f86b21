package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rakeform/config"
	"github.com/kilianp07/rakeform/core/formation"
	"github.com/kilianp07/rakeform/core/history"
	historystore "github.com/kilianp07/rakeform/core/history/store"
	"github.com/kilianp07/rakeform/infra/logger"
	"github.com/kilianp07/rakeform/pkg/export"
	"github.com/kilianp07/rakeform/pkg/request"
)

type planOptions struct {
	requestPath string
	algorithm   string
	seed        int64
	timeLimit   time.Duration
	iterations  int
	save        bool
	verbose     bool
}

func newPlanCmd(load func() (*config.Config, error)) *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run one formation request and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runPlan(ctx, cmd, cfg, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.requestPath, "request", "r", "", "request file (.json, .yaml, .yml or - for stdin)")
	f.StringVarP(&opts.algorithm, "algorithm", "a", "", "algorithm overriding the request")
	f.Int64Var(&opts.seed, "seed", 0, "random seed overriding the request")
	f.DurationVar(&opts.timeLimit, "time-limit", 0, "time budget overriding the request")
	f.IntVar(&opts.iterations, "iterations", 0, "iteration budget overriding the request")
	f.BoolVar(&opts.save, "save", false, "store the result in the configured history")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log search progress and keep the objective trace")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts planOptions) error {
	req, err := request.Load(opts.requestPath)
	if err != nil {
		return err
	}
	if opts.algorithm != "" {
		req.Algorithm = opts.algorithm
	}
	if opts.seed != 0 {
		req.Seed = opts.seed
	}
	if opts.timeLimit > 0 {
		req.Budget.TimeLimitSeconds = opts.timeLimit.Seconds()
	}
	if opts.iterations > 0 {
		req.Budget.MaxIterations = opts.iterations
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewWithLevel(cmd.ErrOrStderr(), "plan", level)

	var store history.Store
	if opts.save {
		if store, err = historystore.New(ctx, cfg.History); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
	}
	hist := history.New(store)
	defer hist.Close()

	strategies, err := formation.NewStrategies(cfg.Formation)
	if err != nil {
		return err
	}
	orch, err := formation.NewOrchestrator(strategies, hist, log, nil)
	if err != nil {
		return err
	}
	orch.SetConfig(cfg.Formation)

	res, err := orch.Run(ctx, req)
	if err != nil {
		return err
	}
	if !opts.verbose {
		res.Diagnostics.Trace = nil
	}
	return export.WriteJSON(cmd.OutOrStdout(), res)
}
