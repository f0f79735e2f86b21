package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rakeform/config"
	"github.com/kilianp07/rakeform/core/history"
	historystore "github.com/kilianp07/rakeform/core/history/store"
	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/pkg/export"
)

func newHistoryCmd(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored formation plans",
	}
	cmd.AddCommand(newHistoryLsCmd(load), newHistoryBestCmd(load))
	return cmd
}

func openStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	store, err := historystore.New(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("history backend %q keeps no plans between runs", cfg.History.Backend)
	}
	return store, nil
}

func newHistoryLsCmd(load func() (*config.Config, error)) *cobra.Command {
	var q history.Query
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored plans, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			results, err := store.List(ctx, q)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tALGORITHM\tCREATED\tRAKES\tASSIGNED\tUNASSIGNED\tCOST\tSLA%\tCONVERGED")
			for _, r := range results {
				p := r.Plan
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f\t%.1f\t%t\n",
					p.ID, p.Algorithm, p.CreatedAt.Format(time.RFC3339), len(p.Assignments),
					p.AssignedCount(), len(p.Unassigned), p.TotalCost, p.SLACompliance, r.Diagnostics.Converged)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.Algorithm, "algorithm", "a", "", "only plans of this algorithm")
	f.IntVarP(&q.Limit, "limit", "n", 0, "keep the most recent n plans")
	return cmd
}

func newHistoryBestCmd(load func() (*config.Config, error)) *cobra.Command {
	var w model.ObjectiveWeights
	var algorithm string
	cmd := &cobra.Command{
		Use:   "best",
		Short: "Print the best stored plan under the given weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if w.IsZero() {
				w = model.DefaultWeights()
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			results, err := store.List(ctx, history.Query{Algorithm: algorithm})
			if err != nil {
				return err
			}
			ranked, err := history.RankResults(results, w)
			if err != nil {
				return err
			}
			if len(ranked) == 0 {
				return fmt.Errorf("no formation plans recorded")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "score %.4f\n", ranked[0].Score)
			return export.WriteJSON(cmd.OutOrStdout(), ranked[0].Result)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&w.MinimizeCost, "cost", 0, "weight of total cost")
	f.Float64Var(&w.MaximizeUtilization, "utilization", 0, "weight of rake utilization")
	f.Float64Var(&w.MinimizeDelay, "delay", 0, "weight of delivery delay")
	f.Float64Var(&w.MeetSLA, "sla", 0, "weight of SLA compliance")
	f.StringVarP(&algorithm, "algorithm", "a", "", "only plans of this algorithm")
	return cmd
}
