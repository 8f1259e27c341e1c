package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"BreadthSentinel/internal/dashboard"
	"BreadthSentinel/internal/history"
	"BreadthSentinel/internal/model"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

func runCmd(a *app) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch prices, compute breadth and update history files once",
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := a.indices(names)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched, rec := a.scheduler(ctx, indices, a.telegram())
			defer rec.Close()

			results, err := sched.RunAll(ctx)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s  %6.2f%%  above=%d below=%d total=%d  (+%d rows, %d failed)\n",
					r.Index.Name, r.Latest.Date.Format(model.DateLayout), r.Latest.Percentage,
					r.Latest.Above, r.Latest.Below, r.Latest.Total, r.Written, len(r.Stats.Failed))
			}
			if len(results) < len(indices) {
				return fmt.Errorf("%d of %d indices failed, see log", len(indices)-len(results), len(indices))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&names, "index", "i", nil, "Index or theme name (repeatable, defaults to config)")
	return cmd
}

func daemonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the daily schedule, Telegram bot and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := a.indices(nil)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tn := a.telegram()
			sched, rec := a.scheduler(ctx, indices, tn)
			defer rec.Close()

			if err := sched.RegisterAll(a.cfg.Schedule.DailyCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				a.logger.Info("telegram polling started")
			} else {
				a.logger.Info("telegram not configured, notifications disabled")
			}

			srv := a.dashboard(indices)
			go func() {
				if err := srv.ListenAndServe(ctx, a.cfg.Dashboard.Addr); err != nil {
					a.logger.Error("dashboard stopped", zap.Error(err))
				}
			}()

			if os.Getenv("RUN_ON_START") == "true" {
				a.logger.Info("RUN_ON_START enabled, running breadth update now")
				sched.Trigger()
			}

			a.logger.Info("breadth daemon running, press Ctrl+C to stop",
				zap.String("cron", a.cfg.Schedule.DailyCron),
				zap.String("timezone", a.cfg.Schedule.Timezone))
			<-ctx.Done()
			a.logger.Info("shutdown signal received, stopping")
			return nil
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the breadth dashboard from existing history files",
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := a.indices(nil)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.dashboard(indices).ListenAndServe(ctx, a.cfg.Dashboard.Addr)
		},
	}
}

func showCmd(a *app) *cobra.Command {
	var (
		name   string
		last   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest rows of an index history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = a.cfg.Indices[0]
			}
			idx, err := a.catalog.Lookup(name)
			if err != nil {
				return err
			}
			h, err := history.Load(filepath.Join(a.cfg.History.Dir, idx.File))
			if err != nil {
				return err
			}
			if last > 0 && len(h) > last {
				h = h[len(h)-last:]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				raw, err := json.Marshal(dashboard.RecordsJSON(h))
				if err != nil {
					return err
				}
				_, err = out.Write(pretty.Pretty(raw))
				return err
			}
			if len(h) == 0 {
				fmt.Fprintf(out, "no history for %s\n", idx.Name)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Date\tPercentage\tAbove\tBelow\tTotal\tIndex_Close\t")
			for _, r := range h {
				fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d\t%d\t%.2f\t\n",
					r.Date.Format(model.DateLayout), r.Percentage, r.Above, r.Below, r.Total, r.IndexClose)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&name, "index", "i", "", "Index or theme name (defaults to the first configured index)")
	cmd.Flags().IntVarP(&last, "last", "n", 10, "Number of most recent rows, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func pruneCmd(a *app) *cobra.Command {
	var (
		date string
		glob string
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove one bad date from every matching history file",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ParseDate(date)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			if glob == "" {
				glob = filepath.Join(a.cfg.History.Dir, "**", "*.csv")
			}
			changed, err := history.Prune(glob, d)
			for _, f := range changed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", date, f)
			}
			if err != nil {
				return err
			}
			if len(changed) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s not found in any file matching %s\n", date, glob)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Trading date to remove (YYYY-MM-DD)")
	cmd.Flags().StringVar(&glob, "glob", "", "History files to scan (default <history.dir>/**/*.csv)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func indicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "List the indices and themes breadth can track",
		RunE: func(cmd *cobra.Command, args []string) error {
			configured := make(map[string]bool)
			for _, n := range a.cfg.Indices {
				if idx, err := a.catalog.Lookup(n); err == nil {
					configured[idx.Slug] = true
				}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSLUG\tSOURCE\tBENCHMARK\tFILE\tACTIVE")
			for _, idx := range a.catalog.All() {
				active := ""
				if configured[idx.Slug] {
					active = "*"
				}
				bench := idx.Benchmark
				if bench == "" {
					bench = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", idx.Name, idx.Slug, strings.ToLower(string(idx.Source)), bench, idx.File, active)
			}
			return tw.Flush()
		},
	}
}
