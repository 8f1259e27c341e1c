// breadth tracks the share of index constituents trading above their 200-day SMA.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"BreadthSentinel/internal/collector"
	"BreadthSentinel/internal/config"
	"BreadthSentinel/internal/dashboard"
	"BreadthSentinel/internal/history"
	"BreadthSentinel/internal/model"
	"BreadthSentinel/internal/notifier"
	"BreadthSentinel/internal/recorder"
	"BreadthSentinel/internal/scheduler"
	"BreadthSentinel/internal/universe"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries what every subcommand needs once config is loaded.
type app struct {
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
	catalog *universe.Catalog
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "breadth",
		Short:         "Market breadth tracker for NSE indices",
		Long:          `breadth computes, stores and serves the daily percentage of index constituents closing above their 200-day simple moving average.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", defaultCfg, "Path to the YAML config (env CONFIG_PATH)")

	rootCmd.AddCommand(runCmd(a))
	rootCmd.AddCommand(daemonCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(showCmd(a))
	rootCmd.AddCommand(pruneCmd(a))
	rootCmd.AddCommand(indicesCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	catalog, err := universe.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.cfg, a.logger, a.catalog = cfg, logger, catalog
	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zc zap.Config
	if format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

// indices resolves names, falling back to the configured list.
func (a *app) indices(names []string) ([]model.Index, error) {
	if len(names) == 0 {
		names = a.cfg.Indices
	}
	return a.catalog.Resolve(names)
}

func (a *app) fetcher() collector.Fetcher {
	ds := a.cfg.DataSource
	if ds.BaseURL != "" {
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, a.cfg.Proxy, ds.Timeout)
	}
	return collector.NewYahooFetcher("", a.cfg.Proxy, ds.Timeout)
}

// telegram returns nil when no bot token is configured.
func (a *app) telegram() *notifier.TelegramNotifier {
	if a.cfg.Telegram.BotToken == "" {
		return nil
	}
	return notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.logger)
}

func (a *app) recorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		a.logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

// dashboard compares every index with Nifty 50, even when it is not served.
func (a *app) dashboard(indices []model.Index) *dashboard.Server {
	srv := dashboard.NewServer(indices, a.cfg.History.Dir, a.cfg.DisplayFrom(), a.logger)
	if base, err := a.catalog.Lookup("Nifty 50"); err == nil {
		srv.SetBaseline(base)
	}
	return srv
}

// scheduler wires the full pipeline. The caller closes the returned recorder.
func (a *app) scheduler(ctx context.Context, indices []model.Index, tn *notifier.TelegramNotifier) (*scheduler.Scheduler, recorder.Recorder) {
	ds := a.cfg.DataSource
	fetcher := a.fetcher()
	a.logger.Info("data source selected", zap.String("source", fetcher.Name()))

	col := collector.NewCollector(fetcher, collector.Options{
		ChunkSize:  ds.ChunkSize,
		ChunkDelay: ds.ChunkDelay,
		Retries:    ds.Retries,
		RetryBase:  time.Second,
	}, a.logger)

	var n scheduler.Notifier
	if tn != nil {
		n = tn
	}
	rec := a.recorder()
	sched := scheduler.NewScheduler(ctx,
		universe.NewResolver(ds.NSEBaseURL, a.cfg.Proxy, a.logger),
		col, n, rec,
		scheduler.Options{
			HistoryDir: a.cfg.History.Dir,
			Plan: history.PlanConfig{
				Start:         a.cfg.HistoryStart(),
				OverwriteDays: a.cfg.History.OverwriteDays,
				LookbackDays:  a.cfg.History.LookbackDays,
			},
			Indices:  indices,
			Location: a.cfg.Location(),
		}, a.logger)
	return sched, rec
}
