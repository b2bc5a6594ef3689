package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/raykavin/stratfuse"
	"github.com/raykavin/stratfuse/internal/config"
	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/feed"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/raykavin/stratfuse/pkg/logger/zerolog"
	"github.com/raykavin/stratfuse/pkg/optimizer"
	"github.com/raykavin/stratfuse/pkg/storage"
)

// app holds what every command needs, built once before the command runs
type app struct {
	configPath string
	search     bool

	cfg      *config.Config
	log      logger.Logger
	store    storage.KV
	engine   *stratfuse.Engine
	registry *prometheus.Registry
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	l, err := zerolog.New(cfg.Log.Level, cfg.Log.TimeFormat, cfg.Log.Color, cfg.Log.JSON, os.Stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.log = zerolog.NewAdapter(l)

	a.store, err = openStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}

	options := []stratfuse.Option{
		stratfuse.WithLogger(a.log),
		stratfuse.WithStore(a.store),
		stratfuse.WithRiskProfile(core.ParseRiskProfile(cfg.RiskProfile)),
		stratfuse.WithParallelism(cfg.Parallelism),
		stratfuse.WithHistorySize(cfg.HistorySize),
		stratfuse.WithMaxTrades(cfg.Learning.MaxTrades),
	}
	if len(cfg.Weights) > 0 {
		options = append(options, stratfuse.WithWeights(weightsFromConfig(cfg.Weights)))
	}
	if cfg.Learning.Search || a.search {
		options = append(options, stratfuse.WithWeightSearch(a.searchConfig()))
	}
	if cfg.Learning.Enabled && cfg.Learning.Interval > 0 {
		options = append(options, stratfuse.WithLearningInterval(cfg.Learning.Interval))
	}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		options = append(options, stratfuse.WithMetrics(a.registry))
	}

	a.engine, err = stratfuse.New(cmd.Context(), options...)
	if err != nil {
		_ = a.store.Close()
		a.store = nil
	}
	return err
}

func (a *app) close() error {
	switch {
	case a.engine != nil:
		return a.engine.Close()
	case a.store != nil:
		return a.store.Close()
	}
	return nil
}

func (a *app) searchConfig() *optimizer.Config {
	return optimizer.NewConfig().
		WithMaxIterations(a.cfg.Learning.SearchIterations).
		WithParallelism(a.cfg.Parallelism).
		WithLogger(a.log)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Driver {
	case "memory":
		return storage.FromMemory()
	case "redis":
		return storage.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	case "sqlite":
		return storage.FromSQLite(cfg.Path, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	default:
		return storage.FromFile(cfg.Path)
	}
}

func weightsFromConfig(values map[string]float64) fusion.WeightVector {
	w := make(fusion.WeightVector, len(values))
	for id, v := range values {
		w[core.StrategyID(id)] = v
	}
	return w
}

func (a *app) loadFeed() (*feed.Feed, error) {
	feeds := make([]feed.InstrumentFeed, 0, len(a.cfg.Feed.Instruments))
	for _, i := range a.cfg.Feed.Instruments {
		timeframe := i.Timeframe
		if timeframe == "" {
			timeframe = a.cfg.Feed.Timeframe
		}
		sector := core.SectorType(i.Sector)
		if sector == "" {
			sector = core.SectorUnknown
		}
		feeds = append(feeds, feed.InstrumentFeed{
			Instrument: i.Instrument,
			File:       i.File,
			Timeframe:  timeframe,
			Sector:     sector,
		})
	}
	return feed.Load(feeds, a.cfg.Feed.Timeframes...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
