package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveEvery time.Duration

func (a *app) buildServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Analyze the feed periodically, run the learning loop and expose metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if serveEvery <= 0 {
				return fmt.Errorf("invalid interval %s", serveEvery)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return a.analyzeLoop(ctx) })
			if a.cfg.Learning.Enabled {
				g.Go(func() error { return a.engine.Run(ctx) })
			}
			if a.registry != nil {
				g.Go(func() error { return a.serveMetrics(ctx) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().DurationVar(&serveEvery, "every", time.Minute, "Interval between two analysis cycles")
	return cmd
}

func (a *app) analyzeLoop(ctx context.Context) error {
	ticker := time.NewTicker(serveEvery)
	defer ticker.Stop()

	for {
		if err := a.analyzeOnce(ctx); err != nil {
			a.log.WithError(err).Error("analysis cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) analyzeOnce(ctx context.Context) error {
	dataFeed, err := a.loadFeed()
	if err != nil {
		return err
	}
	snaps, err := dataFeed.Snapshots()
	if err != nil {
		return err
	}
	decisions, err := a.engine.AnalyzeAll(ctx, snaps)
	if err != nil {
		return err
	}
	for _, d := range decisions {
		a.log.WithFields(map[string]any{
			"instrument": d.Instrument,
			"score":      fmt.Sprintf("%.2f", d.Score),
			"allocation": fmt.Sprintf("%.2f", d.Allocation),
		}).Info(d.Label())
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()

	a.log.Infof("serving metrics on %s/metrics", a.cfg.Metrics.Address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
