package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
	"github.com/raykavin/stratfuse/pkg/learning"
)

var (
	replayWarmup  int
	replayHorizon int
)

func (a *app) buildReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Walk the feed bar by bar, settle every decision after a fixed horizon and learn from it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if replayWarmup < 1 || replayHorizon < 1 {
				return fmt.Errorf("warmup and horizon must be positive")
			}

			dataFeed, err := a.loadFeed()
			if err != nil {
				return err
			}
			snaps, err := dataFeed.Snapshots()
			if err != nil {
				return err
			}

			steps := 0
			for _, snap := range snaps {
				steps += max(0, snap.Bars.Len()-replayWarmup-replayHorizon+1)
			}

			progressBar := progressbar.Default(int64(steps))
			for _, snap := range snaps {
				err := replay(cmd.Context(), a.engine, snap, replayWarmup, replayHorizon, func() {
					if err := progressBar.Add(1); err != nil {
						a.log.Warnf("update progressbar fail: %v", err)
					}
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, summary := range learning.Summarize(a.engine.Trades()) {
				fmt.Fprint(out, summary.String())
			}
			fmt.Fprint(out, renderWeights(a.engine.Weights()))
			return nil
		},
	}

	cmd.Flags().IntVar(&replayWarmup, "warmup", 60, "Bars required before the first decision")
	cmd.Flags().IntVar(&replayHorizon, "horizon", 5, "Bars a decision is held before it is settled")
	return cmd
}

// replayEngine is the part of the engine a replay drives
type replayEngine interface {
	Analyze(ctx context.Context, snap core.Snapshot) (fusion.Decision, error)
	Settle(ctx context.Context, d fusion.Decision, exit float64, closedAt time.Time, bars core.Dataframe) error
	Learn(ctx context.Context) (learning.Suggestion, error)
}

type pendingTrade struct {
	decision fusion.Decision
	exit     int
}

// replay analyzes every prefix of the snapshot bars. Buy and sell decisions stay
// open for horizon bars and are only settled, and learned from, once the walk
// reaches their exit bar, before that bar is analyzed.
func replay(ctx context.Context, engine replayEngine, snap core.Snapshot, warmup, horizon int, step func()) error {
	bars := snap.Bars
	var pending []pendingTrade

	for i := warmup - 1; i < bars.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for len(pending) > 0 && pending[0].exit <= i {
			trade := pending[0]
			pending = pending[1:]
			held := bars.Head(trade.exit + 1)
			if err := engine.Settle(ctx, trade.decision, bars.Close[trade.exit], bars.Candle(trade.exit).Time, held); err != nil {
				return err
			}
			if _, err := engine.Learn(ctx); err != nil {
				return err
			}
		}

		if i+horizon >= bars.Len() {
			continue
		}

		decision, err := engine.Analyze(ctx, core.Snapshot{
			Instrument: snap.Instrument,
			Bars:       bars.Head(i + 1),
			Sector:     snap.Sector,
		})
		if err != nil {
			return err
		}
		if decision.Action.Rank() != 0 {
			pending = append(pending, pendingTrade{decision: decision, exit: i + horizon})
		}
		step()
	}
	return nil
}
