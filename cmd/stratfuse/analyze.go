package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/raykavin/stratfuse/pkg/fusion"
)

var analyzeVerbose bool

func (a *app) buildAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fuse the strategy modules over the configured CSV feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.Feed.Instruments) == 0 {
				return fmt.Errorf("no instruments configured under feed.instruments")
			}

			dataFeed, err := a.loadFeed()
			if err != nil {
				return err
			}
			snaps, err := dataFeed.Snapshots()
			if err != nil {
				return err
			}

			decisions, err := a.engine.AnalyzeAll(cmd.Context(), snaps)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderDecisions(decisions))
			if analyzeVerbose {
				for _, d := range decisions {
					fmt.Fprint(cmd.OutOrStdout(), renderContributions(d))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print the per module breakdown of every decision")
	return cmd
}

func renderDecisions(decisions []fusion.Decision) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Instrument", "Time", "Price", "Action", "Score", "Allocation", "Buy", "Sell", "Volatility"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	buys, sells := 0, 0
	for _, d := range decisions {
		switch {
		case d.Action.IsBuy():
			buys++
		case d.Action.IsSell():
			sells++
		}
		table.Append([]string{
			d.Instrument,
			formatTime(d.Time),
			fmt.Sprintf("%.4f", d.Price),
			d.Label(),
			fmt.Sprintf("%.2f", d.Score),
			fmt.Sprintf("%.1f %%", d.Allocation*100),
			fmt.Sprintf("%d", d.BuySignals),
			fmt.Sprintf("%d", d.SellSignals),
			string(d.Volatility),
		})
	}

	table.SetFooter([]string{"", "", "", fmt.Sprintf("%d buy / %d sell", buys, sells), "", "", "", "", ""})
	table.Render()
	return buffer.String()
}

func renderContributions(d fusion.Decision) string {
	buffer := bytes.NewBuffer(nil)
	fmt.Fprintf(buffer, "\n%s: %s\n", d.Instrument, d.Rationale)

	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Module", "Action", "Score", "Weight", "Signals"})
	for _, c := range d.Contributions {
		action := string(c.Action)
		if c.Failed {
			action = "failed"
		}
		signals := append(append([]string(nil), c.SubSignals...), c.Patterns...)
		table.Append([]string{
			string(c.ID),
			action,
			fmt.Sprintf("%.2f", c.Score),
			fmt.Sprintf("%.3f", c.Weight),
			strings.Join(signals, ", "),
		})
	}
	table.Render()
	return buffer.String()
}
