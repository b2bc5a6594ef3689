package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/raykavin/stratfuse/pkg/learning"
	"github.com/raykavin/stratfuse/pkg/optimizer"
)

var (
	learnTrades string
	learnCSV    string
)

func (a *app) buildLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record closed trades and run a learning pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			trades, err := readTrades(learnTrades)
			if err != nil {
				return err
			}

			for _, trade := range trades {
				if err := a.engine.RecordTrade(cmd.Context(), trade); err != nil {
					return err
				}
			}

			before := a.engine.Weights()
			suggestion, err := a.engine.Learn(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, summary := range learning.Summarize(a.engine.Trades()) {
				fmt.Fprint(out, summary.String())
			}
			if !suggestion.Ready {
				fmt.Fprintf(out, "No weights learned from %d trades: %s\n", suggestion.Trades, suggestion.Reason)
				return nil
			}
			fmt.Fprint(out, renderSuggestion(suggestion))
			fmt.Fprintf(out, "Weights: %s -> %s\n", before, a.engine.Weights())

			if learnCSV == "" {
				return nil
			}
			search, err := optimizer.NewRandomSearch(a.searchConfig().
				WithStrategies(before.IDs()...).
				WithSeeds(before, suggestion.Weights).
				WithTopN(a.cfg.Learning.SearchIterations))
			if err != nil {
				return err
			}
			results, err := search.Optimize(cmd.Context(), learning.NewReplayEvaluator(a.engine.Trades()))
			if err != nil {
				return err
			}
			if err := optimizer.SaveResultsToCSV(results, learnCSV); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %d search results to %s\n", len(results), learnCSV)
			return nil
		},
	}

	cmd.Flags().StringVarP(&learnTrades, "trades", "t", "", "JSON file with the closed trades to learn from")
	cmd.Flags().BoolVar(&a.search, "search", false, "Refine the learned weights with a random search over the trades")
	cmd.Flags().StringVar(&learnCSV, "csv", "", "Write the ranked weight search results to this CSV file")
	_ = cmd.MarkFlagRequired("trades")
	return cmd
}

func readTrades(path string) ([]learning.TradeOutcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}

	var trades []learning.TradeOutcome
	if err := json.Unmarshal(content, &trades); err != nil {
		return nil, fmt.Errorf("decode trades %s: %w", path, err)
	}
	for i, trade := range trades {
		if err := trade.Validate(); err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
	}
	return trades, nil
}

func renderSuggestion(s learning.Suggestion) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Module", "Hit Rate", "95% CI", "Suggested"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	for _, id := range s.Weights.IDs() {
		ci := "-"
		if interval, ok := s.Intervals[id]; ok {
			ci = fmt.Sprintf("%.2f - %.2f", interval.Low, interval.High)
		}
		table.Append([]string{
			string(id),
			fmt.Sprintf("%.1f %%", s.HitRates[id]*100),
			ci,
			fmt.Sprintf("%.4f", s.Weights[id]),
		})
	}
	table.SetFooter([]string{"", "", "Trades", fmt.Sprintf("%d", s.Trades)})
	table.Render()
	return buffer.String()
}
