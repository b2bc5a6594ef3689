package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/learning"
)

func (a *app) buildCharacteristicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "characteristics [instrument...]",
		Aliases: []string{"chars"},
		Short:   "Show the learned profile of instruments, all stored ones by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			instruments := args
			if len(instruments) == 0 {
				prefix := learning.CharacteristicsKey("")
				keys, err := a.store.Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				for _, key := range keys {
					instruments = append(instruments, strings.TrimPrefix(key, prefix))
				}
			}
			if len(instruments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No instrument has been learned yet")
				return nil
			}

			profiles := make([]core.Characteristics, 0, len(instruments))
			for _, instrument := range instruments {
				profiles = append(profiles, a.engine.Characteristics(cmd.Context(), instrument))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCharacteristics(profiles, a.engine.Weights().IDs()))
			return nil
		},
	}
}

func renderCharacteristics(profiles []core.Characteristics, strategies []core.StrategyID) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)

	header := []string{"Instrument", "Sector", "Volatility", "Pattern", "Trades", "Updated"}
	for _, id := range strategies {
		header = append(header, string(id))
	}
	table.SetHeader(header)

	for _, p := range profiles {
		row := []string{
			p.Instrument,
			string(p.Sector),
			string(p.Volatility),
			string(p.Pattern),
			fmt.Sprintf("%d", p.Trades),
			formatTime(p.UpdatedAt),
		}
		for _, id := range strategies {
			row = append(row, fmt.Sprintf("%.2f", p.EffectivenessOf(id)))
		}
		table.Append(row)
	}
	table.Render()
	return buffer.String()
}
