package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/fusion"
)

func (a *app) buildWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show the current base weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderWeights(a.engine.Weights()))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set id=weight...",
		Short:   "Replace the base weights, eg: set control=0.4 pattern=0.3 momentum=0.3",
		Args:    cobra.MinimumNArgs(1),
		Example: "stratfuse weights set control=0.5 pattern=0.25 momentum=0.25",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := parseWeights(args)
			if err != nil {
				return err
			}
			if err := a.engine.SetWeights(cmd.Context(), w); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderWeights(a.engine.Weights()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default base weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.engine.SetWeights(cmd.Context(), fusion.DefaultWeights()); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderWeights(a.engine.Weights()))
			return nil
		},
	})

	return cmd
}

func parseWeights(args []string) (fusion.WeightVector, error) {
	w := make(fusion.WeightVector, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid weight %q, expected id=value", arg)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", arg, err)
		}
		w[core.StrategyID(id)] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func renderWeights(w fusion.WeightVector) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Module", "Weight"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	for _, id := range w.IDs() {
		table.Append([]string{string(id), fmt.Sprintf("%.4f", w[id])})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%.4f", w.Sum())})
	table.Render()
	return buffer.String()
}
