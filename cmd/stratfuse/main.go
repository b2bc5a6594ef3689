package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:               "stratfuse",
		Short:             "Strategy fusion and adaptive weighting engine",
		Version:           "1.0.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file (default ./stratfuse.yaml)")

	rootCmd.AddCommand(
		a.buildAnalyzeCmd(),
		a.buildWeightsCmd(),
		a.buildLearnCmd(),
		a.buildCharacteristicsCmd(),
		a.buildReplayCmd(),
		a.buildServeCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
