package optimizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/raykavin/stratfuse/pkg/core"
)

// SaveResultsToCSV saves ranked optimization results to a CSV file
func SaveResultsToCSV(results []*Result, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return WriteResultsCSV(file, results)
}

// WriteResultsCSV writes results in their current order, one column per
// strategy weight followed by one column per metric
func WriteResultsCSV(w io.Writer, results []*Result) error {
	writer := csv.NewWriter(w)

	strategySet := make(map[core.StrategyID]struct{})
	metricSet := make(map[string]struct{})
	for _, result := range results {
		for id := range result.Weights {
			strategySet[id] = struct{}{}
		}
		for name := range result.Metrics {
			metricSet[name] = struct{}{}
		}
	}

	strategies := lo.Keys(strategySet)
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })
	metrics := lo.Keys(metricSet)
	sort.Strings(metrics)

	header := []string{"rank", "duration"}
	header = append(header, lo.Map(strategies, func(id core.StrategyID, _ int) string { return string(id) })...)
	header = append(header, metrics...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, result := range results {
		row := []string{strconv.Itoa(i + 1), result.Duration.String()}
		for _, id := range strategies {
			row = append(row, strconv.FormatFloat(result.Weights[id], 'f', 4, 64))
		}
		for _, name := range metrics {
			value, exists := result.Metrics[name]
			if !exists {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(value, 'f', 4, 64))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// MergeResults combines multiple result sets into a single slice
func MergeResults(resultSets ...[]*Result) []*Result {
	totalSize := 0
	for _, set := range resultSets {
		totalSize += len(set)
	}

	merged := make([]*Result, 0, totalSize)
	for _, set := range resultSets {
		merged = append(merged, set...)
	}

	return merged
}
