package metric

import (
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Interval bounds a statistic of trade outcomes, such as a strategy hit rate
type Interval struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Center float64 `json:"center"`
	Spread float64 `json:"spread"`
}

// ResampleInterval estimates how far statistic could move on a different draw of
// the same outcomes. Each round draws len(outcomes) values with replacement; the
// interval holds the central level share of the per round results.
func ResampleInterval(outcomes []float64, statistic func([]float64) float64, rounds int, level float64) Interval {
	if len(outcomes) == 0 || rounds <= 0 {
		return Interval{}
	}

	results := resampleRounds(outcomes, statistic, rounds)
	slices.Sort(results)

	center, spread := stat.MeanStdDev(results, nil)
	tail := (1 - level) / 2
	return Interval{
		Low:    stat.Quantile(tail, stat.LinInterp, results, nil),
		High:   stat.Quantile(1-tail, stat.LinInterp, results, nil),
		Center: center,
		Spread: spread,
	}
}

func resampleRounds(outcomes []float64, statistic func([]float64) float64, rounds int) []float64 {
	draw := make([]float64, len(outcomes))
	return lo.Times(rounds, func(int) float64 {
		for i := range draw {
			draw[i] = lo.Sample(outcomes)
		}
		return statistic(draw)
	})
}
