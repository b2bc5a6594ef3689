package learning

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Summary collects performance statistics of the recorded trades of one instrument
type Summary struct {
	Instrument string
	Win        []float64
	Lose       []float64
}

// Summarize groups trades by instrument, sorted by instrument name
func Summarize(trades []TradeOutcome) []Summary {
	byInstrument := lo.GroupBy(trades, func(t TradeOutcome) string { return t.Instrument })
	instruments := lo.Keys(byInstrument)
	sort.Strings(instruments)

	summaries := make([]Summary, 0, len(instruments))
	for _, instrument := range instruments {
		summaries = append(summaries, NewSummary(instrument, byInstrument[instrument]))
	}
	return summaries
}

// NewSummary splits the trades into winners and losers. A flat trade is a loser
func NewSummary(instrument string, trades []TradeOutcome) Summary {
	s := Summary{Instrument: instrument}
	for _, t := range trades {
		if t.ProfitLoss > 0 {
			s.Win = append(s.Win, t.ProfitLoss)
		} else {
			s.Lose = append(s.Lose, t.ProfitLoss)
		}
	}
	return s
}

// Trades returns the number of summarized trades
func (s Summary) Trades() int {
	return len(s.Win) + len(s.Lose)
}

// Profit is the sum of the relative P/L of every trade
func (s Summary) Profit() float64 {
	return lo.Sum(s.Win) + lo.Sum(s.Lose)
}

// WinPercentage returns the share of winning trades in percent
func (s Summary) WinPercentage() float64 {
	if s.Trades() == 0 {
		return 0
	}
	return float64(len(s.Win)) / float64(s.Trades()) * 100
}

// Payoff is the ratio of the average win to the average loss
func (s Summary) Payoff() float64 {
	if len(s.Win) == 0 || len(s.Lose) == 0 {
		return 0
	}

	avgLoss := stat.Mean(s.Lose, nil)
	if avgLoss == 0 {
		return 0
	}
	return stat.Mean(s.Win, nil) / math.Abs(avgLoss)
}

// ProfitFactor is the ratio of gross profit to gross loss
func (s Summary) ProfitFactor() float64 {
	grossLoss := lo.Sum(s.Lose)
	if grossLoss == 0 {
		return 0
	}
	return lo.Sum(s.Win) / math.Abs(grossLoss)
}

// SQN is the system quality number, sqrt(n) * mean / std-dev of the trade results
func (s Summary) SQN() float64 {
	n := s.Trades()
	if n == 0 {
		return 0
	}

	mean, stdDev := stat.PopMeanStdDev(append(append([]float64(nil), s.Win...), s.Lose...), nil)
	if stdDev == 0 {
		return 0
	}
	return math.Sqrt(float64(n)) * mean / stdDev
}

// String formats the summary as a text table
func (s Summary) String() string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	table.AppendBulk([][]string{
		{"Instrument", s.Instrument},
		{"Trades", strconv.Itoa(s.Trades())},
		{"Win", strconv.Itoa(len(s.Win))},
		{"Loss", strconv.Itoa(len(s.Lose))},
		{"% Win", fmt.Sprintf("%.1f", s.WinPercentage())},
		{"Payoff", fmt.Sprintf("%.2f", s.Payoff())},
		{"Pr.Fact", fmt.Sprintf("%.2f", s.ProfitFactor())},
		{"SQN", fmt.Sprintf("%.2f", s.SQN())},
		{"Profit", fmt.Sprintf("%.2f %%", s.Profit()*100)},
	})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return tableString.String()
}
