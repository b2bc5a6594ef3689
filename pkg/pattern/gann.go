package pattern

import (
	"fmt"
	"math"
	"sort"

	"github.com/raykavin/stratfuse/pkg/core"
)

// GannAngle is one of the canonical price/time ratios
type GannAngle struct {
	Name  string
	Price float64
	Time  float64
}

// Ratio returns price units per time unit
func (g GannAngle) Ratio() float64 { return g.Price / g.Time }

// GannAngles are the nine canonical angles
var GannAngles = []GannAngle{
	{"1x1", 1, 1},
	{"2x1", 2, 1},
	{"1x2", 1, 2},
	{"3x1", 3, 1},
	{"1x3", 1, 3},
	{"4x1", 4, 1},
	{"1x4", 1, 4},
	{"8x1", 8, 1},
	{"1x8", 1, 8},
}

var (
	gannTimeOffsets = []int{8, 13, 21, 34, 55, 89, 144}
	gannPriceRatios = []float64{0.382, 0.5, 0.618, 0.786}
	gannMinBars     = 20
	gannTimeSlack   = 1
	gannPriceSlack  = 0.01
	gannNeutralBand = 0.005
)

// AngleLevel is the value of an angle line at the current bar
type AngleLevel struct {
	Angle GannAngle
	Price float64
}

// GannAnalysis is the detailed output of the Gann analyzer
type GannAnalysis struct {
	Match
	High, Low       float64
	HighIdx, LowIdx int
	Angles          []AngleLevel
	TimeSquares     []int
	PriceSquares    []float64
	NearTimeSquare  bool
	NearPriceSquare bool
}

// GannAnalyzer relates price and time through angle lines anchored at the
// most significant low of the window
type GannAnalyzer struct {
	Lookback int
}

// NewGannAnalyzer returns an analyzer with default settings
func NewGannAnalyzer() GannAnalyzer {
	return GannAnalyzer{Lookback: 144}
}

// Analyze builds the angle fan, time and price squares and classifies the last close
func (g GannAnalyzer) Analyze(df core.Dataframe) GannAnalysis {
	out := GannAnalysis{Match: notDetected(GannTheory)}
	if g.Lookback > 0 {
		df = df.Sample(g.Lookback)
	}
	n := df.Len()
	if n < gannMinBars {
		return out
	}

	hiIdx, loIdx := 0, 0
	for i := 1; i < n; i++ {
		if df.High[i] > df.High[hiIdx] {
			hiIdx = i
		}
		if df.Low[i] < df.Low[loIdx] {
			loIdx = i
		}
	}
	high, low := df.High[hiIdx], df.Low[loIdx]
	rng := high - low
	if rng <= 0 || hiIdx == loIdx {
		return out
	}

	out.High, out.Low, out.HighIdx, out.LowIdx = high, low, hiIdx, loIdx

	// one price unit per bar for the 1x1 line, scaled so it spans the swing
	unit := rng / math.Abs(float64(hiIdx-loIdx))
	current := n - 1
	elapsed := float64(current - loIdx)
	if elapsed < 0 {
		elapsed = 0
	}

	for _, angle := range GannAngles {
		out.Angles = append(out.Angles, AngleLevel{Angle: angle, Price: low + unit*angle.Ratio()*elapsed})
	}

	for _, offset := range gannTimeOffsets {
		for _, anchor := range []int{loIdx, hiIdx} {
			idx := anchor + offset
			out.TimeSquares = append(out.TimeSquares, idx)
			if abs(idx-current) <= gannTimeSlack {
				out.NearTimeSquare = true
			}
		}
	}
	sort.Ints(out.TimeSquares)

	price := df.Close.Last(0)
	out.PriceSquares = append(out.PriceSquares, low)
	for _, r := range gannPriceRatios {
		out.PriceSquares = append(out.PriceSquares, low+rng*r)
	}
	out.PriceSquares = append(out.PriceSquares, high, low+2*rng)
	for _, level := range out.PriceSquares {
		if math.Abs(price-level)/price <= gannPriceSlack {
			out.NearPriceSquare = true
		}
	}

	support, resistance := nearestAngles(out.Angles, price)
	oneByOne := out.Angles[0].Price

	direction := core.Neutral
	switch {
	case elapsed == 0:
		// price is printing the low itself, the fan has no slope yet
	case price > oneByOne*(1+gannNeutralBand):
		direction = core.Bullish
	case price < oneByOne*(1-gannNeutralBand):
		direction = core.Bearish
	}

	card := scorecard{total: 0.3}
	if out.NearTimeSquare {
		card.add(0.25, 1)
	}
	if out.NearPriceSquare {
		card.add(0.25, 1)
	}
	card.add(0.2, math.Abs(price-oneByOne)/rng*2)

	levels := Levels{Support: support.Price, Resistance: resistance.Price}
	switch direction {
	case core.Bullish:
		levels.StopLoss = support.Price
		levels.Targets = priceSquaresAbove(out.PriceSquares, price, resistance.Price)
	case core.Bearish:
		levels.StopLoss = resistance.Price
		levels.Targets = priceSquaresBelow(out.PriceSquares, price, support.Price)
	}

	notes := []string{
		fmt.Sprintf("support %s, resistance %s", support.Angle.Name, resistance.Angle.Name),
	}
	if out.NearTimeSquare {
		notes = append(notes, "time square")
	}
	if out.NearPriceSquare {
		notes = append(notes, "price square")
	}

	out.Match = detected(GannTheory, direction, card.value(), levels, notes...)
	return out
}

// nearestAngles returns the closest angle line below and above price. When price
// sits outside the fan the outermost line is used on the missing side.
func nearestAngles(angles []AngleLevel, price float64) (support, resistance AngleLevel) {
	sorted := append([]AngleLevel(nil), angles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	support, resistance = sorted[0], sorted[len(sorted)-1]
	for _, a := range sorted {
		if a.Price <= price {
			support = a
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Price >= price {
			resistance = sorted[i]
		}
	}
	return support, resistance
}

func priceSquaresAbove(levels []float64, price, fallback float64) []float64 {
	out := make([]float64, 0, 2)
	for _, l := range levels {
		if l > price*(1+gannPriceSlack) {
			out = append(out, l)
		}
	}
	sort.Float64s(out)
	if len(out) == 0 && fallback > price {
		out = append(out, fallback)
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}

func priceSquaresBelow(levels []float64, price, fallback float64) []float64 {
	out := make([]float64, 0, 2)
	for _, l := range levels {
		if l < price*(1-gannPriceSlack) {
			out = append(out, l)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	if len(out) == 0 && fallback < price {
		out = append(out, fallback)
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
