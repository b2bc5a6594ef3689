package core

import "time"

// StrategyID identifies a strategy module taking part in fusion
type StrategyID string

// Action is a discrete trade recommendation
type Action string

const (
	ActionStrongSell Action = "strong_sell"
	ActionSell       Action = "sell"
	ActionHold       Action = "hold"
	ActionBuy        Action = "buy"
	ActionStrongBuy  Action = "strong_buy"
)

// Rank orders actions from strong_sell (-2) to strong_buy (2)
func (a Action) Rank() int {
	switch a {
	case ActionStrongSell:
		return -2
	case ActionSell:
		return -1
	case ActionBuy:
		return 1
	case ActionStrongBuy:
		return 2
	default:
		return 0
	}
}

// IsBuy reports whether the action belongs to the buy class
func (a Action) IsBuy() bool { return a.Rank() > 0 }

// IsSell reports whether the action belongs to the sell class
func (a Action) IsSell() bool { return a.Rank() < 0 }

// Direction returns the market direction implied by the action
func (a Action) Direction() Direction {
	switch {
	case a.IsBuy():
		return Bullish
	case a.IsSell():
		return Bearish
	default:
		return Neutral
	}
}

// Direction is the bias of a signal or pattern
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Matches reports whether the direction agrees with the sign of a realized profit
func (d Direction) Matches(profit float64) bool {
	switch d {
	case Bullish:
		return profit > 0
	case Bearish:
		return profit < 0
	default:
		return false
	}
}

// RiskProfile selects the threshold table used by strategy modules
type RiskProfile int

const (
	Conservative RiskProfile = iota
	Moderate
	Aggressive
)

func (r RiskProfile) String() string {
	switch r {
	case Conservative:
		return "conservative"
	case Aggressive:
		return "aggressive"
	default:
		return "moderate"
	}
}

// ParseRiskProfile converts a textual risk profile, defaulting to Moderate
func ParseRiskProfile(s string) RiskProfile {
	switch s {
	case "conservative":
		return Conservative
	case "aggressive":
		return Aggressive
	default:
		return Moderate
	}
}

// VolatilityClass buckets the std-dev of trailing returns
type VolatilityClass string

const (
	VolatilityLow    VolatilityClass = "low"
	VolatilityMedium VolatilityClass = "medium"
	VolatilityHigh   VolatilityClass = "high"
)

// Volatility thresholds on the std-dev of per-bar returns
const (
	HighVolatilityThreshold = 0.02
	LowVolatilityThreshold  = 0.01
)

// ClassifyVolatility maps a returns std-dev to a volatility class
func ClassifyVolatility(stdDev float64) VolatilityClass {
	switch {
	case stdDev > HighVolatilityThreshold:
		return VolatilityHigh
	case stdDev < LowVolatilityThreshold:
		return VolatilityLow
	default:
		return VolatilityMedium
	}
}

// TradingPattern describes how an instrument usually moves
type TradingPattern string

const (
	PatternTrending TradingPattern = "trending"
	PatternRanging  TradingPattern = "ranging"
)

// SectorType is a coarse instrument classification
type SectorType string

const (
	SectorUnknown    SectorType = "unknown"
	SectorTechnology SectorType = "technology"
	SectorFinance    SectorType = "finance"
	SectorConsumer   SectorType = "consumer"
	SectorIndustrial SectorType = "industrial"
	SectorEnergy     SectorType = "energy"
	SectorHealth     SectorType = "healthcare"
	SectorCrypto     SectorType = "crypto"
)

// Characteristics is the learned profile of an instrument
type Characteristics struct {
	Instrument    string                 `json:"instrument"`
	Volatility    VolatilityClass        `json:"volatility"`
	Pattern       TradingPattern         `json:"pattern"`
	Sector        SectorType             `json:"sector"`
	Effectiveness map[StrategyID]float64 `json:"effectiveness"`
	Trades        int                    `json:"trades"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// DefaultEffectiveness is the neutral effectiveness assigned to unseen strategies
const DefaultEffectiveness = 0.5

// NewCharacteristics returns the default profile for an unseen instrument
func NewCharacteristics(instrument string) Characteristics {
	return Characteristics{
		Instrument:    instrument,
		Volatility:    VolatilityMedium,
		Pattern:       PatternRanging,
		Sector:        SectorUnknown,
		Effectiveness: make(map[StrategyID]float64),
	}
}

// EffectivenessOf returns the learned effectiveness of a strategy or the neutral default
func (c Characteristics) EffectivenessOf(id StrategyID) float64 {
	if v, ok := c.Effectiveness[id]; ok {
		return v
	}
	return DefaultEffectiveness
}

// Clone returns a deep copy safe to hand out to readers
func (c Characteristics) Clone() Characteristics {
	out := c
	out.Effectiveness = make(map[StrategyID]float64, len(c.Effectiveness))
	for k, v := range c.Effectiveness {
		out.Effectiveness[k] = v
	}
	return out
}
