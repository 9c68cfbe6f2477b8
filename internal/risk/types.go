package risk

import (
	"time"
)

// Level classifies the risk appetite a manager is configured with.
type Level int

const (
	LevelConservative Level = iota + 1
	LevelModerate
	LevelAggressive
)

func (l Level) String() string {
	switch l {
	case LevelConservative:
		return "conservative"
	case LevelModerate:
		return "moderate"
	case LevelAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// ParseLevel maps a config string to a Level, defaulting to moderate.
func ParseLevel(s string) Level {
	switch s {
	case "conservative":
		return LevelConservative
	case "aggressive":
		return LevelAggressive
	default:
		return LevelModerate
	}
}

// Limits is the per-level rule table used by trade validation and sizing.
type Limits struct {
	MaxPositionSize     float64 // fraction of capital per position
	MaxCorrelation      float64 // max allowed inter-asset correlation
	MinRiskReward       float64 // minimum acceptable reward/risk ratio
	StopLossPct         float64 // max stop distance as fraction of entry
	MaxConcurrentTrades int
}

// DefaultLimits returns the built-in limit table. Callers may override
// individual levels via ManagerConfig.
func DefaultLimits() map[Level]Limits {
	return map[Level]Limits{
		LevelConservative: {
			MaxPositionSize:     0.05,
			MaxCorrelation:      0.3,
			MinRiskReward:       2.0,
			StopLossPct:         0.02,
			MaxConcurrentTrades: 3,
		},
		LevelModerate: {
			MaxPositionSize:     0.10,
			MaxCorrelation:      0.5,
			MinRiskReward:       1.5,
			StopLossPct:         0.05,
			MaxConcurrentTrades: 5,
		},
		LevelAggressive: {
			MaxPositionSize:     0.20,
			MaxCorrelation:      0.7,
			MinRiskReward:       1.0,
			StopLossPct:         0.10,
			MaxConcurrentTrades: 10,
		},
	}
}

// PositionRisk holds the computed risk metrics for one open position. It is
// replaced wholesale on every update so stale derived fields cannot survive
// a price change.
type PositionRisk struct {
	Symbol            string
	PositionSize      float64
	EntryPrice        float64
	CurrentPrice      float64
	StopLoss          float64
	TakeProfit        float64
	Volatility        float64
	ValueAtRisk       float64
	ExpectedLoss      float64
	RiskRewardRatio   float64
	MarginRequirement float64
	LastUpdated       time.Time
}

// Value returns the position's current market value.
func (p PositionRisk) Value() float64 {
	return p.PositionSize * p.CurrentPrice
}

// PortfolioRisk is a point-in-time aggregate over all positions. Instances
// are never mutated after construction; the manager appends them to a
// history list for trend review.
type PortfolioRisk struct {
	TotalValue        float64
	TotalRisk         float64
	ValueAtRisk95     float64
	ConditionalVaR95  float64
	SharpeRatio       float64
	SortinoRatio      float64
	MaxDrawdown       float64
	CurrentDrawdown   float64
	Volatility        float64
	CorrelationMatrix map[string]map[string]float64
	BetaCoefficients  map[string]float64
	CalculatedAt      time.Time
}

// SizeMetrics exposes every candidate considered by position sizing so
// callers can audit which constraint bound the final size.
type SizeMetrics struct {
	BasicPositionSize  float64 `json:"basic_position_size"`
	KellyPositionSize  float64 `json:"kelly_position_size"`
	MaxAllowedPosition float64 `json:"max_allowed_position"`
	RiskAmount         float64 `json:"risk_amount"`
	RiskPerUnit        float64 `json:"risk_per_unit"`
	PositionSize       float64 `json:"position_size"`
	PositionValue      float64 `json:"position_value"`
	PositionPercentage float64 `json:"position_percentage"`
}

// VaRMetrics bundles the value-at-risk figures for one return series.
// All values are reported as positive magnitudes.
type VaRMetrics struct {
	HistoricalVaR float64 `json:"historical_var"`
	ParametricVaR float64 `json:"parametric_var"`
	CVaR          float64 `json:"cvar"`
	MeanReturn    float64 `json:"mean_return"`
	StdReturn     float64 `json:"std_return"`
}

// Scenario is a named what-if shock: symbol -> price change in percent.
type Scenario struct {
	Name   string
	Shocks map[string]float64
}

// ScenarioResult summarizes the portfolio impact of one stress scenario.
type ScenarioResult struct {
	TotalLoss         float64 `json:"total_loss"`
	MaxPositionLoss   float64 `json:"max_position_loss"`
	PositionsAffected int     `json:"positions_affected"`
}

// KellyParams are the Kelly-criterion sizing assumptions. These are fixed
// configuration inputs, not values calibrated from trade history.
type KellyParams struct {
	WinRate float64
	AvgWin  float64
	AvgLoss float64
}

// Fraction returns the Kelly bet fraction for the configured assumptions.
func (k KellyParams) Fraction() float64 {
	if k.AvgWin == 0 {
		return 0
	}
	return k.WinRate - (1-k.WinRate)/k.AvgWin
}

// PrecisionTier maps a minimum entry price to the number of decimals a
// computed position size is rounded to.
type PrecisionTier struct {
	MinPrice float64
	Decimals int
}

// DefaultPrecisionTiers mirrors the usual exchange lot conventions:
// expensive assets trade in finer size increments.
func DefaultPrecisionTiers() []PrecisionTier {
	return []PrecisionTier{
		{MinPrice: 1000, Decimals: 3},
		{MinPrice: 100, Decimals: 2},
		{MinPrice: 0, Decimals: 1},
	}
}
