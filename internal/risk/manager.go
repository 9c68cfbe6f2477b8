package risk

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ManagerConfig holds the tunables for a Manager. Zero values fall back to
// the documented defaults in NewManager.
type ManagerConfig struct {
	InitialCapital   float64
	RiskPerTrade     float64 // fraction of capital risked per trade
	MaxPortfolioRisk float64
	Level            Level
	Limits           map[Level]Limits // optional override of the limit table
	Kelly            KellyParams
	PrecisionTiers   []PrecisionTier

	// ExposureLimitPct and DailyLossLimitPct are global ceilings applied in
	// trade validation regardless of the selected risk level.
	ExposureLimitPct  float64
	DailyLossLimitPct float64

	RiskFreeRate    float64
	BenchmarkSymbol string // reference series for beta computation
}

// Manager is the gatekeeper for position sizing and trade admission, and
// the aggregator of portfolio-level risk metrics. It owns its position
// table exclusively; callers construct one per portfolio and inject it
// where needed.
type Manager struct {
	initialCapital float64
	currentCapital float64
	riskPerTrade   float64
	maxPortRisk    float64
	level          Level
	limits         map[Level]Limits
	kelly          KellyParams
	tiers          []PrecisionTier

	exposureLimitPct  float64
	dailyLossLimitPct float64
	riskFreeRate      float64
	benchmark         string

	positions map[string]PositionRisk
	history   []PortfolioRisk

	logger *zap.Logger
}

// TradeCandidate describes a proposed trade to be validated.
type TradeCandidate struct {
	Symbol        string
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	PositionSize  float64
	PositionValue float64
}

// NewManager creates a risk manager with the given configuration.
func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 10000
	}
	if cfg.RiskPerTrade <= 0 {
		cfg.RiskPerTrade = 0.02
	}
	if cfg.MaxPortfolioRisk <= 0 {
		cfg.MaxPortfolioRisk = 0.10
	}
	if cfg.Level == 0 {
		cfg.Level = LevelModerate
	}
	if cfg.Limits == nil {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Kelly == (KellyParams{}) {
		cfg.Kelly = KellyParams{WinRate: 0.55, AvgWin: 2.0, AvgLoss: 1.0}
	}
	if cfg.PrecisionTiers == nil {
		cfg.PrecisionTiers = DefaultPrecisionTiers()
	}
	if cfg.ExposureLimitPct <= 0 {
		cfg.ExposureLimitPct = 0.80
	}
	if cfg.DailyLossLimitPct <= 0 {
		cfg.DailyLossLimitPct = 0.05
	}
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = 0.02
	}
	if cfg.BenchmarkSymbol == "" {
		cfg.BenchmarkSymbol = "BTC"
	}

	m := &Manager{
		initialCapital:    cfg.InitialCapital,
		currentCapital:    cfg.InitialCapital,
		riskPerTrade:      cfg.RiskPerTrade,
		maxPortRisk:       cfg.MaxPortfolioRisk,
		level:             cfg.Level,
		limits:            cfg.Limits,
		kelly:             cfg.Kelly,
		tiers:             cfg.PrecisionTiers,
		exposureLimitPct:  cfg.ExposureLimitPct,
		dailyLossLimitPct: cfg.DailyLossLimitPct,
		riskFreeRate:      cfg.RiskFreeRate,
		benchmark:         cfg.BenchmarkSymbol,
		positions:         make(map[string]PositionRisk),
		logger:            logger,
	}
	m.logger.Info("risk manager initialized",
		zap.String("level", m.level.String()),
		zap.Float64("capital", m.currentCapital),
		zap.Float64("risk_per_trade", m.riskPerTrade))
	return m
}

// CurrentCapital returns the capital the sizing and limit rules run against.
func (m *Manager) CurrentCapital() float64 { return m.currentCapital }

// UpdateCapital replaces the tracked capital, e.g. after realized PnL.
func (m *Manager) UpdateCapital(capital float64) {
	m.currentCapital = capital
}

// Positions returns a copy of the tracked position risk table.
func (m *Manager) Positions() map[string]PositionRisk {
	out := make(map[string]PositionRisk, len(m.positions))
	for k, v := range m.positions {
		out[k] = v
	}
	return out
}

// History returns the recorded portfolio risk snapshots, oldest first.
func (m *Manager) History() []PortfolioRisk {
	out := make([]PortfolioRisk, len(m.history))
	copy(out, m.history)
	return out
}

// CalculatePositionSize sizes a candidate trade as the minimum of three
// candidates: a linear risk-based size, a Kelly-criterion size, and the
// capital cap for the configured risk level. The result is rounded to a
// precision tier keyed off the entry price. A zero risk amount defaults to
// capital * risk-per-trade. When entry equals stop there is no per-unit
// risk, so the size is zero and the metrics are empty.
func (m *Manager) CalculatePositionSize(entryPrice, stopLossPrice, riskAmount float64) (float64, SizeMetrics) {
	if entryPrice <= 0 {
		return 0, SizeMetrics{}
	}
	if riskAmount <= 0 {
		riskAmount = m.currentCapital * m.riskPerTrade
	}

	riskPerUnit := math.Abs(entryPrice - stopLossPrice)
	if riskPerUnit == 0 {
		m.logger.Warn("stop loss equals entry price, no risk calculation possible",
			zap.Float64("entry", entryPrice))
		return 0, SizeMetrics{}
	}

	basicSize := riskAmount / riskPerUnit
	kellySize := m.currentCapital * m.kelly.Fraction() / riskPerUnit
	maxByCapital := m.currentCapital * m.limits[m.level].MaxPositionSize
	maxByPrice := maxByCapital / entryPrice

	size := math.Min(basicSize, math.Min(kellySize, maxByPrice))
	size = m.roundSize(size, entryPrice)

	metrics := SizeMetrics{
		BasicPositionSize:  basicSize,
		KellyPositionSize:  kellySize,
		MaxAllowedPosition: maxByPrice,
		RiskAmount:         riskAmount,
		RiskPerUnit:        riskPerUnit,
		PositionSize:       size,
		PositionValue:      size * entryPrice,
		PositionPercentage: size * entryPrice / m.currentCapital * 100,
	}
	return size, metrics
}

// roundSize rounds a size to the precision tier matching the entry price.
func (m *Manager) roundSize(size, entryPrice float64) float64 {
	decimals := 1
	for _, tier := range m.tiers {
		if entryPrice > tier.MinPrice {
			decimals = tier.Decimals
			break
		}
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(size*factor) / factor
}

// CalculateVaR computes value-at-risk for a return series using both the
// historical and parametric (normal) methods, plus the conditional VaR
// (expected shortfall). An empty series yields all-zero metrics.
func (m *Manager) CalculateVaR(returns []float64, confidenceLevel float64) VaRMetrics {
	if len(returns) == 0 {
		return VaRMetrics{}
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}

	tail := 1 - confidenceLevel
	historicalVaR := percentile(returns, tail)
	mean, std := stat.MeanStdDev(returns, nil)
	if math.IsNaN(std) {
		std = 0
	}
	parametricVaR := mean + normQuantile(tail)*std

	// Expected shortfall: mean of the tail at or below the historical cutoff.
	tailSum, tailCount := 0.0, 0
	for _, r := range returns {
		if r <= historicalVaR {
			tailSum += r
			tailCount++
		}
	}
	cvar := 0.0
	if tailCount > 0 {
		cvar = tailSum / float64(tailCount)
	}

	return VaRMetrics{
		HistoricalVaR: math.Abs(historicalVaR),
		ParametricVaR: math.Abs(parametricVaR),
		CVaR:          math.Abs(cvar),
		MeanReturn:    mean,
		StdReturn:     std,
	}
}

// CalculatePortfolioMetrics aggregates position values into weights and,
// when historical per-symbol return series are supplied, derives the
// correlation matrix, annualized portfolio volatility, per-symbol beta
// against the benchmark, VaR/CVaR, Sharpe, Sortino and drawdowns from a
// blended portfolio return series. Without historical data the statistical
// fields default to zero. The snapshot is appended to the history list.
func (m *Manager) CalculatePortfolioMetrics(positions map[string]PositionRisk, historical map[string][]float64) PortfolioRisk {
	totalValue := 0.0
	for _, pos := range positions {
		totalValue += pos.Value()
	}

	weights := make(map[string]float64, len(positions))
	for sym, pos := range positions {
		if totalValue > 0 {
			weights[sym] = pos.Value() / totalValue
		}
	}

	snapshot := PortfolioRisk{
		TotalValue:   totalValue,
		CalculatedAt: time.Now().UTC(),
	}

	if len(historical) > 1 {
		snapshot.CorrelationMatrix = correlationMatrix(historical)
		snapshot.Volatility = portfolioVolatility(weights, historical)
		snapshot.TotalRisk = snapshot.Volatility
		snapshot.BetaCoefficients = betaCoefficients(historical, m.benchmark)
	}

	portfolioReturns := blendPortfolioReturns(weights, historical)
	if len(portfolioReturns) > 0 {
		varMetrics := m.CalculateVaR(portfolioReturns, 0.95)
		snapshot.ValueAtRisk95 = varMetrics.HistoricalVaR
		snapshot.ConditionalVaR95 = varMetrics.CVaR
		snapshot.MaxDrawdown, snapshot.CurrentDrawdown = drawdowns(portfolioReturns)
	}

	if len(portfolioReturns) > 1 {
		mean, std := stat.MeanStdDev(portfolioReturns, nil)
		annualReturn := mean * tradingDays
		annualStd := std * math.Sqrt(tradingDays)
		if annualStd > 0 {
			snapshot.SharpeRatio = (annualReturn - m.riskFreeRate) / annualStd
		}

		downside := make([]float64, 0, len(portfolioReturns))
		for _, r := range portfolioReturns {
			if r < 0 {
				downside = append(downside, r)
			}
		}
		if len(downside) > 1 {
			_, downStd := stat.MeanStdDev(downside, nil)
			downStd *= math.Sqrt(tradingDays)
			if downStd > 0 {
				snapshot.SortinoRatio = (annualReturn - m.riskFreeRate) / downStd
			}
		}
	}

	m.history = append(m.history, snapshot)
	return snapshot
}

// ValidateTrade checks a candidate trade against every admission rule and
// accumulates all violations instead of short-circuiting on the first.
// Rejection is an expected outcome, reported as (false, reasons), never as
// an error.
func (m *Manager) ValidateTrade(c TradeCandidate, existing map[string]PositionRisk) (bool, []string) {
	var violations []string
	limits := m.limits[m.level]

	// 1. Position size against capital.
	positionPct := c.PositionValue / m.currentCapital * 100
	maxPositionPct := limits.MaxPositionSize * 100
	if positionPct > maxPositionPct {
		violations = append(violations,
			fmt.Sprintf("position size %.1f%% exceeds maximum %.0f%%", positionPct, maxPositionPct))
	}

	// 2. Risk-reward ratio. Undefined when stop equals entry.
	riskDist := math.Abs(c.EntryPrice - c.StopLoss)
	rewardDist := math.Abs(c.TakeProfit - c.EntryPrice)
	if riskDist > 0 {
		rr := rewardDist / riskDist
		if rr < limits.MinRiskReward {
			violations = append(violations,
				fmt.Sprintf("risk-reward ratio %.2f below minimum %.2f", rr, limits.MinRiskReward))
		}
	} else {
		violations = append(violations, "invalid stop loss (same as entry price)")
	}

	// 3. Concurrent open positions.
	if len(existing) >= limits.MaxConcurrentTrades {
		violations = append(violations,
			fmt.Sprintf("maximum concurrent trades (%d) reached", limits.MaxConcurrentTrades))
	}

	// 4. Portfolio concentration ceiling, independent of risk level.
	totalExposure := c.PositionValue
	for _, pos := range existing {
		totalExposure += pos.Value()
	}
	concentrationLimit := m.currentCapital * m.exposureLimitPct
	if totalExposure > concentrationLimit {
		violations = append(violations,
			fmt.Sprintf("total portfolio exposure %.2f exceeds limit %.2f", totalExposure, concentrationLimit))
	}

	// 5. Stop-loss distance.
	var stopLossPct float64
	if c.EntryPrice > 0 {
		stopLossPct = riskDist / c.EntryPrice
		if stopLossPct > limits.StopLossPct {
			violations = append(violations,
				fmt.Sprintf("stop loss distance %.1f%% exceeds maximum %.1f%%", stopLossPct*100, limits.StopLossPct*100))
		}
	}

	// 6. Daily loss ceiling, also independent of risk level.
	dailyLossLimit := m.currentCapital * m.dailyLossLimitPct
	estimatedLoss := c.PositionValue * stopLossPct
	if estimatedLoss > dailyLossLimit {
		violations = append(violations,
			fmt.Sprintf("estimated loss %.2f exceeds daily limit %.2f", estimatedLoss, dailyLossLimit))
	}

	if len(violations) > 0 {
		m.logger.Info("trade rejected",
			zap.String("symbol", c.Symbol),
			zap.Strings("violations", violations))
		return false, violations
	}
	return true, nil
}

// UpdatePositionRisk replaces the tracked risk entry for a symbol with
// freshly computed fields. The entry is overwritten wholesale so no stale
// derived value can survive the update.
func (m *Manager) UpdatePositionRisk(symbol string, size, entry, current, stopLoss, takeProfit, volatility float64) {
	riskDist := math.Abs(entry - stopLoss)
	rewardDist := math.Abs(takeProfit - entry)
	riskReward := 0.0
	if riskDist > 0 {
		riskReward = rewardDist / riskDist
	}

	// 1.65 approximates the one-sided 95% normal quantile.
	m.positions[symbol] = PositionRisk{
		Symbol:            symbol,
		PositionSize:      size,
		EntryPrice:        entry,
		CurrentPrice:      current,
		StopLoss:          stopLoss,
		TakeProfit:        takeProfit,
		Volatility:        volatility,
		ValueAtRisk:       size * current * volatility * 1.65,
		ExpectedLoss:      size * riskDist,
		RiskRewardRatio:   riskReward,
		MarginRequirement: size * current * 0.1,
		LastUpdated:       time.Now().UTC(),
	}
	m.logger.Debug("position risk updated", zap.String("symbol", symbol), zap.Float64("size", size))
}

// RemovePosition drops a symbol from the tracked table, e.g. after the
// position has been closed.
func (m *Manager) RemovePosition(symbol string) {
	delete(m.positions, symbol)
}

// StressTest computes the portfolio impact of each named scenario: total
// loss, the single worst per-position loss, and how many positions the
// scenario touches. Results are for what-if reporting, not trade blocking.
func (m *Manager) StressTest(positions map[string]PositionRisk, scenarios []Scenario) map[string]ScenarioResult {
	results := make(map[string]ScenarioResult, len(scenarios))
	for _, scenario := range scenarios {
		var res ScenarioResult
		for sym, pos := range positions {
			shockPct, ok := scenario.Shocks[sym]
			if !ok || shockPct == 0 {
				continue
			}
			currentValue := pos.Value()
			shockedValue := currentValue * (1 + shockPct/100)
			loss := currentValue - shockedValue

			res.TotalLoss += loss
			if math.Abs(loss) > res.MaxPositionLoss {
				res.MaxPositionLoss = math.Abs(loss)
			}
			res.PositionsAffected++
		}
		results[scenario.Name] = res
	}
	return results
}
