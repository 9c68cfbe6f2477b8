package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestManager() *Manager {
	return NewManager(ManagerConfig{}, nil)
}

// TestCalculatePositionSize_CapitalCapWins tests that the per-level capital cap binds
func TestCalculatePositionSize_CapitalCapWins(t *testing.T) {
	m := newTestManager()

	// capital 10000, risk per trade 2% -> risk amount 200, risk per unit 1000
	size, metrics := m.CalculatePositionSize(50000, 49000, 0)

	assert.InDelta(t, 0.2, metrics.BasicPositionSize, 1e-9)
	assert.InDelta(t, 3.25, metrics.KellyPositionSize, 1e-9)
	assert.InDelta(t, 0.02, metrics.MaxAllowedPosition, 1e-9)
	// Moderate level caps at 10% of capital
	assert.InDelta(t, 0.02, size, 1e-9)
	assert.InDelta(t, 1000.0, metrics.PositionValue, 1e-6)
	assert.InDelta(t, 10.0, metrics.PositionPercentage, 1e-6)
}

// TestCalculatePositionSize_BasicSizeWins tests the linear risk-based candidate binding
func TestCalculatePositionSize_BasicSizeWins(t *testing.T) {
	m := newTestManager()

	// Wide stop: risk per unit 50, basic = 200/50 = 4, cap = 1000/100 = 10
	size, metrics := m.CalculatePositionSize(100, 50, 0)

	assert.InDelta(t, 4.0, metrics.BasicPositionSize, 1e-9)
	assert.InDelta(t, 4.0, size, 1e-9)
}

// TestCalculatePositionSize_StopEqualsEntry tests the degenerate stop case
func TestCalculatePositionSize_StopEqualsEntry(t *testing.T) {
	m := newTestManager()

	size, metrics := m.CalculatePositionSize(50000, 50000, 0)
	assert.Equal(t, 0.0, size)
	assert.Equal(t, SizeMetrics{}, metrics)
}

// TestCalculatePositionSize_InvalidEntry tests non-positive entry prices
func TestCalculatePositionSize_InvalidEntry(t *testing.T) {
	m := newTestManager()

	size, _ := m.CalculatePositionSize(0, 100, 0)
	assert.Equal(t, 0.0, size)

	size, _ = m.CalculatePositionSize(-10, 100, 0)
	assert.Equal(t, 0.0, size)
}

// TestCalculatePositionSize_ExplicitRiskAmount tests overriding the default risk budget
func TestCalculatePositionSize_ExplicitRiskAmount(t *testing.T) {
	m := newTestManager()

	_, metrics := m.CalculatePositionSize(100, 90, 50)
	assert.InDelta(t, 50.0, metrics.RiskAmount, 1e-9)
	assert.InDelta(t, 5.0, metrics.BasicPositionSize, 1e-9)
}

// TestRoundSize_PrecisionTiers tests price-keyed rounding precision
func TestRoundSize_PrecisionTiers(t *testing.T) {
	m := newTestManager()

	assert.InDelta(t, 0.123, m.roundSize(0.12345, 2000), 1e-9)
	assert.InDelta(t, 0.12, m.roundSize(0.12345, 500), 1e-9)
	assert.InDelta(t, 0.1, m.roundSize(0.12345, 50), 1e-9)
}

// TestCalculateVaR_EmptyReturns tests that an empty series yields zero metrics
func TestCalculateVaR_EmptyReturns(t *testing.T) {
	m := newTestManager()

	metrics := m.CalculateVaR(nil, 0.95)
	assert.Equal(t, VaRMetrics{}, metrics)
}

// TestCalculateVaR_SampleSeries tests VaR ordering properties on a mixed series
func TestCalculateVaR_SampleSeries(t *testing.T) {
	m := newTestManager()

	returns := []float64{0.01, -0.02, 0.015, -0.01, 0.02, -0.015, 0.01, -0.005}
	metrics := m.CalculateVaR(returns, 0.95)

	assert.Greater(t, metrics.HistoricalVaR, 0.0)
	assert.Greater(t, metrics.ParametricVaR, 0.0)
	// Expected shortfall is at least as severe as the historical cutoff
	assert.GreaterOrEqual(t, metrics.CVaR, metrics.HistoricalVaR)
	assert.Greater(t, metrics.StdReturn, 0.0)
}

// TestCalculateVaR_InvalidConfidence tests that out-of-range confidence falls back to 95%
func TestCalculateVaR_InvalidConfidence(t *testing.T) {
	m := newTestManager()

	returns := []float64{0.01, -0.02, 0.015, -0.01}
	fallback := m.CalculateVaR(returns, 1.5)
	explicit := m.CalculateVaR(returns, 0.95)
	assert.Equal(t, explicit, fallback)
}

// TestValidateTrade_Accepted tests a candidate that passes every rule
func TestValidateTrade_Accepted(t *testing.T) {
	m := newTestManager()

	ok, violations := m.ValidateTrade(TradeCandidate{
		Symbol:        "BTC/USDT",
		EntryPrice:    100,
		StopLoss:      97,
		TakeProfit:    110,
		PositionSize:  9,
		PositionValue: 900,
	}, nil)

	assert.True(t, ok)
	assert.Empty(t, violations)
}

// TestValidateTrade_AccumulatesViolations tests that all broken rules are reported together
func TestValidateTrade_AccumulatesViolations(t *testing.T) {
	m := newTestManager()

	// 15% position, 10% stop distance, poor risk-reward: three violations
	ok, violations := m.ValidateTrade(TradeCandidate{
		Symbol:        "BTC/USDT",
		EntryPrice:    100,
		StopLoss:      90,
		TakeProfit:    105,
		PositionSize:  15,
		PositionValue: 1500,
	}, nil)

	assert.False(t, ok)
	assert.Len(t, violations, 3)
}

// TestValidateTrade_StopEqualsEntry tests the undefined risk-reward case
func TestValidateTrade_StopEqualsEntry(t *testing.T) {
	m := newTestManager()

	ok, violations := m.ValidateTrade(TradeCandidate{
		Symbol:        "BTC/USDT",
		EntryPrice:    100,
		StopLoss:      100,
		TakeProfit:    110,
		PositionSize:  1,
		PositionValue: 100,
	}, nil)

	assert.False(t, ok)
	assert.Contains(t, violations, "invalid stop loss (same as entry price)")
}

// TestValidateTrade_ConcurrentLimit tests the concurrent trade ceiling
func TestValidateTrade_ConcurrentLimit(t *testing.T) {
	m := newTestManager()

	existing := make(map[string]PositionRisk)
	for _, sym := range []string{"A", "B", "C", "D", "E"} {
		existing[sym] = PositionRisk{Symbol: sym, PositionSize: 1, CurrentPrice: 100}
	}

	ok, violations := m.ValidateTrade(TradeCandidate{
		Symbol:        "BTC/USDT",
		EntryPrice:    100,
		StopLoss:      97,
		TakeProfit:    110,
		PositionSize:  1,
		PositionValue: 100,
	}, existing)

	assert.False(t, ok)
	assert.Contains(t, violations, "maximum concurrent trades (5) reached")
}

// TestValidateTrade_ExposureCeiling tests the global 80% exposure cap
func TestValidateTrade_ExposureCeiling(t *testing.T) {
	m := newTestManager()

	existing := map[string]PositionRisk{
		"ETH/USDT": {Symbol: "ETH/USDT", PositionSize: 2.5, CurrentPrice: 3000},
	}

	ok, violations := m.ValidateTrade(TradeCandidate{
		Symbol:        "BTC/USDT",
		EntryPrice:    100,
		StopLoss:      97,
		TakeProfit:    110,
		PositionSize:  9,
		PositionValue: 900,
	}, existing)

	assert.False(t, ok)
	assert.Len(t, violations, 1)
	assert.Contains(t, violations[0], "exposure")
}

// TestUpdatePositionRisk tests the derived per-position risk fields
func TestUpdatePositionRisk(t *testing.T) {
	m := newTestManager()

	m.UpdatePositionRisk("BTC/USDT", 0.1, 50000, 51000, 49000, 53000, 0.04)

	pos, ok := m.Positions()["BTC/USDT"]
	assert.True(t, ok)
	assert.InDelta(t, 5100.0, pos.Value(), 1e-6)
	assert.InDelta(t, 0.1*51000*0.04*1.65, pos.ValueAtRisk, 1e-6)
	assert.InDelta(t, 100.0, pos.ExpectedLoss, 1e-6)
	assert.InDelta(t, 3.0, pos.RiskRewardRatio, 1e-9)
	assert.InDelta(t, 510.0, pos.MarginRequirement, 1e-6)

	m.RemovePosition("BTC/USDT")
	assert.Empty(t, m.Positions())
}

// TestCalculatePortfolioMetrics_NoHistory tests the snapshot without return series
func TestCalculatePortfolioMetrics_NoHistory(t *testing.T) {
	m := newTestManager()
	m.UpdatePositionRisk("BTC/USDT", 0.1, 50000, 50000, 49000, 52000, 0.04)

	snapshot := m.CalculatePortfolioMetrics(m.Positions(), nil)

	assert.InDelta(t, 5000.0, snapshot.TotalValue, 1e-6)
	assert.Equal(t, 0.0, snapshot.SharpeRatio)
	assert.Len(t, m.History(), 1)
}

// TestCalculatePortfolioMetrics_WithHistory tests statistics from blended returns
func TestCalculatePortfolioMetrics_WithHistory(t *testing.T) {
	m := newTestManager()
	m.UpdatePositionRisk("BTC", 0.1, 50000, 50000, 49000, 52000, 0.04)
	m.UpdatePositionRisk("ETH", 1, 3000, 3000, 2900, 3200, 0.05)

	historical := map[string][]float64{
		"BTC": {0.01, -0.02, 0.015, -0.005, 0.02, -0.01},
		"ETH": {0.02, -0.01, 0.01, -0.015, 0.025, -0.02},
	}

	snapshot := m.CalculatePortfolioMetrics(m.Positions(), historical)

	assert.Greater(t, snapshot.Volatility, 0.0)
	assert.Greater(t, snapshot.ValueAtRisk95, 0.0)
	assert.GreaterOrEqual(t, snapshot.ConditionalVaR95, snapshot.ValueAtRisk95)
	assert.Greater(t, snapshot.MaxDrawdown, 0.0)
	assert.Len(t, snapshot.CorrelationMatrix, 2)
	assert.InDelta(t, 1.0, snapshot.CorrelationMatrix["BTC"]["BTC"], 1e-9)
	// Beta is computed against the benchmark for every other symbol
	assert.Contains(t, snapshot.BetaCoefficients, "ETH")
	assert.NotContains(t, snapshot.BetaCoefficients, "BTC")
}

// TestStressTest tests scenario loss aggregation
func TestStressTest(t *testing.T) {
	m := newTestManager()

	positions := map[string]PositionRisk{
		"BTC/USDT": {Symbol: "BTC/USDT", PositionSize: 1, CurrentPrice: 50000},
		"ETH/USDT": {Symbol: "ETH/USDT", PositionSize: 10, CurrentPrice: 3000},
	}
	scenarios := []Scenario{
		{Name: "crash", Shocks: map[string]float64{"BTC/USDT": -20, "ETH/USDT": -30}},
		{Name: "btc_only", Shocks: map[string]float64{"BTC/USDT": -10}},
	}

	results := m.StressTest(positions, scenarios)

	crash := results["crash"]
	assert.InDelta(t, 19000.0, crash.TotalLoss, 1e-6)
	assert.InDelta(t, 10000.0, crash.MaxPositionLoss, 1e-6)
	assert.Equal(t, 2, crash.PositionsAffected)

	btcOnly := results["btc_only"]
	assert.InDelta(t, 5000.0, btcOnly.TotalLoss, 1e-6)
	assert.Equal(t, 1, btcOnly.PositionsAffected)
}

// TestGenerateReport tests the assembled report and its risk assessment
func TestGenerateReport(t *testing.T) {
	m := newTestManager()
	m.UpdatePositionRisk("BTC/USDT", 0.1, 50000, 51000, 49000, 53000, 0.04)

	report := m.GenerateReport()

	assert.InDelta(t, 10000.0, report.CapitalMetrics.InitialCapital, 1e-9)
	assert.Equal(t, "moderate", report.RiskSettings.RiskLevel)
	assert.Len(t, report.Positions, 1)
	assert.InDelta(t, 100.0, report.Positions["BTC/USDT"].UnrealizedPnL, 1e-6)
	assert.Equal(t, "LOW RISK", report.RiskAssessment.Assessment)
	assert.Equal(t, "green", report.RiskAssessment.WarningLevel)
}

// TestKellyFraction tests the Kelly criterion fraction
func TestKellyFraction(t *testing.T) {
	k := KellyParams{WinRate: 0.55, AvgWin: 2.0, AvgLoss: 1.0}
	assert.InDelta(t, 0.325, k.Fraction(), 1e-9)

	// Degenerate parameters yield zero
	assert.Equal(t, 0.0, KellyParams{}.Fraction())
}
