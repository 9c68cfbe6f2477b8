package risk

import "time"

// Report is the serializable risk report produced on demand for external
// persistence. The manager only builds the structure; writers own the IO.
type Report struct {
	Timestamp        time.Time                 `json:"timestamp"`
	CapitalMetrics   CapitalMetrics            `json:"capital_metrics"`
	RiskSettings     RiskSettings              `json:"risk_settings"`
	PortfolioMetrics PortfolioSummary          `json:"portfolio_metrics"`
	Positions        map[string]PositionReport `json:"positions"`
	RiskAssessment   Assessment                `json:"risk_assessment"`
}

type CapitalMetrics struct {
	InitialCapital float64 `json:"initial_capital"`
	CurrentCapital float64 `json:"current_capital"`
	TotalPnL       float64 `json:"total_pnl"`
	PnLPercentage  float64 `json:"pnl_percentage"`
}

type RiskSettings struct {
	RiskLevel        string  `json:"risk_level"`
	RiskPerTrade     float64 `json:"risk_per_trade"`
	MaxPortfolioRisk float64 `json:"max_portfolio_risk"`
	CurrentLimits    Limits  `json:"current_limits"`
}

type PortfolioSummary struct {
	TotalValue      float64 `json:"total_value"`
	TotalRisk       float64 `json:"total_risk"`
	VaR95           float64 `json:"var_95"`
	CVaR95          float64 `json:"cvar_95"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	SortinoRatio    float64 `json:"sortino_ratio"`
	MaxDrawdown     float64 `json:"max_drawdown_pct"`
	CurrentDrawdown float64 `json:"current_drawdown_pct"`
}

type PositionReport struct {
	Size          float64 `json:"size"`
	Value         float64 `json:"value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	RiskReward    float64 `json:"risk_reward"`
	VaR           float64 `json:"var"`
	Volatility    float64 `json:"volatility"`
}

// Assessment is a qualitative read of the portfolio's current risk posture.
type Assessment struct {
	RiskScore         int    `json:"risk_score"`
	Assessment        string `json:"assessment"`
	RecommendedAction string `json:"recommended_action"`
	WarningLevel      string `json:"warning_level"`
}

// GenerateReport builds the full risk report from tracked positions and a
// fresh portfolio snapshot.
func (m *Manager) GenerateReport() *Report {
	portfolio := m.CalculatePortfolioMetrics(m.positions, nil)

	positions := make(map[string]PositionReport, len(m.positions))
	for sym, pos := range m.positions {
		positions[sym] = PositionReport{
			Size:          pos.PositionSize,
			Value:         pos.Value(),
			UnrealizedPnL: (pos.CurrentPrice - pos.EntryPrice) * pos.PositionSize,
			StopLoss:      pos.StopLoss,
			TakeProfit:    pos.TakeProfit,
			RiskReward:    pos.RiskRewardRatio,
			VaR:           pos.ValueAtRisk,
			Volatility:    pos.Volatility,
		}
	}

	return &Report{
		Timestamp: time.Now().UTC(),
		CapitalMetrics: CapitalMetrics{
			InitialCapital: m.initialCapital,
			CurrentCapital: m.currentCapital,
			TotalPnL:       m.currentCapital - m.initialCapital,
			PnLPercentage:  (m.currentCapital - m.initialCapital) / m.initialCapital * 100,
		},
		RiskSettings: RiskSettings{
			RiskLevel:        m.level.String(),
			RiskPerTrade:     m.riskPerTrade,
			MaxPortfolioRisk: m.maxPortRisk,
			CurrentLimits:    m.limits[m.level],
		},
		PortfolioMetrics: PortfolioSummary{
			TotalValue:      portfolio.TotalValue,
			TotalRisk:       portfolio.TotalRisk,
			VaR95:           portfolio.ValueAtRisk95,
			CVaR95:          portfolio.ConditionalVaR95,
			SharpeRatio:     portfolio.SharpeRatio,
			SortinoRatio:    portfolio.SortinoRatio,
			MaxDrawdown:     portfolio.MaxDrawdown * 100,
			CurrentDrawdown: portfolio.CurrentDrawdown * 100,
		},
		Positions:      positions,
		RiskAssessment: m.assessRisk(portfolio),
	}
}

// assessRisk scores the portfolio on volatility, drawdown and VaR bands and
// maps the score to a traffic-light warning level.
func (m *Manager) assessRisk(p PortfolioRisk) Assessment {
	score := 0

	switch {
	case p.Volatility > 0.4:
		score += 3
	case p.Volatility > 0.2:
		score += 2
	case p.Volatility > 0.1:
		score++
	}

	switch {
	case p.CurrentDrawdown > 0.2:
		score += 3
	case p.CurrentDrawdown > 0.1:
		score += 2
	case p.CurrentDrawdown > 0.05:
		score++
	}

	switch {
	case p.ValueAtRisk95 > m.currentCapital*0.1:
		score += 2
	case p.ValueAtRisk95 > m.currentCapital*0.05:
		score++
	}

	switch {
	case score >= 5:
		return Assessment{score, "HIGH RISK", "Consider reducing positions", "red"}
	case score >= 3:
		return Assessment{score, "MEDIUM RISK", "Monitor closely", "yellow"}
	default:
		return Assessment{score, "LOW RISK", "Within normal parameters", "green"}
	}
}
