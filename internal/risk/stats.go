package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// tradingDays is the annualization basis for volatility and return figures.
const tradingDays = 252

// percentile returns the p-quantile (0..1) of an unsorted sample using
// linear interpolation of the empirical distribution.
func percentile(sample []float64, p float64) float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// normQuantile is the inverse standard normal CDF, used by parametric VaR.
func normQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// correlationMatrix computes pairwise correlations over the common prefix of
// each series pair. Symbols are the map keys, sorted for determinism.
func correlationMatrix(series map[string][]float64) map[string]map[string]float64 {
	symbols := sortedKeys(series)
	matrix := make(map[string]map[string]float64, len(symbols))
	for _, a := range symbols {
		matrix[a] = make(map[string]float64, len(symbols))
		for _, b := range symbols {
			x, y := alignSeries(series[a], series[b])
			if len(x) < 2 {
				matrix[a][b] = 0
				continue
			}
			corr := stat.Correlation(x, y, nil)
			if math.IsNaN(corr) {
				corr = 0
			}
			matrix[a][b] = corr
		}
	}
	return matrix
}

// portfolioVolatility computes annualized sqrt(w'·Cov·w) over the symbols
// that have both a weight and a return series.
func portfolioVolatility(weights map[string]float64, series map[string][]float64) float64 {
	symbols := sortedKeys(series)
	variance := 0.0
	for _, a := range symbols {
		for _, b := range symbols {
			x, y := alignSeries(series[a], series[b])
			if len(x) < 2 {
				continue
			}
			cov := stat.Covariance(x, y, nil)
			if math.IsNaN(cov) {
				continue
			}
			variance += weights[a] * weights[b] * cov
		}
	}
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance) * math.Sqrt(tradingDays)
}

// betaCoefficients derives per-symbol beta against the benchmark series:
// cov(symbol, benchmark) / var(benchmark). Series of mismatched length are
// skipped, as is the benchmark itself.
func betaCoefficients(series map[string][]float64, benchmark string) map[string]float64 {
	market, ok := series[benchmark]
	if !ok || len(market) < 2 {
		return nil
	}
	marketVar := stat.Variance(market, nil)
	if marketVar == 0 || math.IsNaN(marketVar) {
		return nil
	}
	betas := make(map[string]float64)
	for sym, returns := range series {
		if sym == benchmark || len(returns) != len(market) {
			continue
		}
		betas[sym] = stat.Covariance(returns, market, nil) / marketVar
	}
	return betas
}

// blendPortfolioReturns synthesizes a single return series from per-symbol
// series and their portfolio weights, truncated to the shortest series.
func blendPortfolioReturns(weights map[string]float64, series map[string][]float64) []float64 {
	minLen := -1
	for _, returns := range series {
		if minLen < 0 || len(returns) < minLen {
			minLen = len(returns)
		}
	}
	if minLen <= 0 {
		return nil
	}
	blended := make([]float64, minLen)
	for sym, returns := range series {
		w := weights[sym]
		for i := 0; i < minLen; i++ {
			blended[i] += w * returns[i]
		}
	}
	return blended
}

// drawdowns walks the cumulative-product equity curve of a return series
// and reports (maxDrawdown, currentDrawdown) as positive magnitudes.
func drawdowns(returns []float64) (maxDD, currentDD float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	equity := 1.0
	runningMax := 1.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > runningMax {
			runningMax = equity
		}
		dd := 0.0
		if runningMax > 0 {
			dd = (runningMax - equity) / runningMax
		}
		if dd > maxDD {
			maxDD = dd
		}
		currentDD = dd
	}
	return maxDD, currentDD
}

func alignSeries(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[:n], b[:n]
}

func sortedKeys(series map[string][]float64) []string {
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
