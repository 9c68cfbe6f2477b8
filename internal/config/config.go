package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the engine configuration, loaded from the environment. Every
// field has a sensible default so the engine runs out of the box in paper
// trading mode.
type Config struct {
	Environment string
	LogLevel    string

	Risk      RiskConfig
	Exchange  ExchangeConfig
	Execution ExecutionConfig

	Monitoring struct {
		PrometheusPort int
	}

	Reporting struct {
		JSONLPath string
		ExcelPath string
	}
}

// RiskConfig holds risk management tunables.
type RiskConfig struct {
	InitialCapital   float64
	RiskPerTrade     float64
	MaxPortfolioRisk float64
	RiskLevel        string
	KellyWinRate     float64
	KellyAvgWin      float64
	KellyAvgLoss     float64
	RiskFreeRate     float64
}

// ExchangeConfig holds live exchange credentials.
type ExchangeConfig struct {
	Name      string
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// ExecutionConfig holds order execution and routing tunables.
type ExecutionConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	MaxVenueShare     float64
	MinChunk          float64
	SimulatedDelay    time.Duration // mock venue connection latency
}

// Load reads configuration from the environment.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Risk: RiskConfig{
			InitialCapital:   getEnvFloat("INITIAL_CAPITAL", 10000.0),
			RiskPerTrade:     getEnvFloat("RISK_PER_TRADE", 0.02),
			MaxPortfolioRisk: getEnvFloat("MAX_PORTFOLIO_RISK", 0.10),
			RiskLevel:        getEnv("RISK_LEVEL", "moderate"),
			KellyWinRate:     getEnvFloat("KELLY_WIN_RATE", 0.55),
			KellyAvgWin:      getEnvFloat("KELLY_AVG_WIN", 2.0),
			KellyAvgLoss:     getEnvFloat("KELLY_AVG_LOSS", 1.0),
			RiskFreeRate:     getEnvFloat("RISK_FREE_RATE", 0.02),
		},

		Exchange: ExchangeConfig{
			Name:      getEnv("EXCHANGE_NAME", "bybit"),
			APIKey:    getEnv("EXCHANGE_API_KEY", ""),
			APISecret: getEnv("EXCHANGE_API_SECRET", ""),
			Testnet:   getEnvBool("EXCHANGE_TESTNET", true),
			Demo:      getEnvBool("EXCHANGE_DEMO", false),
		},

		Execution: ExecutionConfig{
			RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Second),
			MaxVenueShare:     getEnvFloat("MAX_VENUE_SHARE", 0.30),
			MinChunk:          getEnvFloat("MIN_CHUNK", 0.001),
			SimulatedDelay:    getEnvDuration("SIMULATED_DELAY", 100*time.Millisecond),
		},
	}

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Reporting.JSONLPath = getEnv("REPORT_JSONL_PATH", "")
	cfg.Reporting.ExcelPath = getEnv("REPORT_EXCEL_PATH", "")
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
