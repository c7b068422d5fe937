// Package config carga la configuración del bot desde YAML, con overrides
// por variables de entorno (directas o vía .env).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Signal  SignalConfig  `yaml:"signal"`
	Risk    RiskConfig    `yaml:"risk"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla los tiempos del loop de evaluación.
type EngineConfig struct {
	EvalIntervalSeconds int `yaml:"eval_interval_seconds" env:"EVAL_INTERVAL_SECONDS"`
	SummaryEverySeconds int `yaml:"summary_every_seconds" env:"SUMMARY_EVERY_SECONDS"`
}

// SignalConfig son los umbrales del protocolo de decisión.
type SignalConfig struct {
	MinEdgePct            float64 `yaml:"min_edge_pct" env:"MIN_EDGE_PCT"`
	MinLeaderConfidence   float64 `yaml:"min_leader_confidence" env:"MIN_LEADER_CONFIDENCE"`
	RequiredConfirmations int     `yaml:"required_confirmations" env:"REQUIRED_CONFIRMATIONS"`
	EntryWindowSeconds    float64 `yaml:"entry_window_seconds" env:"ENTRY_WINDOW_SECONDS"`
}

// RiskConfig son los límites del risk manager.
type RiskConfig struct {
	StartBalanceUSDC       float64 `yaml:"start_balance_usdc" env:"START_BALANCE_USDC"`
	MaxDailyLossUSDC       float64 `yaml:"max_daily_loss_usdc" env:"MAX_DAILY_LOSS_USDC"`
	MaxConsecutiveLosses   int     `yaml:"max_consecutive_losses" env:"MAX_CONSECUTIVE_LOSSES"`
	MaxDrawdownPct         float64 `yaml:"max_drawdown_pct" env:"MAX_DRAWDOWN_PCT"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions" env:"MAX_CONCURRENT_POSITIONS"`
	MaxPositionUSDC        float64 `yaml:"max_position_usdc" env:"MAX_POSITION_USDC"`
	KellyFraction          float64 `yaml:"kelly_fraction" env:"KELLY_FRACTION"`
	MinPositionUSDC        float64 `yaml:"min_position_usdc" env:"MIN_POSITION_USDC"`
}

// APIConfig contiene los endpoints externos. La API key solo entra por
// entorno, nunca por YAML.
type APIConfig struct {
	CLOBBase   string `yaml:"clob_base" env:"CLOB_BASE"`
	GammaBase  string `yaml:"gamma_base" env:"GAMMA_BASE"`
	DataBase   string `yaml:"data_base" env:"DATA_BASE"`
	BinanceWS  string `yaml:"binance_ws" env:"BINANCE_WS"`
	OracleBase string `yaml:"oracle_base" env:"ORACLE_BASE"`
	APIKey     string `yaml:"-" env:"POLYMARKET_API_KEY"`
}

// StorageConfig controla dónde se persiste el diario de trading.
type StorageConfig struct {
	DSN string `yaml:"dsn" env:"STORAGE_DSN"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text | json
}

// Load carga la configuración: YAML primero, luego .env, luego variables de
// entorno directas. Cada capa sobreescribe la anterior.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: env overrides: %w", err)
	}

	setDefaults(&cfg)
	return &cfg, nil
}

// EvalInterval devuelve el intervalo de evaluación como time.Duration.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.Engine.EvalIntervalSeconds) * time.Second
}

// SummaryEvery devuelve el periodo del reporte de sesión.
func (c *Config) SummaryEvery() time.Duration {
	return time.Duration(c.Engine.SummaryEverySeconds) * time.Second
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.EvalIntervalSeconds <= 0 {
		cfg.Engine.EvalIntervalSeconds = 5
	}
	if cfg.Engine.SummaryEverySeconds <= 0 {
		cfg.Engine.SummaryEverySeconds = 60
	}
	if cfg.Signal.MinEdgePct <= 0 {
		cfg.Signal.MinEdgePct = 0.02
	}
	if cfg.Signal.MinLeaderConfidence <= 0 {
		cfg.Signal.MinLeaderConfidence = 0.60
	}
	if cfg.Signal.RequiredConfirmations <= 0 {
		cfg.Signal.RequiredConfirmations = 2
	}
	if cfg.Signal.EntryWindowSeconds <= 0 {
		cfg.Signal.EntryWindowSeconds = 240
	}
	if cfg.Risk.StartBalanceUSDC <= 0 {
		cfg.Risk.StartBalanceUSDC = 1000
	}
	if cfg.Risk.MaxDailyLossUSDC <= 0 {
		cfg.Risk.MaxDailyLossUSDC = 200
	}
	if cfg.Risk.MaxConsecutiveLosses <= 0 {
		cfg.Risk.MaxConsecutiveLosses = 5
	}
	if cfg.Risk.MaxDrawdownPct <= 0 {
		cfg.Risk.MaxDrawdownPct = 0.15
	}
	if cfg.Risk.MaxConcurrentPositions <= 0 {
		cfg.Risk.MaxConcurrentPositions = 4
	}
	if cfg.Risk.MaxPositionUSDC <= 0 {
		cfg.Risk.MaxPositionUSDC = 50
	}
	if cfg.Risk.KellyFraction <= 0 {
		cfg.Risk.KellyFraction = 0.25
	}
	if cfg.Risk.MinPositionUSDC <= 0 {
		cfg.Risk.MinPositionUSDC = 1
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "lateshot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
