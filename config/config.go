package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del simulador.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	Strategies []StrategyConfig `yaml:"strategies"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// SimulationConfig controla los parámetros de cada run de simulación.
type SimulationConfig struct {
	InitialCapitalUSDC float64 `yaml:"initial_capital_usdc"`
	DurationHours      float64 `yaml:"duration_hours"`
	CooldownHours      float64 `yaml:"cooldown_hours"` // latencia de settlement simulada
	MinPositionUSDC    float64 `yaml:"min_position_usdc"`
	MaxPositionUSDC    float64 `yaml:"max_position_usdc"`
	SlippagePct        float64 `yaml:"slippage_pct"` // degradación de precio al simular el fill
	MaxOpenPositions   int     `yaml:"max_open_positions"`
	PollSeconds        int     `yaml:"poll_seconds"`  // intervalo del loop en vivo
	CleanupHours       float64 `yaml:"cleanup_hours"` // edad máxima de runs inactivos
}

// BacktestConfig controla el backtest multi-periodo.
type BacktestConfig struct {
	NumPeriods   int `yaml:"num_periods"`
	DurationDays int `yaml:"duration_days"`
	GapDays      int `yaml:"gap_days"`
}

// StrategyConfig describe una variante de estrategia en el YAML.
// kind: "threshold" | "weighted". Los campos no usados por el kind se
// ignoran; un umbral a 0 no se exige.
type StrategyConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// kind: threshold
	MinValueScore     float64  `yaml:"min_value_score"`
	MinPolyScore      float64  `yaml:"min_polyscore"`
	MinEdgePct        float64  `yaml:"min_edge_pct"`
	MinTraderWinRate  float64  `yaml:"min_trader_win_rate"`
	MinTraderROI      float64  `yaml:"min_trader_roi"`
	MinConviction     float64  `yaml:"min_conviction"`
	AllowedStructures []string `yaml:"allowed_structures"`

	// kind: weighted
	Weights      WeightsConfig `yaml:"weights"`
	MinComposite float64       `yaml:"min_composite"`
}

// WeightsConfig son los pesos de la variante weighted.
type WeightsConfig struct {
	ValueScore    float64 `yaml:"value_score"`
	PolyScore     float64 `yaml:"polyscore"`
	Edge          float64 `yaml:"edge"`
	TraderWinRate float64 `yaml:"trader_win_rate"`
	TraderROI     float64 `yaml:"trader_roi"`
	Conviction    float64 `yaml:"conviction"`
}

// APIConfig contiene los base URLs de las APIs de Polymarket.
type APIConfig struct {
	DataBase  string `yaml:"data_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los resultados.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del .env sobreescriben el YAML donde corresponda.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve el intervalo del loop en vivo como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Simulation.PollSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("COPYSIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Simulation.InitialCapitalUSDC <= 0 {
		cfg.Simulation.InitialCapitalUSDC = 1000
	}
	if cfg.Simulation.DurationHours <= 0 {
		cfg.Simulation.DurationHours = 24 * 7
	}
	if cfg.Simulation.CooldownHours <= 0 {
		cfg.Simulation.CooldownHours = 24
	}
	if cfg.Simulation.MinPositionUSDC <= 0 {
		cfg.Simulation.MinPositionUSDC = 10
	}
	if cfg.Simulation.MaxPositionUSDC <= 0 {
		cfg.Simulation.MaxPositionUSDC = 100
	}
	if cfg.Simulation.SlippagePct <= 0 {
		cfg.Simulation.SlippagePct = 0.04
	}
	if cfg.Simulation.MaxOpenPositions <= 0 {
		cfg.Simulation.MaxOpenPositions = 20
	}
	if cfg.Simulation.PollSeconds <= 0 {
		cfg.Simulation.PollSeconds = 60
	}
	if cfg.Simulation.CleanupHours <= 0 {
		cfg.Simulation.CleanupHours = 48
	}
	if cfg.Backtest.NumPeriods <= 0 {
		cfg.Backtest.NumPeriods = 3
	}
	if cfg.Backtest.DurationDays <= 0 {
		cfg.Backtest.DurationDays = 4
	}
	if cfg.Backtest.GapDays <= 0 {
		cfg.Backtest.GapDays = 4
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "copysim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
