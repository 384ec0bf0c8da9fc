package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/copysim/config"
	"github.com/alejandrodnm/copysim/internal/adapters/notify"
	"github.com/alejandrodnm/copysim/internal/adapters/polymarket"
	"github.com/alejandrodnm/copysim/internal/adapters/storage"
	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/engine/sim"
	"github.com/alejandrodnm/copysim/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	backtest := flag.Bool("backtest", false, "run a multi-period backtest and exit")
	live := flag.Bool("live", false, "run a live simulation fed by the real-time trade feed")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	compact := flag.Bool("compact", false, "compact 1-line output instead of full tables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("copysim starting",
		"config", *configPath,
		"backtest", *backtest,
		"live", *live,
		"capital", cfg.Simulation.InitialCapitalUSDC,
		"strategies", len(cfg.Strategies),
	)

	client := polymarket.NewClient(cfg.API.DataBase, cfg.API.GammaBase)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*compact)

	simCfg := sim.Config{
		Label:            "copysim",
		InitialCapital:   cfg.Simulation.InitialCapitalUSDC,
		DurationHours:    cfg.Simulation.DurationHours,
		CooldownHours:    cfg.Simulation.CooldownHours,
		MaxOpenPositions: cfg.Simulation.MaxOpenPositions,
		Catalog:          buildCatalog(cfg),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *backtest:
		runBacktest(ctx, cfg, simCfg, client, store, notifier)
	case *live:
		runLive(ctx, cfg, simCfg, client, store, notifier)
	default:
		slog.Error("nothing to do — pass -backtest or -live")
		os.Exit(1)
	}

	slog.Info("copysim stopped cleanly")
}

// buildCatalog construye el catálogo de estrategias desde el YAML.
// Sin estrategias configuradas usa el catálogo de serie.
func buildCatalog(cfg *config.Config) strategy.Catalog {
	sizing := strategy.Sizing{
		MinPositionUSD: cfg.Simulation.MinPositionUSDC,
		MaxPositionUSD: cfg.Simulation.MaxPositionUSDC,
		SlippagePct:    cfg.Simulation.SlippagePct,
	}

	if len(cfg.Strategies) == 0 {
		return strategy.Default(sizing)
	}

	var strategies []strategy.Strategy
	for _, sc := range cfg.Strategies {
		switch sc.Kind {
		case "weighted":
			strategies = append(strategies, strategy.Weighted{
				StrategyName: sc.Name,
				Weights: domain.CompositeWeights{
					ValueScore:    sc.Weights.ValueScore,
					PolyScore:     sc.Weights.PolyScore,
					Edge:          sc.Weights.Edge,
					TraderWinRate: sc.Weights.TraderWinRate,
					TraderROI:     sc.Weights.TraderROI,
					Conviction:    sc.Weights.Conviction,
				},
				MinComposite: sc.MinComposite,
			})
		default:
			strategies = append(strategies, strategy.Threshold{
				StrategyName:      sc.Name,
				MinValueScore:     sc.MinValueScore,
				MinPolyScore:      sc.MinPolyScore,
				MinEdgePct:        sc.MinEdgePct,
				MinTraderWinRate:  sc.MinTraderWinRate,
				MinTraderROI:      sc.MinTraderROI,
				MinConviction:     sc.MinConviction,
				AllowedStructures: parseStructures(sc.AllowedStructures),
			})
		}
	}

	return strategy.NewCatalog(sizing, strategies...)
}

func parseStructures(raw []string) []domain.BetStructure {
	var out []domain.BetStructure
	for _, s := range raw {
		out = append(out, domain.BetStructure(s))
	}
	return out
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
