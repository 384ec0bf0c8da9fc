package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/copysim/config"
	"github.com/alejandrodnm/copysim/internal/adapters/notify"
	"github.com/alejandrodnm/copysim/internal/adapters/polymarket"
	"github.com/alejandrodnm/copysim/internal/adapters/storage"
	"github.com/alejandrodnm/copysim/internal/engine/sim"
)

// runBacktest corre el backtest multi-periodo completo y persiste los
// resultados de cada periodo.
func runBacktest(
	ctx context.Context,
	cfg *config.Config,
	simCfg sim.Config,
	client *polymarket.Client,
	store *storage.SQLiteStorage,
	notifier *notify.Console,
) {
	slog.Info("=== BACKTEST MODE: multi-period replay ===",
		"periods", cfg.Backtest.NumPeriods,
		"duration_days", cfg.Backtest.DurationDays,
		"gap_days", cfg.Backtest.GapDays,
	)

	periods := sim.GenerateBacktestPeriods(
		cfg.Backtest.NumPeriods,
		cfg.Backtest.DurationDays,
		cfg.Backtest.GapDays,
		time.Now().UTC(),
	)

	report, err := sim.RunMultiPeriodBacktest(ctx, simCfg, periods, client)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	for _, result := range report.PerPeriod {
		if err := store.SaveResult(ctx, result); err != nil {
			slog.Warn("error saving period result", "run", result.RunID, "err", err)
		}
	}

	if err := notifier.NotifyBacktest(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("backtest complete",
		"periods_ok", report.Completed,
		"periods_failed", report.Failed,
	)
}
