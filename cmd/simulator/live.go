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
	"github.com/alejandrodnm/copysim/internal/engine/live"
	"github.com/alejandrodnm/copysim/internal/engine/sim"
)

// runLive mantiene una simulación en vivo alimentada por el feed real de
// trades hasta que la ventana termina, llega una señal o aparece el
// archivo STOP.
func runLive(
	ctx context.Context,
	cfg *config.Config,
	simCfg sim.Config,
	client *polymarket.Client,
	store *storage.SQLiteStorage,
	notifier *notify.Console,
) {
	slog.Info("=== LIVE MODE: real-time paper simulation ===",
		"poll", cfg.PollInterval(),
		"duration", simCfg.DurationHours,
	)

	manager := live.NewManager(nil)
	runID := manager.Create(simCfg)

	stopFile := "STOP"
	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	lastPoll := time.Now().UTC().Add(-cfg.PollInterval())
	lastCleanup := time.Now().UTC()

	slog.Info("live simulation started — press Ctrl+C or create STOP file to exit",
		"run", runID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("live simulation stopped (signal)")
			finishLive(manager, runID, store, notifier)
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected — shutting down live simulation")
				os.Remove(stopFile)
				finishLive(manager, runID, store, notifier)
				return
			}

			now := time.Now().UTC()
			pollCycle(ctx, manager, runID, client, lastPoll)
			lastPoll = now

			if now.Sub(lastCleanup) > time.Hour {
				manager.Cleanup(cfg.Simulation.CleanupHours)
				lastCleanup = now
			}

			st, err := manager.Get(runID)
			if err != nil {
				slog.Error("live run lost from registry", "run", runID, "err", err)
				return
			}
			if st.Ended(now) {
				slog.Info("live simulation window ended", "run", runID)
				finishLive(manager, runID, store, notifier)
				return
			}
		}
	}
}

// pollCycle trae señales nuevas del feed y resoluciones de los mercados
// con posiciones abiertas, y alimenta ambas al manager.
func pollCycle(
	ctx context.Context,
	manager *live.Manager,
	runID string,
	client *polymarket.Client,
	since time.Time,
) {
	signals, err := client.FetchSignals(ctx, since)
	if err != nil {
		slog.Warn("live: error fetching signals", "err", err)
	}
	for _, sig := range signals {
		reports, err := manager.ProcessSignal(runID, sig)
		if err != nil {
			slog.Warn("live: error processing signal", "err", err)
			continue
		}
		for _, r := range reports {
			if r.Entered {
				slog.Info("live: entered",
					"strategy", r.Strategy,
					"market", sig.Title,
					"side", sig.Outcome,
				)
			}
		}
	}

	st, err := manager.Get(runID)
	if err != nil {
		return
	}
	for _, conditionID := range openConditions(st) {
		res, err := client.FetchResolution(ctx, conditionID)
		if err != nil {
			slog.Warn("live: error fetching resolution", "market", conditionID, "err", err)
			continue
		}
		if !res.Closed {
			continue
		}
		if err := manager.ResolveLiveMarket(runID, conditionID, res.Winning); err != nil {
			slog.Warn("live: error resolving market", "market", conditionID, "err", err)
		}
	}
}

// openConditions devuelve los condition ids con alguna posición abierta en
// cualquier estrategia.
func openConditions(st sim.State) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range st.Portfolios {
		for _, pos := range p.Open {
			if !seen[pos.ConditionID] {
				seen[pos.ConditionID] = true
				out = append(out, pos.ConditionID)
			}
		}
	}
	return out
}

// finishLive termina el run, persiste y presenta los resultados.
func finishLive(
	manager *live.Manager,
	runID string,
	store *storage.SQLiteStorage,
	notifier *notify.Console,
) {
	ctx := context.Background()

	result, err := manager.End(runID)
	if err != nil {
		slog.Error("error ending live run", "run", runID, "err", err)
		return
	}

	if err := store.SaveResult(ctx, result); err != nil {
		slog.Warn("error saving live result", "run", runID, "err", err)
	}
	if err := notifier.NotifyResult(ctx, result); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}
