package sim

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/engine"
)

// ProcessSignal feeds one signal through every strategy's portfolio in
// lockstep. Portfolios whose window has passed are skipped. Each entry or
// rejection is logged with its reason; entries append a value-history point
// inside the portfolio transition.
func ProcessSignal(st State, sig domain.Signal) State {
	st = st.advanceCursor(sig.Timestamp)
	next := st.clone()

	for i, p := range next.Portfolios {
		if p.Ended(next.Now) {
			continue
		}

		updated, res := p.AttemptTrade(sig, next.Now)
		next.Portfolios[i] = updated

		market := engine.TruncateStr(sig.Title, 40)
		if res.Entered {
			next = next.logf("%s: ENTER %s %s $%.2f @ %.4f (%.2f shares) — %s",
				p.StrategyName, sig.Outcome, market,
				res.Position.Invested, res.Position.EntryPrice,
				res.Position.Shares, res.Reason)
			slog.Debug("sim: entered position",
				"run", shortID(next.ID),
				"strategy", p.StrategyName,
				"market", market,
				"side", sig.Outcome,
				"size", fmt.Sprintf("$%.2f", res.Position.Invested),
				"entry", fmt.Sprintf("%.4f", res.Position.EntryPrice),
			)
		} else {
			kind := "criteria"
			if res.Capacity {
				kind = "capacity"
			}
			next = next.logf("%s: SKIP (%s) %s — %s", p.StrategyName, kind, market, res.Reason)
			slog.Debug("sim: skipped signal",
				"run", shortID(next.ID),
				"strategy", p.StrategyName,
				"market", market,
				"kind", kind,
				"reason", res.Reason,
			)
		}
	}

	return next
}

// ResolveMarket settles every open position in the market across all
// strategies. Redelivered resolutions are no-ops: a position resolves once.
func ResolveMarket(st State, conditionID string, winning domain.Outcome, at time.Time) State {
	st = st.advanceCursor(at)
	next := st.clone()

	for i, p := range next.Portfolios {
		updated, results := p.ResolveMarket(conditionID, winning, next.Now)
		next.Portfolios[i] = updated

		for _, res := range results {
			outcome := "LOST"
			if res.Won {
				outcome = "WON"
			}
			next = next.logf("%s: %s %s %s — pnl $%.2f (%.1f%%)",
				p.StrategyName, outcome, res.Position.Outcome,
				engine.TruncateStr(res.Position.Title, 40), res.PnL, res.ROIPct)
			slog.Debug("sim: resolved position",
				"run", shortID(next.ID),
				"strategy", p.StrategyName,
				"market", engine.TruncateStr(res.Position.Title, 40),
				"outcome", outcome,
				"pnl", fmt.Sprintf("$%.2f", res.PnL),
			)
		}
	}

	return next
}

// AdvanceTime sweeps cooldowns and takes hourly value snapshots without
// otherwise mutating the portfolios. Pull-based: capital in cooldown only
// becomes visible when something touches the portfolio.
func AdvanceTime(st State, now time.Time) State {
	st = st.advanceCursor(now)
	next := st.clone()
	for i, p := range next.Portfolios {
		next.Portfolios[i] = p.ProcessCooldowns(next.Now).Snapshot(next.Now)
	}
	return next
}

// GenerateResults finalizes the run into its output contract: per-strategy
// metrics ranked by ROI descending, value series and full position lists.
func GenerateResults(st State) domain.RunResult {
	rankings := make([]domain.StrategyResult, 0, len(st.Portfolios))
	for _, p := range st.Portfolios {
		rankings = append(rankings, domain.StrategyResult{
			Strategy:    p.StrategyName,
			FinalValue:  p.Value(),
			TotalPnL:    p.RealizedPnL,
			ROIPct:      p.ROIPct(),
			WinRate:     p.WinRate(),
			Trades:      p.Trades,
			Wins:        p.Wins,
			Losses:      p.Losses,
			MaxDrawdown: p.MaxDrawdown,
			Sharpe:      sharpeRatio(p.Closed),
			History:     append([]domain.ValuePoint(nil), p.History...),
			Open:        append([]domain.Position(nil), p.Open...),
			Closed:      append([]domain.Position(nil), p.Closed...),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].ROIPct > rankings[j].ROIPct
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	return domain.RunResult{
		RunID:     st.ID,
		StartedAt: st.StartTime,
		EndedAt:   st.Now,
		Rankings:  rankings,
		Log:       append([]string(nil), st.Log...),
	}
}

// sharpeRatio is the simple Sharpe-like ratio over per-trade ROI: mean
// divided by standard deviation. Cancelled positions carry no information
// and are excluded. Fewer than two resolved trades → 0.
func sharpeRatio(closed []domain.Position) float64 {
	var rois []float64
	for _, pos := range closed {
		if pos.Status == domain.PositionCancelled {
			continue
		}
		rois = append(rois, pos.ROIPct)
	}
	if len(rois) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range rois {
		mean += r
	}
	mean /= float64(len(rois))

	variance := 0.0
	for _, r := range rois {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rois))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
