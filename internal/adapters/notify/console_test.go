package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysim/internal/domain"
)

func sampleResult() domain.RunResult {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.RunResult{
		RunID:     "run-12345678-abcd",
		StartedAt: start,
		EndedAt:   start.Add(168 * time.Hour),
		Rankings: []domain.StrategyResult{
			{Rank: 1, Strategy: "follow-all", FinalValue: 1069.23, TotalPnL: 69.23,
				ROIPct: 6.92, WinRate: 1.0, Trades: 1, Wins: 1},
			{Rank: 2, Strategy: "high-edge", FinalValue: 1000, ROIPct: 0},
		},
		Log: []string{"[2025-06-01 12:00:00] run started"},
	}
}

func TestNotifyResult_FullTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.NotifyResult(context.Background(), sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "=== RESULTS run-1234")
	assert.Contains(t, out, "follow-all")
	assert.Contains(t, out, "high-edge")
	assert.Contains(t, out, "$1069.23")
	assert.Contains(t, out, "+6.92%")
}

func TestNotifyResult_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	require.NoError(t, c.NotifyResult(context.Background(), sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "best follow-all")
	assert.NotContains(t, out, "RESULTS") // sin tabla en modo compacto
}

func TestNotifyResult_CompactEmptyRankings(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	require.NoError(t, c.NotifyResult(context.Background(), domain.RunResult{RunID: "x"}))
	assert.Contains(t, buf.String(), "no strategies")
}

func TestNotifyBacktest(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	report := domain.BacktestReport{
		Periods: []domain.BacktestPeriod{
			{Start: start, End: start.Add(4 * 24 * time.Hour)},
		},
		Completed: 1,
		Aggregates: []domain.StrategyAggregate{
			{Strategy: "follow-all", Periods: 1, AvgROIPct: 6.92,
				AvgWinRate: 1, TotalTrades: 1, PeriodsWon: 1, Consistency: 1},
		},
	}

	require.NoError(t, c.NotifyBacktest(context.Background(), report))

	out := buf.String()
	assert.Contains(t, out, "=== BACKTEST: 1 periods (1 ok, 0 failed)")
	assert.Contains(t, out, "2025-06-01 → 2025-06-05 (4d)")
	assert.Contains(t, out, "follow-all")
	assert.Contains(t, out, "1/1")
}
