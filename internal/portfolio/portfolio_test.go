package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/strategy"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPortfolio() Portfolio {
	return New(
		strategy.Threshold{StrategyName: "follow-all"},
		strategy.Sizing{MinPositionUSD: 10, MaxPositionUSD: 100, SlippagePct: 0.04},
		Config{
			InitialCapital:   1000,
			EndTime:          t0.Add(168 * time.Hour),
			CooldownHours:    24,
			MaxOpenPositions: 20,
		},
	)
}

func testSignal(conditionID string) domain.Signal {
	return domain.Signal{
		ConditionID: conditionID,
		TokenID:     "tok-" + conditionID,
		Title:       "Test market " + conditionID,
		Outcome:     domain.OutcomeYes,
		Price:       0.50,
		Timestamp:   t0,
		EdgePct:     domain.Float(6),
	}
}

// --- AttemptTrade ---

func TestAttemptTrade_OpensPosition(t *testing.T) {
	p := newTestPortfolio()

	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	// 5% × $1000 × 1.5 = $75; entry 0.52; shares 75/0.52
	assert.InDelta(t, 925.0, p.AvailableCash, 0.001)
	assert.InDelta(t, 75.0, p.LockedCapital, 0.001)
	assert.Len(t, p.Open, 1)
	assert.Equal(t, 1, p.Trades)
	assert.Equal(t, domain.PositionOpen, p.Open[0].Status)
	assert.InDelta(t, 144.23, p.Open[0].Shares, 0.01)
	assert.NoError(t, p.CheckInvariant())
}

func TestAttemptTrade_DuplicateMarketRejected(t *testing.T) {
	p := newTestPortfolio()

	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	p2, res2 := p.AttemptTrade(testSignal("m1"), t0.Add(time.Minute))
	assert.False(t, res2.Entered)
	assert.True(t, res2.Capacity)
	assert.Contains(t, res2.Reason, "already exists")
	assert.Equal(t, 1, p2.Trades)
}

func TestAttemptTrade_MaxOpenPositions(t *testing.T) {
	p := newTestPortfolio()
	p.MaxOpenPositions = 2

	var res EntryResult
	p, res = p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)
	p, res = p.AttemptTrade(testSignal("m2"), t0)
	require.True(t, res.Entered)

	_, res = p.AttemptTrade(testSignal("m3"), t0)
	assert.False(t, res.Entered)
	assert.True(t, res.Capacity)
	assert.Contains(t, res.Reason, "max concurrent")
}

func TestAttemptTrade_WindowEnded(t *testing.T) {
	p := newTestPortfolio()

	_, res := p.AttemptTrade(testSignal("m1"), p.EndTime.Add(time.Minute))
	assert.False(t, res.Entered)
	assert.True(t, res.Capacity)
	assert.Contains(t, res.Reason, "window ended")
}

func TestAttemptTrade_InsufficientCash(t *testing.T) {
	p := newTestPortfolio()
	p.AvailableCash = 5

	_, res := p.AttemptTrade(testSignal("m1"), t0)
	assert.False(t, res.Entered)
	assert.True(t, res.Capacity)
	assert.Contains(t, res.Reason, "below position floor")
}

func TestAttemptTrade_CriteriaSkipIsNotCapacity(t *testing.T) {
	p := New(
		strategy.Threshold{StrategyName: "high-edge", MinEdgePct: 10},
		strategy.Sizing{MinPositionUSD: 10, MaxPositionUSD: 100, SlippagePct: 0.04},
		Config{InitialCapital: 1000, EndTime: t0.Add(time.Hour), CooldownHours: 24},
	)

	_, res := p.AttemptTrade(testSignal("m1"), t0) // edge 6 < 10
	assert.False(t, res.Entered)
	assert.False(t, res.Capacity)
}

func TestAttemptTrade_ValueSemantics(t *testing.T) {
	p := newTestPortfolio()

	p2, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	// el portfolio original no cambia
	assert.Equal(t, 1000.0, p.AvailableCash)
	assert.Empty(t, p.Open)
	assert.Len(t, p2.Open, 1)
}

// --- ResolveTrade ---

func TestResolveTrade_Win(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)
	pos := res.Position

	now := t0.Add(2 * time.Hour)
	p, rr := p.ResolveTrade(pos.ID, domain.OutcomeYes, now)
	require.True(t, rr.Found)
	assert.True(t, rr.Won)

	// exit = shares × $1 = 144.23; pnl = 144.23 - 75 = 69.23; roi 92.3%
	assert.InDelta(t, 69.23, rr.PnL, 0.01)
	assert.InDelta(t, 92.3, rr.ROIPct, 0.1)

	// el cash va a cooldown, no a available
	assert.InDelta(t, 925.0, p.AvailableCash, 0.001)
	assert.InDelta(t, 0.0, p.LockedCapital, 0.001)
	assert.InDelta(t, 144.23, p.CooldownCapital, 0.01)
	assert.Equal(t, 1, p.Wins)
	assert.Equal(t, domain.PositionWon, p.Closed[0].Status)
	require.NotNil(t, p.Closed[0].CapitalFreeAt)
	assert.Equal(t, now.Add(24*time.Hour), *p.Closed[0].CapitalFreeAt)
	assert.NoError(t, p.CheckInvariant())
}

func TestResolveTrade_Loss(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	p, rr := p.ResolveTrade(res.Position.ID, domain.OutcomeNo, t0.Add(time.Hour))
	require.True(t, rr.Found)
	assert.False(t, rr.Won)
	assert.InDelta(t, -75.0, rr.PnL, 0.001)
	assert.InDelta(t, -100.0, rr.ROIPct, 0.001)

	assert.InDelta(t, 925.0, p.Value(), 0.001)
	assert.Equal(t, 1, p.Losses)
	assert.Equal(t, domain.PositionLost, p.Closed[0].Status)
	assert.Nil(t, p.Closed[0].CapitalFreeAt)
	assert.NoError(t, p.CheckInvariant())
}

func TestResolveTrade_UnknownIDNoop(t *testing.T) {
	p := newTestPortfolio()
	p2, rr := p.ResolveTrade("nope", domain.OutcomeYes, t0)
	assert.False(t, rr.Found)
	assert.Equal(t, p.Value(), p2.Value())
}

func TestResolveTrade_RedeliveredResolutionIdempotent(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	p, rr := p.ResolveTrade(res.Position.ID, domain.OutcomeYes, t0.Add(time.Hour))
	require.True(t, rr.Found)

	// segunda entrega: la posición ya no está abierta → cero efecto
	p2, rr2 := p.ResolveTrade(res.Position.ID, domain.OutcomeYes, t0.Add(2*time.Hour))
	assert.False(t, rr2.Found)
	assert.Equal(t, p.Wins, p2.Wins)
	assert.Equal(t, p.RealizedPnL, p2.RealizedPnL)
}

func TestResolveMarket_SettlesAllInMarket(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)
	p, res = p.AttemptTrade(testSignal("m2"), t0)
	require.True(t, res.Entered)

	p, results := p.ResolveMarket("m1", domain.OutcomeYes, t0.Add(time.Hour))
	assert.Len(t, results, 1)
	assert.Len(t, p.Open, 1)
	assert.Equal(t, "m2", p.Open[0].ConditionID)
}

// --- CancelTrade ---

func TestCancelTrade_RefundsWithoutCooldown(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	p, rr := p.CancelTrade(res.Position.ID, t0.Add(time.Hour))
	require.True(t, rr.Found)

	// reembolso directo a available, sin cooldown y sin P&L
	assert.InDelta(t, 1000.0, p.AvailableCash, 0.001)
	assert.Equal(t, 0.0, p.CooldownCapital)
	assert.Equal(t, 0.0, p.RealizedPnL)
	assert.Equal(t, domain.PositionCancelled, p.Closed[0].Status)
	assert.Equal(t, 0, p.Wins+p.Losses)
	assert.NoError(t, p.CheckInvariant())
}

// --- Cooldowns ---

func TestProcessCooldowns_ReleasesAfterWindow(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)
	p, _ = p.ResolveTrade(res.Position.ID, domain.OutcomeYes, t0.Add(time.Hour))

	// antes de las 24h no se libera nada
	p2 := p.ProcessCooldowns(t0.Add(12 * time.Hour))
	assert.InDelta(t, p.CooldownCapital, p2.CooldownCapital, 0.001)

	// a las 25h el cash vuelve a available
	p3 := p.ProcessCooldowns(t0.Add(26 * time.Hour))
	assert.Equal(t, 0.0, p3.CooldownCapital)
	assert.Empty(t, p3.CooldownQueue)
	assert.InDelta(t, 925.0+144.23, p3.AvailableCash, 0.01)
	assert.NoError(t, p3.CheckInvariant())
}

func TestProcessCooldowns_Idempotent(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)
	p, _ = p.ResolveTrade(res.Position.ID, domain.OutcomeYes, t0.Add(time.Hour))

	now := t0.Add(30 * time.Hour)
	p1 := p.ProcessCooldowns(now)
	p2 := p1.ProcessCooldowns(now)
	assert.Equal(t, p1.AvailableCash, p2.AvailableCash)
	assert.Equal(t, p1.CooldownCapital, p2.CooldownCapital)
}

func TestAttemptTrade_SweepsCooldownsFirst(t *testing.T) {
	p := newTestPortfolio()
	p.AvailableCash = 0
	p.CooldownCapital = 500
	p.CooldownQueue = []CooldownEntry{{Amount: 500, AvailableAt: t0}}
	// que el invariante cuadre con los pools manipulados
	p.InitialCapital = 500

	p, res := p.AttemptTrade(testSignal("m1"), t0.Add(time.Minute))
	assert.True(t, res.Entered)
	assert.NoError(t, p.CheckInvariant())
}

// --- Invariante de conservación ---

func TestCheckInvariant_FullLifecycle(t *testing.T) {
	p := newTestPortfolio()

	for i, cond := range []string{"m1", "m2", "m3"} {
		var res EntryResult
		p, res = p.AttemptTrade(testSignal(cond), t0.Add(time.Duration(i)*time.Minute))
		require.True(t, res.Entered, cond)
		assert.NoError(t, p.CheckInvariant())
	}

	p, _ = p.ResolveMarket("m1", domain.OutcomeYes, t0.Add(time.Hour))
	assert.NoError(t, p.CheckInvariant())
	p, _ = p.ResolveMarket("m2", domain.OutcomeNo, t0.Add(2*time.Hour))
	assert.NoError(t, p.CheckInvariant())
	p, _ = p.CancelTrade(p.Open[0].ID, t0.Add(3*time.Hour))
	assert.NoError(t, p.CheckInvariant())

	p = p.ProcessCooldowns(t0.Add(48 * time.Hour))
	assert.NoError(t, p.CheckInvariant())
	assert.Equal(t, 0.0, p.LockedCapital)
	assert.Equal(t, 0.0, p.CooldownCapital)
	assert.InDelta(t, p.InitialCapital+p.RealizedPnL, p.AvailableCash, 1e-6)
}

func TestCheckInvariant_DetectsCorruption(t *testing.T) {
	p := newTestPortfolio()
	p.AvailableCash += 50
	assert.Error(t, p.CheckInvariant())
}

// --- Métricas ---

func TestWinRateAndROI(t *testing.T) {
	p := newTestPortfolio()
	assert.Equal(t, 0.0, p.WinRate())

	p.Wins, p.Losses = 3, 1
	assert.InDelta(t, 0.75, p.WinRate(), 1e-9)

	p.RealizedPnL = 150
	assert.InDelta(t, 15.0, p.ROIPct(), 1e-9)
}

func TestUpdateDrawdown(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0)
	require.True(t, res.Entered)

	// pierde $75 desde un pico de $1000 → drawdown 7.5%
	p, _ = p.ResolveTrade(res.Position.ID, domain.OutcomeNo, t0.Add(time.Hour))
	assert.InDelta(t, 0.075, p.MaxDrawdown, 0.001)
}

// --- Snapshot ---

func TestSnapshot_HourlyGuard(t *testing.T) {
	p := newTestPortfolio()
	p, res := p.AttemptTrade(testSignal("m1"), t0) // registra un punto
	require.True(t, res.Entered)
	n := len(p.History)

	p = p.Snapshot(t0.Add(30 * time.Minute))
	assert.Len(t, p.History, n) // menos de una hora: no se añade

	p = p.Snapshot(t0.Add(2 * time.Hour))
	assert.Len(t, p.History, n+1)
}
