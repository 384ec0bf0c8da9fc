package portfolio

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/strategy"
	"github.com/google/uuid"
)

// Portfolio is one strategy's ledger: capital pools, open/closed positions,
// the cooldown queue and running totals.
//
// Every operation is a pure transition: methods take the receiver by value
// and return a new Portfolio whose slices never alias the old one. Two
// snapshots of the same run can never share mutable substructure.
//
// Capital moves available → locked (entry) → cooldown (win) → available
// (after CooldownHours), or locked → available directly on cancel. The
// conservation invariant at all times, after a full cooldown sweep:
//
//	available + locked + cooldown == initial + cumulative realized P&L
type Portfolio struct {
	StrategyName string

	InitialCapital  float64
	AvailableCash   float64
	LockedCapital   float64
	CooldownCapital float64
	CooldownQueue   []CooldownEntry

	Open   []domain.Position
	Closed []domain.Position

	Trades      int
	Wins        int
	Losses      int
	RealizedPnL float64
	PeakValue   float64
	MaxDrawdown float64 // fraction of peak, 0-1

	History      []domain.ValuePoint
	lastSnapshot time.Time

	EndTime          time.Time
	CooldownHours    float64
	MaxOpenPositions int

	strat  strategy.Strategy
	sizing strategy.Sizing
}

// CooldownEntry is a parcel of capital waiting out settlement latency.
type CooldownEntry struct {
	Amount      float64
	AvailableAt time.Time
}

// Config fixes the portfolio's lifetime parameters at creation.
type Config struct {
	InitialCapital   float64
	EndTime          time.Time
	CooldownHours    float64
	MaxOpenPositions int
}

// New creates a portfolio for one strategy with its full initial capital
// available.
func New(strat strategy.Strategy, sizing strategy.Sizing, cfg Config) Portfolio {
	return Portfolio{
		StrategyName:     strat.Name(),
		InitialCapital:   cfg.InitialCapital,
		AvailableCash:    cfg.InitialCapital,
		PeakValue:        cfg.InitialCapital,
		EndTime:          cfg.EndTime,
		CooldownHours:    cfg.CooldownHours,
		MaxOpenPositions: cfg.MaxOpenPositions,
		strat:            strat,
		sizing:           sizing,
	}
}

// Value is the total portfolio value across all three capital pools.
func (p Portfolio) Value() float64 {
	return p.AvailableCash + p.LockedCapital + p.CooldownCapital
}

// Ended reports whether the portfolio's time window has passed.
func (p Portfolio) Ended(now time.Time) bool {
	return !p.EndTime.IsZero() && now.After(p.EndTime)
}

// WinRate returns the fraction of resolved trades won, in 0-1.
func (p Portfolio) WinRate() float64 {
	resolved := p.Wins + p.Losses
	if resolved == 0 {
		return 0
	}
	return float64(p.Wins) / float64(resolved)
}

// ROIPct returns realized P&L as a percentage of initial capital.
func (p Portfolio) ROIPct() float64 {
	if p.InitialCapital == 0 {
		return 0
	}
	return p.RealizedPnL / p.InitialCapital * 100
}

// EntryResult reports what AttemptTrade did with a signal.
type EntryResult struct {
	Entered  bool
	Capacity bool // skip due to capacity, not entry criteria
	Reason   string
	Position domain.Position // zero value unless Entered
}

// AttemptTrade evaluates a signal and, if the strategy and capacity allow,
// opens a position: sizeUSD moves from available to locked and an OPEN
// position is appended.
//
// Cooldowns are swept first so capacity checks see fresh cash. Capacity
// skips: window ended, duplicate open position in the market, too many
// concurrent positions, cash below the position floor. Criteria skips come
// from the strategy or the sizing policy. Skips are results, never errors.
func (p Portfolio) AttemptTrade(sig domain.Signal, now time.Time) (Portfolio, EntryResult) {
	p = p.ProcessCooldowns(now)

	if p.Ended(now) {
		return p, EntryResult{Capacity: true, Reason: "simulation window ended"}
	}
	if p.hasOpenPosition(sig.ConditionID) {
		return p, EntryResult{Capacity: true,
			Reason: fmt.Sprintf("open position already exists in market %s", sig.ConditionID)}
	}
	if p.MaxOpenPositions > 0 && len(p.Open) >= p.MaxOpenPositions {
		return p, EntryResult{Capacity: true,
			Reason: fmt.Sprintf("max concurrent positions reached (%d)", p.MaxOpenPositions)}
	}
	if p.AvailableCash < p.sizing.MinPositionUSD {
		return p, EntryResult{Capacity: true,
			Reason: fmt.Sprintf("available $%.2f below position floor $%.2f",
				p.AvailableCash, p.sizing.MinPositionUSD)}
	}

	if d := p.strat.Decide(sig); !d.Enter {
		return p, EntryResult{Reason: d.Reason}
	}

	size := p.sizing.Size(sig, p.AvailableCash)
	if size.AmountUSD == 0 {
		return p, EntryResult{Reason: size.Reason}
	}

	pos := domain.Position{
		ID:          uuid.New().String(),
		ConditionID: sig.ConditionID,
		TokenID:     sig.TokenID,
		Slug:        sig.Slug,
		Title:       sig.Title,
		Outcome:     sig.Outcome,
		EntryPrice:  size.EntryPrice,
		RawPrice:    sig.Price,
		Shares:      size.Shares,
		Invested:    size.AmountUSD,
		EnteredAt:   now,
		Scoring:     domain.SignalSnapshot(sig),
		Status:      domain.PositionOpen,
	}

	next := p.clone()
	next.AvailableCash -= size.AmountUSD
	next.LockedCapital += size.AmountUSD
	next.Open = append(next.Open, pos)
	next.Trades++
	next.recordValue(now)

	return next, EntryResult{Entered: true, Reason: size.Reason, Position: pos}
}

// ResolveResult reports the effect of resolving one position.
type ResolveResult struct {
	Found    bool
	Won      bool
	PnL      float64
	ROIPct   float64
	Position domain.Position
}

// ResolveTrade settles an open position against the market's winning
// outcome. A winning resolution pays shares × $1; the proceeds enter the
// cooldown queue and only return to available cash after CooldownHours.
// A losing resolution burns the invested amount.
//
// Unknown position id → zero-effect no-op, which also makes redelivered
// resolutions idempotent.
func (p Portfolio) ResolveTrade(positionID string, winning domain.Outcome, now time.Time) (Portfolio, ResolveResult) {
	idx := p.openIndex(positionID)
	if idx < 0 {
		return p, ResolveResult{}
	}

	next := p.clone()
	pos := next.Open[idx]

	won := pos.Outcome == winning
	exitValue := 0.0
	if won {
		exitValue = pos.Shares
	}
	pnl := exitValue - pos.Invested
	roi := pnl / pos.Invested * 100

	exitedAt := now
	pos.ExitedAt = &exitedAt
	pos.RealizedPnL = pnl
	pos.ROIPct = roi
	if won {
		pos.Status = domain.PositionWon
		pos.ExitPrice = 1
		freeAt := now.Add(p.cooldown())
		pos.CapitalFreeAt = &freeAt
		next.Wins++
		next.CooldownQueue = append(next.CooldownQueue, CooldownEntry{
			Amount:      exitValue,
			AvailableAt: freeAt,
		})
		next.CooldownCapital += exitValue
	} else {
		pos.Status = domain.PositionLost
		pos.ExitPrice = 0
		next.Losses++
	}

	next.LockedCapital -= pos.Invested
	next.RealizedPnL += pnl
	next.Open = append(next.Open[:idx], next.Open[idx+1:]...)
	next.Closed = append(next.Closed, pos)
	next.updateDrawdown()
	next.recordValue(now)

	return next, ResolveResult{Found: true, Won: won, PnL: pnl, ROIPct: roi, Position: pos}
}

// ResolveMarket settles every open position in a market. Markets resolve
// once, so all sides settle against the same winning outcome.
func (p Portfolio) ResolveMarket(conditionID string, winning domain.Outcome, now time.Time) (Portfolio, []ResolveResult) {
	var ids []string
	for _, pos := range p.Open {
		if pos.ConditionID == conditionID {
			ids = append(ids, pos.ID)
		}
	}

	var results []ResolveResult
	for _, id := range ids {
		var res ResolveResult
		p, res = p.ResolveTrade(id, winning, now)
		if res.Found {
			results = append(results, res)
		}
	}
	return p, results
}

// CancelTrade marks an open position CANCELLED with zero P&L and refunds
// the invested amount straight to available cash — no cooldown. Unknown id
// is a zero-effect no-op.
func (p Portfolio) CancelTrade(positionID string, now time.Time) (Portfolio, ResolveResult) {
	idx := p.openIndex(positionID)
	if idx < 0 {
		return p, ResolveResult{}
	}

	next := p.clone()
	pos := next.Open[idx]

	exitedAt := now
	pos.Status = domain.PositionCancelled
	pos.ExitedAt = &exitedAt
	pos.ExitPrice = pos.EntryPrice

	next.LockedCapital -= pos.Invested
	next.AvailableCash += pos.Invested
	next.Open = append(next.Open[:idx], next.Open[idx+1:]...)
	next.Closed = append(next.Closed, pos)
	next.recordValue(now)

	return next, ResolveResult{Found: true, Position: pos}
}

// ProcessCooldowns releases every queue entry whose AvailableAt has passed
// back into available cash. Idempotent: with no time elapsed a second sweep
// changes nothing.
func (p Portfolio) ProcessCooldowns(now time.Time) Portfolio {
	released := 0.0
	for _, e := range p.CooldownQueue {
		if !e.AvailableAt.After(now) {
			released += e.Amount
		}
	}
	if released == 0 {
		return p
	}

	next := p.clone()
	remaining := next.CooldownQueue[:0]
	for _, e := range next.CooldownQueue {
		if e.AvailableAt.After(now) {
			remaining = append(remaining, e)
		}
	}
	next.CooldownQueue = remaining
	next.CooldownCapital -= released
	next.AvailableCash += released
	return next
}

// Snapshot appends an hourly value point if enough time has passed since
// the last one. Entry and resolution transitions record their own points.
func (p Portfolio) Snapshot(now time.Time) Portfolio {
	if !p.lastSnapshot.IsZero() && now.Sub(p.lastSnapshot) < time.Hour {
		return p
	}
	next := p.clone()
	next.recordValue(now)
	return next
}

// CheckInvariant verifies capital conservation after a full cooldown sweep.
// A violation is a defect in the engine, not a runtime condition to retry.
func (p Portfolio) CheckInvariant() error {
	got := p.AvailableCash + p.LockedCapital + p.CooldownCapital
	want := p.InitialCapital + p.RealizedPnL
	if diff := got - want; diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf(
			"portfolio %s: capital not conserved: pools $%.6f vs initial+pnl $%.6f",
			p.StrategyName, got, want)
	}
	return nil
}

// --- internal ---

// clone copies the portfolio with freshly-owned slices. Positions and queue
// entries are value types, so a slice copy is a deep copy.
func (p Portfolio) clone() Portfolio {
	next := p
	next.CooldownQueue = append([]CooldownEntry(nil), p.CooldownQueue...)
	next.Open = append([]domain.Position(nil), p.Open...)
	next.Closed = append([]domain.Position(nil), p.Closed...)
	next.History = append([]domain.ValuePoint(nil), p.History...)
	return next
}

func (p Portfolio) hasOpenPosition(conditionID string) bool {
	for _, pos := range p.Open {
		if pos.ConditionID == conditionID {
			return true
		}
	}
	return false
}

func (p Portfolio) openIndex(positionID string) int {
	for i, pos := range p.Open {
		if pos.ID == positionID {
			return i
		}
	}
	return -1
}

func (p Portfolio) cooldown() time.Duration {
	return time.Duration(p.CooldownHours * float64(time.Hour))
}

// recordValue appends a value point and refreshes the snapshot clock.
// Mutates the receiver: only call on an already-cloned portfolio.
func (p *Portfolio) recordValue(now time.Time) {
	p.History = append(p.History, domain.ValuePoint{At: now, Value: p.Value()})
	p.lastSnapshot = now
}

// updateDrawdown refreshes peak value and max drawdown after a resolution.
// Mutates the receiver: only call on an already-cloned portfolio.
func (p *Portfolio) updateDrawdown() {
	v := p.Value()
	if v > p.PeakValue {
		p.PeakValue = v
		return
	}
	if p.PeakValue > 0 {
		dd := (p.PeakValue - v) / p.PeakValue
		if dd > p.MaxDrawdown {
			p.MaxDrawdown = dd
		}
	}
}
