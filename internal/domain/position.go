package domain

import "time"

// PositionStatus represents the lifecycle of a simulated position.
// OPEN transitions exactly once to one of the terminal states.
type PositionStatus string

const (
	PositionOpen      PositionStatus = "OPEN"
	PositionWon       PositionStatus = "WON"
	PositionLost      PositionStatus = "LOST"
	PositionCancelled PositionStatus = "CANCELLED"
)

// IsTerminal returns true once the position can no longer change.
func (s PositionStatus) IsTerminal() bool {
	return s == PositionWon || s == PositionLost || s == PositionCancelled
}

// ScoringSnapshot freezes the signal's scoring fields at entry time so the
// position stays auditable after the feed moves on.
type ScoringSnapshot struct {
	ValueScore    *float64
	PolyScore     *float64
	EdgePct       *float64
	FairProb      *float64
	TraderWinRate *float64
	TraderROI     *float64
	Conviction    *float64
}

// Position is a simulated bet held by one strategy's portfolio.
type Position struct {
	ID          string
	ConditionID string
	TokenID     string
	Slug        string
	Title       string
	Outcome     Outcome

	EntryPrice float64 // slippage-adjusted
	RawPrice   float64
	Shares     float64
	Invested   float64 // USDC moved from available to locked
	EnteredAt  time.Time

	Scoring ScoringSnapshot

	Status PositionStatus

	// Set exactly once, on resolution or cancellation.
	ExitPrice   float64
	ExitedAt    *time.Time
	RealizedPnL float64
	ROIPct      float64
	// When the proceeds leave cooldown and become available again.
	CapitalFreeAt *time.Time
}

// SignalSnapshot copies the optional scoring fields of a signal into a
// snapshot owned by the position (no shared pointers with the signal).
func SignalSnapshot(sig Signal) ScoringSnapshot {
	return ScoringSnapshot{
		ValueScore:    cloneFloat(sig.ValueScore),
		PolyScore:     cloneFloat(sig.PolyScore),
		EdgePct:       cloneFloat(sig.EdgePct),
		FairProb:      cloneFloat(sig.FairProb),
		TraderWinRate: cloneFloat(sig.TraderWinRate),
		TraderROI:     cloneFloat(sig.TraderROI),
		Conviction:    cloneFloat(sig.Conviction),
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
