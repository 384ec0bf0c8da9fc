package sim

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/copysim/internal/portfolio"
	"github.com/alejandrodnm/copysim/internal/strategy"
	"github.com/google/uuid"
)

// Config fixes the parameters of one simulation run. Immutable after start.
type Config struct {
	Label            string
	InitialCapital   float64
	DurationHours    float64
	CooldownHours    float64
	MaxOpenPositions int
	Catalog          strategy.Catalog
}

// State is one simulation run: one portfolio per strategy under test, a
// shared event-time cursor and a human-readable log.
//
// State is a value. Every transition returns a new State whose portfolio
// and log slices are freshly owned — snapshots never alias each other, so
// the replay path can be re-run and compared freely.
type State struct {
	ID        string
	Cfg       Config
	StartTime time.Time
	EndTime   time.Time
	Now       time.Time // event-time cursor, advances monotonically

	Portfolios []portfolio.Portfolio // catalog order
	Log        []string
}

// NewState creates a run starting at `start` with fresh capital for every
// strategy in the catalog.
func NewState(cfg Config, start time.Time) State {
	end := start.Add(time.Duration(cfg.DurationHours * float64(time.Hour)))

	pcfg := portfolio.Config{
		InitialCapital:   cfg.InitialCapital,
		EndTime:          end,
		CooldownHours:    cfg.CooldownHours,
		MaxOpenPositions: cfg.MaxOpenPositions,
	}

	strategies := cfg.Catalog.Strategies()
	portfolios := make([]portfolio.Portfolio, 0, len(strategies))
	for _, s := range strategies {
		portfolios = append(portfolios, portfolio.New(s, cfg.Catalog.Sizing(), pcfg))
	}

	st := State{
		ID:         uuid.New().String(),
		Cfg:        cfg,
		StartTime:  start,
		EndTime:    end,
		Now:        start,
		Portfolios: portfolios,
	}
	return st.logf("run %s started: %d strategies, $%.2f each, window %s → %s",
		st.ID[:8], len(portfolios), cfg.InitialCapital,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// Ended reports whether the run's window has passed.
func (st State) Ended(now time.Time) bool {
	return now.After(st.EndTime)
}

// clone copies the state with freshly-owned slices.
func (st State) clone() State {
	next := st
	next.Portfolios = append([]portfolio.Portfolio(nil), st.Portfolios...)
	next.Log = append([]string(nil), st.Log...)
	return next
}

// logf appends a formatted line to the run log.
func (st State) logf(format string, args ...any) State {
	next := st.clone()
	next.Log = append(next.Log, fmt.Sprintf("[%s] %s",
		next.Now.Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...)))
	return next
}

// advanceCursor moves the event-time cursor forward, never backward.
func (st State) advanceCursor(now time.Time) State {
	if now.After(st.Now) {
		next := st.clone()
		next.Now = now
		return next
	}
	return st
}
