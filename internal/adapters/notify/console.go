package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier imprimiendo a stdout.
type Console struct {
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
// compact=true imprime una línea por run en vez de la tabla completa.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// NotifyResult imprime los rankings finales de un run.
func (c *Console) NotifyResult(_ context.Context, result domain.RunResult) error {
	if c.compact {
		c.printCompact(result)
		return nil
	}

	fmt.Fprintf(c.out, "\n=== RESULTS %s (%s → %s) ===\n",
		shortRunID(result.RunID),
		result.StartedAt.Format("2006-01-02 15:04"),
		result.EndedAt.Format("2006-01-02 15:04"),
	)
	c.printRankings(result.Rankings)
	return nil
}

// NotifyBacktest imprime el agregado multi-periodo.
func (c *Console) NotifyBacktest(_ context.Context, report domain.BacktestReport) error {
	fmt.Fprintf(c.out, "\n=== BACKTEST: %d periods (%d ok, %d failed) ===\n",
		len(report.Periods), report.Completed, report.Failed)

	for _, p := range report.Periods {
		fmt.Fprintf(c.out, "  %s → %s (%.0fd)\n",
			p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), p.Days())
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Strategy", "Avg ROI", "Avg WinRate", "Trades", "Avg MaxDD", "Won", "Top-2")

	for i, agg := range report.Aggregates {
		table.Append(
			fmt.Sprintf("%d", i+1),
			agg.Strategy,
			fmt.Sprintf("%.2f%%", agg.AvgROIPct),
			fmt.Sprintf("%.0f%%", agg.AvgWinRate*100),
			fmt.Sprintf("%d", agg.TotalTrades),
			fmt.Sprintf("%.1f%%", agg.AvgMaxDrawdown*100),
			fmt.Sprintf("%d/%d", agg.PeriodsWon, agg.Periods),
			fmt.Sprintf("%.0f%%", agg.Consistency*100),
		)
	}

	table.Render()
	return nil
}

// printRankings imprime la tabla de rankings de un run.
func (c *Console) printRankings(rankings []domain.StrategyResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Rank", "Strategy", "Value", "PnL", "ROI", "WinRate", "Trades", "MaxDD", "Sharpe")

	for _, sr := range rankings {
		table.Append(
			fmt.Sprintf("%d", sr.Rank),
			sr.Strategy,
			fmt.Sprintf("$%.2f", sr.FinalValue),
			fmt.Sprintf("$%+.2f", sr.TotalPnL),
			fmt.Sprintf("%+.2f%%", sr.ROIPct),
			fmt.Sprintf("%.0f%%", sr.WinRate*100),
			fmt.Sprintf("%d", sr.Trades),
			fmt.Sprintf("%.1f%%", sr.MaxDrawdown*100),
			fmt.Sprintf("%.2f", sr.Sharpe),
		)
	}

	table.Render()
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(result domain.RunResult) {
	now := time.Now().Format("15:04:05")
	if len(result.Rankings) == 0 {
		fmt.Fprintf(c.out, "[%s] run %s: no strategies\n", now, shortRunID(result.RunID))
		return
	}

	best := result.Rankings[0]
	fmt.Fprintf(c.out, "[%s] run %s: best %s %+.2f%% ROI (%d strategies, %d log lines)\n",
		now, shortRunID(result.RunID), best.Strategy, best.ROIPct,
		len(result.Rankings), len(result.Log))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
