package sim

// backtest.go — orquestación de backtests multi-periodo.
//
// Cada periodo corre una simulación completa e independiente (capital
// fresco) sobre una ventana histórica disjunta; las estadísticas por
// estrategia se promedian entre periodos. Un periodo que falla por datos
// upstream se loggea y se excluye del agregado sin abortar el batch.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/ports"
)

// resolutionDelay aproxima cuándo se resuelve un mercado durante el replay
// histórico: exactamente 2h después del trade que lo dispara. Es una
// simplificación intencional heredada del diseño original — usar el tiempo
// real de resolución cambiaría los resultados de forma no comparable.
const resolutionDelay = 2 * time.Hour

// referenceBuffer deja 1 día de margen antes de la fecha de referencia para
// que los mercados del último periodo hayan tenido tiempo de resolverse.
const referenceBuffer = 24 * time.Hour

// GenerateBacktestPeriods produce `numPeriods` ventanas de exactamente
// `durationDays` días, separadas entre sí por al menos `gapDays`, contando
// hacia atrás desde referenceDate − 1 día. Devueltas de más antigua a más
// reciente.
func GenerateBacktestPeriods(numPeriods, durationDays, gapDays int, referenceDate time.Time) []domain.BacktestPeriod {
	if numPeriods <= 0 || durationDays <= 0 {
		return nil
	}

	duration := time.Duration(durationDays) * 24 * time.Hour
	gap := time.Duration(gapDays) * 24 * time.Hour

	periods := make([]domain.BacktestPeriod, numPeriods)
	end := referenceDate.Add(-referenceBuffer)
	for i := 0; i < numPeriods; i++ {
		// Se rellena desde el final: el periodo más reciente va último.
		periods[numPeriods-1-i] = domain.BacktestPeriod{
			Start: end.Add(-duration),
			End:   end,
		}
		end = end.Add(-duration - gap)
	}
	return periods
}

// RunMultiPeriodBacktest corre una simulación independiente por periodo y
// agrega las estadísticas por estrategia.
func RunMultiPeriodBacktest(
	ctx context.Context,
	cfg Config,
	periods []domain.BacktestPeriod,
	history ports.History,
) (domain.BacktestReport, error) {
	if len(periods) == 0 {
		return domain.BacktestReport{}, fmt.Errorf("sim.RunMultiPeriodBacktest: no periods")
	}

	report := domain.BacktestReport{Periods: periods}

	for i, period := range periods {
		slog.Info("backtest: running period",
			"n", fmt.Sprintf("%d/%d", i+1, len(periods)),
			"from", period.Start.Format("2006-01-02"),
			"to", period.End.Format("2006-01-02"),
		)

		result, err := runPeriod(ctx, cfg, period, history)
		if err != nil {
			// Datos upstream rotos: el periodo no aporta datos, el resto sigue.
			slog.Warn("backtest: period failed, excluding from aggregation",
				"from", period.Start.Format("2006-01-02"),
				"to", period.End.Format("2006-01-02"),
				"err", err,
			)
			report.Failed++
			continue
		}

		report.PerPeriod = append(report.PerPeriod, result)
		report.Completed++
	}

	report.Aggregates = aggregate(cfg.Catalog.Names(), report.PerPeriod)
	return report, nil
}

// runPeriod ejecuta una simulación completa sobre una ventana histórica:
// fetch de trades por lotes, lookup de resoluciones, replay en orden de
// timestamp, resultados finales.
func runPeriod(
	ctx context.Context,
	cfg Config,
	period domain.BacktestPeriod,
	history ports.History,
) (domain.RunResult, error) {
	signals, err := history.FetchTrades(ctx, period.Start, period.End)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("fetch trades %s..%s: %w",
			period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"), err)
	}

	events, err := buildEvents(ctx, signals, history)
	if err != nil {
		return domain.RunResult{}, err
	}

	periodCfg := cfg
	periodCfg.DurationHours = period.End.Sub(period.Start).Hours()

	st := NewState(periodCfg, period.Start)
	for _, ev := range events {
		switch {
		case ev.signal != nil:
			st = ProcessSignal(st, *ev.signal)
		default:
			st = ResolveMarket(st, ev.conditionID, ev.winning, ev.at)
		}
	}

	// Barrido final para que los cooldowns pendientes del cierre de la
	// ventana queden reflejados en el valor final.
	st = AdvanceTime(st, period.End.Add(resolutionDelay))

	return GenerateResults(st), nil
}

// replayEvent es una entrada de la cola de replay: o una señal o una
// resolución de mercado.
type replayEvent struct {
	at          time.Time
	signal      *domain.Signal
	conditionID string
	winning     domain.Outcome
}

// buildEvents intercala señales y resoluciones en orden temporal. La
// resolución de cada mercado se programa resolutionDelay después del primer
// trade que lo toca; los mercados sin resolución conocida no se programan
// (sus posiciones quedan abiertas, como en un run en vivo).
func buildEvents(ctx context.Context, signals []domain.Signal, resolutions ports.ResolutionProvider) ([]replayEvent, error) {
	events := make([]replayEvent, 0, len(signals)*2)
	scheduled := make(map[string]bool)

	for i := range signals {
		sig := signals[i]
		events = append(events, replayEvent{at: sig.Timestamp, signal: &signals[i]})

		if scheduled[sig.ConditionID] {
			continue
		}
		scheduled[sig.ConditionID] = true

		res, err := resolutions.FetchResolution(ctx, sig.ConditionID)
		if err != nil {
			return nil, fmt.Errorf("fetch resolution %s: %w", sig.ConditionID, err)
		}
		if !res.Closed {
			continue
		}
		events = append(events, replayEvent{
			at:          sig.Timestamp.Add(resolutionDelay),
			conditionID: sig.ConditionID,
			winning:     res.Winning,
		})
	}

	// Orden estable por timestamp; en empates las señales van antes que las
	// resoluciones para que un trade simultáneo aún pueda entrar.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].signal != nil && events[j].signal == nil
		}
		return events[i].at.Before(events[j].at)
	})

	return events, nil
}

// aggregate promedia las métricas por estrategia sobre los periodos
// completados y calcula periodos ganados y consistencia (top 2).
func aggregate(strategies []string, perPeriod []domain.RunResult) []domain.StrategyAggregate {
	if len(perPeriod) == 0 {
		return nil
	}

	aggs := make([]domain.StrategyAggregate, 0, len(strategies))
	for _, name := range strategies {
		agg := domain.StrategyAggregate{Strategy: name}
		top2 := 0

		for _, result := range perPeriod {
			sr, ok := result.Ranking(name)
			if !ok {
				continue
			}
			agg.Periods++
			agg.AvgROIPct += sr.ROIPct
			agg.AvgWinRate += sr.WinRate
			agg.AvgMaxDrawdown += sr.MaxDrawdown
			agg.TotalTrades += sr.Trades
			if sr.Rank == 1 {
				agg.PeriodsWon++
			}
			if sr.Rank <= 2 {
				top2++
			}
		}

		if agg.Periods > 0 {
			n := float64(agg.Periods)
			agg.AvgROIPct /= n
			agg.AvgWinRate /= n
			agg.AvgMaxDrawdown /= n
			agg.Consistency = float64(top2) / n
		}
		aggs = append(aggs, agg)
	}

	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].AvgROIPct > aggs[j].AvgROIPct
	})
	return aggs
}
