package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// --- GenerateBacktestPeriods ---

func TestGenerateBacktestPeriods_Shape(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periods := GenerateBacktestPeriods(3, 4, 4, ref)

	require.Len(t, periods, 3)

	// el periodo más reciente acaba 1 día antes de la referencia
	assert.Equal(t, ref.Add(-24*time.Hour), periods[2].End)

	for i, p := range periods {
		assert.InDelta(t, 4.0, p.Days(), 1e-9, "period %d", i)
	}
	// ordenados de más antiguo a más reciente, con gap ≥ 4 días
	for i := 1; i < len(periods); i++ {
		gap := periods[i].Start.Sub(periods[i-1].End)
		assert.GreaterOrEqual(t, gap, 4*24*time.Hour)
		assert.True(t, periods[i-1].End.Before(periods[i].Start))
	}
}

func TestGenerateBacktestPeriods_InvalidInputs(t *testing.T) {
	ref := time.Now()
	assert.Nil(t, GenerateBacktestPeriods(0, 4, 4, ref))
	assert.Nil(t, GenerateBacktestPeriods(3, 0, 4, ref))
}

// --- fakeHistory ---

// fakeHistory sirve trades y resoluciones precargados por periodo.
type fakeHistory struct {
	signals     map[int][]domain.Signal // indexados por día del Start del periodo
	resolutions map[string]domain.Resolution
	failFrom    time.Time // FetchTrades falla para periodos que empiezan aquí
	resErr      map[string]error
}

func (f *fakeHistory) FetchTrades(_ context.Context, from, to time.Time) ([]domain.Signal, error) {
	if !f.failFrom.IsZero() && from.Equal(f.failFrom) {
		return nil, errors.New("upstream 500")
	}
	var out []domain.Signal
	for _, sigs := range f.signals {
		for _, s := range sigs {
			if !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeHistory) FetchResolution(_ context.Context, conditionID string) (domain.Resolution, error) {
	if err := f.resErr[conditionID]; err != nil {
		return domain.Resolution{}, err
	}
	res, ok := f.resolutions[conditionID]
	if !ok {
		return domain.Resolution{ConditionID: conditionID}, nil
	}
	return res, nil
}

func backtestSetup(periods []domain.BacktestPeriod) *fakeHistory {
	h := &fakeHistory{
		signals:     make(map[int][]domain.Signal),
		resolutions: make(map[string]domain.Resolution),
		resErr:      make(map[string]error),
	}
	for i, p := range periods {
		cond := []string{"a", "b", "c"}[i%3] + p.Start.Format("0102")
		h.signals[i] = []domain.Signal{testSignal(cond, p.Start.Add(6 * time.Hour))}
		h.resolutions[cond] = domain.Resolution{
			ConditionID: cond, Winning: domain.OutcomeYes, Closed: true,
		}
	}
	return h
}

// --- RunMultiPeriodBacktest ---

func TestRunMultiPeriodBacktest_AggregatesAllPeriods(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periods := GenerateBacktestPeriods(3, 4, 4, ref)
	h := backtestSetup(periods)

	report, err := RunMultiPeriodBacktest(context.Background(), testConfig(), periods, h)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Completed)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.PerPeriod, 3)
	require.Len(t, report.Aggregates, 2)

	// follow-all gana cada periodo (edge 6 entra y el mercado paga YES)
	agg, ok := findAggregate(report.Aggregates, "follow-all")
	require.True(t, ok)
	assert.Equal(t, 3, agg.Periods)
	assert.Equal(t, 3, agg.PeriodsWon)
	assert.Equal(t, 1.0, agg.Consistency)
	assert.Equal(t, 3, agg.TotalTrades)
	assert.Greater(t, agg.AvgROIPct, 0.0)
	assert.InDelta(t, 1.0, agg.AvgWinRate, 1e-9)
}

func TestRunMultiPeriodBacktest_AvgROIIsMeanOfPeriods(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periods := GenerateBacktestPeriods(2, 4, 4, ref)
	h := backtestSetup(periods)

	report, err := RunMultiPeriodBacktest(context.Background(), testConfig(), periods, h)
	require.NoError(t, err)

	agg, ok := findAggregate(report.Aggregates, "follow-all")
	require.True(t, ok)

	sum := 0.0
	for _, result := range report.PerPeriod {
		sr, ok := result.Ranking("follow-all")
		require.True(t, ok)
		sum += sr.ROIPct
	}
	assert.InDelta(t, sum/2, agg.AvgROIPct, 1e-9)
}

func TestRunMultiPeriodBacktest_FailedPeriodExcluded(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periods := GenerateBacktestPeriods(3, 4, 4, ref)
	h := backtestSetup(periods)
	h.failFrom = periods[1].Start // el periodo intermedio revienta upstream

	report, err := RunMultiPeriodBacktest(context.Background(), testConfig(), periods, h)
	require.NoError(t, err) // el batch no aborta

	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.PerPeriod, 2)

	agg, ok := findAggregate(report.Aggregates, "follow-all")
	require.True(t, ok)
	assert.Equal(t, 2, agg.Periods)
}

func TestRunMultiPeriodBacktest_ResolutionErrorFailsPeriod(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	periods := GenerateBacktestPeriods(1, 4, 4, ref)
	h := backtestSetup(periods)
	for cond := range h.resolutions {
		h.resErr[cond] = errors.New("gamma 502")
	}

	report, err := RunMultiPeriodBacktest(context.Background(), testConfig(), periods, h)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Completed)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.Aggregates)
}

func TestRunMultiPeriodBacktest_NoPeriods(t *testing.T) {
	_, err := RunMultiPeriodBacktest(context.Background(), testConfig(), nil, &fakeHistory{})
	assert.Error(t, err)
}

// --- buildEvents ---

func TestBuildEvents_ResolutionScheduledAfterFirstTrade(t *testing.T) {
	h := &fakeHistory{
		resolutions: map[string]domain.Resolution{
			"m1": {ConditionID: "m1", Winning: domain.OutcomeYes, Closed: true},
		},
	}
	signals := []domain.Signal{
		testSignal("m1", t0),
		testSignal("m1", t0.Add(time.Hour)), // mismo mercado: no re-programa
	}

	events, err := buildEvents(context.Background(), signals, h)
	require.NoError(t, err)
	require.Len(t, events, 3) // 2 señales + 1 resolución

	// la resolución va 2h después del PRIMER trade del mercado
	var resAt time.Time
	for _, ev := range events {
		if ev.signal == nil {
			resAt = ev.at
		}
	}
	assert.Equal(t, t0.Add(2*time.Hour), resAt)
}

func TestBuildEvents_OpenMarketNotScheduled(t *testing.T) {
	h := &fakeHistory{resolutions: map[string]domain.Resolution{}}
	events, err := buildEvents(context.Background(), []domain.Signal{testSignal("m1", t0)}, h)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotNil(t, events[0].signal)
}

func TestBuildEvents_SignalsBeforeResolutionsOnTies(t *testing.T) {
	h := &fakeHistory{
		resolutions: map[string]domain.Resolution{
			"m1": {ConditionID: "m1", Winning: domain.OutcomeYes, Closed: true},
		},
	}
	signals := []domain.Signal{
		testSignal("m1", t0),
		testSignal("m2", t0.Add(2*time.Hour)), // empata con la resolución de m1
	}

	events, err := buildEvents(context.Background(), signals, h)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.NotNil(t, events[1].signal, "en empate la señal va antes que la resolución")
	assert.Nil(t, events[2].signal)
}

func findAggregate(aggs []domain.StrategyAggregate, name string) (domain.StrategyAggregate, bool) {
	for _, a := range aggs {
		if a.Strategy == name {
			return a, true
		}
	}
	return domain.StrategyAggregate{}, false
}
