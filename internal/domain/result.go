package domain

import "time"

// Resolution es el resultado final de un mercado según el venue.
type Resolution struct {
	ConditionID string
	Winning     Outcome
	Closed      bool
}

// ValuePoint es una muestra del valor total de un portfolio en el tiempo.
type ValuePoint struct {
	At    time.Time
	Value float64
}

// StrategyResult son las métricas finales de una estrategia en un run.
type StrategyResult struct {
	Strategy    string
	Rank        int // 1 = mejor ROI
	FinalValue  float64
	TotalPnL    float64
	ROIPct      float64
	WinRate     float64 // 0-1 sobre trades resueltos
	Trades      int
	Wins        int
	Losses      int
	MaxDrawdown float64 // fracción del peak, 0-1
	Sharpe      float64 // media / desviación del ROI por trade

	History []ValuePoint
	Open    []Position
	Closed  []Position
}

// RunResult es el output completo de una simulación: rankings ordenados por
// ROI descendente, series de valor por estrategia, posiciones completas y
// el log humano de cada entrada, rechazo y resolución.
type RunResult struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	Rankings  []StrategyResult
	Log       []string
}

// Ranking devuelve el resultado de una estrategia por nombre.
func (r RunResult) Ranking(strategy string) (StrategyResult, bool) {
	for _, sr := range r.Rankings {
		if sr.Strategy == strategy {
			return sr, true
		}
	}
	return StrategyResult{}, false
}

// BacktestPeriod es una ventana histórica de un backtest multi-periodo.
type BacktestPeriod struct {
	Start time.Time
	End   time.Time
}

// Days devuelve la duración de la ventana en días.
func (p BacktestPeriod) Days() float64 {
	return p.End.Sub(p.Start).Hours() / 24
}

// StrategyAggregate son las estadísticas de una estrategia promediadas
// sobre los periodos completados de un backtest.
type StrategyAggregate struct {
	Strategy       string
	Periods        int // periodos que contribuyeron datos
	AvgROIPct      float64
	AvgWinRate     float64
	AvgMaxDrawdown float64
	TotalTrades    int
	PeriodsWon     int     // periodos terminados en rank 1
	Consistency    float64 // fracción de periodos en el top 2
}

// BacktestReport es el resultado agregado de un backtest multi-periodo.
// Un periodo fallido (error de datos upstream) se excluye del agregado sin
// abortar el batch.
type BacktestReport struct {
	Periods    []BacktestPeriod
	Completed  int
	Failed     int
	PerPeriod  []RunResult
	Aggregates []StrategyAggregate // ordenados por AvgROIPct desc
}
