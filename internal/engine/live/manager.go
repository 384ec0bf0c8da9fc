package live

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	"github.com/alejandrodnm/copysim/internal/engine/sim"
)

// ErrRunNotFound se devuelve cuando el id no existe en el registro.
var ErrRunNotFound = errors.New("simulation run not found")

// Manager mantiene el registro en memoria de simulaciones en vivo,
// direccionables por id. Crea, alimenta, consulta y termina runs, y barre
// los runs inactivos por edad.
//
// El mutex interno protege SOLO el mapa del registro. Dos llamadas sobre
// ids distintos son independientes; dos llamadas que mutan el MISMO id no
// se serializan aquí — el caller debe aportar su exclusión por id (un lock
// por run, o una cola single-writer por run) antes de invocar
// ProcessLiveTrade / ResolveLiveMarket / AdvanceTime concurrentemente.
type Manager struct {
	mu    sync.RWMutex
	runs  map[string]*run
	clock func() time.Time
}

type run struct {
	state        sim.State
	createdAt    time.Time
	lastActivity time.Time
	active       bool
}

// NewManager crea un registro vacío. clock == nil usa time.Now (UTC);
// inyectable para tests.
func NewManager(clock func() time.Time) *Manager {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		runs:  make(map[string]*run),
		clock: clock,
	}
}

// Create arranca una simulación nueva y devuelve su id.
func (m *Manager) Create(cfg sim.Config) string {
	now := m.clock()
	st := sim.NewState(cfg, now)

	m.mu.Lock()
	m.runs[st.ID] = &run{
		state:        st,
		createdAt:    now,
		lastActivity: now,
		active:       true,
	}
	m.mu.Unlock()

	slog.Info("live: simulation created",
		"id", st.ID,
		"label", cfg.Label,
		"strategies", cfg.Catalog.Len(),
		"capital", fmt.Sprintf("$%.2f", cfg.InitialCapital),
		"duration", fmt.Sprintf("%.0fh", cfg.DurationHours),
	)
	return st.ID
}

// Get devuelve el estado actual de un run. Como efecto lateral barre los
// cooldowns al reloj actual: el cash liberado solo se hace visible cuando
// algo toca el portfolio.
func (m *Manager) Get(id string) (sim.State, error) {
	r, err := m.lookup(id)
	if err != nil {
		return sim.State{}, err
	}

	r.state = sim.AdvanceTime(r.state, m.clock())
	return r.state, nil
}

// StrategyTradeReport es el resultado de una señal en vivo por estrategia.
type StrategyTradeReport struct {
	Strategy string
	Entered  bool
	Reason   string
}

// ProcessLiveTrade normaliza un evento crudo del feed y lo alimenta a todas
// las estrategias del run, devolviendo qué hizo cada una.
func (m *Manager) ProcessLiveTrade(
	id string,
	event TradeEvent,
	scoring *ScoringData,
	trader *TraderStats,
) ([]StrategyTradeReport, error) {
	sig, err := event.toSignal(scoring, trader, m.clock)
	if err != nil {
		return nil, fmt.Errorf("live.ProcessLiveTrade: %w", err)
	}
	return m.ProcessSignal(id, sig)
}

// ProcessSignal alimenta una señal ya normalizada (por ejemplo, directa del
// feed adapter) a todas las estrategias del run.
func (m *Manager) ProcessSignal(id string, sig domain.Signal) ([]StrategyTradeReport, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	before := snapshotTrades(r.state)
	r.state = sim.ProcessSignal(r.state, sig)
	r.lastActivity = m.clock()

	reports := make([]StrategyTradeReport, 0, len(r.state.Portfolios))
	for i, p := range r.state.Portfolios {
		entered := p.Trades > before[i]
		reason := lastReason(r.state.Log, p.StrategyName)
		reports = append(reports, StrategyTradeReport{
			Strategy: p.StrategyName,
			Entered:  entered,
			Reason:   reason,
		})
	}
	return reports, nil
}

// ResolveLiveMarket aplica la resolución de un mercado a todas las
// estrategias del run. Idempotente si el venue reenvía la resolución.
func (m *Manager) ResolveLiveMarket(id, conditionID string, winning domain.Outcome) error {
	r, err := m.lookup(id)
	if err != nil {
		return err
	}

	r.state = sim.ResolveMarket(r.state, conditionID, winning, m.clock())
	r.lastActivity = m.clock()
	return nil
}

// StrategyValue es el valor actual de una estrategia dentro de Status.
type StrategyValue struct {
	Strategy string
	Value    float64
	ROIPct   float64
	Rank     int
}

// Status es la foto operativa de un run en vivo.
type Status struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
	Active       bool
	Elapsed      time.Duration
	Remaining    time.Duration
	Values       []StrategyValue
}

// Status devuelve tiempo transcurrido/restante y los valores y rankings
// actuales de cada estrategia.
func (m *Manager) Status(id string) (Status, error) {
	r, err := m.lookup(id)
	if err != nil {
		return Status{}, err
	}

	now := m.clock()
	r.state = sim.AdvanceTime(r.state, now)

	remaining := r.state.EndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	result := sim.GenerateResults(r.state)
	values := make([]StrategyValue, 0, len(result.Rankings))
	for _, sr := range result.Rankings {
		values = append(values, StrategyValue{
			Strategy: sr.Strategy,
			Value:    sr.FinalValue,
			ROIPct:   sr.ROIPct,
			Rank:     sr.Rank,
		})
	}

	return Status{
		ID:           id,
		CreatedAt:    r.createdAt,
		LastActivity: r.lastActivity,
		Active:       r.active,
		Elapsed:      now.Sub(r.createdAt),
		Remaining:    remaining,
		Values:       values,
	}, nil
}

// End finaliza un run: barrido final, resultados, y lo marca inactivo. El
// run queda consultable hasta que Cleanup lo expulse.
func (m *Manager) End(id string) (domain.RunResult, error) {
	r, err := m.lookup(id)
	if err != nil {
		return domain.RunResult{}, err
	}

	r.state = sim.AdvanceTime(r.state, m.clock())
	result := sim.GenerateResults(r.state)
	r.active = false
	r.lastActivity = m.clock()

	slog.Info("live: simulation ended",
		"id", id,
		"strategies", len(result.Rankings),
		"log_lines", len(result.Log),
	)
	return result, nil
}

// Cleanup expulsa del registro los runs inactivos sin actividad en las
// últimas maxAgeHours. Barrido explícito: el caller decide cuándo invocarlo.
func (m *Manager) Cleanup(maxAgeHours float64) int {
	cutoff := m.clock().Add(-time.Duration(maxAgeHours * float64(time.Hour)))

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, r := range m.runs {
		if !r.active && r.lastActivity.Before(cutoff) {
			delete(m.runs, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("live: evicted stale runs", "count", evicted)
	}
	return evicted
}

// Len devuelve el número de runs registrados (activos o no).
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

func (m *Manager) lookup(id string) (*run, error) {
	m.mu.RLock()
	r, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, nil
}

// snapshotTrades captura el contador de trades por portfolio para detectar
// entradas nuevas tras procesar una señal.
func snapshotTrades(st sim.State) []int {
	counts := make([]int, len(st.Portfolios))
	for i, p := range st.Portfolios {
		counts[i] = p.Trades
	}
	return counts
}

// lastReason busca la última línea de log de una estrategia, que siempre
// lleva la razón de la última entrada o skip.
func lastReason(log []string, strategy string) string {
	prefix := strategy + ":"
	for i := len(log) - 1; i >= 0; i-- {
		if idx := indexAfterTimestamp(log[i]); idx >= 0 {
			line := log[i][idx:]
			if len(line) > len(prefix) && line[:len(prefix)] == prefix {
				return line[len(prefix)+1:]
			}
		}
	}
	return ""
}

// indexAfterTimestamp salta el prefijo "[fecha hora] " del log del run.
func indexAfterTimestamp(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == ']' {
			if i+2 <= len(line) {
				return i + 2
			}
			return -1
		}
	}
	return -1
}
