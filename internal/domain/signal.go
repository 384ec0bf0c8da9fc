package domain

import "time"

// Outcome es el lado de un mercado binario.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// BetStructure clasifica el tipo de apuesta detectado en el trade original.
type BetStructure string

const (
	BetStandard  BetStructure = "standard"
	BetSpread    BetStructure = "spread"
	BetOverUnder BetStructure = "over_under"
	BetWinner    BetStructure = "winner"
)

// Signal es un trade observado de un trader copiado. Inmutable: se produce
// fuera del engine y nunca se modifica después de construido.
//
// Los campos de scoring y de calidad del trader son opcionales (punteros):
// nil significa "sin dato", que NUNCA se interpreta como cero.
type Signal struct {
	// Identidad del mercado
	ConditionID string
	TokenID     string
	Slug        string
	Title       string

	Outcome   Outcome
	Price     float64 // precio observado en [0,1]
	Timestamp time.Time

	// Scoring opcional del feed de análisis
	ValueScore *float64 // 0-100
	PolyScore  *float64 // score compuesto 0-100
	EdgePct    *float64 // ventaja estimada sobre el precio, en %
	FairProb   *float64 // probabilidad "justa" estimada, en [0,1]

	// Calidad del trader copiado
	TraderWinRate *float64 // 0-100
	TraderROI     *float64 // %
	Conviction    *float64 // tamaño relativo vs su media histórica

	Structure BetStructure
	Niche     string

	// Procedencia
	SourceTradeID string
	SourceWallet  string
}

// HasScoring devuelve true si el feed aportó algún campo de scoring.
func (s Signal) HasScoring() bool {
	return s.ValueScore != nil || s.PolyScore != nil || s.EdgePct != nil || s.FairProb != nil
}

// Edge devuelve el edge estimado o 0 si el feed no lo aportó.
// Usar solo donde "sin dato" y "edge 0" comparten el mismo bucket de sizing.
func (s Signal) Edge() float64 {
	if s.EdgePct == nil {
		return 0
	}
	return *s.EdgePct
}

// Float es un helper para construir campos opcionales en señales y tests.
func Float(v float64) *float64 {
	return &v
}
