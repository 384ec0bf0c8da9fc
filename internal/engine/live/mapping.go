package live

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// TradeEvent es el evento crudo del feed de trades de la plataforma.
// Contrato mínimo: identidad de mercado + precio. Todo lo demás es
// opcional y su ausencia significa "sin contribución", nunca cero.
type TradeEvent struct {
	ConditionID string
	TokenID     string
	Slug        string
	Title       string
	Outcome     string // "YES" | "NO" (case-insensitive en la práctica)
	Price       float64
	Timestamp   time.Time // zero → reloj del manager
	Structure   string    // standard | spread | over_under | winner
	Niche       string
	TradeID     string
	Wallet      string
}

// ScoringData es la metadata opcional del feed de análisis.
type ScoringData struct {
	ValueScore *float64
	PolyScore  *float64
	EdgePct    *float64
	FairProb   *float64
}

// TraderStats es la metadata opcional de calidad del trader copiado.
type TraderStats struct {
	WinRate    *float64
	ROI        *float64
	Conviction *float64
}

// toSignal normaliza el evento crudo a una señal del dominio. Falla solo si
// falta el contrato mínimo (mercado + precio válido).
func (e TradeEvent) toSignal(scoring *ScoringData, trader *TraderStats, now func() time.Time) (domain.Signal, error) {
	if e.ConditionID == "" {
		return domain.Signal{}, fmt.Errorf("trade event missing condition id")
	}
	if e.Price <= 0 || e.Price >= 1 {
		return domain.Signal{}, fmt.Errorf("trade event price %.4f outside (0,1)", e.Price)
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = now()
	}

	sig := domain.Signal{
		ConditionID:   e.ConditionID,
		TokenID:       e.TokenID,
		Slug:          e.Slug,
		Title:         e.Title,
		Outcome:       parseOutcome(e.Outcome),
		Price:         e.Price,
		Timestamp:     ts,
		Structure:     parseStructure(e.Structure),
		Niche:         e.Niche,
		SourceTradeID: e.TradeID,
		SourceWallet:  e.Wallet,
	}

	if scoring != nil {
		sig.ValueScore = scoring.ValueScore
		sig.PolyScore = scoring.PolyScore
		sig.EdgePct = scoring.EdgePct
		sig.FairProb = scoring.FairProb
	}
	if trader != nil {
		sig.TraderWinRate = trader.WinRate
		sig.TraderROI = trader.ROI
		sig.Conviction = trader.Conviction
	}

	return sig, nil
}

func parseOutcome(s string) domain.Outcome {
	switch s {
	case "NO", "No", "no":
		return domain.OutcomeNo
	default:
		return domain.OutcomeYes
	}
}

func parseStructure(s string) domain.BetStructure {
	switch s {
	case string(domain.BetSpread):
		return domain.BetSpread
	case string(domain.BetOverUnder):
		return domain.BetOverUnder
	case string(domain.BetWinner):
		return domain.BetWinner
	default:
		return domain.BetStandard
	}
}
