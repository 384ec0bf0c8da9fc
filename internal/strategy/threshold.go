package strategy

import (
	"github.com/alejandrodnm/copysim/internal/domain"
)

// Threshold es la variante de umbrales: una cadena ordenada de predicados
// donde el primero que falla corta la evaluación. Un umbral a cero no se
// exige (la señal puede ni siquiera traer el campo).
//
// Orden de evaluación, fijado por contrato:
// estructura permitida → value score → polyscore → edge → win rate del
// trader → ROI del trader → convicción.
type Threshold struct {
	StrategyName string

	MinValueScore    float64
	MinPolyScore     float64
	MinEdgePct       float64
	MinTraderWinRate float64
	MinTraderROI     float64
	MinConviction    float64

	// AllowedStructures vacío = todas las estructuras permitidas.
	AllowedStructures []domain.BetStructure
}

func (t Threshold) Name() string { return t.StrategyName }

// Decide evalúa la cadena de predicados. Un campo ausente en la señal solo
// falla si el umbral correspondiente está configurado: "sin dato" nunca se
// trata como cero.
func (t Threshold) Decide(sig domain.Signal) Decision {
	if len(t.AllowedStructures) > 0 && !structureAllowed(sig.Structure, t.AllowedStructures) {
		return skip("bet structure %q not in allowlist", sig.Structure)
	}
	if d, ok := checkMin("value score", sig.ValueScore, t.MinValueScore); !ok {
		return d
	}
	if d, ok := checkMin("polyscore", sig.PolyScore, t.MinPolyScore); !ok {
		return d
	}
	if d, ok := checkMin("edge", sig.EdgePct, t.MinEdgePct); !ok {
		return d
	}
	if d, ok := checkMin("trader win rate", sig.TraderWinRate, t.MinTraderWinRate); !ok {
		return d
	}
	if d, ok := checkMin("trader ROI", sig.TraderROI, t.MinTraderROI); !ok {
		return d
	}
	if d, ok := checkMin("conviction", sig.Conviction, t.MinConviction); !ok {
		return d
	}
	return enter("all thresholds passed")
}

// checkMin valida un umbral mínimo sobre un campo opcional.
// Umbral 0 → no se exige. Campo ausente con umbral configurado → skip.
func checkMin(label string, field *float64, min float64) (Decision, bool) {
	if min <= 0 {
		return Decision{}, true
	}
	if field == nil {
		return skip("%s required (min %.2f) but missing from signal", label, min), false
	}
	if *field < min {
		return skip("%s %.2f below min %.2f", label, *field, min), false
	}
	return Decision{}, true
}

func structureAllowed(s domain.BetStructure, allowed []domain.BetStructure) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
