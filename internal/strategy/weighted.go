package strategy

import (
	"github.com/alejandrodnm/copysim/internal/domain"
)

// Weighted es la variante de score compuesto: pondera los campos de scoring
// presentes en la señal (renormalizando por los pesos realmente usados) y
// compara contra un mínimo configurado.
type Weighted struct {
	StrategyName string
	Weights      domain.CompositeWeights
	MinComposite float64
}

func (w Weighted) Name() string { return w.StrategyName }

// Decide calcula el score compuesto de la señal. Si ningún campo ponderado
// está presente, la señal se descarta — no se inventa un cero.
func (w Weighted) Decide(sig domain.Signal) Decision {
	score, ok := domain.CompositeScore(sig, w.Weights)
	if !ok {
		return skip("no weighted fields present in signal")
	}
	if score < w.MinComposite {
		return skip("composite %.1f below min %.1f", score, w.MinComposite)
	}
	return enter("composite %.1f ≥ %.1f", score, w.MinComposite)
}
