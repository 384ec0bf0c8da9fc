package strategy

import "github.com/alejandrodnm/copysim/internal/domain"

// Catalog es el conjunto ordenado de estrategias bajo test en una
// simulación. El orden se conserva para que rankings y logs sean estables.
type Catalog struct {
	strategies []Strategy
	sizing     Sizing
}

// NewCatalog construye un catálogo con el sizing compartido dado.
func NewCatalog(sizing Sizing, strategies ...Strategy) Catalog {
	return Catalog{strategies: strategies, sizing: sizing}
}

// Strategies devuelve las estrategias en orden de registro.
func (c Catalog) Strategies() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// Sizing devuelve la política de tamaño compartida.
func (c Catalog) Sizing() Sizing { return c.sizing }

// Names devuelve los nombres de las estrategias en orden.
func (c Catalog) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Len devuelve el número de estrategias del catálogo.
func (c Catalog) Len() int { return len(c.strategies) }

// Default devuelve el catálogo de serie: un abanico de variantes pensado
// para comparar qué criterio de entrada aporta señal de verdad.
func Default(sizing Sizing) Catalog {
	return NewCatalog(sizing,
		Threshold{
			StrategyName: "follow-all",
		},
		Threshold{
			StrategyName:  "value-hunter",
			MinValueScore: 60,
		},
		Threshold{
			StrategyName: "high-edge",
			MinEdgePct:   5,
			MinPolyScore: 50,
		},
		Threshold{
			StrategyName:     "proven-traders",
			MinTraderWinRate: 55,
			MinTraderROI:     10,
		},
		Threshold{
			StrategyName:  "conviction-plays",
			MinConviction: 2,
			AllowedStructures: []domain.BetStructure{
				domain.BetStandard, domain.BetWinner,
			},
		},
		Weighted{
			StrategyName: "weighted-composite",
			Weights: domain.CompositeWeights{
				ValueScore:    0.25,
				PolyScore:     0.25,
				Edge:          0.20,
				TraderWinRate: 0.15,
				TraderROI:     0.10,
				Conviction:    0.05,
			},
			MinComposite: 55,
		},
	)
}
