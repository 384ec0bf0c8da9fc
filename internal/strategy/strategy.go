package strategy

import (
	"fmt"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// Strategy define el contrato de una variante de entrada. Cada kind es un
// tipo concreto con su propio evaluador exhaustivo: el type system, y no una
// cadena de "if campo presente", garantiza qué campos usa cada variante.
type Strategy interface {
	// Name identifica la estrategia en rankings, logs y persistencia.
	Name() string

	// Decide evalúa los criterios de entrada contra una señal. Sin efectos:
	// (enter=false, reason) es un skip, nunca un error.
	Decide(sig domain.Signal) Decision
}

// Decision es el resultado de evaluar los criterios de entrada.
// Reason es legible por humanos: el primer predicado que falló, o por qué
// se entra.
type Decision struct {
	Enter  bool
	Reason string
}

func enter(format string, args ...any) Decision {
	return Decision{Enter: true, Reason: fmt.Sprintf(format, args...)}
}

func skip(format string, args ...any) Decision {
	return Decision{Enter: false, Reason: fmt.Sprintf(format, args...)}
}

// Sizing son los parámetros de tamaño compartidos por TODAS las variantes.
// Mantenerlos idénticos aísla la calidad de los criterios de entrada como
// única variable experimental entre estrategias.
type Sizing struct {
	MinPositionUSD float64
	MaxPositionUSD float64
	SlippagePct    float64
}

// SizeResult es el resultado del cálculo de tamaño de una posición.
// AmountUSD = 0 significa señal rechazada (ver Reason), no error.
type SizeResult struct {
	AmountUSD  float64
	EntryPrice float64 // ajustado por slippage
	Shares     float64
	Reason     string
}

// Size calcula el tamaño de la posición para una señal dado el cash
// disponible, delegando en las políticas numéricas compartidas de domain.
func (s Sizing) Size(sig domain.Signal, available float64) SizeResult {
	edge := sig.Edge()
	if edge < 0 {
		return SizeResult{Reason: fmt.Sprintf("negative edge %.2f%%", edge)}
	}

	amount := domain.PositionSize(available, edge, s.MinPositionUSD, s.MaxPositionUSD)
	if amount == 0 {
		return SizeResult{Reason: fmt.Sprintf(
			"size below floor $%.2f (available $%.2f, edge %.2f%%)",
			s.MinPositionUSD, available, edge)}
	}

	entryPrice := domain.BuyPrice(sig.Price, s.SlippagePct)
	return SizeResult{
		AmountUSD:  amount,
		EntryPrice: entryPrice,
		Shares:     amount / entryPrice,
		Reason: fmt.Sprintf("edge %.2f%% → %.1fx multiplier",
			edge, domain.EdgeMultiplier(edge)),
	}
}
