package domain

import "math"

// sizing.go — políticas numéricas compartidas por todas las estrategias.
//
// El sizing es idéntico para todas las variantes a propósito: la única
// variable experimental entre estrategias son los criterios de entrada.

const (
	// BaseSizePct es la fracción del cash disponible usada como base.
	BaseSizePct = 0.05

	maxBuyPrice  = 0.99
	minSellPrice = 0.01
)

// EdgeMultiplier devuelve el multiplicador de sizing según el bucket de edge.
// Edge negativo → 0 (la señal se rechaza, no es un error).
//
//	edge < 0   → 0.0
//	[0, 2)     → 0.5
//	[2, 5)     → 1.0
//	[5, 10)    → 1.5
//	[10, ∞)    → 2.0
func EdgeMultiplier(edgePct float64) float64 {
	switch {
	case edgePct < 0:
		return 0
	case edgePct < 2:
		return 0.5
	case edgePct < 5:
		return 1.0
	case edgePct < 10:
		return 1.5
	default:
		return 2.0
	}
}

// PositionSize calcula el tamaño de una posición en USDC.
// base = 5% del cash disponible × multiplicador de edge, recortado primero
// a [minUSD, maxUSD] y después al cash disponible.
//
// Devuelve 0 si el edge es negativo o si el tamaño recortado queda por
// debajo de minUSD — en ambos casos la señal simplemente no se opera.
func PositionSize(available, edgePct, minUSD, maxUSD float64) float64 {
	mult := EdgeMultiplier(edgePct)
	if mult == 0 {
		return 0
	}

	size := available * BaseSizePct * mult
	if size < minUSD {
		size = minUSD
	}
	if size > maxUSD {
		size = maxUSD
	}
	if size > available {
		size = available
	}
	if size < minUSD {
		return 0
	}
	return size
}

// BuyPrice devuelve el precio de entrada ajustado por slippage para un buy.
// Cap a 0.99: una share nunca cuesta $1 o más.
func BuyPrice(rawPrice, slippagePct float64) float64 {
	return math.Min(maxBuyPrice, rawPrice*(1+slippagePct))
}

// SellPrice es la fórmula simétrica para el lado sell. Definida por
// completitud: el path de entrada de este engine solo hace buys.
func SellPrice(rawPrice, slippagePct float64) float64 {
	return math.Max(minSellPrice, rawPrice*(1-slippagePct))
}

// KellyFraction devuelve la fracción de Kelly para una apuesta binaria a
// precio `price` con probabilidad de ganar `winProb`. El payout de una
// share ganadora es $1, así que b = (1-price)/price.
// Resultado recortado a [0, 1]; inputs inválidos → 0.
func KellyFraction(winProb, price float64) float64 {
	if price <= 0 || price >= 1 || winProb <= 0 || winProb >= 1 {
		return 0
	}
	b := (1 - price) / price
	f := (winProb*b - (1 - winProb)) / b
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// CompositeWeights son los pesos de la variante weighted. No hace falta que
// sumen 1: el score se renormaliza por la suma de pesos realmente usados.
type CompositeWeights struct {
	ValueScore    float64
	PolyScore     float64
	Edge          float64
	TraderWinRate float64
	TraderROI     float64
	Conviction    float64
}

// Escalas para llevar cada término a un rango común 0-100 antes de ponderar.
// ValueScore, PolyScore y WinRate ya vienen en 0-100.
const (
	edgeScale       = 5.0  // 20% de edge → 100
	roiScale        = 2.0  // 50% de ROI → 100
	convictionScale = 20.0 // 5× su tamaño medio → 100
)

// CompositeScore calcula el score compuesto 0-100 de una señal.
// Solo participa un término si su campo está presente en la señal; la suma
// se renormaliza por los pesos realmente usados. Un campo ausente nunca
// cuenta como cero.
//
// Devuelve (0, false) si ningún término ponderado está presente.
func CompositeScore(sig Signal, w CompositeWeights) (float64, bool) {
	var sum, used float64

	add := func(weight float64, field *float64, scale float64) {
		if weight <= 0 || field == nil {
			return
		}
		v := *field * scale
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		sum += weight * v
		used += weight
	}

	add(w.ValueScore, sig.ValueScore, 1)
	add(w.PolyScore, sig.PolyScore, 1)
	add(w.Edge, sig.EdgePct, edgeScale)
	add(w.TraderWinRate, sig.TraderWinRate, 1)
	add(w.TraderROI, sig.TraderROI, roiScale)
	add(w.Conviction, sig.Conviction, convictionScale)

	if used == 0 {
		return 0, false
	}
	return sum / used, true
}
