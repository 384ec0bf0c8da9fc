package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// mapTrade convierte un trade crudo de la Data API en una señal del
// dominio. Devuelve false para trades fuera de contrato: sin mercado, sin
// precio válido, lado sell o timestamp fuera del rango pedido.
func mapTrade(rt rawDataTrade, from, to time.Time) (domain.Signal, bool) {
	if rt.ConditionID == "" {
		return domain.Signal{}, false
	}
	if !strings.EqualFold(rt.Side, "BUY") {
		return domain.Signal{}, false
	}

	price, _ := rt.Price.Float64()
	if price <= 0 || price >= 1 {
		return domain.Signal{}, false
	}

	ts := parseTradeTimestamp(rt.Timestamp)
	if ts.IsZero() || ts.Before(from) || !ts.Before(to) {
		return domain.Signal{}, false
	}

	return domain.Signal{
		ConditionID:   rt.ConditionID,
		TokenID:       rt.Asset,
		Slug:          rt.Slug,
		Title:         rt.Title,
		Outcome:       mapOutcome(rt.Outcome),
		Price:         price,
		Timestamp:     ts,
		Structure:     domain.BetStandard,
		SourceTradeID: rt.ID,
		SourceWallet:  rt.ProxyWallet,
	}, true
}

// mapOutcome normaliza el outcome textual de la API ("Yes"/"No").
func mapOutcome(s string) domain.Outcome {
	if strings.EqualFold(s, "No") {
		return domain.OutcomeNo
	}
	return domain.OutcomeYes
}

// parseTradeTimestamp acepta unix (segundos o milisegundos), float o ISO.
func parseTradeTimestamp(n json.Number) time.Time {
	s := n.String()
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec > 1e12 {
			return time.Unix(sec/1000, (sec%1000)*int64(time.Millisecond)).UTC()
		}
		return time.Unix(sec, 0).UTC()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC()
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseOutcomePrices interpreta el campo outcomePrices de Gamma, que llega
// como string JSON embebido: "[\"1\", \"0\"]". El índice 0 es YES.
func parseOutcomePrices(raw string) (yes, no float64, ok bool) {
	var prices []string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil || len(prices) < 2 {
		return 0, 0, false
	}
	y, err1 := strconv.ParseFloat(prices[0], 64)
	n, err2 := strconv.ParseFloat(prices[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return y, n, true
}
