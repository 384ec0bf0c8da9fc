package polymarket

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/copysim/internal/domain"
)

const gammaMarketsPath = "/markets"

// FetchResolution implementa ports.ResolutionProvider: consulta Gamma por
// condition_id y deriva el lado ganador de los precios finales del mercado.
// Un mercado aún abierto devuelve Closed=false y el caller decide no
// programar resolución.
func (c *Client) FetchResolution(ctx context.Context, conditionID string) (domain.Resolution, error) {
	url := fmt.Sprintf("%s%s?condition_ids=%s", c.gammaBase, gammaMarketsPath, conditionID)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return domain.Resolution{}, fmt.Errorf("gamma.FetchResolution %s: %w", conditionID, err)
	}

	if len(resp) == 0 {
		return domain.Resolution{ConditionID: conditionID}, nil
	}

	gm := resp[0]
	res := domain.Resolution{ConditionID: conditionID, Closed: gm.Closed}
	if !gm.Closed {
		return res, nil
	}

	yes, no, ok := parseOutcomePrices(gm.RawOutcomePrices)
	if !ok {
		// Cerrado pero sin precios finales parseables: tratar como abierto
		// antes que inventar un ganador.
		res.Closed = false
		return res, nil
	}

	if yes >= no {
		res.Winning = domain.OutcomeYes
	} else {
		res.Winning = domain.OutcomeNo
	}
	return res, nil
}
