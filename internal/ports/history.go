package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// TradeHistory obtiene trades buy históricos de traders seguidos dentro de
// un rango de fechas, ordenados por timestamp ascendente.
type TradeHistory interface {
	FetchTrades(ctx context.Context, from, to time.Time) ([]domain.Signal, error)
}

// ResolutionProvider resuelve el resultado final de un mercado.
type ResolutionProvider interface {
	FetchResolution(ctx context.Context, conditionID string) (domain.Resolution, error)
}

// History agrupa lo que necesita un backtest multi-periodo.
type History interface {
	TradeHistory
	ResolutionProvider
}
