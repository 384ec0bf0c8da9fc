package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// SignalFeed entrega en tiempo real los trades de los traders seguidos,
// ya normalizados a señales del dominio.
type SignalFeed interface {
	FetchSignals(ctx context.Context, since time.Time) ([]domain.Signal, error)
}
