package ports

import (
	"context"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// Notifier presenta resultados al usuario (consola, dashboard, etc.).
type Notifier interface {
	// NotifyResult presenta los rankings finales de un run.
	NotifyResult(ctx context.Context, result domain.RunResult) error

	// NotifyBacktest presenta el agregado de un backtest multi-periodo.
	NotifyBacktest(ctx context.Context, report domain.BacktestReport) error
}
