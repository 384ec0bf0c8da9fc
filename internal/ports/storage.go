package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

// ResultStorage persiste los resultados de simulaciones terminadas.
type ResultStorage interface {
	// SaveResult guarda rankings y posiciones de un run terminado.
	SaveResult(ctx context.Context, result domain.RunResult) error

	// GetResults devuelve los runs guardados en el rango de tiempo dado,
	// más recientes primero.
	GetResults(ctx context.Context, from, to time.Time) ([]domain.RunResult, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
