package storage

// sqlite.go — persistencia de runs terminados.
//
// Estrategia:
//   - `runs`: una fila por simulación terminada.
//   - `rankings`: una fila por estrategia y run, con sus métricas finales.
//   - `positions`: las posiciones cerradas de cada estrategia (las abiertas
//     al cierre se guardan con status OPEN, para auditoría).
//   - Prune automático al arrancar: runs con más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    ended_at   DATETIME NOT NULL,
    saved_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rankings (
    run_id       TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    strategy     TEXT    NOT NULL,
    rank         INTEGER NOT NULL,
    final_value  REAL    NOT NULL DEFAULT 0,
    total_pnl    REAL    NOT NULL DEFAULT 0,
    roi_pct      REAL    NOT NULL DEFAULT 0,
    win_rate     REAL    NOT NULL DEFAULT 0,
    trades       INTEGER NOT NULL DEFAULT 0,
    wins         INTEGER NOT NULL DEFAULT 0,
    losses       INTEGER NOT NULL DEFAULT 0,
    max_drawdown REAL    NOT NULL DEFAULT 0,
    sharpe       REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, strategy)
);

CREATE TABLE IF NOT EXISTS positions (
    id           TEXT NOT NULL,
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    strategy     TEXT NOT NULL,
    condition_id TEXT NOT NULL,
    title        TEXT,
    outcome      TEXT NOT NULL,
    status       TEXT NOT NULL,
    entry_price  REAL NOT NULL DEFAULT 0,
    raw_price    REAL NOT NULL DEFAULT 0,
    shares       REAL NOT NULL DEFAULT 0,
    invested     REAL NOT NULL DEFAULT 0,
    pnl          REAL NOT NULL DEFAULT 0,
    roi_pct      REAL NOT NULL DEFAULT 0,
    entered_at   DATETIME NOT NULL,
    exited_at    DATETIME,
    PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_runs_ended     ON runs(ended_at DESC);
CREATE INDEX IF NOT EXISTS idx_rankings_roi   ON rankings(roi_pct DESC);
CREATE INDEX IF NOT EXISTS idx_positions_run  ON positions(run_id, strategy);
`

const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.ResultStorage usando SQLite (pure Go, sin
// CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveResult persiste un run terminado con sus rankings y posiciones.
func (s *SQLiteStorage) SaveResult(ctx context.Context, result domain.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, ended_at, saved_at) VALUES (?, ?, ?, ?)`,
		result.RunID, result.StartedAt.UTC(), result.EndedAt.UTC(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveResult: insert run: %w", err)
	}

	rankStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO rankings
			(run_id, strategy, rank, final_value, total_pnl, roi_pct,
			 win_rate, trades, wins, losses, max_drawdown, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: prepare rankings: %w", err)
	}
	defer rankStmt.Close()

	posStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO positions
			(id, run_id, strategy, condition_id, title, outcome, status,
			 entry_price, raw_price, shares, invested, pnl, roi_pct,
			 entered_at, exited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: prepare positions: %w", err)
	}
	defer posStmt.Close()

	for _, sr := range result.Rankings {
		if _, err := rankStmt.ExecContext(ctx,
			result.RunID, sr.Strategy, sr.Rank, sr.FinalValue, sr.TotalPnL,
			sr.ROIPct, sr.WinRate, sr.Trades, sr.Wins, sr.Losses,
			sr.MaxDrawdown, sr.Sharpe,
		); err != nil {
			return fmt.Errorf("storage.SaveResult: upsert ranking %s: %w", sr.Strategy, err)
		}

		for _, pos := range append(append([]domain.Position(nil), sr.Closed...), sr.Open...) {
			var exitedAt *time.Time
			if pos.ExitedAt != nil {
				t := pos.ExitedAt.UTC()
				exitedAt = &t
			}
			if _, err := posStmt.ExecContext(ctx,
				pos.ID, result.RunID, sr.Strategy, pos.ConditionID, pos.Title,
				string(pos.Outcome), string(pos.Status),
				pos.EntryPrice, pos.RawPrice, pos.Shares, pos.Invested,
				pos.RealizedPnL, pos.ROIPct,
				pos.EnteredAt.UTC(), exitedAt,
			); err != nil {
				return fmt.Errorf("storage.SaveResult: upsert position %s: %w", pos.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveResult: commit: %w", err)
	}
	return nil
}

// GetResults devuelve los runs cuyo ended_at está en el rango dado, más
// recientes primero, con sus rankings (sin posiciones ni series — para
// listados; las posiciones quedan consultables por SQL directo).
func (s *SQLiteStorage) GetResults(ctx context.Context, from, to time.Time) ([]domain.RunResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at FROM runs
		WHERE ended_at BETWEEN ? AND ?
		ORDER BY ended_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetResults: query runs: %w", err)
	}
	defer rows.Close()

	var results []domain.RunResult
	for rows.Next() {
		var r domain.RunResult
		var started, ended string
		if err := rows.Scan(&r.RunID, &started, &ended); err != nil {
			return nil, fmt.Errorf("storage.GetResults: scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.EndedAt, _ = time.Parse(time.RFC3339, ended)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		rankings, err := s.getRankings(ctx, results[i].RunID)
		if err != nil {
			return nil, err
		}
		results[i].Rankings = rankings
	}

	return results, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) getRankings(ctx context.Context, runID string) ([]domain.StrategyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, rank, final_value, total_pnl, roi_pct,
		       win_rate, trades, wins, losses, max_drawdown, sharpe
		FROM rankings WHERE run_id = ? ORDER BY rank ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.getRankings: %w", err)
	}
	defer rows.Close()

	var rankings []domain.StrategyResult
	for rows.Next() {
		var sr domain.StrategyResult
		if err := rows.Scan(
			&sr.Strategy, &sr.Rank, &sr.FinalValue, &sr.TotalPnL, &sr.ROIPct,
			&sr.WinRate, &sr.Trades, &sr.Wins, &sr.Losses, &sr.MaxDrawdown, &sr.Sharpe,
		); err != nil {
			return nil, fmt.Errorf("storage.getRankings: scan: %w", err)
		}
		rankings = append(rankings, sr)
	}
	return rankings, rows.Err()
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM positions WHERE run_id IN (SELECT id FROM runs WHERE ended_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM rankings  WHERE run_id IN (SELECT id FROM runs WHERE ended_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE ended_at < ?`, cutoff)
}
