package storage

// sqlite.go — diario de trading persistente.
//
// Estrategia:
//   - `signals`: una fila por evaluación con señal accionable o trade.
//     Los HOLD rutinarios no se persisten: son la inmensa mayoría y no
//     aportan señal útil como histórico.
//   - `trades`: una fila por operación resuelta, con el contexto de entrada
//     completo para análisis posterior.
//   - `redemptions`: una fila por redención completada.
//   - Prune automático al arrancar: signals > 14d, trades > 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Evaluaciones de señal accionables
CREATE TABLE IF NOT EXISTS signals (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    at         DATETIME NOT NULL,
    asset      TEXT     NOT NULL,
    market_id  TEXT     NOT NULL,
    direction  TEXT     NOT NULL,
    edge       REAL     NOT NULL DEFAULT 0,
    confidence REAL     NOT NULL DEFAULT 0,
    phase      TEXT     NOT NULL,
    reasons    TEXT,
    traded     INTEGER  NOT NULL DEFAULT 0
);

-- Operaciones resueltas
CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    at          DATETIME NOT NULL,
    asset       TEXT     NOT NULL,
    market_id   TEXT     NOT NULL,
    side        TEXT     NOT NULL,
    entry_price REAL     NOT NULL DEFAULT 0,
    size_usdc   REAL     NOT NULL DEFAULT 0,
    edge        REAL     NOT NULL DEFAULT 0,
    phase       TEXT     NOT NULL,
    leader_conf REAL     NOT NULL DEFAULT 0,
    outcome     TEXT     NOT NULL,
    pnl         REAL     NOT NULL DEFAULT 0
);

-- Redenciones completadas
CREATE TABLE IF NOT EXISTS redemptions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    at           DATETIME NOT NULL,
    condition_id TEXT     NOT NULL,
    token_id     TEXT     NOT NULL,
    amount       REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_signals_at ON signals(at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_at  ON trades(at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_mkt ON trades(market_id);
`

const (
	retentionSignals = 14 * 24 * time.Hour
	retentionTrades  = 90 * 24 * time.Hour
)

// SQLiteJournal implementa ports.TradeStore usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia datos antiguos.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	j.pruneOld(context.Background())
	return j, nil
}

// LogSignal persiste una evaluación de señal.
func (j *SQLiteJournal) LogSignal(ctx context.Context, entry domain.SignalLogEntry) error {
	traded := 0
	if entry.Traded {
		traded = 1
	}
	if _, err := j.db.ExecContext(ctx, `
		INSERT INTO signals (at, asset, market_id, direction, edge, confidence, phase, reasons, traded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC(),
		string(entry.Asset),
		entry.MarketID,
		string(entry.Direction),
		entry.Edge,
		entry.Confidence,
		string(entry.Phase),
		entry.Reasons,
		traded,
	); err != nil {
		return fmt.Errorf("storage.LogSignal: %w", err)
	}
	return nil
}

// LogTrade persiste una operación resuelta.
func (j *SQLiteJournal) LogTrade(ctx context.Context, entry domain.TradeLogEntry) error {
	if _, err := j.db.ExecContext(ctx, `
		INSERT INTO trades (at, asset, market_id, side, entry_price, size_usdc, edge, phase, leader_conf, outcome, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC(),
		string(entry.Asset),
		entry.MarketID,
		string(entry.Side),
		entry.EntryPrice,
		entry.SizeUSDC,
		entry.EdgeAtEntry,
		string(entry.Phase),
		entry.LeaderConfidence,
		entry.Outcome,
		entry.PnL,
	); err != nil {
		return fmt.Errorf("storage.LogTrade: %w", err)
	}
	return nil
}

// LogRedemption persiste una redención completada.
func (j *SQLiteJournal) LogRedemption(ctx context.Context, result domain.RedemptionResult) error {
	if _, err := j.db.ExecContext(ctx, `
		INSERT INTO redemptions (at, condition_id, token_id, amount)
		VALUES (?, ?, ?, ?)`,
		result.Timestamp.UTC(),
		result.ConditionID,
		result.TokenID,
		result.Amount,
	); err != nil {
		return fmt.Errorf("storage.LogRedemption: %w", err)
	}
	return nil
}

// RecentTrades devuelve las últimas n operaciones resueltas, más recientes
// primero.
func (j *SQLiteJournal) RecentTrades(ctx context.Context, n int) ([]domain.TradeLogEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT at, asset, market_id, side, entry_price, size_usdc, edge, phase, leader_conf, outcome, pnl
		FROM trades
		ORDER BY at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeLogEntry
	for rows.Next() {
		var entry domain.TradeLogEntry
		var at, asset, side, phase string

		if err := rows.Scan(
			&at,
			&asset,
			&entry.MarketID,
			&side,
			&entry.EntryPrice,
			&entry.SizeUSDC,
			&entry.EdgeAtEntry,
			&phase,
			&entry.LeaderConfidence,
			&entry.Outcome,
			&entry.PnL,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentTrades: scan row: %w", err)
		}

		entry.Timestamp, _ = time.Parse(time.RFC3339, at)
		entry.Asset = domain.Asset(asset)
		entry.Side = domain.SignalDirection(side)
		entry.Phase = domain.MarketPhase(phase)
		trades = append(trades, entry)
	}

	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (j *SQLiteJournal) pruneOld(ctx context.Context) {
	cutoffSignals := time.Now().UTC().Add(-retentionSignals)
	cutoffTrades := time.Now().UTC().Add(-retentionTrades)
	j.db.ExecContext(ctx, `DELETE FROM signals WHERE at < ?`, cutoffSignals)
	j.db.ExecContext(ctx, `DELETE FROM trades WHERE at < ?`, cutoffTrades)
}
