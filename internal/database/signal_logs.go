package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/ats/internal/models"
)

const signalColumns = `
	l.id, l.strategy_id, s.title, l.ticker, l.action, l.price, l.executed, l.result, l.created_at
`

// CreateSignalLog stores a signal event under the owner of its strategy and
// sets ev.UserID to that owner. It reports false when the event id was already stored.
func (db *DB) CreateSignalLog(ctx context.Context, ev *models.SignalEvent) (bool, error) {
	var debug interface{}
	if ev.DebugData != nil {
		b, err := json.Marshal(ev.DebugData)
		if err != nil {
			return false, fmt.Errorf("failed to encode debug data: %w", err)
		}
		debug = string(b)
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var owner int
	err := db.conn.QueryRowContext(ctx, `SELECT user_id FROM strategies WHERE id = $1`, ev.StrategyID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to create signal log: strategy %d: %w", ev.StrategyID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up strategy owner: %w", err)
	}
	ev.UserID = owner

	query := `
		INSERT INTO signal_logs (event_id, user_id, strategy_id, ticker, action, price, debug_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`
	var id int
	err = db.conn.QueryRowContext(ctx, query,
		ev.EventID, owner, ev.StrategyID, strings.ToUpper(ev.Ticker),
		strings.ToLower(ev.Action), ev.Price, debug, createdAt.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create signal log: %w", err)
	}
	return true, nil
}

// SignalLogExists reports whether an event id was already stored
func (db *DB) SignalLogExists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM signal_logs WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check signal log: %w", err)
	}
	return exists, nil
}

// GetRecentSignals returns a user's signals created after since, newest first
func (db *DB) GetRecentSignals(ctx context.Context, userID int, since time.Time, limit int) ([]models.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signal_logs l
		JOIN strategies s ON s.id = l.strategy_id
		WHERE l.user_id = $1 AND l.created_at >= $2
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $3
	`
	return scanSignals(db.conn.QueryContext(ctx, query, userID, since.UTC(), limit))
}

// GetStrategyLogs returns the latest signals of one strategy, newest first
func (db *DB) GetStrategyLogs(ctx context.Context, userID, strategyID, limit int) ([]models.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signal_logs l
		JOIN strategies s ON s.id = l.strategy_id
		WHERE l.user_id = $1 AND l.strategy_id = $2
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $3
	`
	return scanSignals(db.conn.QueryContext(ctx, query, userID, strategyID, limit))
}

// GetLastSignal returns the latest action for a strategy and ticker, nil when there is none.
// Tickers match case-insensitively.
func (db *DB) GetLastSignal(ctx context.Context, userID, strategyID int, ticker string) (*string, error) {
	query := `
		SELECT action
		FROM signal_logs
		WHERE user_id = $1 AND strategy_id = $2 AND UPPER(ticker) = UPPER($3)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var action string
	err := db.conn.QueryRowContext(ctx, query, userID, strategyID, ticker).Scan(&action)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last signal: %w", err)
	}
	action = strings.ToUpper(action)
	return &action, nil
}

// GetLastSignalsByStrategy returns the latest upper-cased action per ticker of one strategy
func (db *DB) GetLastSignalsByStrategy(ctx context.Context, userID, strategyID int) (map[string]string, error) {
	query := `
		SELECT DISTINCT ON (UPPER(ticker)) UPPER(ticker), action
		FROM signal_logs
		WHERE user_id = $1 AND strategy_id = $2
		ORDER BY UPPER(ticker), created_at DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last signals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var ticker, action string
		if err := rows.Scan(&ticker, &action); err != nil {
			return nil, fmt.Errorf("failed to scan last signal: %w", err)
		}
		out[ticker] = strings.ToUpper(action)
	}
	return out, rows.Err()
}

func scanSignals(rows *sql.Rows, err error) ([]models.Signal, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query signal logs: %w", err)
	}
	defer rows.Close()

	signals := []models.Signal{}
	for rows.Next() {
		var sig models.Signal
		var price decimal.NullDecimal
		var result sql.NullString
		var createdAt time.Time

		if err := rows.Scan(
			&sig.ID, &sig.StrategyID, &sig.StrategyTitle, &sig.Ticker, &sig.Action,
			&price, &sig.Executed, &result, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signal log: %w", err)
		}
		sig.Price = price
		sig.Result = result.String
		sig.CreatedAt = models.NewTimestamp(createdAt)
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signal logs: %w", err)
	}
	return signals, nil
}
