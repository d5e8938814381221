package database

import (
	"context"
	"fmt"
	"time"
)

// AddUserStock adds a ticker to a user's watchlist; adding it twice is a no-op
func (db *DB) AddUserStock(ctx context.Context, userID int, ticker string) error {
	query := `
		INSERT INTO user_stocks (user_id, ticker, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, ticker) DO NOTHING
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, ticker, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add user stock: %w", err)
	}
	return nil
}

// RemoveUserStock removes a ticker from a user's watchlist
func (db *DB) RemoveUserStock(ctx context.Context, userID int, ticker string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM user_stocks WHERE user_id = $1 AND ticker = $2`, userID, ticker)
	if err != nil {
		return fmt.Errorf("failed to remove user stock: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user stock %s: %w", ticker, ErrNotFound)
	}
	return nil
}

// GetUserStocks returns a user's watchlist in the order it was built
func (db *DB) GetUserStocks(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT ticker
		FROM user_stocks
		WHERE user_id = $1
		ORDER BY added_at ASC, id ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stocks: %w", err)
	}
	defer rows.Close()

	tickers := []string{}
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	return tickers, rows.Err()
}
