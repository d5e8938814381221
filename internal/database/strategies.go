package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/ats/internal/models"
)

const strategyColumns = `
	s.id, s.title, s.buy_signals, s.sell_signals, s.signal_logic, s.confirmation_candles,
	s.market_check_frequency, s.automation_mode, s.order_type, s.trade_amount,
	s.use_notional, s.use_balance_percent, s.stop_loss, s.take_profit, s.sl_tp_is_percent,
	s.default_timeframe, s.strategy_type, s.training_ticker, s.training_from_date,
	s.training_to_date, s.is_enabled, s.last_trained_at, s.last_checked,
	s.created_at, s.updated_at,
	COALESCE((SELECT array_agg(t.ticker ORDER BY t.position, t.id)
	          FROM strategy_tickers t WHERE t.strategy_id = s.id), '{}')
`

// CreateStrategy inserts a disabled strategy for a user
func (db *DB) CreateStrategy(ctx context.Context, userID int, d *models.StrategyDraft) (*models.Strategy, error) {
	buy, sell, err := marshalRules(d)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO strategies (
			user_id, title, buy_signals, sell_signals, signal_logic, confirmation_candles,
			market_check_frequency, automation_mode, order_type, trade_amount,
			use_notional, use_balance_percent, stop_loss, take_profit, sl_tp_is_percent,
			default_timeframe, strategy_type, training_ticker, training_from_date,
			training_to_date, is_enabled, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, false, $21, $21
		)
		RETURNING id
	`
	var id int
	err = db.conn.QueryRowContext(ctx, query,
		userID, d.Title, buy, sell, d.SignalLogic, d.ConfirmationCandles,
		d.MarketCheckFrequency, d.AutomationMode, d.OrderType, d.TradeAmount,
		d.UseNotional, d.UseBalancePercent, d.StopLoss, d.TakeProfit, d.SLTPIsPercent,
		d.DefaultTimeframe, strategyType(d), nullString(d.TrainingTicker),
		nullString(d.TrainingFromDate), nullString(d.TrainingToDate), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	return db.GetStrategy(ctx, userID, id)
}

// GetStrategy retrieves one strategy of a user with its tickers
func (db *DB) GetStrategy(ctx context.Context, userID, id int) (*models.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies s WHERE s.id = $1 AND s.user_id = $2`
	st, err := scanStrategy(db.conn.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("strategy %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return st, nil
}

// GetStrategies retrieves the strategies of a user, optionally only enabled ones
func (db *DB) GetStrategies(ctx context.Context, userID int, enabledOnly bool) ([]models.Strategy, error) {
	query := `
		SELECT ` + strategyColumns + `
		FROM strategies s
		WHERE s.user_id = $1 AND (s.is_enabled OR NOT $2)
		ORDER BY s.id ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	list := []models.Strategy{}
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		list = append(list, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}
	return list, nil
}

// UpdateStrategy replaces the editable fields of a disabled strategy
func (db *DB) UpdateStrategy(ctx context.Context, userID, id int, d *models.StrategyDraft) (*models.Strategy, error) {
	buy, sell, err := marshalRules(d)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE strategies SET
			title = $3, buy_signals = $4, sell_signals = $5, signal_logic = $6,
			confirmation_candles = $7, market_check_frequency = $8, automation_mode = $9,
			order_type = $10, trade_amount = $11, use_notional = $12, use_balance_percent = $13,
			stop_loss = $14, take_profit = $15, sl_tp_is_percent = $16, default_timeframe = $17,
			strategy_type = $18, training_ticker = $19, training_from_date = $20,
			training_to_date = $21, updated_at = $22
		WHERE id = $1 AND user_id = $2 AND NOT is_enabled
	`
	result, err := db.conn.ExecContext(ctx, query,
		id, userID, d.Title, buy, sell, d.SignalLogic,
		d.ConfirmationCandles, d.MarketCheckFrequency, d.AutomationMode,
		d.OrderType, d.TradeAmount, d.UseNotional, d.UseBalancePercent,
		d.StopLoss, d.TakeProfit, d.SLTPIsPercent, d.DefaultTimeframe,
		strategyType(d), nullString(d.TrainingTicker), nullString(d.TrainingFromDate),
		nullString(d.TrainingToDate), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, db.refusal(ctx, userID, id)
	}
	return db.GetStrategy(ctx, userID, id)
}

// DeleteStrategy removes a strategy; tickers and signal logs cascade
func (db *DB) DeleteStrategy(ctx context.Context, userID, id int) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("strategy %d: %w", id, ErrNotFound)
	}
	return nil
}

// EnableStrategy starts a strategy that has at least one ticker
func (db *DB) EnableStrategy(ctx context.Context, userID, id int) error {
	query := `
		UPDATE strategies SET is_enabled = true, updated_at = $3
		WHERE id = $1 AND user_id = $2
		  AND EXISTS (SELECT 1 FROM strategy_tickers t WHERE t.strategy_id = strategies.id)
	`
	result, err := db.conn.ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to enable strategy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := db.GetStrategy(ctx, userID, id); err != nil {
			return err
		}
		return ErrNoTickers
	}
	return nil
}

// DisableStrategy stops a strategy
func (db *DB) DisableStrategy(ctx context.Context, userID, id int) error {
	query := `UPDATE strategies SET is_enabled = false, updated_at = $3 WHERE id = $1 AND user_id = $2`
	result, err := db.conn.ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to disable strategy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("strategy %d: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceStrategyTickers swaps the full ticker set of a disabled strategy in one transaction
func (db *DB) ReplaceStrategyTickers(ctx context.Context, userID, id int, tickers []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var enabled bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_enabled FROM strategies WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID,
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("strategy %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock strategy: %w", err)
	}
	if enabled {
		return ErrStrategyEnabled
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM strategy_tickers WHERE strategy_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear strategy tickers: %w", err)
	}
	for i, ticker := range tickers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO strategy_tickers (strategy_id, ticker, position) VALUES ($1, $2, $3)`,
			id, ticker, i,
		); err != nil {
			return fmt.Errorf("failed to insert strategy ticker %s: %w", ticker, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE strategies SET updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to touch strategy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit strategy tickers: %w", err)
	}
	return nil
}

// GetStrategyTickers returns the ticker set in assignment order
func (db *DB) GetStrategyTickers(ctx context.Context, userID, id int) ([]string, error) {
	st, err := db.GetStrategy(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return st.Tickers, nil
}

// ClearModel forgets the training marker of a disabled strategy
func (db *DB) ClearModel(ctx context.Context, userID, id int) error {
	query := `
		UPDATE strategies SET last_trained_at = NULL, updated_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_enabled
	`
	result, err := db.conn.ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clear model: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return db.refusal(ctx, userID, id)
	}
	return nil
}

// MarkTrained records when the model of a strategy was last trained
func (db *DB) MarkTrained(ctx context.Context, strategyID int, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE strategies SET last_trained_at = $2 WHERE id = $1`, strategyID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark strategy trained: %w", err)
	}
	return nil
}

// TouchLastChecked records the time of the latest evaluation of a strategy
func (db *DB) TouchLastChecked(ctx context.Context, strategyID int, at time.Time) error {
	query := `
		UPDATE strategies SET last_checked = $2
		WHERE id = $1 AND (last_checked IS NULL OR last_checked < $2)
	`
	if _, err := db.conn.ExecContext(ctx, query, strategyID, at.UTC()); err != nil {
		return fmt.Errorf("failed to update last checked: %w", err)
	}
	return nil
}

// refusal explains why a conditional update on a strategy touched no row
func (db *DB) refusal(ctx context.Context, userID, id int) error {
	st, err := db.GetStrategy(ctx, userID, id)
	if err != nil {
		return err
	}
	if st.IsEnabled {
		return ErrStrategyEnabled
	}
	return fmt.Errorf("strategy %d changed concurrently", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStrategy(row rowScanner) (*models.Strategy, error) {
	var st models.Strategy
	var buy, sell []byte
	var stopLoss, takeProfit decimal.NullDecimal
	var trainingTicker, trainingFrom, trainingTo sql.NullString
	var lastTrained, lastChecked sql.NullTime
	var createdAt, updatedAt time.Time
	var tickers pq.StringArray

	err := row.Scan(
		&st.ID, &st.Title, &buy, &sell, &st.SignalLogic, &st.ConfirmationCandles,
		&st.MarketCheckFrequency, &st.AutomationMode, &st.OrderType, &st.TradeAmount,
		&st.UseNotional, &st.UseBalancePercent, &stopLoss, &takeProfit, &st.SLTPIsPercent,
		&st.DefaultTimeframe, &st.StrategyType, &trainingTicker, &trainingFrom,
		&trainingTo, &st.IsEnabled, &lastTrained, &lastChecked,
		&createdAt, &updatedAt, &tickers,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(buy, &st.BuySignals); err != nil {
		return nil, fmt.Errorf("failed to decode buy signals: %w", err)
	}
	if err := json.Unmarshal(sell, &st.SellSignals); err != nil {
		return nil, fmt.Errorf("failed to decode sell signals: %w", err)
	}
	if stopLoss.Valid {
		st.StopLoss = &stopLoss.Decimal
	}
	if takeProfit.Valid {
		st.TakeProfit = &takeProfit.Decimal
	}
	st.TrainingTicker = trainingTicker.String
	st.TrainingFromDate = trainingFrom.String
	st.TrainingToDate = trainingTo.String
	st.LastTrainedAt = nullTimestamp(lastTrained)
	st.LastChecked = nullTimestamp(lastChecked)
	st.CreatedAt = models.NewTimestamp(createdAt)
	st.UpdatedAt = models.NewTimestamp(updatedAt)
	st.Tickers = []string(tickers)
	if st.Tickers == nil {
		st.Tickers = []string{}
	}
	return &st, nil
}

func marshalRules(d *models.StrategyDraft) (buy, sell []byte, err error) {
	rules := func(r []models.SignalRule) []models.SignalRule {
		if r == nil {
			return []models.SignalRule{}
		}
		return r
	}
	if buy, err = json.Marshal(rules(d.BuySignals)); err != nil {
		return nil, nil, fmt.Errorf("failed to encode buy signals: %w", err)
	}
	if sell, err = json.Marshal(rules(d.SellSignals)); err != nil {
		return nil, nil, fmt.Errorf("failed to encode sell signals: %w", err)
	}
	return buy, sell, nil
}

func strategyType(d *models.StrategyDraft) string {
	if d.StrategyType == "" {
		return models.StrategyTypeRule
	}
	return d.StrategyType
}
