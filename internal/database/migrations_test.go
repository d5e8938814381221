package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		for _, tableName := range []string{"strategies", "strategy_tickers", "user_stocks", "signal_logs"} {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("strategies table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":                     "integer",
			"user_id":                "integer",
			"title":                  "character varying",
			"buy_signals":            "jsonb",
			"sell_signals":           "jsonb",
			"trade_amount":           "numeric",
			"stop_loss":              "numeric",
			"take_profit":            "numeric",
			"use_notional":           "boolean",
			"use_balance_percent":    "boolean",
			"market_check_frequency": "character varying",
			"is_enabled":             "boolean",
			"last_trained_at":        "timestamp without time zone",
			"created_at":             "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'strategies' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in strategies table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("signal_logs table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "event_id", "user_id", "strategy_id", "ticker", "action",
			"price", "debug_data", "executed", "result", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'signal_logs' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in signal_logs table", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"strategies", "idx_strategies_user_id"},
			{"signal_logs", "idx_signal_logs_strategy_ticker"},
			{"signal_logs", "idx_signal_logs_user_created"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on %s", idx.index, idx.table)
		}
	})

	t.Run("sizing flags cannot both be set", func(t *testing.T) {
		_, err := testDB.GetRawConn().Exec(`
			INSERT INTO strategies (user_id, title, use_notional, use_balance_percent)
			VALUES (1, 'both', true, true)
		`)
		assert.Error(t, err)
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		assert.NoError(t, testDB.Migrate(MigrationsDir()))
	})
}
