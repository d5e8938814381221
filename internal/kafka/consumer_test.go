package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ats/internal/models"
)

// MockRepository implements the SignalRepository interface for testing
type MockRepository struct {
	logs    map[string]*models.SignalEvent // key: event id
	checked map[int]time.Time
	trained map[int]time.Time
	owners  map[int]int // strategy id -> user id
	failOn  string

	// Track method calls for verification
	CreateSignalLogCalls  int
	TouchLastCheckedCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		logs:    make(map[string]*models.SignalEvent),
		checked: make(map[int]time.Time),
		trained: make(map[int]time.Time),
		owners:  make(map[int]int),
	}
}

func (m *MockRepository) SignalLogExists(_ context.Context, eventID string) (bool, error) {
	_, exists := m.logs[eventID]
	return exists, nil
}

func (m *MockRepository) CreateSignalLog(_ context.Context, ev *models.SignalEvent) (bool, error) {
	m.CreateSignalLogCalls++
	if m.failOn != "" && ev.EventID == m.failOn {
		return false, errors.New("insert failed")
	}
	if _, exists := m.logs[ev.EventID]; exists {
		return false, nil
	}
	if owner, ok := m.owners[ev.StrategyID]; ok {
		ev.UserID = owner
	}
	m.logs[ev.EventID] = ev
	return true, nil
}

func (m *MockRepository) TouchLastChecked(_ context.Context, strategyID int, at time.Time) error {
	m.TouchLastCheckedCalls++
	if at.After(m.checked[strategyID]) {
		m.checked[strategyID] = at
	}
	return nil
}

func (m *MockRepository) MarkTrained(_ context.Context, strategyID int, at time.Time) error {
	m.trained[strategyID] = at
	return nil
}

// mockCache records the last action per strategy and ticker
type mockCache struct {
	actions map[int]map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{actions: make(map[int]map[string]string)}
}

func (m *mockCache) Get(_ context.Context, strategyID int) (map[string]string, bool, error) {
	got, ok := m.actions[strategyID]
	return got, ok, nil
}

func (m *mockCache) Set(_ context.Context, strategyID int, ticker, action string, _ time.Time) error {
	if m.actions[strategyID] == nil {
		m.actions[strategyID] = make(map[string]string)
	}
	m.actions[strategyID][strings.ToUpper(ticker)] = strings.ToUpper(action)
	return nil
}

func (m *mockCache) Drop(_ context.Context, strategyID int) error {
	delete(m.actions, strategyID)
	return nil
}

func newTestConsumer(repo SignalRepository, c *mockCache) *SignalConsumer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return newSignalConsumer(nil, repo, c, logger)
}

// Helper function to encode a signal event as a Kafka payload
func signalPayload(t *testing.T, id, eventType string, strategyID int, ticker, action string, at time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(models.SignalEvent{
		EventID:    id,
		EventType:  eventType,
		UserID:     1,
		StrategyID: strategyID,
		Ticker:     ticker,
		Action:     action,
		Price:      decimal.NewNullDecimal(decimal.NewFromFloat(187.25)),
		CreatedAt:  at,
	})
	require.NoError(t, err)
	return data
}

func TestProcessMessageStoresSignal(t *testing.T) {
	repo := NewMockRepository()
	c := newMockCache()
	consumer := newTestConsumer(repo, c)
	at := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	err := consumer.processMessage(context.Background(), signalPayload(t, "ev-1", models.EventSignalEmitted, 7, "aapl", "buy", at))
	require.NoError(t, err)

	require.Contains(t, repo.logs, "ev-1")
	assert.True(t, repo.logs["ev-1"].Price.Decimal.Equal(decimal.NewFromFloat(187.25)))
	assert.Equal(t, at, repo.checked[7])
	assert.Equal(t, map[string]string{"AAPL": "BUY"}, c.actions[7])
}

func TestProcessMessageSkipsDuplicates(t *testing.T) {
	repo := NewMockRepository()
	c := newMockCache()
	consumer := newTestConsumer(repo, c)
	now := time.Now()

	require.NoError(t, consumer.processMessage(context.Background(), signalPayload(t, "ev-1", models.EventSignalEmitted, 7, "AAPL", "buy", now)))
	require.NoError(t, consumer.processMessage(context.Background(), signalPayload(t, "ev-1", models.EventSignalEmitted, 7, "AAPL", "sell", now.Add(time.Minute))))

	assert.Equal(t, 1, repo.CreateSignalLogCalls)
	assert.Equal(t, 1, repo.TouchLastCheckedCalls)
	assert.Equal(t, "BUY", c.actions[7]["AAPL"])
}

func TestProcessMessageIgnoresOtherEventTypes(t *testing.T) {
	repo := NewMockRepository()
	c := newMockCache()
	consumer := newTestConsumer(repo, c)

	err := consumer.processMessage(context.Background(), signalPayload(t, "ev-1", "SIGNAL_EXPIRED", 7, "AAPL", "buy", time.Now()))
	require.NoError(t, err)

	assert.Empty(t, repo.logs)
	assert.Empty(t, c.actions)
}

func TestProcessMessageMarksModelTrained(t *testing.T) {
	repo := NewMockRepository()
	c := newMockCache()
	consumer := newTestConsumer(repo, c)
	at := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	err := consumer.processMessage(context.Background(), signalPayload(t, "ev-1", models.EventModelTrained, 7, "", "", at))
	require.NoError(t, err)

	assert.Equal(t, at, repo.trained[7])
	assert.Empty(t, repo.logs)
	assert.Empty(t, c.actions)
}

func TestProcessMessageAssignsMissingEventID(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo, newMockCache())

	err := consumer.processMessage(context.Background(), signalPayload(t, "", models.EventSignalEmitted, 7, "AAPL", "hold", time.Time{}))
	require.NoError(t, err)

	require.Len(t, repo.logs, 1)
	for id, ev := range repo.logs {
		assert.NotEmpty(t, id)
		assert.False(t, ev.CreatedAt.IsZero())
	}
}

func TestProcessMessageRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload func(t *testing.T) []byte
	}{
		{"Malformed JSON", func(*testing.T) []byte { return []byte("{not json") }},
		{"Missing strategy", func(t *testing.T) []byte {
			return signalPayload(t, "ev-1", models.EventSignalEmitted, 0, "AAPL", "buy", time.Now())
		}},
		{"Missing ticker", func(t *testing.T) []byte {
			return signalPayload(t, "ev-1", models.EventSignalEmitted, 7, " ", "buy", time.Now())
		}},
		{"Missing action", func(t *testing.T) []byte {
			return signalPayload(t, "ev-1", models.EventSignalEmitted, 7, "AAPL", "", time.Now())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRepository()
			consumer := newTestConsumer(repo, newMockCache())

			assert.Error(t, consumer.processMessage(context.Background(), tt.payload(t)))
			assert.Empty(t, repo.logs)
		})
	}
}

func TestProcessMessageDoesNotCacheFailedInserts(t *testing.T) {
	repo := NewMockRepository()
	repo.failOn = "ev-1"
	c := newMockCache()
	consumer := newTestConsumer(repo, c)

	err := consumer.processMessage(context.Background(), signalPayload(t, "ev-1", models.EventSignalEmitted, 7, "AAPL", "buy", time.Now()))
	assert.Error(t, err)
	assert.Empty(t, c.actions)
	assert.Zero(t, repo.TouchLastCheckedCalls)
}

func TestProcessMessageStoresSignalUnderStrategyOwner(t *testing.T) {
	repo := NewMockRepository()
	repo.owners[7] = 3
	c := newMockCache()
	consumer := newTestConsumer(repo, c)

	payload := []byte(`{"event_id":"e1","event_type":"SIGNAL_EMITTED","strategy_id":7,"ticker":"AAPL","action":"buy"}`)
	require.NoError(t, consumer.processMessage(context.Background(), payload))

	require.Contains(t, repo.logs, "e1")
	assert.Equal(t, 3, repo.logs["e1"].UserID)
	assert.Equal(t, "BUY", c.actions[7]["AAPL"])

	require.NoError(t, consumer.processMessage(context.Background(), signalPayload(t, "e2", models.EventSignalEmitted, 7, "MSFT", "sell", time.Now())))
	assert.Equal(t, 3, repo.logs["e2"].UserID, "the event user is replaced by the owner")
}
