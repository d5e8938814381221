package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ats/internal/config"
	"github.com/trogers1052/ats/internal/models"
	"github.com/trogers1052/ats/internal/strategy"
)

// fakeAPI is a minimal in-memory server for the endpoints the commands call
type fakeAPI struct {
	mu      sync.Mutex
	token   string
	created []models.StrategyDraft
	tickers map[string][]string
	calls   []string
	signals []models.Signal
	trades  []models.TradeLog
	broker  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{token: "tok-1", tickers: map[string][]string{}}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, models.Token{AccessToken: f.token, TokenType: "bearer"})
	})
	mux.HandleFunc("POST /logout", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.MessageResponse{Success: true})
	}))
	mux.HandleFunc("GET /users/me", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.User{ID: 7, Username: "alice", Email: "alice@example.com"})
	}))
	mux.HandleFunc("POST /strategies", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var d models.StrategyDraft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.created = append(f.created, d)
		writeJSON(w, http.StatusCreated, models.Strategy{ID: 1, StrategyDraft: d})
	}))
	mux.HandleFunc("GET /strategies/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Strategy{
			ID:            1,
			StrategyDraft: models.StrategyDraft{Title: "RSI dip", StrategyType: models.StrategyTypeRule},
		})
	}))
	mux.HandleFunc("GET /strategies/{id}/tickers", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"tickers": f.tickers[r.PathValue("id")]})
	}))
	mux.HandleFunc("POST /strategies/{id}/tickers", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tickers []string `json:"tickers"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.tickers[r.PathValue("id")] = body.Tickers
		writeJSON(w, http.StatusOK, body)
	}))
	mux.HandleFunc("PUT /strategies/{id}/enable", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Strategy{ID: 1, IsEnabled: true})
	}))
	mux.HandleFunc("GET /signals/recent", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.signals)
	}))
	mux.HandleFunc("GET /user/broker/check", f.authed(func(w http.ResponseWriter, r *http.Request) {
		if !f.broker {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No broker connected"})
			return
		}
		writeJSON(w, http.StatusOK, models.BrokerStatus{Connected: true, AccountStatus: "ACTIVE"})
	}))
	mux.HandleFunc("GET /orders", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Order{{ID: "o-1", Symbol: "AAPL", Side: "buy", OrderType: "market", Status: "filled"}})
	}))
	mux.HandleFunc("GET /analytics/trades", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.trades)
	}))
	return mux
}

// authed records the call and rejects requests without the issued bearer token
func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

// with mutates the fake while no request is in flight
func (f *fakeAPI) with(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	api  *fakeAPI
	srv  *httptest.Server
	home string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return &testEnv{api: api, srv: srv, home: t.TempDir()}
}

// run executes one CLI invocation with a fresh App, like a new process would
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.ClientConfig{
		APIBase:      e.srv.URL,
		Timeout:      5 * time.Second,
		Home:         e.home,
		SignalFanOut: 2,
	}
	var out bytes.Buffer
	root := New(cfg, strings.NewReader(stdin), &out, logger).Command()
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "", "login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
}

func TestLoginPersistsSession(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	out, err = env.run(t, "alice\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	info, err := os.Stat(filepath.Join(env.home, credentialsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice <alice@example.com> (id 7)")

	_, err = env.run(t, "", "logout")
	require.NoError(t, err)

	creds, err := LoadCredentials(env.home)
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
	assert.Equal(t, env.srv.URL, creds.BaseURL)
}

func TestLoginRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)

	creds, err := LoadCredentials(env.home)
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
}

func TestStrategyCreateFromYAML(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	draft := `
title: "  RSI dip  "
buy_signals:
  - indicator: RSI
    operator: "<"
    value: 30
sell_signals:
  - indicator: RSI
    operator: ">"
    value: 70
trade_amount: 250
`
	out, err := env.run(t, draft, "strategy", "create", "-f", "-", "--tickers", "aapl, msft,aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy 1 created")

	env.api.with(func(f *fakeAPI) {
		require.Len(t, f.created, 1)
		d := f.created[0]
		assert.Equal(t, "RSI dip", d.Title)
		assert.Equal(t, "250", d.TradeAmount.String())
		require.Len(t, d.BuySignals, 1)
		assert.Equal(t, 30.0, d.BuySignals[0].Value)
		assert.Equal(t, models.LogicAnd, d.SignalLogic)
		assert.Equal(t, []string{"AAPL", "MSFT"}, f.tickers["1"])
	})
}

func TestStrategyCreateInvalidDraftNeverSent(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, err := env.run(t, "title: empty\n", "strategy", "create", "-f", "-")
	require.Error(t, err)

	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.False(t, env.api.called("POST /strategies"))
}

func TestStrategyCreateZeroAmountNeverSent(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	draft := "title: zero\nbuy_signals:\n  - {indicator: RSI, operator: \"<\", value: 30}\ntrade_amount: 0\n"
	_, err := env.run(t, draft, "strategy", "create", "-f", "-")
	require.Error(t, err)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "trade_amount", verr.Field)
	assert.False(t, env.api.called("POST /strategies"))
}

func TestStrategyEnableWithoutTickers(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, err := env.run(t, "", "strategy", "enable", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, strategy.ErrNoTickers))
	assert.False(t, env.api.called("PUT /strategies/1/enable"))

	_, err = env.run(t, "", "strategy", "tickers", "set", "1", "aapl")
	require.NoError(t, err)

	out, err := env.run(t, "", "strategy", "enable", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy 1 enabled")
}

func TestOrdersWithoutBrokerExplains(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, err := env.run(t, "", "order", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No broker account is connected")
	assert.False(t, env.api.called("GET /orders"))

	env.api.with(func(f *fakeAPI) { f.broker = true })
	out, err = env.run(t, "", "order", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "o-1")
	assert.Contains(t, out, "AAPL")
}

func TestOrderPlaceValidatesLocally(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.with(func(f *fakeAPI) { f.broker = true })

	_, err := env.run(t, "", "order", "place", "aapl", "--type", "limit", "--qty", "5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidOrderSpec))
	assert.False(t, env.api.called("POST /orders"))
}

func TestSignalsPagination(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.with(func(f *fakeAPI) {
		for i := 0; i < 13; i++ {
			f.signals = append(f.signals, models.Signal{
				ID: i + 1, StrategyID: 1, StrategyTitle: "RSI dip", Ticker: "AAPL", Action: "buy",
			})
		}
	})

	out, err := env.run(t, "", "signals", "--page", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 4 of 4")
	assert.Equal(t, 1, strings.Count(out, "RSI dip"))

	out, err = env.run(t, "", "signals", "--page", "99")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 4 of 4")
}

func TestDashboardPanelsFailIndependently(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.with(func(f *fakeAPI) {
		f.signals = []models.Signal{{ID: 1, StrategyID: 1, StrategyTitle: "RSI dip", Ticker: "AAPL", Action: "sell"}}
	})

	out, err := env.run(t, "", "dashboard")
	require.NoError(t, err)

	// the fake has no strategies or watchlist endpoints, so only those panels fail
	assert.Contains(t, out, "== Active strategies\nUnavailable:")
	assert.Contains(t, out, "No broker connected")
	assert.Contains(t, out, "RSI dip")
	assert.Contains(t, out, "SELL")
}

func TestAnalyticsTradesCSV(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	var trade models.TradeLog
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 3, "strategy_id": 1, "symbol": "AAPL", "action": "BUY",
		"price": 187.5, "quantity": 2, "timestamp": "2024-05-01T14:30:00",
		"exit_price": null, "exit_time": null, "pnl": null
	}`), &trade))
	env.api.with(func(f *fakeAPI) { f.trades = []models.TradeLog{trade} })

	path := filepath.Join(t.TempDir(), "trades.csv")
	out, err := env.run(t, "", "analytics", "trades", "--csv", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 trades")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,strategy_id,symbol,action,price,quantity,timestamp,exit_price,exit_time,pnl", lines[0])
	assert.Equal(t, "3,1,AAPL,BUY,187.5,2,2024-05-01T14:30:00Z,,,", lines[1])
}

func TestAnalyticsRejectsBadDates(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, err := env.run(t, "", "analytics", "trades", "--from", "2024-05-02", "--to", "2024-05-01")
	require.Error(t, err)
	assert.False(t, env.api.called("GET /analytics/trades"))
}

func TestDraftRoundTrip(t *testing.T) {
	st := models.Strategy{ID: 4, StrategyDraft: models.StrategyDraft{
		Title:       "Cross",
		SignalLogic: models.LogicOr,
		BuySignals:  []models.SignalRule{{Indicator: models.IndicatorRSI, Operator: models.OperatorLess, Value: 25}},
		TradeAmount: decimal.NewFromInt(100),
	}}

	var buf bytes.Buffer
	require.NoError(t, writeDraft(&buf, st.Draft()))
	assert.Contains(t, buf.String(), "title: Cross")

	path := filepath.Join(t.TempDir(), "draft.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	d, err := readDraft(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cross", d.Title)
	assert.Equal(t, models.LogicOr, d.SignalLogic)
	assert.Equal(t, st.BuySignals, d.BuySignals)
	assert.True(t, decimal.NewFromInt(100).Equal(d.TradeAmount))
}
