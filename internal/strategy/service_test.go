package strategy

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/ats/internal/models"
)

// fakeAPI implements API in memory and records every call
type fakeAPI struct {
	mu         sync.Mutex
	strategies map[int]models.Strategy
	batchErr   error
	batch      map[int]map[string]string
	last       map[string]string // ticker -> action
	lastErr    map[string]error  // ticker -> error
	calls      []string
	nextID     int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		strategies: make(map[int]models.Strategy),
		batch:      make(map[int]map[string]string),
		last:       make(map[string]string),
		lastErr:    make(map[string]error),
		nextID:     1,
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Strategies(ctx context.Context) ([]models.Strategy, error) {
	f.record("Strategies")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Strategy
	for id := 1; id < f.nextID; id++ {
		if st, ok := f.strategies[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// ActiveStrategies answers like the server summary: id, title, automation
// mode, check frequency and tickers only
func (f *fakeAPI) ActiveStrategies(ctx context.Context) ([]models.Strategy, error) {
	f.record("ActiveStrategies")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Strategy
	for id := 1; id < f.nextID; id++ {
		st, ok := f.strategies[id]
		if !ok || !st.IsEnabled {
			continue
		}
		out = append(out, models.Strategy{
			ID: st.ID,
			StrategyDraft: models.StrategyDraft{
				Title:                st.Title,
				AutomationMode:       st.AutomationMode,
				MarketCheckFrequency: st.MarketCheckFrequency,
			},
			Tickers: st.Tickers,
		})
	}
	return out, nil
}

func (f *fakeAPI) Strategy(ctx context.Context, id int) (*models.Strategy, error) {
	f.record("Strategy")
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.strategies[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &st, nil
}

func (f *fakeAPI) CreateStrategy(ctx context.Context, d models.StrategyDraft) (*models.Strategy, error) {
	f.record("CreateStrategy")
	f.mu.Lock()
	defer f.mu.Unlock()
	st := models.Strategy{ID: f.nextID, StrategyDraft: d, Tickers: []string{}}
	f.nextID++
	f.strategies[st.ID] = st
	return &st, nil
}

func (f *fakeAPI) UpdateStrategy(ctx context.Context, id int, d models.StrategyDraft) (*models.Strategy, error) {
	f.record("UpdateStrategy")
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.strategies[id]
	st.StrategyDraft = d
	f.strategies[id] = st
	return &st, nil
}

func (f *fakeAPI) DeleteStrategy(ctx context.Context, id int) error {
	f.record("DeleteStrategy")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strategies, id)
	return nil
}

func (f *fakeAPI) setEnabled(id int, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.strategies[id]
	st.IsEnabled = on
	f.strategies[id] = st
}

func (f *fakeAPI) EnableStrategy(ctx context.Context, id int) error {
	f.record("EnableStrategy")
	f.setEnabled(id, true)
	return nil
}

func (f *fakeAPI) DisableStrategy(ctx context.Context, id int) error {
	f.record("DisableStrategy")
	f.setEnabled(id, false)
	return nil
}

func (f *fakeAPI) SetStrategyTickers(ctx context.Context, id int, tickers []string) error {
	f.record("SetStrategyTickers")
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.strategies[id]
	st.Tickers = tickers
	f.strategies[id] = st
	return nil
}

func (f *fakeAPI) StrategyTickers(ctx context.Context, id int) ([]string, error) {
	f.record("StrategyTickers")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strategies[id].Tickers, nil
}

func (f *fakeAPI) TrainModel(ctx context.Context, id int) (*models.MessageResponse, error) {
	f.record("TrainModel")
	return &models.MessageResponse{Success: true}, nil
}

func (f *fakeAPI) DeleteModel(ctx context.Context, id int) error {
	f.record("DeleteModel")
	return nil
}

func (f *fakeAPI) StrategyLogs(ctx context.Context, id, limit int) ([]models.Signal, error) {
	f.record("StrategyLogs")
	out := make([]models.Signal, limit)
	return out, nil
}

func (f *fakeAPI) StrategyLastSignals(ctx context.Context, id int) (*models.LastSignals, error) {
	f.record("StrategyLastSignals")
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return &models.LastSignals{StrategyID: id, Signals: f.batch[id]}, nil
}

func (f *fakeAPI) LastSignal(ctx context.Context, strategyID int, ticker string) (*models.LastSignal, error) {
	f.record("LastSignal:" + ticker)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lastErr[ticker]; err != nil {
		return nil, err
	}
	a, ok := f.last[ticker]
	if !ok {
		return &models.LastSignal{}, nil
	}
	return &models.LastSignal{Action: &a}, nil
}

func (f *fakeAPI) seed(st models.Strategy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st.ID = f.nextID
	f.nextID++
	f.strategies[st.ID] = st
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(api *fakeAPI) *Service {
	return NewService(api, Options{FanOut: 2, RatePerSecond: 1000, Logger: quietLogger()})
}

func ruleDraft(title string) models.StrategyDraft {
	return models.StrategyDraft{
		Title:      title,
		BuySignals: []models.SignalRule{{Indicator: models.IndicatorRSI, Operator: models.OperatorLess, Value: 30}},
	}
}

// TestEnableWithoutTickersMakesNoCall verifies the empty ticker set is rejected locally
func TestEnableWithoutTickersMakesNoCall(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)
	ctx := context.Background()

	st, err := svc.Create(ctx, ruleDraft("empty"))
	require.NoError(t, err)
	before := len(api.Calls())

	err = svc.Enable(ctx, st.ID)
	assert.ErrorIs(t, err, ErrNoTickers)
	assert.ErrorIs(t, err, models.ErrPreconditionFailed)
	assert.Len(t, api.Calls(), before, "no network call expected")
}

// TestEnableUnknownStrategyChecksTickersFirst verifies the ticker set is read before enabling
func TestEnableUnknownStrategyChecksTickersFirst(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("seeded"), Tickers: []string{"AAPL"}})
	svc := newTestService(api)

	require.NoError(t, svc.Enable(context.Background(), 1))
	assert.Equal(t, []string{"StrategyTickers", "EnableStrategy"}, api.Calls())

	st, ok := svc.Known(1)
	assert.False(t, ok, "a ticker read alone does not make the full state known")
	assert.False(t, st.IsEnabled)
}

// TestUpdateEnabledStrategyRefused verifies an enabled strategy is never saved
func TestUpdateEnabledStrategyRefused(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)
	ctx := context.Background()

	st, err := svc.Create(ctx, ruleDraft("running"), "aapl")
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, st.ID))

	_, err = svc.Update(ctx, st.ID, ruleDraft("renamed"))
	assert.ErrorIs(t, err, ErrStrategyEnabled)

	err = svc.SetTickers(ctx, st.ID, []string{"MSFT"})
	assert.ErrorIs(t, err, ErrStrategyEnabled)

	assert.NotContains(t, api.Calls(), "UpdateStrategy")
}

// TestUpdateFetchesUnknownState verifies the state is fetched once when not known
func TestUpdateFetchesUnknownState(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("remote"), IsEnabled: true, Tickers: []string{"AAPL"}})
	svc := newTestService(api)

	_, err := svc.Update(context.Background(), 1, ruleDraft("x"))
	assert.ErrorIs(t, err, ErrStrategyEnabled)
	assert.Equal(t, []string{"Strategy"}, api.Calls())
}

func TestCreateRejectsInvalidDraftLocally(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)

	_, err := svc.Create(context.Background(), models.StrategyDraft{Title: "no rules"})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, api.Calls())
}

func TestCreateAssignsNormalisedTickers(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)
	ctx := context.Background()

	st, err := svc.Create(ctx, ruleDraft("with tickers"), " aapl", "MSFT", "aapl")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, st.Tickers)

	tickers, err := svc.Tickers(ctx, st.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, tickers)
}

// TestListEnrichmentPartialFailure verifies failed lookups become HOLD without dropping the strategy
func TestListEnrichmentPartialFailure(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("live"), IsEnabled: true, Tickers: []string{"A", "B"}})
	api.seed(models.Strategy{StrategyDraft: ruleDraft("idle"), Tickers: []string{"C"}})
	api.batchErr = errors.New("batch endpoint unavailable")
	api.last["A"] = "buy"
	api.lastErr["B"] = errors.New("timeout")

	svc := newTestService(api)
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, map[string]string{"A": models.ActionBuy, "B": models.ActionHold}, list[0].LastSignals)
	assert.Nil(t, list[1].LastSignals, "disabled strategies are not enriched")
	assert.NotContains(t, api.Calls(), "LastSignal:C")
}

// TestListPrefersBatchEndpoint verifies no per-ticker lookups happen when the batch call succeeds
func TestListPrefersBatchEndpoint(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("live"), IsEnabled: true, Tickers: []string{"AAPL", "MSFT"}})
	api.batch[1] = map[string]string{"aapl": "sell"}

	svc := newTestService(api)
	list, err := svc.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, map[string]string{"AAPL": models.ActionSell, "MSFT": models.ActionHold}, list[0].LastSignals)
	for _, c := range api.Calls() {
		assert.NotContains(t, c, "LastSignal:")
	}
}

func TestModelOperations(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("rules")})
	api.seed(models.Strategy{StrategyDraft: models.StrategyDraft{Title: "lstm", StrategyType: models.StrategyTypeModel}})
	api.seed(models.Strategy{StrategyDraft: models.StrategyDraft{Title: "live lstm", StrategyType: models.StrategyTypeModel}, IsEnabled: true})
	svc := newTestService(api)
	ctx := context.Background()

	t.Run("TrainModel refuses rule strategies", func(t *testing.T) {
		_, err := svc.TrainModel(ctx, 1)
		assert.ErrorIs(t, err, ErrNotModelStrategy)
	})

	t.Run("TrainModel accepts disabled model strategies", func(t *testing.T) {
		resp, err := svc.TrainModel(ctx, 2)
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("DeleteModel refuses enabled strategies", func(t *testing.T) {
		err := svc.DeleteModel(ctx, 3)
		assert.ErrorIs(t, err, ErrStrategyEnabled)
	})
}

func TestLogsDefaultLimit(t *testing.T) {
	svc := newTestService(newFakeAPI())
	logs, err := svc.Logs(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, logs, DefaultLogLimit)
}

func TestDeleteForgetsStrategy(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)
	ctx := context.Background()

	st, err := svc.Create(ctx, ruleDraft("temp"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, st.ID))

	_, ok := svc.Known(st.ID)
	assert.False(t, ok)
}

// TestActiveSummaryEnrichesAndGuardsEdits verifies summary entries are treated
// as running and are never mistaken for full state
func TestActiveSummaryEnrichesAndGuardsEdits(t *testing.T) {
	api := newFakeAPI()
	api.seed(models.Strategy{StrategyDraft: ruleDraft("live"), IsEnabled: true, Tickers: []string{"AAPL"}})
	api.batchErr = errors.New("batch unavailable")
	api.last["AAPL"] = "buy"
	svc := newTestService(api)
	ctx := context.Background()

	list, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsEnabled)
	assert.Equal(t, map[string]string{"AAPL": models.ActionBuy}, list[0].LastSignals)

	_, ok := svc.Known(1)
	assert.False(t, ok, "a summary entry is not full state")

	_, err = svc.Update(ctx, 1, ruleDraft("renamed"))
	assert.ErrorIs(t, err, ErrStrategyEnabled)
	assert.ErrorIs(t, svc.SetTickers(ctx, 1, []string{"MSFT"}), ErrStrategyEnabled)
	assert.NotContains(t, api.Calls(), "UpdateStrategy")
	assert.NotContains(t, api.Calls(), "SetStrategyTickers")
}

// TestActiveMarksKnownStrategyRunning verifies a strategy enabled elsewhere is
// refused for edits once the active listing reports it
func TestActiveMarksKnownStrategyRunning(t *testing.T) {
	api := newFakeAPI()
	svc := newTestService(api)
	ctx := context.Background()

	st, err := svc.Create(ctx, ruleDraft("shared"), "AAPL")
	require.NoError(t, err)
	api.setEnabled(st.ID, true)

	_, err = svc.Active(ctx)
	require.NoError(t, err)

	known, ok := svc.Known(st.ID)
	require.True(t, ok)
	assert.True(t, known.IsEnabled)
	assert.Equal(t, "shared", known.Title)

	_, err = svc.Update(ctx, st.ID, ruleDraft("renamed"))
	assert.ErrorIs(t, err, ErrStrategyEnabled)
}
