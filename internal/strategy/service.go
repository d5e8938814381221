package strategy

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultLogLimit is the number of log entries returned when no limit is given
	DefaultLogLimit = 20

	defaultFanOut = 4
	defaultRPS    = 10
)

var (
	// ErrStrategyEnabled is returned when editing a strategy that is running
	ErrStrategyEnabled = fmt.Errorf("strategy is enabled, disable it first: %w", models.ErrPreconditionFailed)

	// ErrNoTickers is returned when enabling a strategy without tickers
	ErrNoTickers = fmt.Errorf("strategy has no tickers assigned: %w", models.ErrPreconditionFailed)

	// ErrNotModelStrategy is returned for model operations on rule-based strategies
	ErrNotModelStrategy = fmt.Errorf("strategy is not model-based: %w", models.ErrPreconditionFailed)
)

// API is the subset of the REST client used by the service
type API interface {
	Strategies(ctx context.Context) ([]models.Strategy, error)
	ActiveStrategies(ctx context.Context) ([]models.Strategy, error)
	Strategy(ctx context.Context, id int) (*models.Strategy, error)
	CreateStrategy(ctx context.Context, d models.StrategyDraft) (*models.Strategy, error)
	UpdateStrategy(ctx context.Context, id int, d models.StrategyDraft) (*models.Strategy, error)
	DeleteStrategy(ctx context.Context, id int) error
	EnableStrategy(ctx context.Context, id int) error
	DisableStrategy(ctx context.Context, id int) error
	SetStrategyTickers(ctx context.Context, id int, tickers []string) error
	StrategyTickers(ctx context.Context, id int) ([]string, error)
	TrainModel(ctx context.Context, id int) (*models.MessageResponse, error)
	DeleteModel(ctx context.Context, id int) error
	StrategyLogs(ctx context.Context, id, limit int) ([]models.Signal, error)
	StrategyLastSignals(ctx context.Context, id int) (*models.LastSignals, error)
	LastSignal(ctx context.Context, strategyID int, ticker string) (*models.LastSignal, error)
}

// Options tunes the per-ticker fallback lookups
type Options struct {
	FanOut        int
	RatePerSecond float64
	Logger        log.FieldLogger
}

// Service enforces strategy lifecycle rules on top of the API and keeps the
// last known state of every strategy it has seen
type Service struct {
	api     API
	log     log.FieldLogger
	fanOut  int
	limiter *rate.Limiter

	mu    sync.RWMutex
	known map[int]entry
}

// entry is the local view of a strategy; partial entries only carry fields
// learned from narrower calls such as the ticker set
type entry struct {
	strategy models.Strategy
	complete bool
}

// NewService creates a strategy service
func NewService(api API, opts Options) *Service {
	if opts.FanOut <= 0 {
		opts.FanOut = defaultFanOut
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRPS
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Service{
		api:     api,
		log:     opts.Logger,
		fanOut:  opts.FanOut,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.FanOut),
		known:   make(map[int]entry),
	}
}

// List returns all strategies with last signals filled for enabled ones
func (s *Service) List(ctx context.Context) ([]models.Strategy, error) {
	list, err := s.api.Strategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	s.enrich(ctx, list)
	s.remember(list...)
	return list, nil
}

// Active returns the enabled strategies with last signals filled. The active
// listing is a summary without the enabled flag or rule set, so its entries
// only mark known strategies as running and never count as full state.
func (s *Service) Active(ctx context.Context) ([]models.Strategy, error) {
	list, err := s.api.ActiveStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active strategies: %w", err)
	}
	for i := range list {
		list[i].IsEnabled = true
	}
	s.enrich(ctx, list)
	s.rememberActive(list...)
	return list, nil
}

// Get fetches one strategy and refreshes its known state
func (s *Service) Get(ctx context.Context, id int) (*models.Strategy, error) {
	st, err := s.api.Strategy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy %d: %w", id, err)
	}
	s.remember(*st)
	return st, nil
}

// Create validates the draft, creates the strategy and, when tickers are given,
// assigns them. A failed assignment leaves the created strategy in place.
func (s *Service) Create(ctx context.Context, d models.StrategyDraft, tickers ...string) (*models.Strategy, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	st, err := s.api.CreateStrategy(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	s.remember(*st)

	s.log.WithField("strategy_id", st.ID).Info("Strategy created")

	if len(tickers) == 0 {
		return st, nil
	}
	if err := s.SetTickers(ctx, st.ID, tickers); err != nil {
		return st, err
	}
	st.Tickers = models.NormalizeTickers(tickers)
	return st, nil
}

// Update validates the draft and saves it; enabled strategies are refused
func (s *Service) Update(ctx context.Context, id int, d models.StrategyDraft) (*models.Strategy, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cur, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.IsEnabled {
		return nil, ErrStrategyEnabled
	}
	st, err := s.api.UpdateStrategy(ctx, id, d)
	if err != nil {
		return nil, fmt.Errorf("failed to update strategy %d: %w", id, err)
	}
	if st.Tickers == nil {
		st.Tickers = cur.Tickers
	}
	s.remember(*st)
	return st, nil
}

// SetTickers replaces the ticker set of a disabled strategy
func (s *Service) SetTickers(ctx context.Context, id int, tickers []string) error {
	cur, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	if cur.IsEnabled {
		return ErrStrategyEnabled
	}
	norm := models.NormalizeTickers(tickers)
	if err := s.api.SetStrategyTickers(ctx, id, norm); err != nil {
		return fmt.Errorf("failed to set tickers for strategy %d: %w", id, err)
	}
	s.update(id, func(st *models.Strategy) { st.Tickers = norm })

	s.log.WithFields(log.Fields{"strategy_id": id, "tickers": norm}).Info("Strategy tickers replaced")
	return nil
}

// Tickers reads the ticker set back from the server
func (s *Service) Tickers(ctx context.Context, id int) ([]string, error) {
	tickers, err := s.api.StrategyTickers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers for strategy %d: %w", id, err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	s.update(id, func(st *models.Strategy) { st.Tickers = tickers })
	return tickers, nil
}

// Enable starts a strategy; an empty ticker set is refused without calling enable
func (s *Service) Enable(ctx context.Context, id int) error {
	tickers, known := s.knownTickers(id)
	if !known {
		var err error
		if tickers, err = s.Tickers(ctx, id); err != nil {
			return err
		}
	}
	if len(tickers) == 0 {
		return ErrNoTickers
	}
	if err := s.api.EnableStrategy(ctx, id); err != nil {
		return fmt.Errorf("failed to enable strategy %d: %w", id, err)
	}
	s.update(id, func(st *models.Strategy) { st.IsEnabled = true })

	s.log.WithField("strategy_id", id).Info("Strategy enabled")
	return nil
}

// Disable stops a strategy
func (s *Service) Disable(ctx context.Context, id int) error {
	if err := s.api.DisableStrategy(ctx, id); err != nil {
		return fmt.Errorf("failed to disable strategy %d: %w", id, err)
	}
	s.update(id, func(st *models.Strategy) { st.IsEnabled = false })

	s.log.WithField("strategy_id", id).Info("Strategy disabled")
	return nil
}

// Delete removes a strategy; the server cascades tickers and logs
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.api.DeleteStrategy(ctx, id); err != nil {
		return fmt.Errorf("failed to delete strategy %d: %w", id, err)
	}
	s.mu.Lock()
	delete(s.known, id)
	s.mu.Unlock()
	return nil
}

// TrainModel requests training of a disabled model strategy
func (s *Service) TrainModel(ctx context.Context, id int) (*models.MessageResponse, error) {
	if err := s.checkModel(ctx, id); err != nil {
		return nil, err
	}
	resp, err := s.api.TrainModel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to train model for strategy %d: %w", id, err)
	}
	return resp, nil
}

// DeleteModel removes the trained model of a disabled model strategy
func (s *Service) DeleteModel(ctx context.Context, id int) error {
	if err := s.checkModel(ctx, id); err != nil {
		return err
	}
	if err := s.api.DeleteModel(ctx, id); err != nil {
		return fmt.Errorf("failed to delete model for strategy %d: %w", id, err)
	}
	s.update(id, func(st *models.Strategy) { st.LastTrainedAt = nil })
	return nil
}

// Logs returns recent signals of a strategy
func (s *Service) Logs(ctx context.Context, id, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	logs, err := s.api.StrategyLogs(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for strategy %d: %w", id, err)
	}
	return logs, nil
}

// Known returns the last known state of a strategy without a network call
func (s *Service) Known(id int) (models.Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.known[id]
	if !ok || !e.complete {
		return models.Strategy{}, false
	}
	return e.strategy, true
}

// Reset forgets all known strategies
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known = make(map[int]entry)
}

func (s *Service) checkModel(ctx context.Context, id int) error {
	cur, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	if !cur.IsModel() {
		return ErrNotModelStrategy
	}
	if cur.IsEnabled {
		return ErrStrategyEnabled
	}
	return nil
}

// current returns the known strategy or fetches it once
func (s *Service) current(ctx context.Context, id int) (models.Strategy, error) {
	if st, ok := s.Known(id); ok {
		return st, nil
	}
	st, err := s.Get(ctx, id)
	if err != nil {
		return models.Strategy{}, err
	}
	return *st, nil
}

// knownTickers reports the locally known ticker set; a nil set means unknown
func (s *Service) knownTickers(id int) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.known[id]
	if !ok || e.strategy.Tickers == nil {
		return nil, false
	}
	return e.strategy.Tickers, true
}

func (s *Service) remember(list ...models.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range list {
		if st.Tickers == nil {
			st.Tickers = s.known[st.ID].strategy.Tickers
		}
		s.known[st.ID] = entry{strategy: st, complete: true}
	}
}

// rememberActive merges summary entries: a full entry keeps its rule set and
// takes the running state and tickers, anything else stays partial
func (s *Service) rememberActive(list ...models.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range list {
		e, ok := s.known[st.ID]
		if !ok || !e.complete {
			if st.Tickers == nil {
				st.Tickers = e.strategy.Tickers
			}
			s.known[st.ID] = entry{strategy: st}
			continue
		}
		e.strategy.IsEnabled = true
		if st.Tickers != nil {
			e.strategy.Tickers = st.Tickers
		}
		e.strategy.LastSignals = st.LastSignals
		s.known[st.ID] = e
	}
}

func (s *Service) update(id int, fn func(st *models.Strategy)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.known[id]
	if !ok {
		e.strategy.ID = id
	}
	fn(&e.strategy)
	s.known[id] = e
}
