package strategy

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/models"
	"golang.org/x/sync/errgroup"
)

// enrich fills LastSignals of every enabled strategy with tickers. Lookup
// failures degrade to HOLD and never drop a strategy.
func (s *Service) enrich(ctx context.Context, list []models.Strategy) {
	g := new(errgroup.Group)
	g.SetLimit(s.fanOut)
	for i := range list {
		st := &list[i]
		if !st.IsEnabled || len(st.Tickers) == 0 {
			continue
		}
		g.Go(func() error {
			st.LastSignals = s.lastSignals(ctx, st)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) lastSignals(ctx context.Context, st *models.Strategy) map[string]string {
	logger := s.log.WithField("strategy_id", st.ID)

	batch, err := s.api.StrategyLastSignals(ctx, st.ID)
	if err == nil {
		byTicker := make(map[string]string, len(batch.Signals))
		for t, a := range batch.Signals {
			byTicker[strings.ToUpper(t)] = a
		}
		out := make(map[string]string, len(st.Tickers))
		for _, t := range st.Tickers {
			out[t] = models.NormalizeAction(byTicker[strings.ToUpper(t)])
		}
		return out
	}
	logger.WithError(err).Debug("Batch last signal lookup failed, falling back to per-ticker")

	return s.lastSignalsPerTicker(ctx, st, logger)
}

func (s *Service) lastSignalsPerTicker(ctx context.Context, st *models.Strategy, logger log.FieldLogger) map[string]string {
	out := make(map[string]string, len(st.Tickers))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.fanOut)
	for _, ticker := range st.Tickers {
		g.Go(func() error {
			action := models.ActionHold
			if err := s.limiter.Wait(ctx); err != nil {
				logger.WithError(err).WithField("ticker", ticker).Warn("Last signal lookup skipped")
			} else if ls, err := s.api.LastSignal(ctx, st.ID, ticker); err != nil {
				logger.WithError(err).WithField("ticker", ticker).Warn("Last signal lookup failed")
			} else {
				action = ls.Normalized()
			}

			mu.Lock()
			out[ticker] = action
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
