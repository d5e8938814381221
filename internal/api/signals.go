package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/trogers1052/ats/internal/models"
)

const (
	recentWindow = 24 * time.Hour
	recentLimit  = 20
)

type lastSignalQuery struct {
	StrategyID int    `schema:"strategy_id,required"`
	Ticker     string `schema:"ticker,required"`
}

// RecentSignals handles GET /signals/recent
func (h *Handler) RecentSignals(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.GetRecentSignals(r.Context(), userID(r), time.Now().Add(-recentWindow), recentLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Signal{}
	}
	respondJSON(w, http.StatusOK, list)
}

// LastSignal handles GET /signals/last?strategy_id=&ticker=
func (h *Handler) LastSignal(w http.ResponseWriter, r *http.Request) {
	var q lastSignalQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}
	if strings.TrimSpace(q.Ticker) == "" {
		respondError(w, http.StatusUnprocessableEntity, "ticker is required")
		return
	}
	action, err := h.repo.GetLastSignal(r.Context(), userID(r), q.StrategyID, q.Ticker)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.LastSignal{Action: action})
}

// StrategyLastSignals handles GET /strategies/{id}/signals/last.
// The cache answers only when it covers every current ticker of the strategy.
func (h *Handler) StrategyLastSignals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	uid := userID(r)
	st, err := h.repo.GetStrategy(r.Context(), uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if cached, hit := h.cachedSignals(r, id, st.Tickers); hit {
		respondJSON(w, http.StatusOK, models.LastSignals{StrategyID: id, Signals: cached})
		return
	}

	signals, err := h.repo.GetLastSignalsByStrategy(r.Context(), uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if signals == nil {
		signals = map[string]string{}
	}
	respondJSON(w, http.StatusOK, models.LastSignals{StrategyID: id, Signals: signals})
}

func (h *Handler) cachedSignals(r *http.Request, strategyID int, tickers []string) (map[string]string, bool) {
	cached, ok, err := h.cache.Get(r.Context(), strategyID)
	if err != nil {
		h.logger.WithError(err).WithField("strategy_id", strategyID).Warn("Failed to read cached signals")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	for _, t := range tickers {
		if _, found := cached[strings.ToUpper(t)]; !found {
			return nil, false
		}
	}
	return cached, true
}
