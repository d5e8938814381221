package api

import (
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/models"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

type tickerSet struct {
	Tickers []string `json:"tickers"`
}

type logsQuery struct {
	Limit int `schema:"limit"`
}

// ListStrategies handles GET /strategies
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	h.listStrategies(w, r, false)
}

// ActiveStrategies handles GET /strategies/active
func (h *Handler) ActiveStrategies(w http.ResponseWriter, r *http.Request) {
	h.listStrategies(w, r, true)
}

func (h *Handler) listStrategies(w http.ResponseWriter, r *http.Request, enabledOnly bool) {
	list, err := h.repo.GetStrategies(r.Context(), userID(r), enabledOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.Strategy{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GetStrategy handles GET /strategies/{id}
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.repo.GetStrategy(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// CreateStrategy handles POST /strategies
func (h *Handler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	d, ok := h.readDraft(w, r)
	if !ok {
		return
	}
	uid := userID(r)
	st, err := h.repo.CreateStrategy(r.Context(), uid, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.WithFields(log.Fields{"strategy_id": st.ID, "user_id": uid}).Info("Strategy created")
	h.publish(r.Context(), uid, models.EventStrategyCreated, st.ID, st, nil)
	respondJSON(w, http.StatusCreated, st)
}

// UpdateStrategy handles PUT /strategies/{id}
func (h *Handler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, ok := h.readDraft(w, r)
	if !ok {
		return
	}
	uid := userID(r)
	st, err := h.repo.UpdateStrategy(r.Context(), uid, id, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r.Context(), uid, models.EventStrategyUpdated, st.ID, st, st.Tickers)
	respondJSON(w, http.StatusOK, st)
}

// DeleteStrategy handles DELETE /strategies/{id}
func (h *Handler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	uid := userID(r)
	if err := h.repo.DeleteStrategy(r.Context(), uid, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.dropSignals(r, id)

	h.logger.WithFields(log.Fields{"strategy_id": id, "user_id": uid}).Info("Strategy deleted")
	h.publish(r.Context(), uid, models.EventStrategyDeleted, id, nil, nil)
	respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Strategy deleted"})
}

// EnableStrategy handles PUT /strategies/{id}/enable
func (h *Handler) EnableStrategy(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// DisableStrategy handles PUT /strategies/{id}/disable
func (h *Handler) DisableStrategy(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, enable bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	uid := userID(r)

	var err error
	eventType := models.EventStrategyDisabled
	if enable {
		err = h.repo.EnableStrategy(r.Context(), uid, id)
		eventType = models.EventStrategyEnabled
	} else {
		err = h.repo.DisableStrategy(r.Context(), uid, id)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, err := h.repo.GetStrategy(r.Context(), uid, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.publish(r.Context(), uid, eventType, id, st, st.Tickers)
	respondJSON(w, http.StatusOK, st)
}

// SetTickers handles POST /strategies/{id}/tickers
func (h *Handler) SetTickers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tickerSet
	if !decodeJSON(w, r, &req) {
		return
	}
	tickers := models.NormalizeTickers(req.Tickers)
	uid := userID(r)
	if err := h.repo.ReplaceStrategyTickers(r.Context(), uid, id, tickers); err != nil {
		h.fail(w, r, err)
		return
	}
	h.dropSignals(r, id)

	h.publish(r.Context(), uid, models.EventTickersUpdated, id, nil, tickers)
	respondJSON(w, http.StatusOK, tickerSet{Tickers: tickers})
}

// GetTickers handles GET /strategies/{id}/tickers
func (h *Handler) GetTickers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tickers, err := h.repo.GetStrategyTickers(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	respondJSON(w, http.StatusOK, tickerSet{Tickers: tickers})
}

// TrainModel handles POST /strategies/{id}/train.
// Training runs in the evaluation engine; this only queues the request.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
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
	if !st.IsModel() {
		respondError(w, http.StatusConflict, "only model strategies can be trained")
		return
	}

	h.publish(r.Context(), uid, models.EventTrainRequested, id, st, nil)
	respondJSON(w, http.StatusAccepted, models.MessageResponse{Success: true, Message: "Training started"})
}

// DeleteModel handles DELETE /strategies/{id}/model
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
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
	if !st.IsModel() {
		respondError(w, http.StatusConflict, "only model strategies have a model to delete")
		return
	}
	if err := h.repo.ClearModel(r.Context(), uid, id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.publish(r.Context(), uid, models.EventModelDeleted, id, nil, nil)
	respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Model deleted"})
}

// StrategyLogs handles GET /strategies/{id}/logs?limit=
func (h *Handler) StrategyLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var q logsQuery
	if !h.decodeQuery(w, r, &q) {
		return
	}
	if q.Limit <= 0 {
		q.Limit = defaultLogLimit
	}
	if q.Limit > maxLogLimit {
		q.Limit = maxLogLimit
	}

	uid := userID(r)
	if _, err := h.repo.GetStrategy(r.Context(), uid, id); err != nil {
		h.fail(w, r, err)
		return
	}
	logs, err := h.repo.GetStrategyLogs(r.Context(), uid, id, q.Limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.Signal{}
	}
	respondJSON(w, http.StatusOK, logs)
}

// readDraft decodes, normalises and validates a strategy draft
func (h *Handler) readDraft(w http.ResponseWriter, r *http.Request) (*models.StrategyDraft, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	d, err := models.UnmarshalStrategyDraft(body)
	if errors.Is(err, models.ErrValidation) {
		h.fail(w, r, err)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return &d, true
}

func (h *Handler) dropSignals(r *http.Request, strategyID int) {
	if err := h.cache.Drop(r.Context(), strategyID); err != nil {
		h.logger.WithError(err).WithField("strategy_id", strategyID).Warn("Failed to drop cached signals")
	}
}
