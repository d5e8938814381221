package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/cache"
	"github.com/trogers1052/ats/internal/database"
	"github.com/trogers1052/ats/internal/models"
)

// Repository is the storage the handlers need
type Repository interface {
	CreateStrategy(ctx context.Context, userID int, d *models.StrategyDraft) (*models.Strategy, error)
	GetStrategy(ctx context.Context, userID, id int) (*models.Strategy, error)
	GetStrategies(ctx context.Context, userID int, enabledOnly bool) ([]models.Strategy, error)
	UpdateStrategy(ctx context.Context, userID, id int, d *models.StrategyDraft) (*models.Strategy, error)
	DeleteStrategy(ctx context.Context, userID, id int) error
	EnableStrategy(ctx context.Context, userID, id int) error
	DisableStrategy(ctx context.Context, userID, id int) error
	ReplaceStrategyTickers(ctx context.Context, userID, id int, tickers []string) error
	GetStrategyTickers(ctx context.Context, userID, id int) ([]string, error)
	ClearModel(ctx context.Context, userID, id int) error

	AddUserStock(ctx context.Context, userID int, ticker string) error
	RemoveUserStock(ctx context.Context, userID int, ticker string) error
	GetUserStocks(ctx context.Context, userID int) ([]string, error)

	GetRecentSignals(ctx context.Context, userID int, since time.Time, limit int) ([]models.Signal, error)
	GetStrategyLogs(ctx context.Context, userID, strategyID, limit int) ([]models.Signal, error)
	GetLastSignal(ctx context.Context, userID, strategyID int, ticker string) (*string, error)
	GetLastSignalsByStrategy(ctx context.Context, userID, strategyID int) (map[string]string, error)
}

// Publisher emits strategy lifecycle events
type Publisher interface {
	PublishStrategyEvent(ctx context.Context, userID int, eventType string, strategyID int, st *models.Strategy, tickers []string) error
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	repo     Repository
	producer Publisher
	cache    cache.SignalCache
	logger   log.FieldLogger
	query    *schema.Decoder
	health   Pinger
}

// NewHandler creates a new Handler; producer and c may be nil
func NewHandler(repo Repository, producer Publisher, c cache.SignalCache, logger log.FieldLogger) *Handler {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)

	h := &Handler{
		repo:     repo,
		producer: producer,
		cache:    c,
		logger:   logger,
		query:    dec,
	}
	if p, ok := repo.(Pinger); ok {
		h.health = p
	}
	return h
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(); err != nil {
			h.logger.WithError(err).Warn("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// publish sends a lifecycle event; failures are logged and never fail the request
func (h *Handler) publish(ctx context.Context, userID int, eventType string, strategyID int, st *models.Strategy, tickers []string) {
	if h.producer == nil {
		return
	}
	if err := h.producer.PublishStrategyEvent(ctx, userID, eventType, strategyID, st, tickers); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"event_type":  eventType,
			"strategy_id": strategyID,
		}).Error("Failed to publish strategy event")
	}
}

// fail maps repository and validation errors to responses
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr)
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "Strategy not found")
	case errors.Is(err, models.ErrPreconditionFailed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// userID reads the authenticated user; the auth middleware guarantees it is set
func userID(r *http.Request) int {
	id, _ := UserID(r.Context())
	return id
}

// pathID parses the {id} route variable
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		respondError(w, http.StatusNotFound, "Strategy not found")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeQuery fills v from the URL query using schema tags
func (h *Handler) decodeQuery(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := h.query.Decode(v, r.URL.Query()); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid query: "+err.Error())
		return false
	}
	return true
}

type errorResponse struct {
	Detail interface{} `json:"detail"`
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorResponse{Detail: detail})
}

// respondValidation answers 422 with a per-field detail list
func respondValidation(w http.ResponseWriter, verr *models.ValidationError) {
	loc := []string{"body"}
	if verr.Field != "" {
		loc = append(loc, verr.Field)
	}
	respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Detail: []fieldError{{Loc: loc, Msg: verr.Message, Type: "value_error"}},
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
