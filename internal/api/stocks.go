package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/trogers1052/ats/internal/database"
	"github.com/trogers1052/ats/internal/models"
)

type tickerQuery struct {
	Ticker string `schema:"ticker,required"`
}

// WatchList handles GET /users/me/stocks
func (h *Handler) WatchList(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.repo.GetUserStocks(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if stocks == nil {
		stocks = []string{}
	}
	respondJSON(w, http.StatusOK, models.WatchList{Stocks: stocks})
}

// AddStock handles POST /users/me/stocks/add?ticker=
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.readTicker(w, r)
	if !ok {
		return
	}
	if err := h.repo.AddUserStock(r.Context(), userID(r), ticker); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: ticker + " added"})
}

// RemoveStock handles DELETE /users/me/stocks/remove?ticker=
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.readTicker(w, r)
	if !ok {
		return
	}
	err := h.repo.RemoveUserStock(r.Context(), userID(r), ticker)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, ticker+" is not in your watchlist")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: ticker + " removed"})
}

func (h *Handler) readTicker(w http.ResponseWriter, r *http.Request) (string, bool) {
	var q tickerQuery
	if !h.decodeQuery(w, r, &q) {
		return "", false
	}
	ticker := strings.ToUpper(strings.TrimSpace(q.Ticker))
	if ticker == "" {
		respondError(w, http.StatusUnprocessableEntity, "ticker is required")
		return "", false
	}
	return ticker, true
}
