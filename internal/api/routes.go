package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes; everything but /health requires a token
func SetupRoutes(handler *Handler, auth *Authenticator) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/").Subrouter()
	api.Use(auth.Middleware)

	// Watchlist routes
	api.HandleFunc("/users/me/stocks", handler.WatchList).Methods("GET")
	api.HandleFunc("/users/me/stocks/add", handler.AddStock).Methods("POST")
	api.HandleFunc("/users/me/stocks/remove", handler.RemoveStock).Methods("DELETE")

	// Strategy routes; /strategies/active must precede /strategies/{id}
	api.HandleFunc("/strategies", handler.ListStrategies).Methods("GET")
	api.HandleFunc("/strategies", handler.CreateStrategy).Methods("POST")
	api.HandleFunc("/strategies/active", handler.ActiveStrategies).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}", handler.GetStrategy).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}", handler.UpdateStrategy).Methods("PUT")
	api.HandleFunc("/strategies/{id:[0-9]+}", handler.DeleteStrategy).Methods("DELETE")
	api.HandleFunc("/strategies/{id:[0-9]+}/enable", handler.EnableStrategy).Methods("PUT")
	api.HandleFunc("/strategies/{id:[0-9]+}/disable", handler.DisableStrategy).Methods("PUT")
	api.HandleFunc("/strategies/{id:[0-9]+}/tickers", handler.SetTickers).Methods("POST")
	api.HandleFunc("/strategies/{id:[0-9]+}/tickers", handler.GetTickers).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}/train", handler.TrainModel).Methods("POST")
	api.HandleFunc("/strategies/{id:[0-9]+}/model", handler.DeleteModel).Methods("DELETE")
	api.HandleFunc("/strategies/{id:[0-9]+}/logs", handler.StrategyLogs).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}/signals/last", handler.StrategyLastSignals).Methods("GET")

	// Signal routes
	api.HandleFunc("/signals/recent", handler.RecentSignals).Methods("GET")
	api.HandleFunc("/signals/last", handler.LastSignal).Methods("GET")

	return r
}
