package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/api"
	"github.com/trogers1052/ats/internal/cache"
	"github.com/trogers1052/ats/internal/config"
	"github.com/trogers1052/ats/internal/database"
	"github.com/trogers1052/ats/internal/kafka"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()
	config.SetupLogging(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var signals cache.SignalCache = cache.Nop{}
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisSignalCache(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, last signals are served from the database")
		} else {
			defer rc.Close()
			signals = rc
		}
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	consumer := kafka.NewSignalConsumer(cfg.Kafka.Brokers, cfg.Kafka.SignalsTopic, cfg.Kafka.ConsumerGroup, db, signals, log.StandardLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Signal consumer stopped")
		}
	}()

	handler := api.NewHandler(db, producer, signals, log.StandardLogger())
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.SetupRoutes(handler, auth),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Starting atsd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	wg.Wait()

	log.Info("Shutdown complete")
}
