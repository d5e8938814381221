package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/cache"
	"github.com/trogers1052/ats/internal/models"
)

// SignalRepository defines the database operations the signal consumer needs
type SignalRepository interface {
	SignalLogExists(ctx context.Context, eventID string) (bool, error)
	CreateSignalLog(ctx context.Context, ev *models.SignalEvent) (bool, error)
	TouchLastChecked(ctx context.Context, strategyID int, at time.Time) error
	MarkTrained(ctx context.Context, strategyID int, at time.Time) error
}

// SignalConsumer stores signals emitted by the evaluation engine.
// Every stored signal also refreshes the last-signal cache of its strategy.
// MODEL_TRAINED events only move the training marker of the strategy.
type SignalConsumer struct {
	reader *kafka.Reader
	repo   SignalRepository
	cache  cache.SignalCache
	logger log.FieldLogger
}

// NewSignalConsumer creates a new Kafka consumer for signal events
func NewSignalConsumer(brokers []string, topic, groupID string, repo SignalRepository, c cache.SignalCache, logger log.FieldLogger) *SignalConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return newSignalConsumer(reader, repo, c, logger)
}

func newSignalConsumer(reader *kafka.Reader, repo SignalRepository, c cache.SignalCache, logger log.FieldLogger) *SignalConsumer {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &SignalConsumer{
		reader: reader,
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// Start begins consuming messages from Kafka
func (c *SignalConsumer) Start(ctx context.Context) error {
	c.logger.WithField("topic", c.reader.Config().Topic).Info("Starting signal consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Signal consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.logger.WithError(err).Error("Error reading message")
				continue
			}

			c.logger.WithFields(log.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
				"key":       string(msg.Key),
			}).Debug("Received message")

			if err := c.processMessage(ctx, msg.Value); err != nil {
				c.logger.WithError(err).Error("Error processing message")
			}
		}
	}
}

// processMessage handles a single signal event payload
func (c *SignalConsumer) processMessage(ctx context.Context, value []byte) error {
	var event models.SignalEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal signal event: %w", err)
	}

	switch event.EventType {
	case models.EventSignalEmitted:
	case models.EventModelTrained:
		return c.markTrained(ctx, event)
	default:
		c.logger.WithField("event_type", event.EventType).Debug("Ignoring event type")
		return nil
	}
	if event.StrategyID == 0 || strings.TrimSpace(event.Ticker) == "" || strings.TrimSpace(event.Action) == "" {
		return fmt.Errorf("incomplete signal event %q", event.EventID)
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	exists, err := c.repo.SignalLogExists(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate signal: %w", err)
	}
	if exists {
		c.logger.WithField("event_id", event.EventID).Info("Signal already stored, skipping")
		return nil
	}

	// the repository files the signal under the strategy owner
	claimed := event.UserID
	inserted, err := c.repo.CreateSignalLog(ctx, &event)
	if err != nil {
		return fmt.Errorf("failed to save signal log: %w", err)
	}
	if !inserted {
		return nil
	}

	fields := log.Fields{
		"strategy_id": event.StrategyID,
		"user_id":     event.UserID,
		"ticker":      strings.ToUpper(event.Ticker),
		"action":      strings.ToUpper(event.Action),
	}
	if claimed != 0 && claimed != event.UserID {
		c.logger.WithFields(fields).WithField("event_user_id", claimed).Warn("Signal event user does not own the strategy")
	}

	if err := c.repo.TouchLastChecked(ctx, event.StrategyID, event.CreatedAt); err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("Failed to update last checked")
	}
	if err := c.cache.Set(ctx, event.StrategyID, event.Ticker, event.Action, event.CreatedAt); err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("Failed to cache last signal")
	}

	c.logger.WithFields(fields).Info("Saved signal")
	return nil
}

func (c *SignalConsumer) markTrained(ctx context.Context, event models.SignalEvent) error {
	if event.StrategyID == 0 {
		return fmt.Errorf("model event %q has no strategy", event.EventID)
	}
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := c.repo.MarkTrained(ctx, event.StrategyID, at); err != nil {
		return fmt.Errorf("failed to mark strategy trained: %w", err)
	}
	c.logger.WithField("strategy_id", event.StrategyID).Info("Model trained")
	return nil
}
