package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/ats/internal/models"
)

// Producer publishes strategy lifecycle events for the evaluation engine
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishStrategyEvent publishes a lifecycle event keyed by strategy id so that
// events of one strategy stay on one partition
func (p *Producer) PublishStrategyEvent(ctx context.Context, userID int, eventType string, strategyID int, st *models.Strategy, tickers []string) error {
	event := models.StrategyEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		UserID:     userID,
		StrategyID: strategyID,
		Strategy:   st,
		Tickers:    tickers,
		Timestamp:  time.Now().UTC(),
	}
	return p.publish(ctx, strconv.Itoa(strategyID), event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.StrategyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
