package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Session event type constants
const (
	EventLoggedIn  = "logged_in"
	EventLoggedOut = "logged_out"
)

// DefaultChannel is the topic or Redis channel carrying session events
const DefaultChannel = "ats:session"

// Event announces a session change to every manager sharing the session
type Event struct {
	Type     string    `json:"type"`
	Origin   string    `json:"origin"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}

// Broadcaster fans session events out to other managers
type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, fn func(Event)) (unsubscribe func(), err error)
}

// LocalBroadcaster delivers events synchronously to managers in the same process.
// Each broadcaster registers one bus handler and tracks its own subscribers, since
// the bus cannot tell closures apart on unsubscribe.
type LocalBroadcaster struct {
	bus   EventBus.Bus
	topic string

	mu     sync.Mutex
	once   sync.Once
	nextID int
	subs   map[int]func(Event)
	subErr error
}

// NewLocalBroadcaster creates a broadcaster on bus; pass the same bus to every manager that shares a session
func NewLocalBroadcaster(bus EventBus.Bus) *LocalBroadcaster {
	if bus == nil {
		bus = EventBus.New()
	}
	return &LocalBroadcaster{bus: bus, topic: DefaultChannel, subs: make(map[int]func(Event))}
}

func (b *LocalBroadcaster) Publish(ctx context.Context, ev Event) error {
	b.bus.Publish(b.topic, ev)
	return nil
}

func (b *LocalBroadcaster) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	b.once.Do(func() {
		b.subErr = b.bus.Subscribe(b.topic, b.dispatch)
	})
	if b.subErr != nil {
		return nil, fmt.Errorf("failed to subscribe to session events: %w", b.subErr)
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *LocalBroadcaster) dispatch(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// RedisBroadcaster delivers events across processes through Redis pub/sub
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	log     log.FieldLogger
}

// NewRedisBroadcaster creates a broadcaster publishing on channel, or DefaultChannel when empty
func NewRedisBroadcaster(client *redis.Client, channel string, logger log.FieldLogger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisBroadcaster{client: client, channel: channel, log: logger}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning so no later event is missed
func (b *RedisBroadcaster) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("Failed to decode session event")
				continue
			}
			fn(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}, nil
}
