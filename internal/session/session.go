package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/models"
)

// DefaultSchedule revalidates the session every five minutes
const DefaultSchedule = "@every 5m"

// API is the subset of the REST client used for authentication
type API interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Options configures a Manager
type Options struct {
	// Schedule is a cron spec for revalidation, DefaultSchedule when empty
	Schedule    string
	Broadcaster Broadcaster
	Logger      log.FieldLogger
}

// Manager owns the current user of one client instance and keeps it in sync
// with the server and with other instances sharing the session
type Manager struct {
	api      API
	bc       Broadcaster
	origin   string
	schedule string
	log      log.FieldLogger

	mu        sync.RWMutex
	user      *models.User
	listeners map[int]func(*models.User)
	nextID    int

	cron  *cron.Cron
	unsub func()
}

// NewManager creates a logged-out manager
func NewManager(api API, opts Options) *Manager {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	origin := uuid.NewString()
	return &Manager{
		api:       api,
		bc:        opts.Broadcaster,
		origin:    origin,
		schedule:  opts.Schedule,
		log:       opts.Logger.WithField("session_origin", origin),
		listeners: make(map[int]func(*models.User)),
	}
}

// Start subscribes to remote session events and schedules revalidation
func (m *Manager) Start(ctx context.Context) error {
	if m.cron != nil {
		return fmt.Errorf("session manager already started")
	}
	if m.bc != nil {
		unsub, err := m.bc.Subscribe(ctx, m.handleRemote)
		if err != nil {
			return err
		}
		m.unsub = unsub
	}

	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() {
		if !m.LoggedIn() {
			return
		}
		rctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := m.Revalidate(rctx); err != nil {
			m.log.WithError(err).Warn("Session revalidation failed, logged out")
		}
	}); err != nil {
		if m.unsub != nil {
			m.unsub()
		}
		return fmt.Errorf("failed to schedule session revalidation: %w", err)
	}
	c.Start()
	m.cron = c

	m.log.WithField("schedule", m.schedule).Info("Session manager started")
	return nil
}

// Stop halts revalidation and remote event handling
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.cron = nil
	}
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

// User returns a copy of the current user, nil when logged out
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// LoggedIn reports whether a user is held
func (m *Manager) LoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Subscribe registers fn for every state change; it receives nil on logout
func (m *Manager) Subscribe(fn func(*models.User)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Login authenticates, loads the profile and announces the login
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	if _, err := m.api.Login(ctx, username, password); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	u, err := m.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	m.set(u)
	m.publish(ctx, EventLoggedIn, u.Username)

	m.log.WithField("username", u.Username).Info("Logged in")
	return m.User(), nil
}

// Logout ends the session; local state is cleared even when the server call fails
func (m *Manager) Logout(ctx context.Context) error {
	err := m.api.Logout(ctx)
	m.set(nil)
	m.publish(ctx, EventLoggedOut, "")
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Load restores the user from the server session; an unauthorised answer means logged out
func (m *Manager) Load(ctx context.Context) (*models.User, error) {
	u, err := m.api.Me(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			m.set(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	m.set(u)
	return m.User(), nil
}

// Revalidate refreshes the session once; any failure logs the user out without retrying
func (m *Manager) Revalidate(ctx context.Context) error {
	if err := m.api.Refresh(ctx); err != nil {
		wasLoggedIn := m.LoggedIn()
		m.set(nil)
		if wasLoggedIn {
			m.publish(ctx, EventLoggedOut, "")
		}
		return fmt.Errorf("failed to revalidate session: %w", err)
	}
	return nil
}

func (m *Manager) handleRemote(ev Event) {
	if ev.Origin == m.origin {
		return
	}
	logger := m.log.WithFields(log.Fields{"event": ev.Type, "from": ev.Origin})

	switch ev.Type {
	case EventLoggedOut:
		logger.Info("Remote logout received")
		m.set(nil)
	case EventLoggedIn:
		logger.Info("Remote login received")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := m.Load(ctx); err != nil {
			logger.WithError(err).Warn("Failed to load remote session")
		}
	}
}

func (m *Manager) publish(ctx context.Context, typ, username string) {
	if m.bc == nil {
		return
	}
	ev := Event{Type: typ, Origin: m.origin, Username: username, At: time.Now().UTC()}
	if err := m.bc.Publish(ctx, ev); err != nil {
		m.log.WithError(err).Warn("Failed to publish session event")
	}
}

func (m *Manager) set(u *models.User) {
	m.mu.Lock()
	changed := !sameUser(m.user, u)
	m.user = u
	var listeners []func(*models.User)
	if changed {
		for _, fn := range m.listeners {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		if u == nil {
			fn(nil)
			continue
		}
		cp := *u
		fn(&cp)
	}
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Username == b.Username && a.Email == b.Email
}
