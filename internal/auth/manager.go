package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"transcribe/internal/broadcast"
	"transcribe/internal/config"
	"transcribe/internal/logging"
	"transcribe/internal/services"
)

// ErrNotConfigured is returned by account operations when no auth URL is set.
var ErrNotConfigured = errors.New("auth provider not configured")

// EventType names a session transition.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventTokenRefreshed EventType = "token_refreshed"
	EventUserUpdated    EventType = "user_updated"
)

// Event is delivered to subscribers after a session transition.
type Event struct {
	Type EventType
	User User
}

const defaultLeeway = time.Minute

// Option customises Manager construction.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for auth calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(m *Manager) {
		if client != nil {
			m.client.http = client
		}
	}
}

// WithStore injects a custom persistence layer.
func WithStore(store SessionStore) Option {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithLeeway sets how close to expiry a token is refreshed.
func WithLeeway(leeway time.Duration) Option {
	return func(m *Manager) {
		if leeway >= 0 {
			m.leeway = leeway
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager owns the session lifecycle.
type Manager struct {
	client  goTrue
	enabled bool
	store   SessionStore
	leeway  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	events  *broadcast.Bus[Event]

	mu      sync.Mutex
	loaded  bool
	session Session
}

// NewManager builds a Manager for the auth server at baseURL. An empty
// baseURL yields a disabled manager whose Token always returns "".
func NewManager(baseURL, anonKey string, opts ...Option) *Manager {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	m := &Manager{
		client: goTrue{
			baseURL: base,
			anonKey: strings.TrimSpace(anonKey),
			http:    &http.Client{Timeout: 10 * time.Second},
		},
		enabled: base != "",
		store:   &MemoryStore{},
		leeway:  defaultLeeway,
		now:     time.Now,
		events:  broadcast.New[Event](),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "auth")
	return m
}

// NewFromConfig builds a Manager backed by the configured session file.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return NewManager(cfg.Auth.URL, cfg.Auth.AnonKey,
		WithStore(NewFileStore(cfg.Auth.SessionFile)),
		WithLeeway(cfg.RefreshLeeway()),
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithLogger(logger),
	), nil
}

// Enabled reports whether an auth provider is configured.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Subscribe registers fn for session events and returns an unsubscribe func.
func (m *Manager) Subscribe(fn func(Event)) func() {
	return m.events.Subscribe(fn)
}

// Session returns the current session, loading it from the store if needed.
func (m *Manager) Session() (Session, bool) {
	if !m.Enabled() {
		return Session{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(); err != nil {
		return Session{}, false
	}
	return m.session, m.session.Valid()
}

// Token returns a current access token, refreshing it when it is close to
// expiry. No session yields "" and a nil error.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if !m.Enabled() {
		return "", nil
	}
	m.mu.Lock()
	if err := m.loadLocked(); err != nil {
		m.mu.Unlock()
		return "", err
	}
	if !m.session.Valid() {
		m.mu.Unlock()
		return "", nil
	}
	if !m.session.NeedsRefresh(m.now(), m.leeway) {
		token := m.session.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	event, err := m.refreshLocked(ctx)
	token := m.session.AccessToken
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	m.events.Publish(event)
	return token, nil
}

// Refresh forces a refresh_token grant.
func (m *Manager) Refresh(ctx context.Context) (Session, error) {
	if !m.Enabled() {
		return Session{}, ErrNotConfigured
	}
	m.mu.Lock()
	if err := m.loadLocked(); err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	event, err := m.refreshLocked(ctx)
	session := m.session
	m.mu.Unlock()
	if err != nil {
		return Session{}, err
	}
	m.events.Publish(event)
	return session, nil
}

// refreshLocked exchanges the refresh token. An auth rejection clears the
// stored session. Callers hold m.mu and publish the returned event after
// releasing it.
func (m *Manager) refreshLocked(ctx context.Context) (Event, error) {
	if strings.TrimSpace(m.session.RefreshToken) == "" {
		return Event{}, services.Markf(services.ErrAuth, "Token expired and no refresh token available")
	}
	resp, err := m.client.refreshGrant(ctx, m.session.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrAuth) {
			m.logger.Info("refresh rejected, clearing session", logging.Error(err))
			m.session = Session{}
			_ = m.store.Clear()
		}
		return Event{}, err
	}
	next := resp.session(m.now())
	if next.User.ID == "" {
		next.User = m.session.User
	}
	if err := m.store.Save(next); err != nil {
		return Event{}, err
	}
	m.session = next
	m.logger.Debug("access token refreshed", logging.String("expires_at", next.ExpiresAt.Format(time.RFC3339)))
	return Event{Type: EventTokenRefreshed, User: next.User}, nil
}

// SignIn exchanges email and password for a session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	if !m.Enabled() {
		return Session{}, ErrNotConfigured
	}
	resp, err := m.client.passwordGrant(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return Session{}, err
	}
	session := resp.session(m.now())
	if err := m.replace(session); err != nil {
		return Session{}, err
	}
	m.logger.Info("signed in", logging.String("email", session.User.Email))
	m.events.Publish(Event{Type: EventSignedIn, User: session.User})
	return session, nil
}

// SignUp registers an account. When the provider requires email
// confirmation the returned bool is false and no session is stored.
func (m *Manager) SignUp(ctx context.Context, email, password string) (Session, bool, error) {
	if !m.Enabled() {
		return Session{}, false, ErrNotConfigured
	}
	resp, err := m.client.signup(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return Session{}, false, err
	}
	if resp.AccessToken == "" {
		var user User
		if resp.User != nil {
			user = *resp.User
		}
		return Session{User: user}, false, nil
	}
	session := resp.session(m.now())
	if err := m.replace(session); err != nil {
		return Session{}, false, err
	}
	m.events.Publish(Event{Type: EventSignedIn, User: session.User})
	return session, true, nil
}

// SignOut revokes the session remotely (best effort) and clears it locally.
func (m *Manager) SignOut(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	m.mu.Lock()
	if err := m.loadLocked(); err != nil {
		m.logger.Debug("session unreadable during sign out", logging.Error(err))
	}
	previous := m.session
	m.session = Session{}
	clearErr := m.store.Clear()
	m.mu.Unlock()

	if previous.Valid() {
		if err := m.client.logout(ctx, previous.AccessToken); err != nil {
			m.logger.Debug("remote logout failed", logging.Error(err))
		}
	}
	if clearErr != nil {
		return fmt.Errorf("clear session: %w", clearErr)
	}
	m.events.Publish(Event{Type: EventSignedOut, User: previous.User})
	return nil
}

// ResetPassword asks the provider to email a recovery link.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	return m.client.recover(ctx, strings.TrimSpace(email))
}

// RefreshUser fetches the account record and emits user_updated when it
// differs from the stored one.
func (m *Manager) RefreshUser(ctx context.Context) (User, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return User{}, err
	}
	if token == "" {
		return User{}, services.Markf(services.ErrAuth, "Unauthorized")
	}
	user, err := m.client.user(ctx, token)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	changed := m.session.Valid() && m.session.User != user
	var saveErr error
	if changed {
		next := m.session
		next.User = user
		if saveErr = m.store.Save(next); saveErr == nil {
			m.session = next
		}
	}
	m.mu.Unlock()

	if saveErr != nil {
		return User{}, saveErr
	}
	if changed {
		m.events.Publish(Event{Type: EventUserUpdated, User: user})
	}
	return user, nil
}

func (m *Manager) replace(session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(session); err != nil {
		return err
	}
	m.session = session
	m.loaded = true
	return nil
}

// loadLocked reads the store on first use. The file may be rewritten by a
// concurrent invocation, so an expired in-memory token triggers a reread
// before refreshing.
func (m *Manager) loadLocked() error {
	if m.loaded && !m.session.NeedsRefresh(m.now(), m.leeway) {
		return nil
	}
	session, err := m.store.Load()
	if err != nil {
		return err
	}
	m.session = session
	m.loaded = true
	return nil
}
