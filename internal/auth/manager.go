package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

// Storage keys for persisted credentials.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// expiryLeeway refreshes slightly before the access token actually expires.
const expiryLeeway = 10 * time.Second

// Authenticator is the backend surface the Manager needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (core.TokenPair, error)
	Register(ctx context.Context, username, password, email string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, accessToken string) (core.User, error)
}

// Manager holds the client's credential and persists it across runs.
type Manager struct {
	kv     store.KeyValueStore
	client Authenticator
	log    *zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	access  string
	refresh string
	user    *core.User
}

// NewManager creates a credential manager backed by kv.
func NewManager(kv store.KeyValueStore, client Authenticator, logger *zerolog.Logger) *Manager {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Manager{
		kv:     kv,
		client: client,
		log:    logger,
		now:    time.Now,
	}
}

// Load restores the persisted credential, if any.
func (m *Manager) Load(ctx context.Context) error {
	access, _, err := m.kv.GetItem(ctx, KeyAccessToken)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := m.kv.GetItem(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	rawUser, ok, err := m.kv.GetItem(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	var user *core.User
	if ok && rawUser != "" {
		var u core.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			m.log.Warn().Err(err).Msg("stored user is malformed, ignoring")
		} else {
			user = &u
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.user = access, refresh, user
	return nil
}

// Login authenticates, fetches the profile and persists everything.
func (m *Manager) Login(ctx context.Context, username, password string) (core.User, error) {
	pair, err := m.client.Login(ctx, username, password)
	if err != nil {
		return core.User{}, err
	}
	user, err := m.client.Me(ctx, pair.Access)
	if err != nil {
		return core.User{}, err
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return core.User{}, fmt.Errorf("marshal user: %w", err)
	}
	if err := m.kv.SetItems(ctx, map[string]string{
		KeyAccessToken:  pair.Access,
		KeyRefreshToken: pair.Refresh,
		KeyUser:         string(rawUser),
	}); err != nil {
		return core.User{}, fmt.Errorf("persist credential: %w", err)
	}

	m.mu.Lock()
	m.access, m.refresh, m.user = pair.Access, pair.Refresh, &user
	m.mu.Unlock()

	m.log.Info().Str("username", user.Username).Msg("logged in")
	return user, nil
}

// Register creates an account without logging in.
func (m *Manager) Register(ctx context.Context, username, password, email string) error {
	return m.client.Register(ctx, username, password, email)
}

// Logout forgets the credential.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

func (m *Manager) clearLocked(ctx context.Context) error {
	m.access, m.refresh, m.user = "", "", nil
	if err := m.kv.RemoveItems(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// Token returns the access token, refreshing it first when it has expired.
// It returns "" and no error when there is no credential.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.access == "" {
		return "", nil
	}
	if m.refresh != "" && TokenExpired(m.access, m.now(), expiryLeeway) {
		m.log.Debug().Msg("access token expired, refreshing")
		return m.refreshLocked(ctx)
	}
	return m.access, nil
}

// Refresh obtains a new access token. Any failure logs the user out.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	if m.refresh == "" {
		if err := m.clearLocked(ctx); err != nil {
			m.log.Warn().Err(err).Msg("clear credential")
		}
		return "", core.ErrNoCredential
	}

	access, err := m.client.Refresh(ctx, m.refresh)
	if err == nil {
		err = m.kv.SetItems(ctx, map[string]string{KeyAccessToken: access})
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed, logging out")
		if clearErr := m.clearLocked(ctx); clearErr != nil {
			m.log.Warn().Err(clearErr).Msg("clear credential")
		}
		var ce *core.CoreError
		if errors.As(err, &ce) && ce.Code == core.ErrCodeAuth {
			return "", err
		}
		return "", core.AuthError("token refresh failed", err)
	}

	m.access = access
	return access, nil
}

// User returns the logged-in profile, if any.
func (m *Manager) User() (core.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return core.User{}, false
	}
	return *m.user, true
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access != ""
}
