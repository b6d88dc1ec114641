// Package session owns the client-side authentication session: who is
// signed in, whether the startup check has finished, and every transition
// between the two stable states (anonymous and authenticated).
//
// The manager is the only writer of both the in-memory session and the
// persisted credential store. Operations never panic and never return Go
// errors across the public boundary; callers get a Result value and read
// the session through Snapshot.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/storefront-dev/storefront/internal/cli/credstore"
	"github.com/storefront-dev/storefront/internal/cli/identity"
)

// API is the slice of the identity service the session manager depends on.
// *identity.Client satisfies it; tests substitute stubs.
type API interface {
	VerifyToken(ctx context.Context, token string) error
	CreateTokenPair(ctx context.Context, creds identity.Credentials) (*identity.TokenPair, error)
	RefreshAccessToken(ctx context.Context, refresh string) (string, error)
	CreateAccount(ctx context.Context, profile identity.Profile) error
	CurrentUser(ctx context.Context, access string) (identity.User, error)
}

// Result is the uniform outcome of a session operation. Error carries a
// human-readable reason when OK is false.
type Result struct {
	OK    bool
	Error string
}

func ok() Result {
	return Result{OK: true}
}

func failure(reason string) Result {
	return Result{Error: reason}
}

// reasonFor normalizes an identity-service error into a display string:
// server rejections surface the server's message, transport failures
// collapse to a generic network error.
func reasonFor(err error, fallback string) string {
	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	return "network error"
}

// Snapshot is a point-in-time read of the session
type Snapshot struct {
	User    identity.User
	Loading bool
}

// Authenticated reports whether a user is currently signed in
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Manager mediates every transition of the session. It guards shared state
// with a mutex and stamps each applied mutation with an epoch; an operation
// that raced a later one (say, a login completing after a logout) finds the
// epoch moved and discards its result instead of applying it.
type Manager struct {
	api   API
	store credstore.Store

	mu      sync.Mutex
	user    identity.User
	loading bool
	epoch   uint64
}

// NewManager creates a session manager in its initial state: no user,
// loading until Bootstrap completes.
func NewManager(api API, store credstore.Store) *Manager {
	return &Manager{
		api:     api,
		store:   store,
		loading: true,
	}
}

// Snapshot returns the current session state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{User: m.user, Loading: m.loading}
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Bootstrap restores a session from persisted credentials. Call it once at
// process start, before any other operation. It never fails: an unreadable,
// missing, or rejected token all resolve to an anonymous ready session, and
// rejected tokens are cleared from storage on the way.
func (m *Manager) Bootstrap(ctx context.Context) {
	epoch := m.currentEpoch()

	token, err := m.store.AccessToken()
	if err != nil || token == "" {
		m.finishBootstrap(epoch, nil, false)
		return
	}

	if err := m.api.VerifyToken(ctx, token); err != nil {
		// Transport failure and rejection are treated alike: the token
		// cannot be trusted, so fail closed.
		m.finishBootstrap(epoch, nil, true)
		return
	}

	user, err := m.api.CurrentUser(ctx, token)
	if err != nil {
		m.finishBootstrap(epoch, nil, true)
		return
	}

	m.finishBootstrap(epoch, user, false)
}

// finishBootstrap resolves loading exactly once and applies the outcome
// unless the session moved on while bootstrap was in flight.
func (m *Manager) finishBootstrap(epoch uint64, user identity.User, clearTokens bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loading = false
	if m.epoch != epoch {
		return
	}
	m.epoch++

	if clearTokens {
		_ = m.store.Clear()
	}
	m.user = user
}

// Login exchanges credentials for a token pair, persists it, and fetches the
// signed-in user. A rejected or unreachable exchange mutates nothing and
// returns the server's reason (or a generic one) for display.
func (m *Manager) Login(ctx context.Context, creds identity.Credentials) Result {
	epoch := m.currentEpoch()

	pair, err := m.api.CreateTokenPair(ctx, creds)
	if err != nil {
		return failure(reasonFor(err, "login failed"))
	}

	return m.adoptTokens(ctx, epoch, pair)
}

// LoginWithTokens establishes a session from an already-minted token pair,
// skipping the credential exchange. Used when the service hands tokens back
// directly, e.g. out-of-band account flows.
func (m *Manager) LoginWithTokens(ctx context.Context, pair *identity.TokenPair) Result {
	return m.adoptTokens(ctx, m.currentEpoch(), pair)
}

// adoptTokens persists the pair and fetches the user it belongs to. The
// identity fetch failing after the tokens are stored is not a login failure:
// the credentials are valid and persisted, the profile just couldn't be read
// right now. Bootstrap or whoami will retry it.
func (m *Manager) adoptTokens(ctx context.Context, epoch uint64, pair *identity.TokenPair) Result {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return failure("session changed while signing in; please retry")
	}
	if err := m.store.SaveTokens(pair.Access, pair.Refresh); err != nil {
		m.mu.Unlock()
		return failure("could not save credentials")
	}
	m.epoch++
	applied := m.epoch
	m.mu.Unlock()

	user, err := m.api.CurrentUser(ctx, pair.Access)
	if err == nil {
		m.mu.Lock()
		if m.epoch == applied {
			m.epoch++
			m.user = user
		}
		m.mu.Unlock()
	}

	return ok()
}

// Signup creates an account and, on success, immediately signs in with the
// same username and password. Signup has no authenticated outcome of its
// own: the caller sees the result of that implicit login.
func (m *Manager) Signup(ctx context.Context, profile identity.Profile) Result {
	if err := m.api.CreateAccount(ctx, profile); err != nil {
		return failure(reasonFor(err, "registration failed"))
	}

	res := m.Login(ctx, identity.Credentials{
		Username: profile.Username,
		Password: profile.Password,
	})
	if !res.OK {
		// The account exists server-side at this point. Say so, rather
		// than letting the caller believe registration itself failed.
		res.Error = "account created, but automatic sign-in failed: " + res.Error
	}
	return res
}

// Refresh rotates the access token using the persisted refresh token. Any
// failure is fail-closed: both tokens are cleared and the session reverts
// to anonymous. Refresh does not re-fetch the user; the identity on file
// stays as it was.
func (m *Manager) Refresh(ctx context.Context) Result {
	epoch := m.currentEpoch()

	refresh, err := m.store.RefreshToken()
	if err != nil || refresh == "" {
		m.Logout()
		return failure("no session to refresh")
	}

	access, err := m.api.RefreshAccessToken(ctx, refresh)
	if err != nil {
		m.Logout()
		return failure(reasonFor(err, "session expired, please sign in again"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return failure("session changed while refreshing")
	}
	if err := m.store.SaveAccessToken(access); err != nil {
		return failure("could not save refreshed credentials")
	}
	m.epoch++
	return ok()
}

// Logout clears persisted credentials and drops the in-memory user. It is
// idempotent, makes no network calls, and cannot fail.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	_ = m.store.Clear()
	m.user = nil
}
