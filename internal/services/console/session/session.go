// Package session holds the console's authentication state.
//
// Store is the only place session state changes. Every change goes through
// one of its action methods, each of which is applied under a single lock
// and then published to subscribers as an immutable Snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/louisbranch/fleetdeck/internal/platform/clock"
	"github.com/louisbranch/fleetdeck/internal/services/console/storage"
)

// TokenKey is the durable storage key of the session token.
const TokenKey = "auth_token"

// Identity is the signed-in operator as reported by the backend.
type Identity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Name returns the display name, falling back to the username.
func (i Identity) Name() string {
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return i.Username
}

// Credentials are submitted once at login and never stored.
type Credentials struct {
	Identifier string
	Secret     string
}

// String keeps the secret out of logs and error messages.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identifier:%q}", c.Identifier)
}

// Snapshot is a copy of the session state at one point in time.
type Snapshot struct {
	Identity      *Identity
	Token         string
	Authenticated bool
	Loading       bool
	LastError     error
}

// Listener receives snapshots in dispatch order. Listeners run while the
// dispatching action still holds the dispatch lock, so they must not call
// action methods synchronously; reading with Snapshot is fine.
type Listener func(Snapshot)

// Store owns the session state.
type Store struct {
	tokens storage.KeyValueStore
	clock  clock.Clock

	// dispatchMu orders mutation plus notification; mu guards the fields.
	dispatchMu sync.Mutex
	mu         sync.RWMutex
	identity   *Identity
	token      string
	loading    bool
	lastErr    error

	nextID    int
	listeners map[int]Listener
	order     []int
}

// NewStore creates an empty session backed by tokens. A nil clock uses the
// real clock.
func NewStore(tokens storage.KeyValueStore, c clock.Clock) *Store {
	if c == nil {
		c = clock.Real()
	}
	return &Store{
		tokens:    tokens,
		clock:     c,
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:     s.token,
		Loading:   s.loading,
		LastError: s.lastErr,
	}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	snap.Authenticated = snap.Identity != nil && TokenValid(s.token, s.clock.Now())
	return snap
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	return func() {
		s.dispatchMu.Lock()
		defer s.dispatchMu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// dispatch applies mutate and publishes the result. mutate returns false to
// signal a no-op; nothing is published then.
func (s *Store) dispatch(action string, mutate func() bool) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.applyLocked(action, mutate)
}

// dispatchPersisting writes token to durable storage ("" deletes it) before
// applying mutate, all under the dispatch lock so storage and state change
// in the same order. A storage failure is returned but the state transition
// still happens.
func (s *Store) dispatchPersisting(ctx context.Context, action, token string, mutate func() bool) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	err := s.persist(ctx, token)
	s.applyLocked(action, mutate)
	return err
}

func (s *Store) applyLocked(action string, mutate func() bool) bool {
	s.mu.Lock()
	changed := mutate()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if !changed {
		return false
	}

	log.Printf("session action=%s authenticated=%t loading=%t", action, snap.Authenticated, snap.Loading)
	for _, id := range s.order {
		s.listeners[id](snap)
	}
	return true
}

// Load seeds the session from durable storage. A missing token is not an
// error.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.readToken(ctx)
	if err != nil {
		return err
	}
	s.dispatch("load", func() bool {
		if s.token == token {
			return false
		}
		s.token = token
		return true
	})
	return nil
}

// StoredToken returns the token held in durable storage, or "" when none.
func (s *Store) StoredToken(ctx context.Context) (string, error) {
	return s.readToken(ctx)
}

func (s *Store) readToken(ctx context.Context) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	token, err := s.tokens.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	return token, nil
}

// LoginRequested marks a login in flight.
func (s *Store) LoginRequested() {
	s.dispatch("login_requested", func() bool {
		s.loading = true
		s.lastErr = nil
		return true
	})
}

// LoginSucceeded stores the new token and identity.
func (s *Store) LoginSucceeded(ctx context.Context, token string, identity Identity) error {
	return s.dispatchPersisting(ctx, "login_succeeded", token, func() bool {
		s.token = token
		s.identity = &identity
		s.loading = false
		s.lastErr = nil
		return true
	})
}

// LoginFailed records err and ends the login attempt.
func (s *Store) LoginFailed(err error) {
	s.dispatch("login_failed", func() bool {
		s.loading = false
		s.lastErr = err
		return true
	})
}

// LoggedOut clears token, identity and authentication in one transition and
// removes the durable token.
func (s *Store) LoggedOut(ctx context.Context) error {
	return s.dispatchPersisting(ctx, "logged_out", "", func() bool {
		s.token = ""
		s.identity = nil
		s.loading = false
		s.lastErr = nil
		return true
	})
}

// TokenRefreshed swaps previous for a renewed token. It is a no-op, and
// returns false, when previous is no longer the held token, so a refresh
// that completes after logout cannot revive the session.
func (s *Store) TokenRefreshed(ctx context.Context, previous, token string) (bool, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if current == "" || current != previous {
		return false, nil
	}
	err := s.persist(ctx, token)
	s.applyLocked("token_refreshed", func() bool {
		s.token = token
		s.lastErr = nil
		return true
	})
	return true, err
}

// RefreshFailed records err; the current token is kept.
func (s *Store) RefreshFailed(err error) {
	s.dispatch("refresh_failed", func() bool {
		s.lastErr = err
		return true
	})
}

// SessionEnded drops the identity and the held and stored tokens when the
// refresh task finds previous expired or rejected, recording err. Like
// TokenRefreshed it is a no-op when previous is no longer the held token.
func (s *Store) SessionEnded(ctx context.Context, previous string, err error) (bool, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if current == "" || current != previous {
		return false, nil
	}
	persistErr := s.persist(ctx, "")
	s.applyLocked("session_ended", func() bool {
		s.token = ""
		s.identity = nil
		s.loading = false
		s.lastErr = err
		return true
	})
	return true, persistErr
}

// FetchUserRequested starts a current-user fetch when one is needed: a
// token is held, no identity is loaded and nothing is already in flight.
// It returns false, and changes nothing, otherwise.
func (s *Store) FetchUserRequested() bool {
	return s.dispatch("fetch_user_requested", func() bool {
		if s.token == "" || s.identity != nil || s.loading {
			return false
		}
		s.loading = true
		s.lastErr = nil
		return true
	})
}

// FetchUserSucceeded stores the identity for the held token. It is dropped
// when no fetch is in flight any more, for example after a logout.
func (s *Store) FetchUserSucceeded(identity Identity) bool {
	return s.dispatch("fetch_user_succeeded", func() bool {
		if !s.loading || s.token == "" {
			return false
		}
		s.identity = &identity
		s.loading = false
		s.lastErr = nil
		return true
	})
}

// FetchUserFailed records err. When clearToken is set the held and stored
// tokens are dropped, which is how an expired session ends.
func (s *Store) FetchUserFailed(ctx context.Context, err error, clearToken bool) error {
	mutate := func() bool {
		s.loading = false
		s.lastErr = err
		if clearToken {
			s.token = ""
			s.identity = nil
		}
		return true
	}
	if !clearToken {
		s.dispatch("fetch_user_failed", mutate)
		return nil
	}
	return s.dispatchPersisting(ctx, "fetch_user_failed", "", mutate)
}

func (s *Store) persist(ctx context.Context, token string) error {
	if s.tokens == nil {
		return nil
	}
	var err error
	if token == "" {
		err = s.tokens.Delete(ctx, TokenKey)
	} else {
		err = s.tokens.Put(ctx, TokenKey, token)
	}
	if err != nil {
		log.Printf("session token persist failed err=%v", err)
		return fmt.Errorf("persist session token: %w", err)
	}
	return nil
}
