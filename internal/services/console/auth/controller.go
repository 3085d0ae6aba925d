// Package auth drives the console session through its lifecycle: restoring a
// stored session at start, refreshing the token on a fixed interval, and
// signing in and out.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/fleetdeck/internal/platform/clock"
	apperrors "github.com/louisbranch/fleetdeck/internal/services/console/platform/errors"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
)

// DefaultRefreshInterval is how often a live session token is renewed.
const DefaultRefreshInterval = 25 * time.Minute

// ErrSessionExpired is recorded when the held or stored token has expired.
var ErrSessionExpired = apperrors.E(apperrors.KindUnauthorized, "session expired, sign in again")

// Backend is the subset of the fleet backend the controller calls.
type Backend interface {
	Login(ctx context.Context, creds session.Credentials) (string, session.Identity, error)
	CurrentUser(ctx context.Context, token string) (session.Identity, error)
	Refresh(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

// Controller owns the refresh task and performs auth side effects against
// the session store.
type Controller struct {
	store    *session.Store
	backend  Backend
	clock    clock.Clock
	interval time.Duration

	mu          sync.Mutex
	baseCtx     context.Context
	armedToken  string
	armedAuth   bool
	cancel      context.CancelFunc
	ticker      *clock.Ticker
	closed      bool
	unsubscribe func()
	tasks       sync.WaitGroup
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock sets the clock driving the refresh ticker.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithRefreshInterval overrides DefaultRefreshInterval. Non-positive values
// are ignored.
func WithRefreshInterval(d time.Duration) Option {
	return func(ctrl *Controller) {
		if d > 0 {
			ctrl.interval = d
		}
	}
}

// NewController wires a controller to store and backend.
func NewController(store *session.Store, backend Backend, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if backend == nil {
		return nil, errors.New("auth backend is required")
	}
	c := &Controller{
		store:    store,
		backend:  backend,
		clock:    clock.Real(),
		interval: DefaultRefreshInterval,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start subscribes the controller to session changes so the refresh task
// follows the token and authentication state. Refresh tasks run under ctx.
func (c *Controller) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.closed || c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.baseCtx = ctx
	c.mu.Unlock()

	unsubscribe := c.store.Subscribe(func(snap session.Snapshot) {
		c.ScheduleRefresh(snap.Token, snap.Authenticated)
	})
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	snap := c.store.Snapshot()
	c.ScheduleRefresh(snap.Token, snap.Authenticated)
}

// ScheduleRefresh keeps exactly one refresh task alive while token is set
// and authenticated is true. Calls with unchanged inputs keep the current
// task; any change cancels it and, if both inputs still hold, arms a new one.
func (c *Controller) ScheduleRefresh(token string, authenticated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if token == c.armedToken && authenticated == c.armedAuth {
		return
	}
	c.armedToken = token
	c.armedAuth = authenticated
	c.stopTaskLocked()
	if token == "" || !authenticated {
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	ticker := c.clock.NewTicker(c.interval)
	c.cancel = cancel
	c.ticker = ticker
	c.tasks.Add(1)
	go c.refreshLoop(ctx, ticker, token)
}

// stopTaskLocked cancels the running task without waiting for it: the task
// itself may be the caller, re-arming after a successful refresh.
func (c *Controller) stopTaskLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) refreshLoop(ctx context.Context, ticker *clock.Ticker, token string) {
	defer c.tasks.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			c.refresh(ctx, token)
		}
	}
}

func (c *Controller) refresh(ctx context.Context, token string) {
	if !session.TokenValid(token, c.clock.Now()) {
		c.endSession(ctx, token, ErrSessionExpired)
		return
	}
	next, err := c.backend.Refresh(ctx, token)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if apperrors.Is(err, apperrors.KindUnauthorized) {
			c.endSession(ctx, token, err)
			return
		}
		log.Printf("auth token refresh failed kind=%s err=%v", apperrors.KindOf(err), err)
		c.store.RefreshFailed(err)
		return
	}
	if _, err := c.store.TokenRefreshed(ctx, token, next); err != nil {
		log.Printf("auth refreshed token not persisted err=%v", err)
	}
}

// endSession signs out locally; clearing the token disarms this task.
func (c *Controller) endSession(ctx context.Context, token string, cause error) {
	log.Printf("auth session ended kind=%s err=%v", apperrors.KindOf(cause), cause)
	if _, err := c.store.SessionEnded(ctx, token, cause); err != nil {
		log.Printf("auth cleared token not persisted err=%v", err)
	}
}

// RestoreIfNeeded resolves the identity for a stored token when the session
// is signed out with no identity loaded and no fetch in flight. It reports
// whether a fetch was started.
func (c *Controller) RestoreIfNeeded(ctx context.Context) (bool, error) {
	if c.store.Snapshot().Token == "" {
		if err := c.store.Load(ctx); err != nil {
			return false, err
		}
	}
	if !c.store.FetchUserRequested() {
		return false, nil
	}

	token := c.store.Snapshot().Token
	if !session.TokenValid(token, c.clock.Now()) {
		return true, c.fetchFailed(ctx, ErrSessionExpired)
	}
	identity, err := c.backend.CurrentUser(ctx, token)
	if err != nil {
		return true, c.fetchFailed(ctx, err)
	}
	c.store.FetchUserSucceeded(identity)
	log.Printf("auth session restored user_id=%s", identity.UserID)
	return true, nil
}

func (c *Controller) fetchFailed(ctx context.Context, err error) error {
	clearToken := apperrors.Is(err, apperrors.KindUnauthorized)
	log.Printf("auth session restore failed kind=%s clear_token=%t err=%v", apperrors.KindOf(err), clearToken, err)
	if storeErr := c.store.FetchUserFailed(ctx, err, clearToken); storeErr != nil {
		return errors.Join(err, storeErr)
	}
	return err
}

// Login signs in with creds. Failures land on the session's LastError and
// are returned; they are not retried.
func (c *Controller) Login(ctx context.Context, creds session.Credentials) error {
	creds.Identifier = strings.TrimSpace(creds.Identifier)
	if creds.Identifier == "" || creds.Secret == "" {
		err := apperrors.E(apperrors.KindInvalidInput, "identifier and secret are required")
		c.store.LoginFailed(err)
		return err
	}
	c.store.LoginRequested()
	token, identity, err := c.backend.Login(ctx, creds)
	if err != nil {
		log.Printf("auth login failed identifier=%s kind=%s", creds.Identifier, apperrors.KindOf(err))
		c.store.LoginFailed(err)
		return err
	}
	log.Printf("auth login succeeded user_id=%s", identity.UserID)
	return c.store.LoginSucceeded(ctx, token, identity)
}

// Logout ends the session. The backend call is best effort; the local
// session is cleared regardless.
func (c *Controller) Logout(ctx context.Context) error {
	if token := c.store.Snapshot().Token; token != "" {
		if err := c.backend.Logout(ctx, token); err != nil {
			log.Printf("auth backend logout failed kind=%s err=%v", apperrors.KindOf(err), err)
		}
	}
	return c.store.LoggedOut(ctx)
}

// Close stops following the session, cancels the refresh task and waits
// for it to exit. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTaskLocked()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.tasks.Wait()
}
