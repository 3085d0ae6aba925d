package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/fleetdeck/internal/platform/clock"
	apperrors "github.com/louisbranch/fleetdeck/internal/services/console/platform/errors"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
	"github.com/louisbranch/fleetdeck/internal/services/console/storage"
)

var (
	testNow  = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	operator = session.Identity{UserID: "u-1", Username: "ops"}
)

type fakeBackend struct {
	mu sync.Mutex

	loginToken  string
	loginErr    error
	userErr     error
	refreshErr  error
	logoutErr   error
	userGate    chan struct{}
	userStarted chan struct{}

	refreshes  chan string
	userCalls  int
	logouts    []string
	nextTokens []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{refreshes: make(chan string, 16)}
}

func (f *fakeBackend) Login(_ context.Context, creds session.Credentials) (string, session.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return "", session.Identity{}, f.loginErr
	}
	if f.loginToken != "" {
		return f.loginToken, operator, nil
	}
	return "tok-" + creds.Identifier, operator, nil
}

func (f *fakeBackend) CurrentUser(ctx context.Context, _ string) (session.Identity, error) {
	f.mu.Lock()
	f.userCalls++
	gate, started, err := f.userGate, f.userStarted, f.userErr
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return session.Identity{}, ctx.Err()
		}
	}
	if err != nil {
		return session.Identity{}, err
	}
	return operator, nil
}

func (f *fakeBackend) Refresh(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	err := f.refreshErr
	next := token + "+"
	if len(f.nextTokens) > 0 {
		next, f.nextTokens = f.nextTokens[0], f.nextTokens[1:]
	}
	f.mu.Unlock()
	f.refreshes <- token
	if err != nil {
		return "", err
	}
	return next, nil
}

func (f *fakeBackend) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, token)
	return f.logoutErr
}

func (f *fakeBackend) userCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userCalls
}

type harness struct {
	store   *session.Store
	tokens  *storage.Memory
	clock   *clock.FakeClock
	backend *fakeBackend
	ctrl    *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tokens:  storage.NewMemory(),
		clock:   clock.Fake(testNow),
		backend: newFakeBackend(),
	}
	h.store = session.NewStore(h.tokens, h.clock)
	ctrl, err := NewController(h.store, h.backend, WithClock(h.clock))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	ctrl.Start(context.Background())
	t.Cleanup(ctrl.Close)
	return h
}

// waitForToken blocks until the store holds token and the dispatch that
// set it has finished notifying, so the controller has already re-armed.
func (h *harness) waitForToken(t *testing.T, token string) {
	t.Helper()
	waitFor(t, func() bool { return h.store.Snapshot().Token == token })
	// Subscribe takes the dispatch lock, so it returns only after any
	// in-progress notification completes.
	h.store.Subscribe(func(session.Snapshot) {})()
}

func (h *harness) expectRefresh(t *testing.T, token string) {
	t.Helper()
	select {
	case got := <-h.backend.refreshes:
		if got != token {
			t.Fatalf("refreshed %q, want %q", got, token)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("refresh of %q never happened", token)
	}
}

func (h *harness) expectNoRefresh(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.backend.refreshes:
		t.Fatalf("unexpected refresh of %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewControllerRequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewController(nil, newFakeBackend()); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewController(session.NewStore(nil, nil), nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
}

func TestLoginArmsRefreshAtInterval(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if err := h.ctrl.Login(context.Background(), session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.clock.PendingCount() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.clock.PendingCount())
	}

	h.clock.Advance(DefaultRefreshInterval - time.Minute)
	h.expectNoRefresh(t)

	h.clock.Advance(time.Minute)
	h.expectRefresh(t, "tok-ops")
	h.waitForToken(t, "tok-ops+")

	if h.clock.PendingCount() != 1 {
		t.Fatalf("pending timers after re-arm = %d, want 1", h.clock.PendingCount())
	}
	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-ops+")
	h.waitForToken(t, "tok-ops++")
}

func TestRefreshedTokenIsPersisted(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	if err := h.ctrl.Login(ctx, session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-ops")
	h.waitForToken(t, "tok-ops+")

	if got, _ := h.tokens.Get(ctx, session.TokenKey); got != "tok-ops+" {
		t.Fatalf("stored token = %q, want tok-ops+", got)
	}
}

func TestRefreshFailureKeepsFixedInterval(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.backend.refreshErr = apperrors.E(apperrors.KindUnavailable, "backend down")
	if err := h.ctrl.Login(context.Background(), session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-ops")
	waitFor(t, func() bool { return h.store.Snapshot().LastError != nil })

	snap := h.store.Snapshot()
	if snap.Token != "tok-ops" || !snap.Authenticated {
		t.Fatalf("snapshot = %+v, want token kept", snap)
	}

	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-ops")
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: operator.UserID, ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestExpiredTokenEndsSessionWithoutRefresh(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	token := signedToken(t, testNow.Add(10*time.Minute))
	h.backend.loginToken = token
	if err := h.ctrl.Login(ctx, session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	h.clock.Advance(15 * time.Minute)
	if h.store.Snapshot().Authenticated {
		t.Fatal("expected session unauthenticated past exp")
	}
	h.expectNoRefresh(t)

	h.clock.Advance(DefaultRefreshInterval)
	h.waitForToken(t, "")
	h.expectNoRefresh(t)

	snap := h.store.Snapshot()
	if snap.Identity != nil || !errors.Is(snap.LastError, ErrSessionExpired) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}
	if _, err := h.tokens.Get(ctx, session.TokenKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("stored token err = %v, want ErrNotFound", err)
	}

	for range 3 {
		h.clock.Advance(DefaultRefreshInterval)
	}
	h.expectNoRefresh(t)
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.backend.refreshErr = apperrors.E(apperrors.KindUnauthorized, "token revoked")
	if err := h.ctrl.Login(ctx, session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-ops")
	h.waitForToken(t, "")

	snap := h.store.Snapshot()
	if snap.Authenticated || snap.Identity != nil || !apperrors.Is(snap.LastError, apperrors.KindUnauthorized) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}
	h.clock.Advance(2 * DefaultRefreshInterval)
	h.expectNoRefresh(t)
}

func TestNoRefreshWhileSignedOut(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.clock.Advance(3 * DefaultRefreshInterval)
	h.expectNoRefresh(t)
	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}
}

func TestLogoutCancelsRefresh(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	if err := h.ctrl.Login(ctx, session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.ctrl.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}
	h.clock.Advance(3 * DefaultRefreshInterval)
	h.expectNoRefresh(t)

	snap := h.store.Snapshot()
	if snap.Token != "" || snap.Identity != nil || snap.Authenticated {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(h.backend.logouts) != 1 || h.backend.logouts[0] != "tok-ops" {
		t.Fatalf("backend logouts = %v", h.backend.logouts)
	}
}

func TestLogoutClearsLocallyWhenBackendFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.backend.logoutErr = errors.New("backend down")
	if err := h.ctrl.Login(ctx, session.Credentials{Identifier: "ops", Secret: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.ctrl.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if h.store.Snapshot().Token != "" {
		t.Fatal("expected local session cleared")
	}
}

func TestScheduleRefreshUnchangedInputsKeepTimer(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.ctrl.ScheduleRefresh("tok-a", true)
	h.ctrl.ScheduleRefresh("tok-a", true)
	h.ctrl.ScheduleRefresh("tok-a", true)
	if h.clock.PendingCount() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.clock.PendingCount())
	}

	h.clock.Advance(DefaultRefreshInterval)
	h.expectRefresh(t, "tok-a")
	h.expectNoRefresh(t)
}

func TestScheduleRefreshRearmsOnChange(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.ctrl.ScheduleRefresh("tok-a", true)
	h.clock.Advance(20 * time.Minute)

	h.ctrl.ScheduleRefresh("tok-b", true)
	h.clock.Advance(20 * time.Minute)
	h.expectNoRefresh(t)

	h.clock.Advance(5 * time.Minute)
	h.expectRefresh(t, "tok-b")
}

func TestScheduleRefreshStopsWhenEitherInputFalsy(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.ctrl.ScheduleRefresh("tok-a", true)
	h.ctrl.ScheduleRefresh("tok-a", false)
	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}

	h.ctrl.ScheduleRefresh("", true)
	h.clock.Advance(2 * DefaultRefreshInterval)
	h.expectNoRefresh(t)
}

func TestCustomRefreshInterval(t *testing.T) {
	t.Parallel()
	store := session.NewStore(storage.NewMemory(), nil)
	fc := clock.Fake(testNow)
	backend := newFakeBackend()
	ctrl, err := NewController(store, backend, WithClock(fc), WithRefreshInterval(time.Minute))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(ctrl.Close)

	ctrl.ScheduleRefresh("tok", true)
	fc.Advance(time.Minute)
	select {
	case <-backend.refreshes:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never happened")
	}
}

func TestCloseStopsTasksAndIgnoresLaterSchedules(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.ctrl.ScheduleRefresh("tok-a", true)
	h.ctrl.Close()
	h.ctrl.Close()

	if h.clock.PendingCount() != 0 {
		t.Fatalf("pending timers = %d, want 0", h.clock.PendingCount())
	}
	h.ctrl.ScheduleRefresh("tok-b", true)
	if h.clock.PendingCount() != 0 {
		t.Fatal("schedule after close armed a timer")
	}
}

func TestLoginFailureRecordsError(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	want := apperrors.E(apperrors.KindUnauthorized, "invalid credentials")
	h.backend.loginErr = want

	err := h.ctrl.Login(context.Background(), session.Credentials{Identifier: "ops", Secret: "bad"})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	snap := h.store.Snapshot()
	if snap.Authenticated || snap.Loading || !errors.Is(snap.LastError, want) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if h.clock.PendingCount() != 0 {
		t.Fatal("failed login armed a refresh timer")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	err := h.ctrl.Login(context.Background(), session.Credentials{Identifier: "  ", Secret: "pw"})
	if !apperrors.Is(err, apperrors.KindInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if h.store.Snapshot().LastError == nil {
		t.Fatal("expected LastError to be set")
	}
}

func TestRestoreIfNeededFetchesOnlyWhenNeeded(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	started, err := h.ctrl.RestoreIfNeeded(ctx)
	if err != nil || started {
		t.Fatalf("restore without stored token = %t, %v", started, err)
	}

	if err := h.tokens.Put(ctx, session.TokenKey, "stored"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	started, err = h.ctrl.RestoreIfNeeded(ctx)
	if err != nil || !started {
		t.Fatalf("restore with stored token = %t, %v", started, err)
	}
	snap := h.store.Snapshot()
	if !snap.Authenticated || snap.Identity == nil || snap.Identity.UserID != "u-1" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if h.clock.PendingCount() != 1 {
		t.Fatalf("restored session should arm refresh, pending = %d", h.clock.PendingCount())
	}

	started, err = h.ctrl.RestoreIfNeeded(ctx)
	if err != nil || started {
		t.Fatalf("restore when authenticated = %t, %v", started, err)
	}
	if h.backend.userCallCount() != 1 {
		t.Fatalf("user calls = %d, want 1", h.backend.userCallCount())
	}
}

func TestRestoreIfNeededDoesNotDuplicateInFlightFetch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	_ = h.tokens.Put(ctx, session.TokenKey, "stored")
	h.backend.userGate = make(chan struct{})
	h.backend.userStarted = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.RestoreIfNeeded(ctx)
		done <- err
	}()
	<-h.backend.userStarted

	started, err := h.ctrl.RestoreIfNeeded(ctx)
	if err != nil || started {
		t.Fatalf("second restore = %t, %v; want no-op", started, err)
	}
	close(h.backend.userGate)
	if err := <-done; err != nil {
		t.Fatalf("first restore: %v", err)
	}
	if h.backend.userCallCount() != 1 {
		t.Fatalf("user calls = %d, want 1", h.backend.userCallCount())
	}
}

func TestRestoreIfNeededClearsUnauthorizedToken(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	_ = h.tokens.Put(ctx, session.TokenKey, "revoked")
	h.backend.userErr = apperrors.E(apperrors.KindUnauthorized, "token revoked")

	started, err := h.ctrl.RestoreIfNeeded(ctx)
	if !started || !apperrors.Is(err, apperrors.KindUnauthorized) {
		t.Fatalf("restore = %t, %v", started, err)
	}
	if h.store.Snapshot().Token != "" {
		t.Fatal("expected token cleared")
	}
	if _, err := h.tokens.Get(ctx, session.TokenKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("stored token err = %v, want ErrNotFound", err)
	}
}

func TestRestoreIfNeededKeepsTokenOnTransientFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	_ = h.tokens.Put(ctx, session.TokenKey, "stored")
	h.backend.userErr = apperrors.E(apperrors.KindUnavailable, "backend down")

	if _, err := h.ctrl.RestoreIfNeeded(ctx); err == nil {
		t.Fatal("expected error")
	}
	snap := h.store.Snapshot()
	if snap.Token != "stored" || snap.Loading || snap.LastError == nil {
		t.Fatalf("snapshot = %+v", snap)
	}

	h.backend.mu.Lock()
	h.backend.userErr = nil
	h.backend.mu.Unlock()
	started, err := h.ctrl.RestoreIfNeeded(ctx)
	if err != nil || !started || !h.store.Snapshot().Authenticated {
		t.Fatalf("retry restore = %t, %v", started, err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
