package httpx

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/fleetdeck/internal/platform/requestctx"
	apperrors "github.com/louisbranch/fleetdeck/internal/services/console/platform/errors"
)

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	called := ""
	mw1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called += "1"
			next.ServeHTTP(w, r)
		})
	}
	mw2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called += "2"
			next.ServeHTTP(w, r)
		})
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called += "h"
		w.WriteHeader(http.StatusNoContent)
	}), mw1, nil, mw2)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if called != "12h" {
		t.Fatalf("call order = %q, want %q", called, "12h")
	}
}

func TestRequestIDGeneratesAndStoresInContext(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rr.Header().Get("X-Request-ID")
	if header == "" {
		t.Fatal("expected generated X-Request-ID header")
	}
	if seen != header {
		t.Fatalf("context request id = %q, header = %q", seen, header)
	}
}

func TestRequestIDEchoesIncomingHeader(t *testing.T) {
	t.Parallel()

	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Fatalf("X-Request-ID = %q, want %q", got, "req-abc")
	}
}

func TestRecoverPanicRendersFallback(t *testing.T) {
	t.Parallel()

	render := func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteHTML(w, http.StatusInternalServerError, "<p>Something went wrong</p>")
	}
	h := RecoverPanic(render)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/robots", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if rr.Body.String() != "<p>Something went wrong</p>" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestRecoverPanicWithoutRendererWrites500(t *testing.T) {
	t.Parallel()

	h := RecoverPanic(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestWriteErrorUsesTypedStatus(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteError(rr, apperrors.E(apperrors.KindNotFound, "missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = httptest.NewRecorder()
	WriteError(rr, errors.New("boom"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestWriteRedirectHonorsHTMX(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/actions/login", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	WriteRedirect(rr, req, "/settings")
	if got := rr.Header().Get("HX-Redirect"); got != "/settings" {
		t.Fatalf("HX-Redirect = %q, want %q", got, "/settings")
	}

	rr = httptest.NewRecorder()
	WriteRedirect(rr, httptest.NewRequest(http.MethodPost, "/actions/login", nil), "/settings")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/settings" {
		t.Fatalf("Location = %q, want %q", got, "/settings")
	}
}

func TestHasSameOriginProof(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		host    string
		tls     bool
		origin  string
		referer string
		want    bool
	}{
		{name: "matching origin", host: "127.0.0.1:8088", origin: "http://127.0.0.1:8088", want: true},
		{name: "origin host case", host: "Console.Local", origin: "http://console.local", want: true},
		{name: "default port", host: "console.local:80", origin: "http://console.local", want: true},
		{name: "tls default port", host: "console.local", tls: true, origin: "https://console.local:443", want: true},
		{name: "referer fallback", host: "console.local", referer: "http://console.local/settings", want: true},
		{name: "origin wins over referer", host: "console.local", origin: "https://evil.example", referer: "http://console.local/", want: false},
		{name: "foreign host", host: "console.local", origin: "http://evil.example", want: false},
		{name: "scheme mismatch", host: "console.local", origin: "https://console.local", want: false},
		{name: "port mismatch", host: "127.0.0.1:8088", origin: "http://127.0.0.1:9999", want: false},
		{name: "null origin", host: "console.local", origin: "null", want: false},
		{name: "relative referer", host: "console.local", referer: "/settings", want: false},
		{name: "no headers", host: "console.local", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/actions/logout", nil)
			req.Host = tc.host
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.referer != "" {
				req.Header.Set("Referer", tc.referer)
			}
			if got := HasSameOriginProof(req); got != tc.want {
				t.Fatalf("HasSameOriginProof = %t, want %t", got, tc.want)
			}
		})
	}
}

func TestRequireSameOriginRejects(t *testing.T) {
	t.Parallel()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/actions/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	RequireSameOrigin(nil)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden || called {
		t.Fatalf("status = %d called = %t, want 403 without calling next", rr.Code, called)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/actions/login", nil)
	req.Header.Set("Origin", "http://example.com")
	RequireSameOrigin(nil)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || !called {
		t.Fatalf("status = %d called = %t, want next served", rr.Code, called)
	}
}
