// Package backend is the console's HTTP+JSON client for the fleet backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.einride.tech/aip/resourcename"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/fleetdeck/internal/platform/timeouts"
	apperrors "github.com/louisbranch/fleetdeck/internal/services/console/platform/errors"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
)

const (
	tracerName = "github.com/louisbranch/fleetdeck/internal/services/console/backend"
	apiPrefix  = "/v1/"

	// maxErrorBody bounds how much of an error response is read for a message.
	maxErrorBody = 4 << 10
)

// TokenSource supplies the bearer token for data requests.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client talks to the fleet backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	tracer trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithTokenSource sets where data requests read the bearer token from.
func WithTokenSource(tokens TokenSource) Option {
	return func(client *Client) {
		client.tokens = tokens
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(client *Client) {
		if tp != nil {
			client.tracer = tp.Tracer(tracerName)
		}
	}
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https: %q", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("backend url host is required")
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeouts.BackendRequest},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type tokenResponse struct {
	Token string            `json:"token"`
	User  *session.Identity `json:"user,omitempty"`
}

// Login exchanges credentials for a session token and identity.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (string, session.Identity, error) {
	var resp tokenResponse
	body := loginRequest{Identifier: creds.Identifier, Secret: creds.Secret}
	if err := c.do(ctx, http.MethodPost, "auth/login", "", body, &resp); err != nil {
		return "", session.Identity{}, err
	}
	if resp.Token == "" || resp.User == nil {
		return "", session.Identity{}, apperrors.E(apperrors.KindUnavailable, "backend returned an incomplete login response")
	}
	return resp.Token, *resp.User, nil
}

// CurrentUser resolves the identity behind token.
func (c *Client) CurrentUser(ctx context.Context, token string) (session.Identity, error) {
	var identity session.Identity
	if err := c.do(ctx, http.MethodGet, "auth/me", token, nil, &identity); err != nil {
		return session.Identity{}, err
	}
	return identity, nil
}

// Refresh renews token.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "auth/refresh", token, nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", apperrors.E(apperrors.KindUnavailable, "backend returned an empty token")
	}
	return resp.Token, nil
}

// Logout revokes token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "auth/logout", token, nil, nil)
}

// ListRobots returns the fleet.
func (c *Client) ListRobots(ctx context.Context) ([]Robot, error) {
	var resp struct {
		Robots []Robot `json:"robots"`
	}
	if err := c.do(ctx, http.MethodGet, string(KindRobot), c.token(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Robots, nil
}

// ListOrders returns known orders.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, string(KindOrder), c.token(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ListTemplates returns order templates.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var resp struct {
		Templates []Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, string(KindTemplate), c.token(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// FetchEntity loads one entity. A missing entity yields a KindNotFound error.
func (c *Client) FetchEntity(ctx context.Context, kind Kind, id string) (Entity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.E(apperrors.KindInvalidInput, "identifier is required")
	}
	pattern, ok := kind.resourcePattern()
	if !ok {
		return nil, apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("unknown entity kind %q", kind))
	}
	name := resourcename.Sprint(pattern, url.PathEscape(id))

	var entity Entity
	var err error
	switch kind {
	case KindRobot:
		var robot Robot
		err = c.do(ctx, http.MethodGet, name, c.token(), nil, &robot)
		entity = robot
	case KindOrder:
		var order Order
		err = c.do(ctx, http.MethodGet, name, c.token(), nil, &order)
		entity = order
	case KindTemplate:
		var tpl Template
		err = c.do(ctx, http.MethodGet, name, c.token(), nil, &tpl)
		entity = tpl
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// do performs one traced request against /v1/{name}. A nil out discards
// the response body.
func (c *Client) do(ctx context.Context, method, name, token string, in, out any) (err error) {
	if c == nil || c.base == nil {
		return apperrors.E(apperrors.KindUnavailable, "backend client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// name is already path-escaped; keep both forms so escaped separators
	// inside identifiers survive.
	endpoint := *c.base
	endpoint.RawPath = c.base.Path + apiPrefix + name
	endpoint.Path = endpoint.RawPath
	if unescaped, uerr := url.PathUnescape(endpoint.RawPath); uerr == nil {
		endpoint.Path = unescaped
	}

	ctx, span := c.tracer.Start(ctx, "backend "+method+" "+spanRoute(name),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", endpoint.EscapedPath()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, string(apperrors.KindOf(err)))
		}
		span.End()
	}()

	var reader io.Reader
	if in != nil {
		payload, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("encode request: %w", merr)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "fleet backend is unreachable", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "fleet backend returned malformed data", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	kind := apperrors.KindFromHTTPStatus(resp.StatusCode)
	message := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			message = body.Message
		} else if body.Error != "" {
			message = body.Error
		}
	}
	return apperrors.Wrap(kind, message, fmt.Errorf("backend status %d", resp.StatusCode))
}

// spanRoute keeps span names low-cardinality by dropping identifiers.
func spanRoute(name string) string {
	if collection, _, ok := strings.Cut(name, "/"); ok && collection != "auth" {
		return collection + "/{id}"
	}
	return name
}
