package console

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/platform/timeouts"
	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
	apperrors "github.com/louisbranch/fleetdeck/internal/services/console/platform/errors"
	"github.com/louisbranch/fleetdeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
	"github.com/louisbranch/fleetdeck/internal/services/console/templates"
	"github.com/louisbranch/fleetdeck/internal/services/console/viewrouter"
)

type handlers struct {
	sessions SessionSource
	auth     Authenticator
	data     DataClient
	realtime RealtimeFeed
	health   HealthChecker
}

// servePage dispatches every page GET through the view router.
func (h *handlers) servePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	match := viewrouter.Resolve(r.URL.EscapedPath())
	if match.Redirect {
		http.Redirect(w, r, routepath.Dashboard, http.StatusFound)
		return
	}

	switch match.View {
	case viewrouter.Dashboard:
		h.dashboard(w, r)
	case viewrouter.RobotsList:
		h.list(w, r, backend.KindRobot)
	case viewrouter.OrdersList:
		h.list(w, r, backend.KindOrder)
	case viewrouter.TemplatesList:
		h.list(w, r, backend.KindTemplate)
	case viewrouter.RobotDetail:
		h.detail(w, r, backend.KindRobot, match.Param)
	case viewrouter.OrderDetail:
		h.detail(w, r, backend.KindOrder, match.Param)
	case viewrouter.TemplateDetail:
		h.detail(w, r, backend.KindTemplate, match.Param)
	case viewrouter.Settings:
		h.settings(w, r)
	default:
		h.notFound(w, r)
	}
}

func (h *handlers) page(r *http.Request, titleKey string) templates.Page {
	page := templates.Page{
		Title:      templates.T(r.Context(), titleKey),
		ActivePath: r.URL.Path,
	}
	if snap := h.sessions.Snapshot(); snap.Authenticated && snap.Identity != nil {
		page.Operator = snap.Identity.Name()
	}
	return page
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, http.StatusNotFound, h.page(r, "error.not_found_title"), templates.NotFoundPage())
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := templates.DashboardView{
		Realtime: h.realtime.Status(),
		Messages: h.realtime.Recent(),
	}
	if h.sessions.Snapshot().Authenticated {
		counts, err := h.counts(ctx)
		if err != nil {
			log.Printf("dashboard counts failed kind=%s err=%v", apperrors.KindOf(err), err)
		} else {
			view.Counts = &counts
		}
	}
	if h.health != nil {
		status, err := h.health.Check(ctx)
		if err != nil {
			log.Printf("dashboard health check failed err=%v", err)
		}
		view.Health = string(status)
	}
	writePage(w, r, http.StatusOK, h.page(r, "nav.dashboard"), templates.DashboardPage(view))
}

func (h *handlers) counts(ctx context.Context) (templates.Counts, error) {
	robots, err := h.data.ListRobots(ctx)
	if err != nil {
		return templates.Counts{}, err
	}
	orders, err := h.data.ListOrders(ctx)
	if err != nil {
		return templates.Counts{}, err
	}
	tmpls, err := h.data.ListTemplates(ctx)
	if err != nil {
		return templates.Counts{}, err
	}
	return templates.Counts{Robots: len(robots), Orders: len(orders), Templates: len(tmpls)}, nil
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request, kind backend.Kind) {
	page := h.page(r, navKey(kind))
	if !h.sessions.Snapshot().Authenticated {
		writePage(w, r, http.StatusOK, page, templates.SignInPrompt())
		return
	}
	entities, err := h.listEntities(r.Context(), kind)
	view := templates.ListView{Kind: kind, Entities: entities}
	if err != nil {
		log.Printf("list fetch failed kind=%s error_kind=%s err=%v", kind, apperrors.KindOf(err), err)
		if apperrors.Is(err, apperrors.KindUnauthorized) {
			writePage(w, r, http.StatusOK, page, templates.SignInPrompt())
			return
		}
		view = templates.ListView{Kind: kind, Unavailable: true}
	}
	writePage(w, r, http.StatusOK, page, templates.ListPage(view))
}

func (h *handlers) listEntities(ctx context.Context, kind backend.Kind) ([]backend.Entity, error) {
	switch kind {
	case backend.KindRobot:
		robots, err := h.data.ListRobots(ctx)
		return asEntities(robots), err
	case backend.KindOrder:
		orders, err := h.data.ListOrders(ctx)
		return asEntities(orders), err
	case backend.KindTemplate:
		tmpls, err := h.data.ListTemplates(ctx)
		return asEntities(tmpls), err
	default:
		return nil, apperrors.E(apperrors.KindNotFound, "unknown collection")
	}
}

func asEntities[E backend.Entity](items []E) []backend.Entity {
	out := make([]backend.Entity, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func (h *handlers) detail(w http.ResponseWriter, r *http.Request, kind backend.Kind, id string) {
	writePage(w, r, http.StatusOK, h.page(r, navKey(kind)), templates.DetailPage(templates.DetailView{Kind: kind, ID: id}))
}

// fields serves the lazily loaded field list of a detail card. Every
// outcome is a 200 so HTMX swaps the inline state into place.
func (h *handlers) fields(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.PathValue("kind"))
	if !ok {
		h.notFound(w, r)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeFragment(w, r, http.StatusOK, templates.MissingID(kind))
		return
	}
	if !h.sessions.Snapshot().Authenticated {
		writeFragment(w, r, http.StatusOK, templates.SignInPrompt())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.BackendRequest)
	defer cancel()
	entity, err := h.data.FetchEntity(ctx, kind, id)
	var fragment templ.Component
	switch {
	case err == nil:
		fragment = templates.DetailFields(entity)
	case apperrors.Is(err, apperrors.KindNotFound):
		fragment = templates.DetailFieldsNotFound()
	case apperrors.Is(err, apperrors.KindUnauthorized):
		fragment = templates.SignInPrompt()
	default:
		log.Printf("detail fetch failed kind=%s id=%s error_kind=%s err=%v", kind, id, apperrors.KindOf(err), err)
		fragment = templates.DetailFieldsError()
	}
	writeFragment(w, r, http.StatusOK, fragment)
}

func (h *handlers) settings(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot()
	view := templates.SettingsView{
		Authenticated: snap.Authenticated,
		Loading:       snap.Loading,
	}
	if snap.Identity != nil {
		view.Operator = snap.Identity.Name()
	}
	if snap.LastError != nil {
		view.LastError = snap.LastError.Error()
	}
	writePage(w, r, http.StatusOK, h.page(r, "settings.title"), templates.SettingsPage(view))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	creds := session.Credentials{
		Identifier: r.PostForm.Get("identifier"),
		Secret:     r.PostForm.Get("secret"),
	}
	// The outcome lands on the session and is shown by Settings.
	_ = h.auth.Login(r.Context(), creds)
	httpx.WriteRedirect(w, r, routepath.Settings)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		log.Printf("logout failed err=%v", err)
	}
	httpx.WriteRedirect(w, r, routepath.Settings)
}

func (h *handlers) forbidden(w http.ResponseWriter, r *http.Request) {
	http.Error(w, templates.T(r.Context(), "error.csrf_invalid"), http.StatusForbidden)
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func parseKind(raw string) (backend.Kind, bool) {
	switch kind := backend.Kind(raw); kind {
	case backend.KindRobot, backend.KindOrder, backend.KindTemplate:
		return kind, true
	default:
		return "", false
	}
}

func navKey(kind backend.Kind) string {
	switch kind {
	case backend.KindRobot:
		return "nav.robots"
	case backend.KindOrder:
		return "nav.orders"
	case backend.KindTemplate:
		return "nav.templates"
	default:
		return "nav.dashboard"
	}
}
