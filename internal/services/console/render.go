package console

import (
	"bytes"
	"log"
	"net/http"

	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/platform/requestctx"
	"github.com/louisbranch/fleetdeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/fleetdeck/internal/services/console/templates"
)

// writePage renders body inside the layout, or alone for HTMX requests.
// Rendering is buffered so a template failure still yields a clean 500.
func writePage(w http.ResponseWriter, r *http.Request, status int, page templates.Page, body templ.Component) {
	target := body
	if !httpx.IsHTMXRequest(r) {
		target = templates.Layout(page, body)
	}
	writeComponent(w, r, status, target)
}

// writeFragment renders c without the layout.
func writeFragment(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	writeComponent(w, r, status, c)
}

func writeComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(httpx.RequestContext(r), &buf); err != nil {
		log.Printf("render failed path=%s request_id=%s err=%v", r.URL.Path, requestctx.RequestIDFromContext(r.Context()), err)
		writeFailure(w, r)
		return
	}
	_ = httpx.WriteHTML(w, status, buf.String())
}

// writeFailure is the generic failure view. It backs the panic boundary,
// so it must not depend on anything a failed handler may have broken.
func writeFailure(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	page := templates.Page{Title: templates.T(httpx.RequestContext(r), "error.failure_title")}
	if err := templates.Layout(page, templates.FailurePage()).Render(httpx.RequestContext(r), &buf); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	_ = httpx.WriteHTML(w, http.StatusInternalServerError, buf.String())
}
