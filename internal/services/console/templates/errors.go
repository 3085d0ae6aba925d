package templates

import (
	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
)

// NotFoundPage is rendered for every unmatched path.
func NotFoundPage() templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "error-page error-not-found")
		h.element("h1", T(h.ctx, "error.not_found_title"))
		h.element("p", T(h.ctx, "error.not_found_body"))
		h.link(routepath.Dashboard, T(h.ctx, "nav.dashboard"))
		h.close("section")
	})
}

// FailurePage is the generic failure view behind the error boundary.
func FailurePage() templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "error-page error-failure")
		h.element("h1", T(h.ctx, "error.failure_title"))
		h.element("p", T(h.ctx, "error.failure_body"))
		h.link(routepath.Dashboard, T(h.ctx, "nav.dashboard"))
		h.close("section")
	})
}
