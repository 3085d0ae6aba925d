package templates

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
)

// DetailView is a detail page before its fields load.
type DetailView struct {
	Kind backend.Kind
	ID   string
}

// DetailPage renders the card for one entity. The identifier is known from
// the URL and shown immediately; the remaining fields load from the fields
// fragment. An identifier that is blank after trimming renders MissingID.
func DetailPage(view DetailView) templ.Component {
	id := strings.TrimSpace(view.ID)
	if id == "" {
		return MissingID(view.Kind)
	}
	return component(func(h *htmlWriter) {
		label := backend.IdentifierLabel(view.Kind)
		h.open("article", "class", "detail-card", "data-kind", string(view.Kind))
		h.open("header", "class", "detail-card-header")
		h.element("span", label, "class", "detail-card-label")
		h.element("h1", id)
		h.close("header")

		h.open("dl", "id", "detail-fields", "class", "detail-fields",
			"hx-get", FieldsPath(view.Kind, id),
			"hx-trigger", "load",
			"hx-swap", "outerHTML")
		h.element("dt", label)
		h.element("dd", id)
		for _, pending := range backend.PendingLabels(view.Kind) {
			h.element("dt", pending)
			h.element("dd", T(h.ctx, "detail.loading"), "class", "placeholder", "aria-busy", "true", "data-field", slug(pending))
		}
		h.close("dl")

		h.link(ListPath(view.Kind), T(h.ctx, "detail.back_to_list"), "class", "back-link")
		h.close("article")
	})
}

// MissingID is the terminal state of a detail page with no identifier.
func MissingID(kind backend.Kind) templ.Component {
	return component(func(h *htmlWriter) {
		h.open("article", "class", "detail-card detail-card-error", "data-kind", string(kind))
		h.element("p", T(h.ctx, "detail.missing_id"), "class", "inline-error", "role", "alert")
		h.link(ListPath(kind), T(h.ctx, "detail.back_to_list"), "class", "back-link")
		h.close("article")
	})
}

// DetailFields is the loaded field list; it replaces the placeholder list.
func DetailFields(entity backend.Entity) templ.Component {
	return component(func(h *htmlWriter) {
		h.open("dl", "id", "detail-fields", "class", "detail-fields")
		for _, field := range entity.Fields() {
			h.element("dt", field.Label)
			h.element("dd", field.Value, "data-field", slug(field.Label))
		}
		h.close("dl")
	})
}

// DetailFieldsNotFound replaces the placeholders when the entity is gone.
func DetailFieldsNotFound() templ.Component {
	return component(func(h *htmlWriter) {
		h.open("div", "id", "detail-fields", "class", "detail-fields detail-fields-missing")
		h.element("p", T(h.ctx, "detail.not_found"), "class", "inline-error", "role", "status")
		h.close("div")
	})
}

// DetailFieldsError replaces the placeholders when loading failed.
func DetailFieldsError() templ.Component {
	return component(func(h *htmlWriter) {
		h.open("div", "id", "detail-fields", "class", "detail-fields detail-fields-error")
		h.element("p", T(h.ctx, "detail.unavailable"), "class", "inline-error", "role", "alert")
		h.close("div")
	})
}
