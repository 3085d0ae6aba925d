package templates

import (
	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
)

// ListView is one collection page.
type ListView struct {
	Kind     backend.Kind
	Entities []backend.Entity
	// Unavailable marks a failed fetch; Entities is then ignored.
	Unavailable bool
}

// ListPage renders a collection as a table whose first column links to the
// detail page.
func ListPage(view ListView) templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "entity-list", "data-kind", string(view.Kind))
		h.element("h1", T(h.ctx, kindNavKey(view.Kind)))
		switch {
		case view.Unavailable:
			h.element("p", T(h.ctx, "list.unavailable"), "class", "inline-error", "role", "alert")
		case len(view.Entities) == 0:
			h.element("p", T(h.ctx, "list.empty"))
		default:
			writeEntityTable(h, view.Entities)
		}
		h.close("section")
	})
}

func writeEntityTable(h *htmlWriter, entities []backend.Entity) {
	h.open("table")
	h.open("thead")
	h.open("tr")
	for _, field := range entities[0].Fields() {
		h.element("th", field.Label, "scope", "col")
	}
	h.close("tr")
	h.close("thead")
	h.open("tbody")
	for _, entity := range entities {
		h.open("tr")
		for i, field := range entity.Fields() {
			h.open("td")
			if i == 0 {
				h.link(DetailPath(entity.EntityKind(), entity.EntityID()), field.Value)
			} else {
				h.text(field.Value)
			}
			h.close("td")
		}
		h.close("tr")
	}
	h.close("tbody")
	h.close("table")
}
