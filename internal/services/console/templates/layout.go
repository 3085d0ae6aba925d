package templates

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/platform/requestctx"
	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
)

// HTMXScriptURL is loaded by every full page.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4"

// Page carries shell state shared by every full page.
type Page struct {
	Title      string
	ActivePath string
	// Operator is the signed-in display name, empty when signed out.
	Operator string
}

type navItem struct {
	path string
	key  string
}

var navItems = []navItem{
	{path: routepath.Dashboard, key: "nav.dashboard"},
	{path: routepath.Robots, key: "nav.robots"},
	{path: routepath.Orders, key: "nav.orders"},
	{path: routepath.Templates, key: "nav.templates"},
	{path: routepath.Settings, key: "nav.settings"},
}

// Layout wraps body in the console shell.
func Layout(page Page, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		lang := requestctx.LanguageFromContext(h.ctx).String()
		h.raw("<!DOCTYPE html>")
		h.open("html", "lang", lang)
		h.open("head")
		h.raw(`<meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		title := "fleetdeck"
		if t := strings.TrimSpace(page.Title); t != "" {
			title = t + " | fleetdeck"
		}
		h.element("title", title)
		h.open("script", "src", HTMXScriptURL, "defer", "defer")
		h.close("script")
		h.close("head")
		h.open("body")
		h.open("nav", "class", "console-nav")
		for _, item := range navItems {
			attrs := []string{}
			if page.ActivePath == item.path || strings.HasPrefix(page.ActivePath, item.path+"/") {
				attrs = append(attrs, "aria-current", "page")
			}
			h.link(item.path, T(h.ctx, item.key), attrs...)
		}
		if page.Operator != "" {
			h.element("span", page.Operator, "class", "console-operator")
		}
		h.close("nav")
		h.open("main", "id", "main")
		h.child(body)
		h.close("main")
		h.close("body")
		h.close("html")
	})
}
