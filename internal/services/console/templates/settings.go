package templates

import (
	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
)

// SettingsView is the session state shown on Settings.
type SettingsView struct {
	Operator      string
	Authenticated bool
	Loading       bool
	LastError     string
}

// SettingsPage shows the session and offers sign in or sign out.
func SettingsPage(view SettingsView) templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "settings")
		h.element("h1", T(h.ctx, "settings.title"))
		if view.Authenticated {
			h.element("p", T(h.ctx, "settings.signed_in_as", view.Operator), "class", "session-state")
		} else {
			h.element("p", T(h.ctx, "settings.signed_out"), "class", "session-state")
		}
		if view.Loading {
			h.element("p", T(h.ctx, "settings.loading"), "aria-busy", "true")
		}
		if view.LastError != "" {
			h.element("p", T(h.ctx, "settings.last_error", view.LastError), "class", "inline-error", "role", "alert")
		}
		if view.Authenticated {
			writeLogoutForm(h)
		} else {
			writeLoginForm(h)
		}
		h.close("section")
	})
}

func writeLoginForm(h *htmlWriter) {
	h.open("form", "method", "post", "action", routepath.ActionLogin, "class", "login-form")
	h.open("label")
	h.t("auth.identifier")
	h.open("input", "type", "text", "name", "identifier", "autocomplete", "username", "required", "required")
	h.close("label")
	h.open("label")
	h.t("auth.secret")
	h.open("input", "type", "password", "name", "secret", "autocomplete", "current-password", "required", "required")
	h.close("label")
	h.element("button", T(h.ctx, "auth.sign_in"), "type", "submit")
	h.close("form")
}

func writeLogoutForm(h *htmlWriter) {
	h.open("form", "method", "post", "action", routepath.ActionLogout, "class", "logout-form")
	h.element("button", T(h.ctx, "auth.sign_out"), "type", "submit")
	h.close("form")
}

// SignInPrompt replaces pages that need a session.
func SignInPrompt() templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "sign-in-prompt")
		h.element("p", T(h.ctx, "auth.sign_in_prompt"))
		h.link(routepath.Settings, T(h.ctx, "auth.sign_in"))
		h.close("section")
	})
}
