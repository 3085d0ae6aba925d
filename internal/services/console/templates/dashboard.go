package templates

import (
	"time"

	"github.com/a-h/templ"

	"github.com/louisbranch/fleetdeck/internal/services/console/realtime"
)

// Counts totals each collection for the dashboard.
type Counts struct {
	Robots    int
	Orders    int
	Templates int
}

// DashboardView is everything the dashboard shows.
type DashboardView struct {
	// Counts is nil when the operator is signed out or the backend failed.
	Counts   *Counts
	Realtime realtime.Status
	Messages []realtime.Message
	// Health is the backend gRPC health status, empty when no address is
	// configured.
	Health string
}

// DashboardPage renders the fleet overview.
func DashboardPage(view DashboardView) templ.Component {
	return component(func(h *htmlWriter) {
		h.open("section", "class", "dashboard")
		h.element("h1", T(h.ctx, "dashboard.title"))

		h.open("ul", "class", "dashboard-counts")
		if view.Counts != nil {
			h.element("li", T(h.ctx, "dashboard.robots_count", view.Counts.Robots))
			h.element("li", T(h.ctx, "dashboard.orders_count", view.Counts.Orders))
			h.element("li", T(h.ctx, "dashboard.templates_count", view.Counts.Templates))
		} else {
			h.element("li", T(h.ctx, "dashboard.counts_unavailable"))
		}
		h.close("ul")

		h.open("section", "class", "dashboard-realtime")
		h.element("h2", T(h.ctx, "dashboard.realtime"))
		if view.Realtime.Connected {
			h.element("p", T(h.ctx, "dashboard.realtime_connected"), "class", "status status-connected", "data-connection-id", view.Realtime.ConnectionID)
		} else {
			h.element("p", T(h.ctx, "dashboard.realtime_disconnected"), "class", "status status-disconnected")
		}
		if view.Realtime.LastError != nil {
			h.element("p", view.Realtime.LastError.Error(), "class", "status-error")
		}
		h.element("h3", T(h.ctx, "dashboard.recent_messages"))
		if len(view.Messages) == 0 {
			h.element("p", T(h.ctx, "dashboard.no_messages"))
		} else {
			h.open("ol", "class", "realtime-feed")
			for _, msg := range view.Messages {
				h.open("li")
				h.element("code", msg.Type)
				h.raw(" ")
				h.element("time", msg.ReceivedAt.UTC().Format(time.RFC3339), "datetime", msg.ReceivedAt.UTC().Format(time.RFC3339))
				h.close("li")
			}
			h.close("ol")
		}
		h.close("section")

		h.open("section", "class", "dashboard-health")
		h.element("h2", T(h.ctx, "dashboard.backend_health"))
		if view.Health == "" {
			h.element("p", T(h.ctx, "dashboard.health_not_configured"))
		} else {
			h.element("p", view.Health, "class", "health health-"+slug(view.Health))
		}
		h.close("section")

		h.close("section")
	})
}
