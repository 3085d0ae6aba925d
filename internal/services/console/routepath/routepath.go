// Package routepath builds console URLs so handlers and templates never
// assemble paths by hand.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root    = "/"
	Healthz = "/healthz"
)

const (
	Dashboard = "/dashboard"
	Settings  = "/settings"
)

const (
	Robots    = "/robots"
	Orders    = "/orders"
	Templates = "/templates"
)

const (
	FragmentsPrefix   = "/fragments"
	RobotFragments    = FragmentsPrefix + Robots
	OrderFragments    = FragmentsPrefix + Orders
	TemplateFragments = FragmentsPrefix + Templates
)

const (
	ActionLogin  = "/actions/login"
	ActionLogout = "/actions/logout"
)

func Robot(serialNumber string) string {
	return Robots + "/" + escapeSegment(serialNumber)
}

func Order(orderID string) string {
	return Orders + "/" + escapeSegment(orderID)
}

func Template(templateID string) string {
	return Templates + "/" + escapeSegment(templateID)
}

func RobotFields(serialNumber string) string {
	return RobotFragments + "/" + escapeSegment(serialNumber)
}

func OrderFields(orderID string) string {
	return OrderFragments + "/" + escapeSegment(orderID)
}

func TemplateFields(templateID string) string {
	return TemplateFragments + "/" + escapeSegment(templateID)
}

func escapeSegment(raw string) string {
	return url.PathEscape(strings.TrimSpace(raw))
}
