// Package viewrouter maps request paths to console views.
//
// Resolve is pure and total: every path yields exactly one View, with
// NotFound covering everything outside the known surface.
package viewrouter

import (
	"net/url"
	"strings"

	"go.einride.tech/aip/resourcename"
)

// View identifies the page a path renders.
type View int

const (
	NotFound View = iota
	Dashboard
	RobotsList
	RobotDetail
	OrdersList
	OrderDetail
	TemplatesList
	TemplateDetail
	Settings
)

var viewNames = map[View]string{
	NotFound:       "not_found",
	Dashboard:      "dashboard",
	RobotsList:     "robots_list",
	RobotDetail:    "robot_detail",
	OrdersList:     "orders_list",
	OrderDetail:    "order_detail",
	TemplatesList:  "templates_list",
	TemplateDetail: "template_detail",
	Settings:       "settings",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return viewNames[NotFound]
}

// IsDetail reports whether the view carries an entity identifier.
func (v View) IsDetail() bool {
	return v == RobotDetail || v == OrderDetail || v == TemplateDetail
}

// Match is the outcome of resolving one path.
type Match struct {
	View View
	// Param is the unescaped identifier for detail views. It is passed
	// through untrimmed; the detail page decides what counts as missing.
	Param string
	// Redirect asks the HTTP layer to send the browser to the view's
	// canonical path instead of rendering in place.
	Redirect bool
}

type route struct {
	pattern string
	view    View
}

// Ordered so that literal collections are tried before their members.
var routes = []route{
	{pattern: "dashboard", view: Dashboard},
	{pattern: "settings", view: Settings},
	{pattern: "robots", view: RobotsList},
	{pattern: "robots/{serial_number}", view: RobotDetail},
	{pattern: "orders", view: OrdersList},
	{pattern: "orders/{order_id}", view: OrderDetail},
	{pattern: "templates", view: TemplatesList},
	{pattern: "templates/{template_id}", view: TemplateDetail},
}

// Resolve maps an escaped URL path to a view. Use (*url.URL).EscapedPath so
// an identifier containing an encoded slash stays one segment.
func Resolve(escapedPath string) Match {
	if escapedPath == "/" {
		return Match{View: Dashboard, Redirect: true}
	}
	name, ok := strings.CutPrefix(escapedPath, "/")
	if !ok {
		return Match{View: NotFound}
	}
	name = strings.TrimSuffix(name, "/")
	if name == "" || hasEmptySegment(name) {
		return Match{View: NotFound}
	}

	for _, candidate := range routes {
		var raw string
		var variables []*string
		if candidate.view.IsDetail() {
			variables = append(variables, &raw)
		}
		if err := resourcename.Sscan(name, candidate.pattern, variables...); err != nil {
			continue
		}
		param, err := url.PathUnescape(raw)
		if err != nil {
			return Match{View: NotFound}
		}
		return Match{View: candidate.view, Param: param}
	}
	return Match{View: NotFound}
}

func hasEmptySegment(name string) bool {
	for segment := range strings.SplitSeq(name, "/") {
		if segment == "" {
			return true
		}
	}
	return false
}
