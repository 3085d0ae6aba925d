// Package templates renders console pages as templ components.
//
// Components follow the shape of templ's generated code: each renders through
// the templ runtime buffer, text goes through templ.EscapeString and
// attributes through templ.RenderAttributes.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	templruntime "github.com/a-h/templ/runtime"
	"golang.org/x/text/message"

	"github.com/louisbranch/fleetdeck/internal/platform/requestctx"
	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
	"github.com/louisbranch/fleetdeck/internal/services/console/i18n"
	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
)

// T returns the localized copy for key in the request language.
func T(ctx context.Context, key message.Reference, args ...any) string {
	return i18n.Printer(requestctx.LanguageFromContext(ctx)).Sprintf(key, args...)
}

// htmlWriter accumulates the first write error so components read as a
// flat sequence of writes.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(value string) {
	h.raw(templ.EscapeString(value))
}

func (h *htmlWriter) t(key message.Reference, args ...any) {
	h.text(T(h.ctx, key, args...))
}

// open writes a start tag; attrs alternate name, value. Tags are literals.
func (h *htmlWriter) open(tag string, attrs ...string) {
	h.raw("<", tag)
	if h.err == nil && len(attrs) > 1 {
		ordered := make(templ.OrderedAttributes, 0, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			ordered = append(ordered, templ.KeyValue[string, any]{Key: attrs[i], Value: attrs[i+1]})
		}
		h.err = templ.RenderAttributes(h.ctx, h.w, ordered)
	}
	h.raw(">")
}

func (h *htmlWriter) close(tag string) {
	h.raw("</", tag, ">")
}

// element writes a start tag, escaped text and the end tag.
func (h *htmlWriter) element(tag, value string, attrs ...string) {
	h.open(tag, attrs...)
	h.text(value)
	h.close(tag)
}

func (h *htmlWriter) link(href, label string, attrs ...string) {
	h.element("a", label, append([]string{"href", href}, attrs...)...)
}

func (h *htmlWriter) child(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func component(render func(h *htmlWriter)) templ.Component {
	return templruntime.GeneratedTemplate(func(input templruntime.GeneratedComponentInput) (err error) {
		ctx := input.Context
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		buffer, isBuffer := templruntime.GetBuffer(input.Writer)
		if !isBuffer {
			defer func() {
				if releaseErr := templruntime.ReleaseBuffer(buffer); err == nil {
					err = releaseErr
				}
			}()
		}
		ctx = templ.InitializeContext(ctx)
		h := newHTMLWriter(ctx, buffer)
		render(h)
		return h.err
	})
}

// ListPath is the collection page for kind.
func ListPath(kind backend.Kind) string {
	switch kind {
	case backend.KindRobot:
		return routepath.Robots
	case backend.KindOrder:
		return routepath.Orders
	case backend.KindTemplate:
		return routepath.Templates
	default:
		return routepath.Dashboard
	}
}

// DetailPath is the detail page for one entity.
func DetailPath(kind backend.Kind, id string) string {
	switch kind {
	case backend.KindRobot:
		return routepath.Robot(id)
	case backend.KindOrder:
		return routepath.Order(id)
	case backend.KindTemplate:
		return routepath.Template(id)
	default:
		return routepath.Dashboard
	}
}

// FieldsPath is the lazy field fragment for one entity.
func FieldsPath(kind backend.Kind, id string) string {
	switch kind {
	case backend.KindRobot:
		return routepath.RobotFields(id)
	case backend.KindOrder:
		return routepath.OrderFields(id)
	case backend.KindTemplate:
		return routepath.TemplateFields(id)
	default:
		return routepath.Dashboard
	}
}

func kindNavKey(kind backend.Kind) string {
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

func slug(value string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", "-"))
}
