package backend

import (
	"fmt"
	"strconv"
	"time"
)

// Kind names an entity collection. Values double as URL and resource name
// collection segments.
type Kind string

const (
	KindRobot    Kind = "robots"
	KindOrder    Kind = "orders"
	KindTemplate Kind = "templates"
)

// resourcePattern is the AIP-122 pattern for one entity of the kind.
func (k Kind) resourcePattern() (string, bool) {
	switch k {
	case KindRobot:
		return "robots/{serial_number}", true
	case KindOrder:
		return "orders/{order_id}", true
	case KindTemplate:
		return "templates/{template_id}", true
	default:
		return "", false
	}
}

// Field is one labeled value on a detail card.
type Field struct {
	Label string
	Value string
}

// Entity is any record the console can show on a detail page.
type Entity interface {
	EntityKind() Kind
	EntityID() string
	// Fields lists display fields in card order, identifier first.
	Fields() []Field
}

// Robot is a fleet member.
type Robot struct {
	SerialNumber   string    `json:"serial_number"`
	Name           string    `json:"name"`
	Model          string    `json:"model"`
	Status         string    `json:"status"`
	BatteryPercent int       `json:"battery_percent"`
	Location       string    `json:"location"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

func (r Robot) EntityKind() Kind { return KindRobot }
func (r Robot) EntityID() string { return r.SerialNumber }

func (r Robot) Fields() []Field {
	return []Field{
		{Label: "Serial Number", Value: r.SerialNumber},
		{Label: "Name", Value: r.Name},
		{Label: "Model", Value: r.Model},
		{Label: "Status", Value: r.Status},
		{Label: "Battery", Value: strconv.Itoa(r.BatteryPercent) + "%"},
		{Label: "Location", Value: r.Location},
		{Label: "Last Seen", Value: formatTime(r.LastSeenAt)},
	}
}

// Order is a unit of work assigned to a robot.
type Order struct {
	ID                string    `json:"order_id"`
	Status            string    `json:"status"`
	RobotSerialNumber string    `json:"robot_serial_number"`
	TemplateID        string    `json:"template_id"`
	Destination       string    `json:"destination"`
	CreatedAt         time.Time `json:"created_at"`
}

func (o Order) EntityKind() Kind { return KindOrder }
func (o Order) EntityID() string { return o.ID }

func (o Order) Fields() []Field {
	return []Field{
		{Label: "Order ID", Value: o.ID},
		{Label: "Status", Value: o.Status},
		{Label: "Robot", Value: o.RobotSerialNumber},
		{Label: "Template", Value: o.TemplateID},
		{Label: "Destination", Value: o.Destination},
		{Label: "Created", Value: formatTime(o.CreatedAt)},
	}
}

// Template describes a reusable order definition.
type Template struct {
	ID          string    `json:"template_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Template) EntityKind() Kind { return KindTemplate }
func (t Template) EntityID() string { return t.ID }

func (t Template) Fields() []Field {
	return []Field{
		{Label: "Template ID", Value: t.ID},
		{Label: "Name", Value: t.Name},
		{Label: "Description", Value: t.Description},
		{Label: "Version", Value: fmt.Sprintf("v%d", t.Version)},
		{Label: "Updated", Value: formatTime(t.UpdatedAt)},
	}
}

// IdentifierLabel is the label of the field known from the URL alone.
func IdentifierLabel(kind Kind) string {
	switch kind {
	case KindRobot:
		return "Serial Number"
	case KindOrder:
		return "Order ID"
	case KindTemplate:
		return "Template ID"
	default:
		return "ID"
	}
}

// PendingLabels lists the non-identifier field labels of kind in card
// order, used to draw placeholders before the entity is loaded.
func PendingLabels(kind Kind) []string {
	var fields []Field
	switch kind {
	case KindRobot:
		fields = Robot{}.Fields()
	case KindOrder:
		fields = Order{}.Fields()
	case KindTemplate:
		fields = Template{}.Fields()
	default:
		return nil
	}
	labels := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		labels = append(labels, f.Label)
	}
	return labels
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
