package releaseformgen

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-release-order/releaseorder"
)

// DefaultBasePath matches the form controller mount point.
const DefaultBasePath = "/release-order"

// Field defines a form field for formgen-style UIs.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// Upload defines an image slot widget.
type Upload struct {
	Slot        string `json:"slot"`
	Label       string `json:"label"`
	Action      string `json:"action"`
	Method      string `json:"method"`
	Accept      string `json:"accept"`
	Placeholder string `json:"placeholder"`
}

// Form defines the release order header form.
type Form struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Action  string   `json:"action"`
	Method  string   `json:"method"`
	Fields  []Field  `json:"fields"`
	Uploads []Upload `json:"uploads"`
}

// TableColumn defines a table column.
type TableColumn struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type,omitempty"`
	Editable bool   `json:"editable,omitempty"`
}

// TableAction maps a table or page action to an HTTP endpoint.
type TableAction struct {
	Label       string `json:"label"`
	Method      string `json:"method"`
	URLTemplate string `json:"url_template"`
}

// Table defines a table widget.
type Table struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	DataURL string        `json:"data_url"`
	DataKey string        `json:"data_key"`
	Columns []TableColumn `json:"columns"`
	Actions []TableAction `json:"actions,omitempty"`
}

// Theme captures optional theme tokens.
type Theme struct {
	Name   string            `json:"name"`
	Tokens map[string]string `json:"tokens"`
}

// UI bundles the widgets of the release order page.
type UI struct {
	Form     Form          `json:"form"`
	Schedule Table         `json:"schedule"`
	History  Table         `json:"history"`
	Actions  []TableAction `json:"actions"`
	Theme    Theme         `json:"theme"`
}

// DefaultUI returns the widget contract for a form mounted at basePath.
func DefaultUI(basePath string) UI {
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return UI{
		Form:     OrderForm(basePath),
		Schedule: ScheduleTable(basePath),
		History:  ExportHistoryTable(basePath),
		Actions:  PrintActions(basePath),
		Theme:    DefaultTheme(),
	}
}

// OrderForm builds the header form: scalar fields plus the two image slots.
func OrderForm(basePath string) Form {
	fields := make([]Field, 0, len(releaseorder.Fields))
	for _, field := range releaseorder.Fields {
		fields = append(fields, Field{
			Name:  string(field),
			Label: releaseorder.FieldLabel(field),
			Type:  fieldType(field),
			Hint:  fieldHint(field),
		})
	}

	uploads := make([]Upload, 0, len(releaseorder.ImageSlots))
	for _, slot := range releaseorder.ImageSlots {
		uploads = append(uploads, Upload{
			Slot:        string(slot),
			Label:       slotLabel(slot),
			Action:      fmt.Sprintf("%s/images/%s", basePath, slot),
			Method:      "POST",
			Accept:      "image/*",
			Placeholder: releaseorder.PlaceholderURL(slot),
		})
	}

	return Form{
		ID:      "release-order",
		Title:   releaseorder.DefaultTitle,
		Action:  basePath + "/fields",
		Method:  "POST",
		Fields:  fields,
		Uploads: uploads,
	}
}

// ScheduleTable builds the editable line item table.
func ScheduleTable(basePath string) Table {
	columns := releaseorder.DefaultColumns()
	out := make([]TableColumn, 0, len(columns))
	for _, col := range columns {
		colType := "textarea"
		if !col.Field.IsText() {
			colType = "date"
		}
		out = append(out, TableColumn{Key: string(col.Field), Label: col.Label, Type: colType, Editable: true})
	}
	return Table{
		ID:      "release-order-schedule",
		Title:   "Schedule",
		DataURL: basePath + "/state",
		DataKey: "snapshot.items",
		Columns: out,
		Actions: []TableAction{
			{Label: "Add Row", Method: "POST", URLTemplate: basePath + "/rows"},
			{Label: "Edit Cell", Method: "POST", URLTemplate: basePath + "/rows/{index}/cells"},
			{Label: "Delete Row", Method: "DELETE", URLTemplate: basePath + "/rows/{index}"},
		},
	}
}

// ExportHistoryTable builds a table definition for export history.
func ExportHistoryTable(basePath string) Table {
	return Table{
		ID:      "release-order-exports",
		Title:   "Export History",
		DataURL: basePath + "/exports",
		DataKey: "exports",
		Columns: []TableColumn{
			{Key: "id", Label: "ID"},
			{Key: "state", Label: "Status"},
			{Key: "filename", Label: "File"},
			{Key: "pages", Label: "Pages"},
			{Key: "bytes", Label: "Size"},
			{Key: "error", Label: "Error"},
			{Key: "created_at", Label: "Created"},
		},
	}
}

// PrintActions lists the page-level print and download actions.
func PrintActions(basePath string) []TableAction {
	return []TableAction{
		{Label: "Download PDF", Method: "GET", URLTemplate: basePath + "/export.pdf"},
		{Label: "Clean View", Method: "GET", URLTemplate: basePath + "/clean-view"},
		{Label: "Schedule Workbook", Method: "GET", URLTemplate: basePath + "/schedule.xlsx"},
	}
}

// DefaultTheme provides the theme tokens used by the bundled stylesheets.
func DefaultTheme() Theme {
	return Theme{
		Name: "release-order",
		Tokens: map[string]string{
			"primary": "#1f3a93",
			"surface": "#ffffff",
			"text":    "#111827",
			"muted":   "#6b7280",
			"border":  "#d1d5db",
			"danger":  "#b91c1c",
		},
	}
}

func fieldType(field releaseorder.Field) string {
	switch field {
	case releaseorder.FieldOrderDate:
		return "date"
	case releaseorder.FieldMatter:
		return "textarea"
	default:
		return "text"
	}
}

func fieldHint(field releaseorder.Field) string {
	switch field {
	case releaseorder.FieldOrderDate:
		return "yyyy-mm-dd; printed as dd.mm.yyyy"
	case releaseorder.FieldMatter:
		return "Grows with its content; clipped at the export maximum"
	default:
		return ""
	}
}

func slotLabel(slot releaseorder.ImageSlot) string {
	if slot == releaseorder.SlotStamp {
		return "Stamp"
	}
	return "Company Logo"
}
