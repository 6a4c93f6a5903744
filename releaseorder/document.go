package releaseorder

import (
	"strings"
)

// InputKind tells how a header value is edited and rendered.
type InputKind string

const (
	InputText     InputKind = "text"
	InputDate     InputKind = "date"
	InputTextArea InputKind = "textarea"
)

// TextStyle carries the visual font settings of a live control so the static
// rendering matches it.
type TextStyle struct {
	FontSize   float64 `json:"font_size"`
	FontWeight int     `json:"font_weight"`
	Color      string  `json:"color"`
	Align      string  `json:"align"`
}

// HeaderField is one scalar field in both its raw and static forms.
type HeaderField struct {
	Field Field     `json:"field"`
	Label string    `json:"label"`
	Kind  InputKind `json:"kind"`
	Value string    `json:"value"`
	Text  string    `json:"text"`
}

// TextBlock is a multi-line field rendered as static lines.
type TextBlock struct {
	Kind  TextAreaKind `json:"kind"`
	Value string       `json:"value"`
	Lines []string     `json:"lines"`
	Box   Box          `json:"box"`
	Style TextStyle    `json:"style"`
}

// Column describes one table column.
type Column struct {
	Field    CellField `json:"field"`
	Label    string    `json:"label"`
	Align    string    `json:"align"`
	WidthPct float64   `json:"width_pct"`
}

// TableCell is one cell; text columns carry a sized block, the scheduled date
// a centred static value.
type TableCell struct {
	Field CellField `json:"field"`
	Value string    `json:"value"`
	Text  string    `json:"text"`
	Block TextBlock `json:"block"`
}

// TableRow is one line item row.
type TableRow struct {
	Index int         `json:"index"`
	Cells []TableCell `json:"cells"`
}

// Table is the line item schedule.
type Table struct {
	Columns []Column   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// ImageBlock is an image slot in the document. Placeholder slots keep their
// reserved box but draw nothing.
type ImageBlock struct {
	Slot        ImageSlot `json:"slot"`
	URL         string    `json:"url"`
	Placeholder bool      `json:"placeholder"`
	WidthPx     float64   `json:"width_px"`
	HeightPx    float64   `json:"height_px"`
}

// Document is the static rendering of a snapshot. It holds no controls.
type Document struct {
	Mode        Mode          `json:"mode"`
	Title       string        `json:"title"`
	Page        PageSetup     `json:"page"`
	Header      []HeaderField `json:"header"`
	Address     []string      `json:"address"`
	Matter      TextBlock     `json:"matter"`
	Table       Table         `json:"table"`
	CompanyLogo ImageBlock    `json:"company_logo"`
	Stamp       ImageBlock    `json:"stamp"`
}

// DocumentOptions configures RenderStaticDocument.
type DocumentOptions struct {
	Mode     Mode
	Title    string
	Page     PageSetup
	AutoSize AutoSizeConfig
}

// DefaultTitle heads every rendered document.
const DefaultTitle = "Release Order"

var fieldLabels = map[Field]string{
	FieldOrderNumber:     "R.O. No.",
	FieldOrderDate:       "Date",
	FieldClientName:      "Client",
	FieldManagerAddress1: "Address",
	FieldManagerAddress2: "Address (cont.)",
	FieldCaption:         "Caption",
	FieldPackageName:     "Package",
	FieldMatter:          "Matter",
}

// FieldLabel returns the display label of a field.
func FieldLabel(field Field) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return string(field)
}

// DefaultColumns returns the schedule table columns in display order.
func DefaultColumns() []Column {
	return []Column{
		{Field: CellKeyNumber, Label: "Key No.", Align: "left", WidthPct: 12},
		{Field: CellPublication, Label: "Publication", Align: "left", WidthPct: 24},
		{Field: CellEdition, Label: "Edition", Align: "left", WidthPct: 16},
		{Field: CellSize, Label: "Size", Align: "left", WidthPct: 14},
		{Field: CellPosition, Label: "Position", Align: "left", WidthPct: 18},
		{Field: CellScheduledDate, Label: "Date", Align: "center", WidthPct: 16},
	}
}

var (
	matterStyle = TextStyle{FontSize: 14, FontWeight: 400, Color: "#111827", Align: "left"}
	cellStyle   = TextStyle{FontSize: 12, FontWeight: 400, Color: "#111827", Align: "left"}
)

var imageBoxes = map[ImageSlot][2]float64{
	SlotCompanyLogo: {200, 80},
	SlotStamp:       {100, 100},
}

// RenderStaticDocument turns a snapshot into a static document. It reads only
// its arguments.
func RenderStaticDocument(snapshot Snapshot, opts DocumentOptions) *Document {
	mode := opts.Mode
	if mode == "" {
		mode = ModeExport
	}
	cfg := opts.AutoSize
	if cfg.Metrics == nil {
		cfg = DefaultAutoSizeConfig()
	}
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	doc := &Document{
		Mode:  mode,
		Title: title,
		Page:  opts.Page.withDefaults(),
	}

	for _, field := range Fields {
		if field == FieldMatter || field == FieldManagerAddress1 || field == FieldManagerAddress2 {
			continue
		}
		value, _ := snapshot.Fields.Get(field)
		doc.Header = append(doc.Header, staticHeaderField(field, value))
	}
	doc.Address = []string{
		StaticText(snapshot.Fields.ManagerAddress1),
		StaticText(snapshot.Fields.ManagerAddress2),
	}
	doc.Matter = newTextBlock(TextAreaMatter, snapshot.Fields.Matter, matterStyle, mode, cfg)

	doc.Table.Columns = DefaultColumns()
	items := snapshot.Items
	if len(items) == 0 {
		items = []LineItem{{}}
	}
	for i, item := range items {
		row := TableRow{Index: i, Cells: make([]TableCell, 0, len(doc.Table.Columns))}
		for _, col := range doc.Table.Columns {
			value, _ := item.Get(col.Field)
			row.Cells = append(row.Cells, staticCell(col.Field, value, mode, cfg))
		}
		doc.Table.Rows = append(doc.Table.Rows, row)
	}

	doc.CompanyLogo = newImageBlock(snapshot.CompanyLogo, SlotCompanyLogo)
	doc.Stamp = newImageBlock(snapshot.Stamp, SlotStamp)
	return doc
}

// Resize recomputes every text block box for the document mode.
func (d *Document) Resize(cfg AutoSizeConfig) {
	if d == nil {
		return
	}
	if cfg.Metrics == nil {
		cfg = DefaultAutoSizeConfig()
	}
	d.Matter.Box = AutoSize(d.Matter.Value, d.Matter.Kind, d.Mode, cfg)
	for r := range d.Table.Rows {
		for c := range d.Table.Rows[r].Cells {
			cell := &d.Table.Rows[r].Cells[c]
			if !cell.Field.IsText() {
				continue
			}
			cell.Block.Box = AutoSize(cell.Block.Value, cell.Block.Kind, d.Mode, cfg)
		}
	}
}

// HeaderValue returns the header entry for field.
func (d *Document) HeaderValue(field Field) (HeaderField, bool) {
	if d == nil {
		return HeaderField{}, false
	}
	for _, h := range d.Header {
		if h.Field == field {
			return h, true
		}
	}
	return HeaderField{}, false
}

// VisibleLines returns the matter lines that fit inside the sized box.
func (b TextBlock) VisibleLines(cfg AutoSizeConfig) []string {
	if cfg.Metrics == nil {
		cfg = DefaultAutoSizeConfig()
	}
	return VisibleLines(b.Lines, b.Box, cfg.Metrics[b.Kind])
}

func staticHeaderField(field Field, value string) HeaderField {
	h := HeaderField{Field: field, Label: FieldLabel(field), Kind: InputText, Value: value}
	if field == FieldOrderDate {
		h.Kind = InputDate
		h.Text = FormatDisplayDate(value)
		return h
	}
	h.Text = StaticText(value)
	return h
}

func staticCell(field CellField, value string, mode Mode, cfg AutoSizeConfig) TableCell {
	cell := TableCell{Field: field, Value: value}
	if !field.IsText() {
		cell.Text = FormatDisplayDate(value)
		return cell
	}
	cell.Text = StaticText(value)
	cell.Block = newTextBlock(TextAreaCell, value, cellStyle, mode, cfg)
	return cell
}

func newTextBlock(kind TextAreaKind, value string, style TextStyle, mode Mode, cfg AutoSizeConfig) TextBlock {
	return TextBlock{
		Kind:  kind,
		Value: value,
		Lines: SplitLines(value),
		Box:   AutoSize(value, kind, mode, cfg),
		Style: style,
	}
}

// SplitLines breaks a multi-line value on newlines. Empty lines render as
// NBSP so each keeps its height.
func SplitLines(value string) []string {
	lines := strings.Split(normalizeNewlines(value), "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = NBSP
		}
	}
	return lines
}

func newImageBlock(asset ImageAsset, slot ImageSlot) ImageBlock {
	if asset.Slot == "" {
		asset.Slot = slot
	}
	size := imageBoxes[slot]
	return ImageBlock{
		Slot:        slot,
		URL:         asset.URL,
		Placeholder: asset.IsPlaceholder(),
		WidthPx:     size[0],
		HeightPx:    size[1],
	}
}
