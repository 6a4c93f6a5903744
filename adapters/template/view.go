package releasetemplate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-release-order/releaseorder"
)

// DocumentView is the template-facing form of a releaseorder.Document. Values
// are plain strings and booleans so templates never compare typed values.
type DocumentView struct {
	Mode    string       `json:"mode"`
	Title   string       `json:"title"`
	PageCSS string       `json:"page_css"`
	Header  []HeaderView `json:"header"`
	Address []string     `json:"address"`
	Matter  BlockView    `json:"matter"`
	Columns []ColumnView `json:"columns"`
	Rows    []RowView    `json:"rows"`
	Logo    ImageView    `json:"logo"`
	Stamp   ImageView    `json:"stamp"`
	Export  bool         `json:"export"`
}

// HeaderView is a labelled scalar value.
type HeaderView struct {
	Field     string `json:"field"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	Value     string `json:"value"`
	InputType string `json:"input_type"`
}

// BlockView is a sized multi-line block.
type BlockView struct {
	Value    string   `json:"value"`
	Lines    []string `json:"lines"`
	Height   string   `json:"height"`
	MinSize  string   `json:"min_size"`
	MaxSize  string   `json:"max_size"`
	Overflow string   `json:"overflow"`
	Clipped  bool     `json:"clipped"`
	Style    string   `json:"style"`
}

// ColumnView is a table header cell.
type ColumnView struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Align string `json:"align"`
	Width string `json:"width"`
}

// CellView is one table cell.
type CellView struct {
	Field string    `json:"field"`
	Text  string    `json:"text"`
	Value string    `json:"value"`
	Date  bool      `json:"date"`
	Block BlockView `json:"block"`
}

// RowView is one table row.
type RowView struct {
	Index int        `json:"index"`
	Cells []CellView `json:"cells"`
}

// ImageView is an image slot.
type ImageView struct {
	Slot        string `json:"slot"`
	URL         string `json:"url"`
	Placeholder bool   `json:"placeholder"`
	Width       string `json:"width"`
	Height      string `json:"height"`
}

// NewDocumentView converts a document for templates.
func NewDocumentView(doc *releaseorder.Document, cfg releaseorder.AutoSizeConfig) DocumentView {
	if doc == nil {
		return DocumentView{}
	}
	if cfg.Metrics == nil {
		cfg = releaseorder.DefaultAutoSizeConfig()
	}

	view := DocumentView{
		Mode:    string(doc.Mode),
		Title:   doc.Title,
		PageCSS: pageCSS(doc.Page),
		Address: append([]string(nil), doc.Address...),
		Matter:  newBlockView(doc.Matter, doc.Mode, cfg),
		Logo:    newImageView(doc.CompanyLogo),
		Stamp:   newImageView(doc.Stamp),
		Export:  doc.Mode == releaseorder.ModeExport,
	}

	for _, h := range doc.Header {
		view.Header = append(view.Header, HeaderView{
			Field:     string(h.Field),
			Label:     h.Label,
			Text:      h.Text,
			Value:     h.Value,
			InputType: string(h.Kind),
		})
	}

	for _, col := range doc.Table.Columns {
		view.Columns = append(view.Columns, ColumnView{
			Field: string(col.Field),
			Label: col.Label,
			Align: col.Align,
			Width: pct(col.WidthPct),
		})
	}

	for _, row := range doc.Table.Rows {
		rv := RowView{Index: row.Index}
		for _, cell := range row.Cells {
			cv := CellView{
				Field: string(cell.Field),
				Text:  cell.Text,
				Value: cell.Value,
				Date:  !cell.Field.IsText(),
			}
			if !cv.Date {
				cv.Block = newBlockView(cell.Block, doc.Mode, cfg)
			}
			rv.Cells = append(rv.Cells, cv)
		}
		view.Rows = append(view.Rows, rv)
	}
	return view
}

func newBlockView(block releaseorder.TextBlock, mode releaseorder.Mode, cfg releaseorder.AutoSizeConfig) BlockView {
	bounds := cfg.Bounds(block.Kind, mode)
	view := BlockView{
		Value:    block.Value,
		Lines:    append([]string(nil), block.Lines...),
		Height:   px(block.Box.Height),
		MinSize:  px(bounds.Min),
		Overflow: string(block.Box.Overflow),
		Clipped:  block.Box.Clipped,
		Style:    styleCSS(block.Style),
	}
	if bounds.Max > 0 {
		view.MaxSize = px(bounds.Max)
	}
	return view
}

func newImageView(img releaseorder.ImageBlock) ImageView {
	return ImageView{
		Slot:        string(img.Slot),
		URL:         img.URL,
		Placeholder: img.Placeholder,
		Width:       px(img.WidthPx),
		Height:      px(img.HeightPx),
	}
}

func pageCSS(page releaseorder.PageSetup) string {
	m := page.Margins
	return fmt.Sprintf("@page { size: %s %s; margin: %s %s %s %s; }",
		mm(page.WidthMM), mm(page.HeightMM), mm(m.Top), mm(m.Right), mm(m.Bottom), mm(m.Left))
}

func styleCSS(style releaseorder.TextStyle) string {
	parts := make([]string, 0, 4)
	if style.FontSize > 0 {
		parts = append(parts, "font-size: "+px(style.FontSize))
	}
	if style.FontWeight > 0 {
		parts = append(parts, "font-weight: "+strconv.Itoa(style.FontWeight))
	}
	if style.Color != "" {
		parts = append(parts, "color: "+style.Color)
	}
	if style.Align != "" {
		parts = append(parts, "text-align: "+style.Align)
	}
	return strings.Join(parts, "; ")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

func pct(v float64) string {
	if v <= 0 {
		return "auto"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
