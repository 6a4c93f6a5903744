package releasepdf

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strconv"
	"strings"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/jung-kurt/gofpdf"
)

const (
	mmPerPx       = 25.4 / 96
	ptPerPx       = 0.75
	labelFontPt   = 8.5
	valueFontPt   = 10
	titleFontPt   = 16
	headerRowMM   = 7
	tableHeaderMM = 8
	minRowMM      = 8
	sectionGapMM  = 4
	cellPadMM     = 1.5
)

// NativeEngine draws the static document with gofpdf. It needs no browser
// and ignores the print HTML.
type NativeEngine struct {
	AutoSize   releaseorder.AutoSizeConfig
	FontFamily string
}

var _ releaseorder.Converter = (*NativeEngine)(nil)

// NewNativeEngine returns an engine using the default sizing metrics.
func NewNativeEngine() *NativeEngine {
	return &NativeEngine{
		AutoSize:   releaseorder.DefaultAutoSizeConfig(),
		FontFamily: "Helvetica",
	}
}

// Convert draws req.Document onto pages sized by its page setup.
func (e *NativeEngine) Convert(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error) {
	if req.Document == nil {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "native engine requires a document", nil)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	setup := req.Document.Page
	if setup.WidthMM <= 0 || setup.HeightMM <= 0 {
		setup = req.Options.Page()
	}
	cfg := e.AutoSize
	if cfg.Metrics == nil {
		cfg = releaseorder.DefaultAutoSizeConfig()
	}
	family := e.FontFamily
	if family == "" {
		family = "Helvetica"
	}

	pdf := newPageDocument(setup, req.Document.Title)
	w := &nativeWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		setup:  setup,
		cfg:    cfg,
		family: family,
	}
	if err := w.draw(req.Document); err != nil {
		return nil, err
	}
	return outputPDF(pdf)
}

type nativeWriter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	setup  releaseorder.PageSetup
	cfg    releaseorder.AutoSizeConfig
	family string
	y      float64
}

func (w *nativeWriter) left() float64   { return w.setup.Margins.Left }
func (w *nativeWriter) width() float64  { return w.setup.ContentWidthMM() }
func (w *nativeWriter) bottom() float64 { return w.setup.HeightMM - w.setup.Margins.Bottom }

func (w *nativeWriter) draw(doc *releaseorder.Document) error {
	w.newPage()
	if err := w.drawBanner(doc); err != nil {
		return err
	}
	w.drawHeader(doc.Header)
	w.drawAddress(doc.Address)
	w.drawMatter(doc.Matter)
	w.drawTable(doc.Table)
	if err := w.drawStamp(doc.Stamp); err != nil {
		return err
	}
	if err := w.pdf.Error(); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, "draw pdf document", err)
	}
	return nil
}

func (w *nativeWriter) newPage() {
	w.pdf.AddPage()
	w.y = w.setup.Margins.Top
}

// ensure starts a new page when h no longer fits on the current one.
func (w *nativeWriter) ensure(h float64) bool {
	if w.y+h <= w.bottom() || w.y == w.setup.Margins.Top {
		return false
	}
	w.newPage()
	return true
}

func (w *nativeWriter) drawBanner(doc *releaseorder.Document) error {
	logoW, logoH := doc.CompanyLogo.WidthPx*mmPerPx, doc.CompanyLogo.HeightPx*mmPerPx
	if err := w.drawImage(doc.CompanyLogo, w.left(), w.y, logoW, logoH); err != nil {
		return err
	}

	w.pdf.SetTextColor(17, 24, 39)
	w.pdf.SetFont(w.family, "B", titleFontPt)
	w.pdf.SetXY(w.left()+logoW, w.y)
	w.pdf.CellFormat(w.width()-logoW, logoH, w.tr(strings.ToUpper(doc.Title)), "", 0, "RM", false, 0, "")
	w.y += logoH + sectionGapMM
	return nil
}

func (w *nativeWriter) drawHeader(fields []releaseorder.HeaderField) {
	colW := w.width() / 2
	labelW := 24.0
	for i, field := range fields {
		col := i % 2
		if col == 0 && i > 0 {
			w.y += headerRowMM
		}
		x := w.left() + float64(col)*colW
		w.pdf.SetXY(x, w.y)
		w.pdf.SetFont(w.family, "B", labelFontPt)
		w.pdf.CellFormat(labelW, headerRowMM, w.tr(field.Label), "", 0, "LM", false, 0, "")
		w.pdf.SetFont(w.family, "", valueFontPt)
		w.pdf.CellFormat(colW-labelW, headerRowMM, w.tr(field.Text), "B", 0, "LM", false, 0, "")
	}
	if len(fields) > 0 {
		w.y += headerRowMM + sectionGapMM
	}
}

func (w *nativeWriter) drawAddress(lines []string) {
	if len(lines) == 0 {
		return
	}
	w.ensure(headerRowMM * float64(len(lines)+1))
	w.pdf.SetXY(w.left(), w.y)
	w.pdf.SetFont(w.family, "B", labelFontPt)
	w.pdf.CellFormat(w.width(), headerRowMM, w.tr(releaseorder.FieldLabel(releaseorder.FieldManagerAddress1)), "", 1, "LM", false, 0, "")
	w.pdf.SetFont(w.family, "", valueFontPt)
	for _, line := range lines {
		w.pdf.SetX(w.left())
		w.pdf.CellFormat(w.width(), headerRowMM-1.5, w.tr(line), "", 1, "LM", false, 0, "")
	}
	w.y = w.pdf.GetY() + sectionGapMM
}

func (w *nativeWriter) drawMatter(block releaseorder.TextBlock) {
	h := block.Box.Height * mmPerPx
	w.ensure(headerRowMM + h)
	w.pdf.SetXY(w.left(), w.y)
	w.pdf.SetFont(w.family, "B", labelFontPt)
	w.pdf.CellFormat(w.width(), headerRowMM, w.tr(releaseorder.FieldLabel(releaseorder.FieldMatter)), "", 0, "LM", false, 0, "")
	w.y += headerRowMM

	w.pdf.SetDrawColor(209, 213, 219)
	w.pdf.Rect(w.left(), w.y, w.width(), h, "D")
	w.drawBlock(block, w.left(), w.y, w.width(), h)
	w.y += h + sectionGapMM
}

func (w *nativeWriter) drawTable(table releaseorder.Table) {
	widths := columnWidths(table.Columns, w.width())
	w.ensure(tableHeaderMM + minRowMM)
	w.drawTableHeader(table.Columns, widths)

	for _, row := range table.Rows {
		rowH := rowHeight(row)
		if w.ensure(rowH) {
			w.drawTableHeader(table.Columns, widths)
		}
		x := w.left()
		for i, cell := range row.Cells {
			if i >= len(widths) {
				break
			}
			cw := widths[i]
			w.pdf.SetDrawColor(209, 213, 219)
			w.pdf.Rect(x, w.y, cw, rowH, "D")
			if cell.Field.IsText() {
				w.drawBlock(cell.Block, x, w.y, cw, rowH)
			} else {
				w.pdf.SetFont(w.family, "", valueFontPt)
				w.pdf.SetTextColor(17, 24, 39)
				w.pdf.SetXY(x, w.y)
				w.pdf.CellFormat(cw, rowH, w.tr(cell.Text), "", 0, "CM", false, 0, "")
			}
			x += cw
		}
		w.y += rowH
	}
	w.y += sectionGapMM
}

func (w *nativeWriter) drawTableHeader(columns []releaseorder.Column, widths []float64) {
	w.pdf.SetFont(w.family, "B", labelFontPt)
	w.pdf.SetFillColor(243, 244, 246)
	w.pdf.SetDrawColor(209, 213, 219)
	w.pdf.SetTextColor(17, 24, 39)
	w.pdf.SetXY(w.left(), w.y)
	for i, col := range columns {
		w.pdf.CellFormat(widths[i], tableHeaderMM, w.tr(col.Label), "1", 0, alignCode(col.Align)+"M", true, 0, "")
	}
	w.y += tableHeaderMM
}

func (w *nativeWriter) drawStamp(stamp releaseorder.ImageBlock) error {
	sw, sh := stamp.WidthPx*mmPerPx, stamp.HeightPx*mmPerPx
	w.ensure(sh)
	return w.drawImage(stamp, w.left()+w.width()-sw, w.y, sw, sh)
}

// drawBlock writes the visible lines of block inside the box, clipped to it.
func (w *nativeWriter) drawBlock(block releaseorder.TextBlock, x, y, bw, bh float64) {
	metrics := w.cfg.Metrics[block.Kind]
	lineH := metrics.LineHeight * mmPerPx
	if lineH <= 0 {
		lineH = 5
	}
	padY := metrics.PaddingY / 2 * mmPerPx

	size := float64(valueFontPt)
	if block.Style.FontSize > 0 {
		size = block.Style.FontSize * ptPerPx
	}
	style := ""
	if block.Style.FontWeight >= 600 {
		style = "B"
	}
	w.pdf.SetFont(w.family, style, size)
	r, g, b := parseHexColor(block.Style.Color)
	w.pdf.SetTextColor(r, g, b)
	align := alignCode(block.Style.Align)

	w.pdf.ClipRect(x, y, bw, bh, false)
	defer w.pdf.ClipEnd()

	ty := y + padY
	textW := bw - 2*cellPadMM
	for _, line := range block.VisibleLines(w.cfg) {
		parts := w.pdf.SplitLines([]byte(w.tr(line)), textW)
		if len(parts) == 0 {
			parts = [][]byte{{}}
		}
		for _, part := range parts {
			if ty >= y+bh {
				return
			}
			w.pdf.SetXY(x+cellPadMM, ty)
			w.pdf.CellFormat(textW, lineH, string(part), "", 0, align+"M", false, 0, "")
			ty += lineH
		}
	}
}

// drawImage places an uploaded image inside its reserved box. Placeholders,
// non-embedded URLs and SVG uploads leave the box empty.
func (w *nativeWriter) drawImage(img releaseorder.ImageBlock, x, y, bw, bh float64) error {
	if img.Placeholder || !strings.HasPrefix(img.URL, "data:") {
		return nil
	}
	mimeType, data, err := releaseorder.DecodeDataURL(img.URL)
	if err != nil {
		return err
	}
	if mimeType == "image/svg+xml" {
		return nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return releaseorder.NewError(releaseorder.KindValidation, "image data is corrupt", err)
	}
	imageType, ok := gofpdfImageTypes[format]
	if !ok {
		data, err = reencodePNG(data)
		if err != nil {
			return err
		}
		imageType = "PNG"
	}

	iw, ih := fitBox(float64(cfg.Width), float64(cfg.Height), bw, bh)
	opts := gofpdf.ImageOptions{ImageType: imageType}
	name := string(img.Slot)
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	w.pdf.ImageOptions(name, x+(bw-iw)/2, y+(bh-ih)/2, iw, ih, false, opts, 0, "")
	return nil
}

// reencodePNG converts formats gofpdf cannot embed, such as WebP and BMP.
func reencodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "image data is corrupt", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "re-encode image", err)
	}
	return buf.Bytes(), nil
}

func fitBox(iw, ih, bw, bh float64) (float64, float64) {
	if iw <= 0 || ih <= 0 {
		return bw, bh
	}
	scale := min(bw/iw, bh/ih)
	return iw * scale, ih * scale
}

func columnWidths(columns []releaseorder.Column, total float64) []float64 {
	widths := make([]float64, len(columns))
	var pct float64
	for _, col := range columns {
		pct += col.WidthPct
	}
	for i, col := range columns {
		if pct <= 0 {
			widths[i] = total / float64(len(columns))
			continue
		}
		widths[i] = total * col.WidthPct / pct
	}
	return widths
}

func rowHeight(row releaseorder.TableRow) float64 {
	h := float64(minRowMM)
	for _, cell := range row.Cells {
		if !cell.Field.IsText() {
			continue
		}
		h = max(h, cell.Block.Box.Height*mmPerPx)
	}
	return h
}

func alignCode(align string) string {
	switch strings.ToLower(align) {
	case "center":
		return "C"
	case "right":
		return "R"
	default:
		return "L"
	}
}

func parseHexColor(value string) (int, int, int) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	if len(value) != 6 {
		return 17, 24, 39
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 17, 24, 39
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff)
}
