package releasetemplate

import (
	"bytes"
	"context"
	"io"

	"github.com/goliatone/go-release-order/releaseorder"
)

// DefaultMaxBytes bounds buffered template output.
const DefaultMaxBytes int64 = 32 * 1024 * 1024

// Template names.
const (
	TemplatePrint     = "print.html"
	TemplateCleanView = "clean_view.html"
	TemplateForm      = "form.html"
)

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Renderer renders documents through a TemplateExecutor.
type Renderer struct {
	Templates         TemplateExecutor
	PrintTemplate     string
	CleanViewTemplate string
	FormTemplate      string
	PrintCSS          string
	StaticPath        string
	AutoSize          releaseorder.AutoSizeConfig
	MaxBytes          int64
}

var _ releaseorder.HTMLRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer over the embedded pongo2 templates.
func NewRenderer() *Renderer {
	return &Renderer{
		Templates:  DefaultExecutor(),
		PrintCSS:   PrintCSS(),
		StaticPath: DefaultStaticPath,
		AutoSize:   releaseorder.DefaultAutoSizeConfig(),
		MaxBytes:   DefaultMaxBytes,
	}
}

// CleanViewData is passed to the clean view template as "clean".
type CleanViewData struct {
	Title       string   `json:"title"`
	Stylesheets []string `json:"stylesheets"`
	PrintLabel  string   `json:"print_label"`
}

// FormData is passed to the form template as "form".
type FormData struct {
	BasePath    string                  `json:"base_path"`
	StaticPath  string                  `json:"static_path"`
	Stylesheets []string                `json:"stylesheets"`
	Exporting   bool                    `json:"exporting"`
	Fields      releaseorder.FormFields `json:"fields"`
}

// RenderPrint renders the print page handed to conversion engines.
func (r *Renderer) RenderPrint(ctx context.Context, doc *releaseorder.Document, w io.Writer) error {
	if doc == nil {
		return releaseorder.NewError(releaseorder.KindValidation, "document is required", nil)
	}
	data := r.baseData(doc)
	return r.render(ctx, pick(r.PrintTemplate, TemplatePrint), data, w)
}

// RenderCleanView renders the standalone read-only page with a Print control.
func (r *Renderer) RenderCleanView(ctx context.Context, doc *releaseorder.Document, opts releaseorder.CleanViewOptions, w io.Writer) error {
	if doc == nil {
		return releaseorder.NewError(releaseorder.KindValidation, "document is required", nil)
	}
	data := r.baseData(doc)
	data["clean"] = CleanViewData{
		Title:       pick(opts.Title, doc.Title),
		Stylesheets: opts.Stylesheets,
		PrintLabel:  pick(opts.PrintLabel, "Print"),
	}
	return r.render(ctx, pick(r.CleanViewTemplate, TemplateCleanView), data, w)
}

// Stylesheets returns the stylesheet links of the live form page.
func (r *Renderer) Stylesheets() []string {
	return []string{pick(r.StaticPath, DefaultStaticPath) + "form.css"}
}

// RenderForm renders the live editing view.
func (r *Renderer) RenderForm(ctx context.Context, view releaseorder.FormView, w io.Writer) error {
	if view.Document == nil {
		return releaseorder.NewError(releaseorder.KindValidation, "form document is required", nil)
	}
	data := r.baseData(view.Document)
	data["form"] = FormData{
		BasePath:    view.BasePath,
		StaticPath:  pick(r.StaticPath, DefaultStaticPath),
		Stylesheets: view.Stylesheets,
		Exporting:   view.Exporting,
		Fields:      view.Snapshot.Fields,
	}
	return r.render(ctx, pick(r.FormTemplate, TemplateForm), data, w)
}

func (r *Renderer) baseData(doc *releaseorder.Document) map[string]any {
	return map[string]any{
		"doc":       NewDocumentView(doc, r.AutoSize),
		"print_css": r.PrintCSS,
	}
}

func (r *Renderer) render(ctx context.Context, name string, data map[string]any, w io.Writer) error {
	if r == nil || r.Templates == nil {
		return releaseorder.NewError(releaseorder.KindUnavailable, "template renderer requires templates", nil)
	}
	if w == nil {
		return releaseorder.NewError(releaseorder.KindValidation, "output writer is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := &limitedBuffer{limit: r.maxBytes()}
	if err := r.Templates.ExecuteTemplate(buf, name, data); err != nil {
		if releaseorder.KindFromError(err) == releaseorder.KindValidation {
			return err
		}
		return releaseorder.NewError(releaseorder.KindInternal, "execute template "+name, err)
	}
	_, err := w.Write(buf.buf.Bytes())
	return err
}

func (r *Renderer) maxBytes() int64 {
	if r.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return r.MaxBytes
}

func pick(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

type limitedBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && int64(b.buf.Len()+len(p)) > b.limit {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "template output exceeds max bytes", nil)
	}
	return b.buf.Write(p)
}
