package releaseorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHTMLBytes bounds the rendered print HTML.
const DefaultMaxHTMLBytes int64 = 32 * 1024 * 1024

// ConvertRequest is handed to a conversion engine.
type ConvertRequest struct {
	Document *Document
	HTML     []byte
	Options  ExportOptions
}

// Converter turns a static document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest) ([]byte, error)
}

// AvailabilityChecker is implemented by converters that depend on the
// environment, such as an installed browser.
type AvailabilityChecker interface {
	Available() error
}

// Inspector reads facts back from a produced PDF.
type Inspector interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
}

// CleanViewOptions configures the clean view page.
type CleanViewOptions struct {
	Title       string
	Stylesheets []string
	PrintLabel  string
}

// FormView is the live editing view model.
type FormView struct {
	Snapshot    Snapshot
	Document    *Document
	BasePath    string
	Stylesheets []string
	Exporting   bool
}

// HTMLRenderer renders documents and the live form to HTML.
type HTMLRenderer interface {
	RenderPrint(ctx context.Context, doc *Document, w io.Writer) error
	RenderCleanView(ctx context.Context, doc *Document, opts CleanViewOptions, w io.Writer) error
	RenderForm(ctx context.Context, view FormView, w io.Writer) error
}

// BeforeRasterizeHook runs on the document after it is built and before it is
// converted. Hooks may mutate the document.
type BeforeRasterizeHook func(ctx context.Context, doc *Document) error

// ResizeHook re-runs auto-sizing for the document mode.
func ResizeHook(cfg AutoSizeConfig) BeforeRasterizeHook {
	return func(_ context.Context, doc *Document) error {
		doc.Resize(cfg)
		return nil
	}
}

// ExportResult describes a completed PDF export.
type ExportResult struct {
	ID       string        `json:"id"`
	Filename string        `json:"filename"`
	Bytes    int64         `json:"bytes"`
	Pages    int           `json:"pages"`
	Duration time.Duration `json:"duration"`
}

// Pipeline produces the PDF export and the clean view from the live form.
type Pipeline struct {
	Form             *Form
	Images           *ImageService
	Renderer         HTMLRenderer
	Converter        Converter
	Inspector        Inspector
	History          ExportHistory
	Logger           Logger
	Options          ExportOptions
	AutoSize         AutoSizeConfig
	Hooks            []BeforeRasterizeHook
	Stylesheets      []string
	Title            string
	FilenameTemplate string
	MaxHTMLBytes     int64
	Now              func() time.Time
	IDGenerator      func() string

	exporting atomic.Bool
}

// NewPipeline creates a pipeline with default options.
func NewPipeline(form *Form, images *ImageService) *Pipeline {
	cfg := DefaultAutoSizeConfig()
	return &Pipeline{
		Form:         form,
		Images:       images,
		Logger:       NopLogger{},
		Options:      DefaultExportOptions(),
		AutoSize:     cfg,
		Hooks:        []BeforeRasterizeHook{ResizeHook(cfg)},
		Title:        DefaultTitle,
		MaxHTMLBytes: DefaultMaxHTMLBytes,
		Now:          time.Now,
		IDGenerator:  uuid.NewString,
	}
}

// Exporting reports whether a PDF export is in flight.
func (p *Pipeline) Exporting() bool {
	if p == nil {
		return false
	}
	return p.exporting.Load()
}

// Snapshot copies the live form and image state.
func (p *Pipeline) Snapshot() Snapshot {
	var snapshot Snapshot
	if p.Form != nil {
		snapshot = p.Form.Snapshot()
	} else {
		snapshot.Items = []LineItem{{}}
	}
	return p.Images.Fill(snapshot)
}

// Document renders the current state as a static document in mode.
func (p *Pipeline) Document(mode Mode) *Document {
	return RenderStaticDocument(p.Snapshot(), DocumentOptions{
		Mode:     mode,
		Title:    p.Title,
		Page:     p.Options.Page(),
		AutoSize: p.AutoSize,
	})
}

// Available reports whether a PDF export can run in this environment.
func (p *Pipeline) Available() error {
	if p == nil || p.Converter == nil {
		return NewError(KindUnavailable, "PDF export is not available: no conversion engine configured", nil)
	}
	if checker, ok := p.Converter.(AvailabilityChecker); ok {
		if err := checker.Available(); err != nil {
			if KindFromError(err) == KindUnavailable {
				return err
			}
			return NewError(KindUnavailable, "PDF export is not available", err)
		}
	}
	return nil
}

// ExportPDF renders the form to PDF and writes it to w. Nothing is written
// unless conversion succeeds. An export already in flight is rejected.
func (p *Pipeline) ExportPDF(ctx context.Context, w io.Writer, opts ExportOptions) (ExportResult, error) {
	if p == nil {
		return ExportResult{}, NewError(KindInternal, "pipeline is nil", nil)
	}
	if w == nil {
		return ExportResult{}, NewError(KindValidation, "output writer is required", nil)
	}
	if err := p.Available(); err != nil {
		p.logger().Errorf("pdf export unavailable: %v", err)
		return ExportResult{}, err
	}
	if p.Renderer == nil {
		return ExportResult{}, NewError(KindUnavailable, "PDF export is not available: no HTML renderer configured", nil)
	}
	if !p.exporting.CompareAndSwap(false, true) {
		return ExportResult{}, NewError(KindConflict, "an export is already in progress", nil)
	}
	defer p.exporting.Store(false)

	now := p.now()
	started := now()
	id := p.newID()
	result, err := p.runExport(ctx, w, opts, id, started)
	p.record(ctx, id, result, started, err)
	return result, err
}

func (p *Pipeline) runExport(ctx context.Context, w io.Writer, opts ExportOptions, id string, started time.Time) (ExportResult, error) {
	options := DefaultExportOptions().Merge(p.Options).Merge(opts)

	ctx, cancel := applyTimeout(ctx, options.Timeout)
	if cancel != nil {
		defer cancel()
	}

	snapshot := p.Snapshot()
	if options.Filename == "" {
		name, err := RenderFilename(p.FilenameTemplate, snapshot.Fields, "pdf", started)
		if err != nil {
			return ExportResult{}, err
		}
		options.Filename = name
	}

	doc := RenderStaticDocument(snapshot, DocumentOptions{
		Mode:     ModeExport,
		Title:    p.Title,
		Page:     options.Page(),
		AutoSize: p.AutoSize,
	})
	for _, hook := range p.Hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, doc); err != nil {
			return ExportResult{}, p.fail(NewError(KindInternal, "before-rasterize hook failed", err))
		}
	}

	html := &boundedBuffer{limit: p.maxHTMLBytes()}
	if err := p.Renderer.RenderPrint(ctx, doc, html); err != nil {
		return ExportResult{}, p.fail(wrapKind(KindInternal, "render print view", err))
	}

	pdf, err := p.Converter.Convert(ctx, ConvertRequest{Document: doc, HTML: html.Bytes(), Options: options})
	if err != nil {
		return ExportResult{}, p.fail(wrapKind(KindInternal, "pdf conversion failed", err))
	}
	if len(pdf) == 0 {
		return ExportResult{}, p.fail(NewError(KindInternal, "pdf conversion produced no output", nil))
	}

	result := ExportResult{
		ID:       id,
		Filename: options.Filename,
		Bytes:    int64(len(pdf)),
	}
	if p.Inspector != nil {
		pages, err := p.Inspector.PageCount(ctx, pdf)
		if err != nil {
			return ExportResult{}, p.fail(wrapKind(KindInternal, "pdf output is unreadable", err))
		}
		result.Pages = pages
	}

	if _, err := w.Write(pdf); err != nil {
		return ExportResult{}, p.fail(NewError(KindInternal, "write pdf", err))
	}
	result.Duration = p.now()().Sub(started)
	p.logger().Infof("exported %s (%d bytes, %d pages) in %s", result.Filename, result.Bytes, result.Pages, result.Duration)
	return result, nil
}

// CleanView writes a read-only, print-ready page of the current form state.
func (p *Pipeline) CleanView(ctx context.Context, w io.Writer) error {
	if p == nil || p.Renderer == nil {
		return NewError(KindUnavailable, "clean view renderer is not configured", nil)
	}
	if w == nil {
		return NewError(KindValidation, "output writer is required", nil)
	}
	doc := p.Document(ModeScreen)
	opts := CleanViewOptions{
		Title:       doc.Title,
		Stylesheets: append([]string(nil), p.Stylesheets...),
		PrintLabel:  "Print",
	}
	if err := p.Renderer.RenderCleanView(ctx, doc, opts, w); err != nil {
		return wrapKind(KindInternal, "render clean view", err)
	}
	return nil
}

// RenderForm writes the live editing view.
func (p *Pipeline) RenderForm(ctx context.Context, basePath string, w io.Writer) error {
	if p == nil || p.Renderer == nil {
		return NewError(KindUnavailable, "form renderer is not configured", nil)
	}
	view := FormView{
		Snapshot:    p.Snapshot(),
		Document:    p.Document(ModeScreen),
		BasePath:    basePath,
		Stylesheets: append([]string(nil), p.Stylesheets...),
		Exporting:   p.Exporting(),
	}
	if err := p.Renderer.RenderForm(ctx, view, w); err != nil {
		return wrapKind(KindInternal, "render form", err)
	}
	return nil
}

// record appends the outcome to the export history. History failures are
// logged and never change the export result.
func (p *Pipeline) record(ctx context.Context, id string, result ExportResult, started time.Time, exportErr error) {
	if p.History == nil {
		return
	}
	entry := ExportRecord{
		ID:        id,
		State:     ExportCompleted,
		Filename:  result.Filename,
		Bytes:     result.Bytes,
		Pages:     result.Pages,
		Duration:  result.Duration,
		CreatedAt: started,
	}
	if exportErr != nil {
		entry.State = ExportFailed
		entry.Kind = KindFromError(exportErr)
		entry.Error = exportErr.Error()
		entry.Duration = p.now()().Sub(started)
	}
	if err := p.History.Record(context.WithoutCancel(ctx), entry); err != nil {
		p.logger().Errorf("record export %s: %v", id, err)
	}
}

func (p *Pipeline) fail(err error) error {
	p.logger().Errorf("pdf export failed: %v", err)
	return err
}

func (p *Pipeline) logger() Logger {
	if p.Logger == nil {
		return NopLogger{}
	}
	return p.Logger
}

func (p *Pipeline) now() func() time.Time {
	if p.Now == nil {
		return time.Now
	}
	return p.Now
}

func (p *Pipeline) newID() string {
	if p.IDGenerator == nil {
		return uuid.NewString()
	}
	return p.IDGenerator()
}

func (p *Pipeline) maxHTMLBytes() int64 {
	if p.MaxHTMLBytes <= 0 {
		return DefaultMaxHTMLBytes
	}
	return p.MaxHTMLBytes
}

// wrapKind keeps the kind of classified errors and context errors.
func wrapKind(kind ErrorKind, msg string, err error) error {
	var roErr *Error
	if errors.As(err, &roErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindCanceled, msg, err)
	}
	return NewError(kind, msg, err)
}

func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}

type boundedBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && int64(b.buf.Len()+len(p)) > b.limit {
		return 0, NewError(KindValidation, "max bytes exceeded", nil)
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
