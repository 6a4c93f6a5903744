package formapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"
	releaseformgen "github.com/goliatone/go-release-order/adapters/formgen"
	releasexlsx "github.com/goliatone/go-release-order/adapters/xlsx"
	"github.com/goliatone/go-release-order/command"
	"github.com/goliatone/go-release-order/query"
	"github.com/goliatone/go-release-order/releaseorder"
)

// DefaultBasePath is where the form is mounted.
const DefaultBasePath = "/release-order"

// DefaultMaxBufferBytes bounds buffered downloads.
const DefaultMaxBufferBytes int64 = 64 * 1024 * 1024

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Config configures the shared form controller.
type Config struct {
	Pipeline       *releaseorder.Pipeline
	Commands       command.Dispatcher
	History        releaseorder.ExportHistory
	Workbook       releasexlsx.Workbook
	BasePath       string
	Logger         releaseorder.Logger
	MaxBodyBytes   int64
	MaxBufferBytes int64
	Now            func() time.Time
}

// Controller exposes the form, its mutations and its print outputs for
// multiple transports.
type Controller struct {
	pipeline       *releaseorder.Pipeline
	commands       command.Dispatcher
	state          *query.FormStateHandler
	history        *query.ExportHistoryHandler
	workbook       releasexlsx.Workbook
	basePath       string
	logger         releaseorder.Logger
	maxBodyBytes   int64
	maxBufferBytes int64
	now            func() time.Time
}

// NewController creates a shared form controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = releaseorder.NopLogger{}
	}
	commands := cfg.Commands
	if commands == nil {
		commands = command.Direct{Handlers: command.NewHandlers(cfg.Pipeline)}
	}
	history := cfg.History
	if history == nil && cfg.Pipeline != nil {
		history = cfg.Pipeline.History
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	maxBuffer := cfg.MaxBufferBytes
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferBytes
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		pipeline:       cfg.Pipeline,
		commands:       commands,
		state:          query.NewFormStateHandler(cfg.Pipeline),
		workbook:       cfg.Workbook,
		basePath:       basePath,
		logger:         logger,
		maxBodyBytes:   maxBody,
		maxBufferBytes: maxBuffer,
		now:            now,
	}
	if history != nil {
		c.history = query.NewExportHistoryHandler(history)
	}
	return c
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes form endpoints.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil || c.pipeline == nil {
		WriteError(res, releaseorder.NewError(releaseorder.KindInternal, "handler is not configured", nil))
		return
	}
	if req == nil {
		WriteError(res, releaseorder.NewError(releaseorder.KindInternal, "request is nil", nil))
		return
	}
	path := req.Path()
	if path != c.basePath && !strings.HasPrefix(path, c.basePath+"/") {
		writeNotFound(res)
		return
	}

	suffix := strings.Trim(strings.TrimPrefix(path, c.basePath), "/")
	parts := []string{}
	if suffix != "" {
		parts = strings.Split(suffix, "/")
	}

	switch req.Method() {
	case http.MethodGet:
		c.routeGet(req, res, parts)
	case http.MethodPost:
		c.routePost(req, res, parts)
	case http.MethodDelete:
		c.routeDelete(req, res, parts)
	default:
		res.SetHeader("Allow", "GET,POST,DELETE")
		res.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Controller) routeGet(req Request, res Response, parts []string) {
	if len(parts) == 0 {
		c.handleForm(req, res)
		return
	}
	if len(parts) != 1 {
		writeNotFound(res)
		return
	}
	switch parts[0] {
	case "state":
		c.writeState(req, res, http.StatusOK)
	case "export.pdf":
		c.handleExport(req, res)
	case "clean-view":
		c.handleCleanView(req, res)
	case "schedule.xlsx":
		c.handleSchedule(req, res)
	case "exports":
		c.handleHistory(req, res)
	case "schema":
		writeJSON(res, http.StatusOK, releaseformgen.DefaultUI(c.basePath))
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routePost(req Request, res Response, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "fields":
		c.handleSetField(req, res)
	case len(parts) == 1 && parts[0] == "rows":
		c.dispatch(req, res, command.AddRow{}, http.StatusCreated)
	case len(parts) == 3 && parts[0] == "rows" && parts[2] == "cells":
		c.handleSetCell(req, res, parts[1])
	case len(parts) == 2 && parts[0] == "images":
		c.handleUpload(req, res, parts[1])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeDelete(req Request, res Response, parts []string) {
	if len(parts) != 2 {
		writeNotFound(res)
		return
	}
	switch parts[0] {
	case "rows":
		index, err := parseIndex(parts[1])
		if err != nil {
			WriteError(res, err)
			return
		}
		c.dispatch(req, res, command.DeleteRow{Index: index}, http.StatusOK)
	case "images":
		c.dispatch(req, res, command.RemoveImage{Slot: parts[1]}, http.StatusOK)
	default:
		writeNotFound(res)
	}
}

func (c *Controller) handleForm(req Request, res Response) {
	buf := newLimitedBuffer(c.maxBufferBytes)
	if err := c.pipeline.RenderForm(req.Context(), c.basePath, buf); err != nil {
		WriteError(res, err)
		return
	}
	c.writeBody(res, contentTypeHTML, buf.Bytes())
}

func (c *Controller) handleCleanView(req Request, res Response) {
	buf := newLimitedBuffer(c.maxBufferBytes)
	if err := c.pipeline.CleanView(req.Context(), buf); err != nil {
		WriteError(res, err)
		return
	}
	c.writeBody(res, contentTypeHTML, buf.Bytes())
}

func (c *Controller) handleSetField(req Request, res Response) {
	payload, err := decodeFieldPayload(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	c.dispatch(req, res, command.SetField{Field: payload.Field, Value: payload.Value}, http.StatusOK)
}

func (c *Controller) handleSetCell(req Request, res Response, rawIndex string) {
	index, err := parseIndex(rawIndex)
	if err != nil {
		WriteError(res, err)
		return
	}
	payload, err := decodeFieldPayload(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	if column, ok := releaseorder.ParseCellField(payload.Field); ok && column == releaseorder.CellScheduledDate {
		c.dispatch(req, res, command.SetCellDate{Index: index, Date: payload.Value}, http.StatusOK)
		return
	}
	c.dispatch(req, res, command.SetCellValue{Index: index, Column: payload.Field, Value: payload.Value}, http.StatusOK)
}

func (c *Controller) handleUpload(req Request, res Response, slot string) {
	body := req.Body()
	if body == nil {
		WriteError(res, releaseorder.NewError(releaseorder.KindValidation, "image data is required", nil))
		return
	}
	defer body.Close()
	c.dispatch(req, res, command.UploadImage{
		Slot:     slot,
		Filename: req.Query("filename"),
		Data:     body,
	}, http.StatusOK)
}

func (c *Controller) handleExport(req Request, res Response) {
	opts := releaseorder.ExportOptions{}
	if name := strings.TrimSpace(req.Query("filename")); name != "" {
		opts.Filename = sanitizeFilename(name, "pdf")
	}

	buf := newLimitedBuffer(c.maxBufferBytes)
	var result releaseorder.ExportResult
	err := c.commands.Dispatch(req.Context(), command.ExportPDF{Output: buf, Options: opts, Result: &result})
	if err != nil {
		WriteError(res, err)
		return
	}
	setDownloadHeaders(res, result.ID, sanitizeFilename(result.Filename, "pdf"), contentTypePDF)
	c.writeBody(res, "", buf.Bytes())
}

func (c *Controller) handleSchedule(req Request, res Response) {
	snapshot := c.pipeline.Snapshot()
	name, err := releaseorder.RenderFilename(c.pipeline.FilenameTemplate, snapshot.Fields, "xlsx", c.now())
	if err != nil {
		WriteError(res, err)
		return
	}
	buf := newLimitedBuffer(c.maxBufferBytes)
	if _, err := c.workbook.Write(req.Context(), snapshot, buf); err != nil {
		WriteError(res, err)
		return
	}
	setDownloadHeaders(res, "", name, contentTypeXLSX)
	c.writeBody(res, "", buf.Bytes())
}

func (c *Controller) handleHistory(req Request, res Response) {
	limit := 0
	if raw := strings.TrimSpace(req.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(res, releaseorder.NewError(releaseorder.KindValidation, "limit must be a number", err))
			return
		}
		limit = parsed
	}
	records, err := c.history.Query(req.Context(), query.ExportHistory{Limit: limit})
	if err != nil {
		WriteError(res, err)
		return
	}
	if records == nil {
		records = []releaseorder.ExportRecord{}
	}
	writeJSON(res, http.StatusOK, HistoryResponse{Exports: records})
}

func (c *Controller) dispatch(req Request, res Response, msg command.Message, status int) {
	if err := c.commands.Dispatch(req.Context(), msg); err != nil {
		c.logger.Debugf("%s rejected: %v", msg.Type(), err)
		WriteError(res, err)
		return
	}
	c.writeState(req, res, status)
}

func (c *Controller) writeState(req Request, res Response, status int) {
	snapshot, err := c.state.Query(req.Context(), query.FormState{})
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, status, StateResponse{
		Snapshot:  snapshot,
		Rows:      len(snapshot.Items),
		Exporting: c.pipeline.Exporting(),
	})
}

func (c *Controller) writeBody(res Response, contentType string, body []byte) {
	if contentType != "" {
		res.SetHeader("Content-Type", contentType)
	}
	res.SetHeader("Content-Length", strconv.Itoa(len(body)))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(body); err != nil {
		c.logger.Errorf("response write failed: %v", err)
	}
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, releaseorder.NewError(releaseorder.KindValidation, fmt.Sprintf("invalid row index %q", raw), err)
	}
	return index, nil
}

func writeNotFound(res Response) {
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusNotFound)
	_, _ = res.Write([]byte("404 page not found\n"))
}

// WriteError writes err as a JSON error body with a matching status.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := releaseorder.AsGoError(err)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	writeJSON(res, StatusForError(ge), payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

// StatusForError maps a go-errors error to an HTTP status.
func StatusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch releaseorder.KindFromError(err) {
	case releaseorder.KindNotImpl:
		return http.StatusNotImplemented
	case releaseorder.KindConflict, releaseorder.KindCanceled:
		return http.StatusConflict
	case releaseorder.KindUnavailable:
		return http.StatusServiceUnavailable
	case releaseorder.KindTimeout:
		return http.StatusRequestTimeout
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeFilename(filename, ext string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "release-order"
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), "."+ext) {
		name += "." + ext
	}
	return name
}

func setDownloadHeaders(res Response, exportID, filename, contentType string) {
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if exportID != "" {
		res.SetHeader("X-Export-Id", exportID)
	}
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxBufferBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, releaseorder.NewError(releaseorder.KindInternal, "buffer limit exceeded", nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
