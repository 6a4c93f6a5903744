package releaserouter

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/goliatone/go-release-order/adapters/formapi"
	releasetemplate "github.com/goliatone/go-release-order/adapters/template"
	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/goliatone/go-router"
)

// PlaceholderPath serves the image shown in empty image slots.
const PlaceholderPath = "/placeholder.svg"

// Config configures the go-router adapter.
type Config = formapi.Config

// Handler exposes the release order form for go-router.
type Handler struct {
	controller *formapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: formapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router. Static
// assets are mounted separately with StaticFS.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	r.Get(base, h.Handle)
	r.Get(base+"/", h.Handle)
	r.Get(base+"/:action", h.Handle)
	r.Post(base+"/fields", h.Handle)
	r.Post(base+"/rows", h.Handle)
	r.Delete(base+"/rows/:index", h.Handle)
	r.Post(base+"/rows/:index/cells", h.Handle)
	r.Post(base+"/images/:slot", h.Handle)
	r.Delete(base+"/images/:slot", h.Handle)
	r.Get(PlaceholderPath, h.HandlePlaceholder)
}

// Handle executes the shared form workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		formapi.WriteError(routerResponse{ctx: c}, releaseorder.NewError(releaseorder.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
}

// HandlePlaceholder serves the placeholder SVG.
func (h *Handler) HandlePlaceholder(c router.Context) error {
	if c == nil {
		return nil
	}
	data := releasetemplate.PlaceholderSVG()
	if len(data) == 0 {
		return c.SendStatus(http.StatusNotFound)
	}
	return sendAsset(c, "placeholder.svg", data)
}

// StaticFS exposes the embedded stylesheets for router.Static.
func StaticFS() fs.FS {
	return releasetemplate.StaticFS()
}

// StaticPath returns where stylesheets are mounted for a handler.
func (h *Handler) StaticPath() string {
	return h.basePath() + "/static"
}

func sendAsset(c router.Context, name string, data []byte) error {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.SetHeader("Content-Type", contentType)
	c.SetHeader("Content-Length", strconv.Itoa(len(data)))
	c.SetHeader("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	return c.Send(data)
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return formapi.DefaultBasePath
	}
	base := h.controller.BasePath()
	if base == "" {
		return formapi.DefaultBasePath
	}
	return base
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
