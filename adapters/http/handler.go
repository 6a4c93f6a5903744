package releasehttp

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-release-order/adapters/formapi"
	"github.com/goliatone/go-release-order/releaseorder"
)

// Config configures the HTTP adapter.
type Config = formapi.Config

// Handler exposes the release order form over net/http.
type Handler struct {
	controller *formapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: formapi.NewController(cfg)}
}

// RegisterRoutes registers the form, its static assets and the placeholder
// image on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	base := h.basePath()
	static := StaticPath(base)
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(base, h)
		r.Handle(base+"/", h)
		r.Handle(static, StaticHandler(static))
		r.Handle(PlaceholderPath, PlaceholderHandler())
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(base, h.ServeHTTP)
		r.HandleFunc(base+"/", h.ServeHTTP)
		r.HandleFunc(static, StaticHandler(static).ServeHTTP)
		r.HandleFunc(PlaceholderPath, PlaceholderHandler().ServeHTTP)
	}
}

// ServeHTTP routes form endpoints. Static assets under the base path are
// served directly.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		formapi.WriteError(httpResponse{w: w}, releaseorder.NewError(releaseorder.KindInternal, "handler is nil", nil))
		return
	}
	if static := StaticPath(h.basePath()); r.URL != nil && strings.HasPrefix(r.URL.Path, static) {
		StaticHandler(static).ServeHTTP(w, r)
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w})
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return formapi.DefaultBasePath
	}
	path := h.controller.BasePath()
	if path == "" {
		return formapi.DefaultBasePath
	}
	return path
}
