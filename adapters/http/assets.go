package releasehttp

import (
	"net/http"
	"strings"

	releasetemplate "github.com/goliatone/go-release-order/adapters/template"
)

// PlaceholderPath serves the image shown in empty image slots.
const PlaceholderPath = "/placeholder.svg"

// StaticPath returns where stylesheets are mounted for a base path.
func StaticPath(basePath string) string {
	return strings.TrimRight(basePath, "/") + "/static/"
}

// StaticHandler serves the embedded stylesheets under prefix.
func StaticHandler(prefix string) http.Handler {
	if prefix == "" {
		prefix = releasetemplate.DefaultStaticPath
	}
	prefix = ensureTrailingSlash(prefix)
	return http.StripPrefix(prefix, http.FileServer(http.FS(releasetemplate.StaticFS())))
}

// PlaceholderHandler serves the placeholder SVG. Size query parameters are
// accepted and ignored; the SVG scales to its box.
func PlaceholderHandler() http.Handler {
	body := releasetemplate.PlaceholderSVG()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET,HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	})
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if value[len(value)-1] == '/' {
		return value
	}
	return value + "/"
}
