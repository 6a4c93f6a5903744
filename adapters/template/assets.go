package releasetemplate

import (
	"embed"
	"fmt"
	"io/fs"
)

// DefaultStaticPath is where StaticFS is mounted by the transports.
const DefaultStaticPath = "/release-order/static/"

//go:embed templates/*.html templates/partials/*.html
var embeddedTemplates embed.FS

//go:embed static/*
var embeddedStatic embed.FS

// TemplatesFS exposes the embedded page templates.
func TemplatesFS() fs.FS {
	return mustSub(embeddedTemplates, "templates")
}

// StaticFS exposes the embedded stylesheets and images.
func StaticFS() fs.FS {
	return mustSub(embeddedStatic, "static")
}

// PrintCSS returns the embedded print stylesheet.
func PrintCSS() string {
	data, err := fs.ReadFile(StaticFS(), "print.css")
	if err != nil {
		return ""
	}
	return string(data)
}

// PlaceholderSVG returns the placeholder image served for empty image slots.
func PlaceholderSVG() []byte {
	data, err := fs.ReadFile(StaticFS(), "placeholder.svg")
	if err != nil {
		return nil
	}
	return data
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Errorf("releasetemplate: failed to prepare embedded %s: %w", dir, err))
	}
	return sub
}
