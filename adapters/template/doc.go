// Package releasetemplate renders release order documents and the live form
// to HTML.
//
// Renderer implements releaseorder.HTMLRenderer. Templates are executed
// through a TemplateExecutor; the default executor is pongo2 (Django syntax)
// over the embedded templates, and *html/template.Template satisfies the same
// interface. Output is buffered and bounded (DefaultMaxBytes) so a failed
// render never leaves partial HTML in the destination.
//
// The print stylesheet is inlined into print and clean view pages; the form
// stylesheet is served from StaticFS.
package releasetemplate
