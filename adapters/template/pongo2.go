package releasetemplate

import (
	"errors"
	"io"
	"io/fs"

	"github.com/flosch/pongo2/v6"
)

// Pongo2Executor executes named templates from a pongo2 template set.
type Pongo2Executor struct {
	Set   *pongo2.TemplateSet
	Cache bool
}

var _ TemplateExecutor = (*Pongo2Executor)(nil)

// NewPongo2Executor loads templates from fsys.
func NewPongo2Executor(fsys fs.FS) *Pongo2Executor {
	set := pongo2.NewSet("release-order", pongo2.NewFSLoader(fsys))
	return &Pongo2Executor{Set: set, Cache: true}
}

// DefaultExecutor loads the embedded templates.
func DefaultExecutor() *Pongo2Executor {
	return NewPongo2Executor(TemplatesFS())
}

// ExecuteTemplate renders the named template into w. Map data becomes the
// template context; any other value is exposed as "data".
func (e *Pongo2Executor) ExecuteTemplate(w io.Writer, name string, data any) error {
	if e == nil || e.Set == nil {
		return errors.New("pongo2 executor requires a template set")
	}

	var (
		tpl *pongo2.Template
		err error
	)
	if e.Cache {
		tpl, err = e.Set.FromCache(name)
	} else {
		tpl, err = e.Set.FromFile(name)
	}
	if err != nil {
		return err
	}

	ctx := pongo2.Context{}
	switch value := data.(type) {
	case map[string]any:
		for k, v := range value {
			ctx[k] = v
		}
	case pongo2.Context:
		ctx = value
	case nil:
	default:
		ctx["data"] = value
	}
	return tpl.ExecuteWriter(ctx, w)
}
