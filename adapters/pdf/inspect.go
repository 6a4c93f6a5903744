package releasepdf

import (
	"bytes"
	"context"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Inspector reads produced PDFs back: page counts through pdfcpu and plain
// text through ledongthuc/pdf.
type Inspector struct {
	Config *model.Configuration
}

var _ releaseorder.Inspector = (*Inspector)(nil)

// NewInspector returns an inspector with relaxed validation.
func NewInspector() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{Config: conf}
}

// PageCount returns the number of pages in data.
func (i *Inspector) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := contextErr(ctx); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "pdf data is empty", nil)
	}

	conf := i.config()
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "failed to read pdf", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "failed to count pdf pages", err)
	}
	return pdfCtx.PageCount, nil
}

// ExtractText returns the plain text of every page, in page order.
func (i *Inspector) ExtractText(ctx context.Context, data []byte) ([]string, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "failed to open pdf", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for n := 1; n <= reader.NumPage(); n++ {
		if err := contextErr(ctx); err != nil {
			return nil, err
		}
		p := reader.Page(n)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, releaseorder.NewError(releaseorder.KindValidation, "failed to extract pdf text", err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (i *Inspector) config() *model.Configuration {
	if i == nil || i.Config == nil {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		return conf
	}
	return i.Config
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
