package releasepdf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/jung-kurt/gofpdf"
)

const pdfCreator = "go-release-order"

const rasterImageName = "page-capture"

// assembleRasterPDF places a full-page capture on as many pages as its height
// needs. Every page shows the next slice of the capture inside the margins.
func assembleRasterPDF(capture []byte, setup releaseorder.PageSetup, title string) ([]byte, error) {
	if len(capture) == 0 {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "page capture is empty", nil)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(capture))
	if err != nil {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "page capture is not an image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "page capture has no area", nil)
	}
	imageType, ok := gofpdfImageTypes[format]
	if !ok {
		return nil, releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("unsupported capture format %s", format), nil)
	}

	pdf := newPageDocument(setup, title)
	left, top := setup.Margins.Left, setup.Margins.Top
	contentW, contentH := setup.ContentWidthMM(), setup.ContentHeightMM()
	imageH := float64(cfg.Height) * contentW / float64(cfg.Width)

	opts := gofpdf.ImageOptions{ImageType: imageType, AllowNegativePosition: true}
	pdf.RegisterImageOptionsReader(rasterImageName, opts, bytes.NewReader(capture))

	for i := 0; i < rasterPageCount(imageH, contentH); i++ {
		pdf.AddPage()
		pdf.ClipRect(left, top, contentW, contentH, false)
		pdf.ImageOptions(rasterImageName, left, top-float64(i)*contentH, contentW, imageH, false, opts, 0, "")
		pdf.ClipEnd()
	}
	return outputPDF(pdf)
}

// rasterPageCount ignores a trailing sliver under a tenth of a millimetre.
func rasterPageCount(imageH, contentH float64) int {
	if contentH <= 0 {
		return 1
	}
	pages := int(math.Ceil((imageH - 0.1) / contentH))
	return max(pages, 1)
}

var gofpdfImageTypes = map[string]string{
	"jpeg": "JPG",
	"png":  "PNG",
	"gif":  "GIF",
}

func newPageDocument(setup releaseorder.PageSetup, title string) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: setup.WidthMM, Ht: setup.HeightMM},
	})
	pdf.SetMargins(setup.Margins.Left, setup.Margins.Top, setup.Margins.Right)
	pdf.SetAutoPageBreak(false, setup.Margins.Bottom)
	pdf.SetCreator(pdfCreator, true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	return pdf
}

func outputPDF(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "write pdf document", err)
	}
	return buf.Bytes(), nil
}
