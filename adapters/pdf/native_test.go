package releasepdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/goliatone/go-release-order/releaseorder"
	"golang.org/x/image/bmp"
)

func exportDocument(snapshot releaseorder.Snapshot) *releaseorder.Document {
	return releaseorder.RenderStaticDocument(snapshot, releaseorder.DocumentOptions{Mode: releaseorder.ModeExport})
}

func encodedImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error, mimeType string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 16))
	for x := 0; x < 40; x++ {
		img.Set(x, 8, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode %s: %v", mimeType, err)
	}
	return releaseorder.EncodeDataURL(mimeType, buf.Bytes())
}

func TestNativeEngine_RequiresDocument(t *testing.T) {
	_, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{})
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNativeEngine_DrawsDocumentText(t *testing.T) {
	doc := exportDocument(releaseorder.Snapshot{
		Fields: releaseorder.FormFields{
			OrderNumber: "RO-1042",
			OrderDate:   "2024-03-05",
			ClientName:  "Acme Foods",
			Matter:      "Full page colour advert",
		},
		Items: []releaseorder.LineItem{
			{KeyNumber: "K1", Publication: "Times of India", ScheduledDate: "2024-03-09"},
		},
	})

	pdf, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf output")
	}

	inspector := NewInspector()
	pages, err := inspector.PageCount(context.Background(), pdf)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages != 1 {
		t.Fatalf("expected 1 page, got %d", pages)
	}

	text, err := inspector.ExtractText(context.Background(), pdf)
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	all := strings.Join(text, "\n")
	for _, want := range []string{"RO-1042", "Acme Foods", "Times of India", "09.03.2024", "05.03.2024"} {
		if !strings.Contains(all, want) {
			t.Fatalf("expected %q in extracted text %q", want, all)
		}
	}
}

func TestNativeEngine_PagesLongTableWithRepeatedHeader(t *testing.T) {
	items := make([]releaseorder.LineItem, 60)
	for i := range items {
		items[i] = releaseorder.LineItem{Publication: "Daily Herald"}
	}
	doc := exportDocument(releaseorder.Snapshot{Items: items})

	pdf, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	inspector := NewInspector()
	pages, err := inspector.PageCount(context.Background(), pdf)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages < 2 {
		t.Fatalf("expected the table to span pages, got %d", pages)
	}

	text, err := inspector.ExtractText(context.Background(), pdf)
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	if len(text) != pages {
		t.Fatalf("expected text for %d pages, got %d", pages, len(text))
	}
	if !strings.Contains(text[1], "Publication") {
		t.Fatalf("expected table header repeated on page 2, got %q", text[1])
	}
}

func TestNativeEngine_ClipsClampedMatter(t *testing.T) {
	lines := make([]string, 80)
	for i := range lines {
		lines[i] = "line"
	}
	lines[79] = "FINALLINE"
	doc := exportDocument(releaseorder.Snapshot{
		Fields: releaseorder.FormFields{Matter: strings.Join(lines, "\n")},
	})
	if !doc.Matter.Box.Clipped {
		t.Fatalf("expected matter box to be clipped in export mode")
	}

	pdf, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	text, err := NewInspector().ExtractText(context.Background(), pdf)
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	if strings.Contains(strings.Join(text, "\n"), "FINALLINE") {
		t.Fatalf("expected clipped lines to be left out")
	}
}

func TestNativeEngine_EmbedsUploadedImages(t *testing.T) {
	pngURL := encodedImage(t, func(buf *bytes.Buffer, img image.Image) error { return png.Encode(buf, img) }, "image/png")
	bmpURL := encodedImage(t, func(buf *bytes.Buffer, img image.Image) error { return bmp.Encode(buf, img) }, "image/bmp")

	doc := exportDocument(releaseorder.Snapshot{
		CompanyLogo: releaseorder.ImageAsset{Slot: releaseorder.SlotCompanyLogo, URL: pngURL},
		Stamp:       releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: bmpURL},
	})
	withImages, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	plain, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: exportDocument(releaseorder.Snapshot{})})
	if err != nil {
		t.Fatalf("convert plain: %v", err)
	}
	if !bytes.Contains(withImages, []byte("/Subtype /Image")) {
		t.Fatalf("expected an image object in the pdf")
	}
	if bytes.Contains(plain, []byte("/Subtype /Image")) {
		t.Fatalf("expected placeholders to draw no image")
	}
}

func TestNativeEngine_RejectsCorruptImage(t *testing.T) {
	doc := exportDocument(releaseorder.Snapshot{
		Stamp: releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: releaseorder.EncodeDataURL("image/png", []byte("nope"))},
	})
	_, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNativeEngine_SkipsSVGImages(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
	doc := exportDocument(releaseorder.Snapshot{
		Stamp: releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: releaseorder.EncodeDataURL("image/svg+xml", svg)},
	})
	pdf, err := NewNativeEngine().Convert(context.Background(), releaseorder.ConvertRequest{Document: doc})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if bytes.Contains(pdf, []byte("/Subtype /Image")) {
		t.Fatalf("expected svg stamp to leave its box empty")
	}
}

func TestInspector_RejectsGarbage(t *testing.T) {
	if _, err := NewInspector().PageCount(context.Background(), []byte("not a pdf")); releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewInspector().PageCount(context.Background(), nil); releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestHelpers(t *testing.T) {
	if r, g, b := parseHexColor("#fff"); r != 255 || g != 255 || b != 255 {
		t.Fatalf("unexpected color %d %d %d", r, g, b)
	}
	if r, g, b := parseHexColor("bogus"); r != 17 || g != 24 || b != 39 {
		t.Fatalf("expected fallback color, got %d %d %d", r, g, b)
	}
	w, h := fitBox(200, 100, 50, 50)
	if w != 50 || h != 25 {
		t.Fatalf("unexpected fit %v x %v", w, h)
	}
	widths := columnWidths(releaseorder.DefaultColumns(), 190)
	var total float64
	for _, width := range widths {
		total += width
	}
	if diff := total - 190; diff > 0.001 || diff < -0.001 {
		t.Fatalf("expected column widths to fill 190mm, got %f", total)
	}
}
