package releasepdf

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-release-order/releaseorder"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	path, err := FindBrowser()
	if err != nil {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}
	return path
}

func TestParseLengthInches(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{input: "1in", want: 1},
		{input: "25.4mm", want: 1},
		{input: "2.54cm", want: 1},
		{input: "72pt", want: 1},
		{input: "96px", want: 1},
		{input: "2", want: 2},
	}

	for _, tc := range tests {
		got, err := parseLengthInches(tc.input)
		if err != nil {
			t.Fatalf("parseLengthInches(%q): %v", tc.input, err)
		}
		if diff := got - tc.want; diff > 0.0001 || diff < -0.0001 {
			t.Fatalf("parseLengthInches(%q): expected %f, got %f", tc.input, tc.want, got)
		}
	}
}

func TestParseLengthInches_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "10furlongs"} {
		if _, err := parseLengthInches(input); releaseorder.KindFromError(err) != releaseorder.KindValidation {
			t.Fatalf("parseLengthInches(%q): expected validation error, got %v", input, err)
		}
	}
}

func TestBuildPrintToPDFParams_PageSetup(t *testing.T) {
	params, err := buildPrintToPDFParams(releaseorder.DefaultPageSetup(), 0)
	if err != nil {
		t.Fatalf("buildPrintToPDFParams: %v", err)
	}
	if diff := params.PaperWidth - 210/25.4; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("expected A4 paper width, got %f", params.PaperWidth)
	}
	if diff := params.MarginTop - 10/25.4; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("expected 10mm top margin, got %f", params.MarginTop)
	}
	if params.MarginLeft == 0 || params.MarginRight == 0 || params.MarginBottom == 0 {
		t.Fatalf("expected every margin to be set")
	}
	if !params.PrintBackground {
		t.Fatalf("expected print background true")
	}
	if params.Scale != defaultPrintScale {
		t.Fatalf("expected default scale, got %f", params.Scale)
	}
}

func TestBuildPrintToPDFParams_RejectsScale(t *testing.T) {
	_, err := buildPrintToPDFParams(releaseorder.DefaultPageSetup(), 3)
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestViewportPixels_MatchesContentArea(t *testing.T) {
	width, height := viewportPixels(releaseorder.DefaultPageSetup())
	if width != 718 {
		t.Fatalf("expected 718px wide viewport for 190mm, got %d", width)
	}
	if height != 1047 {
		t.Fatalf("expected 1047px tall viewport for 277mm, got %d", height)
	}
}

func TestScreenshotQuality(t *testing.T) {
	opts := releaseorder.DefaultExportOptions()
	if got := screenshotQuality(opts); got != 98 {
		t.Fatalf("expected jpeg quality 98, got %d", got)
	}
	opts.ImageQuality = 1
	if got := screenshotQuality(opts); got != 99 {
		t.Fatalf("expected quality capped below png switch, got %d", got)
	}
	opts.ImageType = "png"
	if got := screenshotQuality(opts); got != 100 {
		t.Fatalf("expected png quality 100, got %d", got)
	}
}

func TestInjectBaseURL(t *testing.T) {
	input := []byte("<html><head><title>Test</title></head><body>ok</body></html>")
	out := injectBaseURL(input, "https://assets.local/")
	if !bytes.Contains(out, []byte("<base")) {
		t.Fatalf("expected base tag to be injected")
	}
	if got := injectBaseURL(input, ""); !bytes.Equal(got, input) {
		t.Fatalf("expected input unchanged without base url")
	}
}

func TestChromiumEngine_AvailableMissingBinary(t *testing.T) {
	engine := NewChromiumEngine("/nonexistent/chromium-binary")
	err := engine.Available()
	if releaseorder.KindFromError(err) != releaseorder.KindUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestChromiumEngine_RequiresHTML(t *testing.T) {
	engine := NewChromiumEngine("")
	_, err := engine.Convert(context.Background(), releaseorder.ConvertRequest{})
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChromiumEngine_Convert_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}

	engine := NewChromiumEngine(chromeBinaryPath(t))
	engine.Timeout = 20 * time.Second
	t.Cleanup(func() {
		_ = engine.Close()
	})

	html := []byte("<html><body><h1>Release Order</h1></body></html>")
	for _, mode := range []CaptureMode{CaptureRaster, CapturePrint} {
		engine.Capture = mode
		pdf, err := engine.Convert(context.Background(), releaseorder.ConvertRequest{HTML: html})
		if err != nil {
			t.Fatalf("convert %s: %v", mode, err)
		}
		if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
			t.Fatalf("%s: expected pdf output", mode)
		}
		pages, err := NewInspector().PageCount(context.Background(), pdf)
		if err != nil {
			t.Fatalf("%s: page count: %v", mode, err)
		}
		if pages != 1 {
			t.Fatalf("%s: expected 1 page, got %d", mode, pages)
		}
	}
}

func TestChromiumEngine_Convert_BlocksExternalAssets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium external asset test in short mode")
	}

	chromePath := chromeBinaryPath(t)
	var hits int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	engine := NewChromiumEngine(chromePath)
	engine.Timeout = 20 * time.Second
	engine.BlockExternalAssets = true
	t.Cleanup(func() {
		_ = engine.Close()
	})

	html := []byte("<html><body><img src=\"" + server.URL + "/asset.png\"></body></html>")
	_, err := engine.Convert(context.Background(), releaseorder.ConvertRequest{HTML: html})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected external assets to be blocked, got %d request(s)", hits)
	}
}
