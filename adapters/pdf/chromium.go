package releasepdf

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-release-order/releaseorder"
)

// CaptureMode selects how ChromiumEngine turns the loaded page into a PDF.
type CaptureMode string

const (
	// CaptureRaster screenshots the page at the raster scale and slices the
	// image into pages.
	CaptureRaster CaptureMode = "raster"
	// CapturePrint uses the browser's PDF printer.
	CapturePrint CaptureMode = "print"
)

const defaultPrintScale = 1.0

// cssPixelsPerMM is the CSS reference resolution of 96 px per inch.
const cssPixelsPerMM = 96.0 / 25.4

var pdfLengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// ChromiumEngine renders PDF output using a shared headless Chromium instance.
type ChromiumEngine struct {
	BrowserPath         string
	Headless            bool
	Timeout             time.Duration
	Args                []string
	Capture             CaptureMode
	BaseURL             string
	BlockExternalAssets bool
	PrintScale          float64

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

var (
	_ releaseorder.Converter           = (*ChromiumEngine)(nil)
	_ releaseorder.AvailabilityChecker = (*ChromiumEngine)(nil)
)

// NewChromiumEngine returns a headless engine in raster capture mode.
func NewChromiumEngine(browserPath string) *ChromiumEngine {
	return &ChromiumEngine{
		BrowserPath: browserPath,
		Headless:    true,
		Capture:     CaptureRaster,
		Args:        []string{"--no-sandbox", "--disable-dev-shm-usage"},
	}
}

// FindBrowser looks up a Chromium binary from CHROME_BIN or the usual names
// on PATH.
func FindBrowser() (string, error) {
	if path := strings.TrimSpace(os.Getenv("CHROME_BIN")); path != "" {
		return exec.LookPath(path)
	}
	for _, candidate := range browserCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no chromium binary on PATH")
}

// Available reports whether a browser binary can be found.
func (e *ChromiumEngine) Available() error {
	if e == nil {
		return releaseorder.NewError(releaseorder.KindUnavailable, "chromium engine is nil", nil)
	}
	if _, err := e.browserPath(); err != nil {
		return releaseorder.NewError(releaseorder.KindUnavailable, "chromium browser not found; set CHROME_BIN", err)
	}
	return nil
}

// Convert loads the print HTML in a new tab and captures it as a PDF.
func (e *ChromiumEngine) Convert(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error) {
	if e == nil {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "chromium engine is nil", nil)
	}
	if len(req.HTML) == 0 {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "chromium engine requires print html", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := e.ensureBrowser(); err != nil {
		return nil, releaseorder.NewError(releaseorder.KindUnavailable, "chromium engine init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	defer cancel()

	execCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-execCtx.Done():
		}
	}()
	if e.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, e.Timeout)
		defer cancelTimeout()
	}

	options := releaseorder.DefaultExportOptions().Merge(req.Options)
	setup := options.Page()
	htmlInput := injectBaseURL(req.HTML, e.BaseURL)

	actions := []chromedp.Action{}
	if e.BlockExternalAssets || !options.AllowsExternalAssets() {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs([]string{"http://*", "https://*"}),
		)
	}
	actions = append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(htmlInput)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)

	if e.capture() == CapturePrint {
		params, err := buildPrintToPDFParams(setup, e.PrintScale)
		if err != nil {
			return nil, err
		}
		var pdf []byte
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}))
		if err := chromedp.Run(execCtx, actions...); err != nil {
			return nil, runError(ctx, execCtx, "chromium pdf print failed", err)
		}
		return pdf, nil
	}

	var shot []byte
	width, height := viewportPixels(setup)
	actions = append(actions,
		chromedp.EmulateViewport(width, height, chromedp.EmulateScale(options.Scale)),
		chromedp.FullScreenshot(&shot, screenshotQuality(options)),
	)
	if err := chromedp.Run(execCtx, actions...); err != nil {
		return nil, runError(ctx, execCtx, "chromium page capture failed", err)
	}
	title := ""
	if req.Document != nil {
		title = req.Document.Title
	}
	return assembleRasterPDF(shot, setup, title)
}

// Close releases Chromium resources if they have been initialized.
func (e *ChromiumEngine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *ChromiumEngine) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if path, err := e.browserPath(); err == nil {
			options = append(options, chromedp.ExecPath(path))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func (e *ChromiumEngine) browserPath() (string, error) {
	if path := strings.TrimSpace(e.BrowserPath); path != "" {
		return exec.LookPath(path)
	}
	return FindBrowser()
}

func (e *ChromiumEngine) capture() CaptureMode {
	if e.Capture == "" {
		return CaptureRaster
	}
	return e.Capture
}

func runError(reqCtx, execCtx context.Context, msg string, err error) error {
	if reqErr := reqCtx.Err(); reqErr != nil {
		return reqErr
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return releaseorder.NewError(releaseorder.KindTimeout, msg, err)
	}
	return releaseorder.NewError(releaseorder.KindInternal, msg, err)
}

// viewportPixels sizes the viewport to the printable area of the page so the
// capture keeps the page's proportions.
func viewportPixels(setup releaseorder.PageSetup) (int64, int64) {
	width := int64(math.Round(setup.ContentWidthMM() * cssPixelsPerMM))
	height := int64(math.Round(setup.ContentHeightMM() * cssPixelsPerMM))
	return max(width, 1), max(height, 1)
}

func screenshotQuality(options releaseorder.ExportOptions) int {
	if strings.EqualFold(options.ImageType, "png") {
		return 100
	}
	quality := options.JPEGQuality()
	if quality >= 100 {
		// FullScreenshot switches to PNG at 100.
		return 99
	}
	return quality
}

func buildPrintToPDFParams(setup releaseorder.PageSetup, scale float64) (*page.PrintToPDFParams, error) {
	if scale == 0 {
		scale = defaultPrintScale
	}
	if scale < 0.1 || scale > 2.0 {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "pdf scale must be between 0.1 and 2.0", nil)
	}

	params := page.PrintToPDF().
		WithScale(scale).
		WithPrintBackground(true).
		WithPreferCSSPageSize(true).
		WithPaperWidth(setup.WidthMM / 25.4).
		WithPaperHeight(setup.HeightMM / 25.4)

	edges := [4]float64{setup.Margins.Top, setup.Margins.Right, setup.Margins.Bottom, setup.Margins.Left}
	var inches [4]float64
	for i, mm := range edges {
		value, err := parseLengthInches(formatMM(mm))
		if err != nil {
			return nil, err
		}
		inches[i] = value
	}
	params = params.
		WithMarginTop(inches[0]).
		WithMarginRight(inches[1]).
		WithMarginBottom(inches[2]).
		WithMarginLeft(inches[3])
	return params, nil
}

func parseLengthInches(value string) (float64, error) {
	matches := pdfLengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, releaseorder.NewError(releaseorder.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), nil)
	}

	raw := matches[1]
	unit := strings.ToLower(matches[2])
	if unit == "" {
		unit = "in"
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, releaseorder.NewError(releaseorder.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}

	switch unit {
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / 96.0, nil
	default:
		return 0, releaseorder.NewError(releaseorder.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
}

func injectBaseURL(htmlInput []byte, baseURL string) []byte {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return htmlInput
	}

	lower := strings.ToLower(string(htmlInput))
	if strings.Contains(lower, "<base") {
		return htmlInput
	}

	baseTag := fmt.Sprintf(`<base href="%s">`, html.EscapeString(baseURL))
	if headIdx := strings.Index(lower, "<head"); headIdx >= 0 {
		if end := strings.Index(lower[headIdx:], ">"); end >= 0 {
			insertPos := headIdx + end + 1
			return append(append([]byte{}, htmlInput[:insertPos]...), append([]byte(baseTag), htmlInput[insertPos:]...)...)
		}
	}

	if htmlIdx := strings.Index(lower, "<html"); htmlIdx >= 0 {
		if end := strings.Index(lower[htmlIdx:], ">"); end >= 0 {
			insertPos := htmlIdx + end + 1
			injected := fmt.Sprintf("<head>%s</head>", baseTag)
			return append(append([]byte{}, htmlInput[:insertPos]...), append([]byte(injected), htmlInput[insertPos:]...)...)
		}
	}

	return append([]byte(baseTag), htmlInput...)
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
