package releasepdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/goliatone/go-release-order/releaseorder"
)

// DefaultMaxPDFBytes bounds the output read back from external converters.
const DefaultMaxPDFBytes int64 = 64 * 1024 * 1024

// ConverterFunc adapts a function to a releaseorder.Converter.
type ConverterFunc func(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error)

func (f ConverterFunc) Convert(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error) {
	if f == nil {
		return nil, errors.New("pdf converter func is nil")
	}
	return f(ctx, req)
}

// Chain converts with the first engine that is available in the current
// environment. Engines without an Available method are always available.
type Chain []releaseorder.Converter

var (
	_ releaseorder.Converter           = Chain(nil)
	_ releaseorder.AvailabilityChecker = Chain(nil)
)

// Available reports an unavailable error when no engine in the chain can run.
func (c Chain) Available() error {
	_, err := c.pick()
	return err
}

// Convert runs the first available engine.
func (c Chain) Convert(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error) {
	engine, err := c.pick()
	if err != nil {
		return nil, err
	}
	return engine.Convert(ctx, req)
}

func (c Chain) pick() (releaseorder.Converter, error) {
	reasons := make([]string, 0, len(c))
	for _, engine := range c {
		if engine == nil {
			continue
		}
		checker, ok := engine.(releaseorder.AvailabilityChecker)
		if !ok {
			return engine, nil
		}
		err := checker.Available()
		if err == nil {
			return engine, nil
		}
		reasons = append(reasons, err.Error())
	}
	msg := "no pdf conversion engine is available"
	if len(reasons) > 0 {
		msg = msg + ": " + strings.Join(reasons, "; ")
	}
	return nil, releaseorder.NewError(releaseorder.KindUnavailable, msg, nil)
}

// WKHTMLTOPDFEngine invokes wkhtmltopdf for HTML-to-PDF conversion.
type WKHTMLTOPDFEngine struct {
	Command        string
	Args           []string
	Env            []string
	Timeout        time.Duration
	MaxOutputBytes int64
}

var (
	_ releaseorder.Converter           = WKHTMLTOPDFEngine{}
	_ releaseorder.AvailabilityChecker = WKHTMLTOPDFEngine{}
)

// Available reports whether the wkhtmltopdf binary can be found.
func (e WKHTMLTOPDFEngine) Available() error {
	if _, err := exec.LookPath(e.command()); err != nil {
		return releaseorder.NewError(releaseorder.KindUnavailable, "wkhtmltopdf binary not found", err)
	}
	return nil
}

// Convert executes wkhtmltopdf using stdin/stdout for HTML/PDF.
func (e WKHTMLTOPDFEngine) Convert(ctx context.Context, req releaseorder.ConvertRequest) ([]byte, error) {
	if len(req.HTML) == 0 {
		return nil, releaseorder.NewError(releaseorder.KindValidation, "wkhtmltopdf requires print html", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(wkhtmltopdfPageArgs(req.Options.Page()), e.Args...)
	args = append(args, "-", "-")
	cmd := exec.CommandContext(cmdCtx, e.command(), args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(req.HTML)

	stdout := newLimitedBuffer(e.MaxOutputBytes)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := cmdCtx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = "wkhtmltopdf failed"
		}
		return nil, releaseorder.NewError(releaseorder.KindInternal, message, err)
	}
	return stdout.Bytes(), nil
}

func (e WKHTMLTOPDFEngine) command() string {
	if cmd := strings.TrimSpace(e.Command); cmd != "" {
		return cmd
	}
	return "wkhtmltopdf"
}

func wkhtmltopdfPageArgs(page releaseorder.PageSetup) []string {
	m := page.Margins
	return []string{
		"--quiet",
		"--print-media-type",
		"--page-width", formatMM(page.WidthMM),
		"--page-height", formatMM(page.HeightMM),
		"--margin-top", formatMM(m.Top),
		"--margin-right", formatMM(m.Right),
		"--margin-bottom", formatMM(m.Bottom),
		"--margin-left", formatMM(m.Left),
	}
}

func formatMM(v float64) string {
	return fmt.Sprintf("%gmm", v)
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxPDFBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "pdf output exceeds max bytes", nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
