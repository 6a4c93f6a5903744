package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/goliatone/go-release-order/cmd/releaseorder/config"
	"github.com/goliatone/go-release-order/command"
	"github.com/goliatone/go-release-order/releaseorder"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// InspectReport describes a PDF read back from disk.
type InspectReport struct {
	File  string   `json:"file"`
	Bytes int      `json:"bytes"`
	Pages int      `json:"pages"`
	Text  []string `json:"text"`
}

func run(ctx context.Context, app *App, stdout io.Writer) error {
	switch app.Config.Mode {
	case config.ModeServe:
		return runServe(ctx, app)
	case config.ModePDF:
		return runPDF(ctx, app, stdout)
	case config.ModeCleanView:
		return runCleanView(ctx, app, stdout)
	case config.ModeSchedule:
		return runSchedule(ctx, app, stdout)
	case config.ModeInspect:
		return runInspect(ctx, app, stdout)
	default:
		return fmt.Errorf("unknown mode %q", app.Config.Mode)
	}
}

func runServe(ctx context.Context, app *App) error {
	if err := app.UseBus(); err != nil {
		return err
	}
	if err := app.Pipeline.Available(); err != nil {
		app.Logger.Errorf("pdf export disabled: %v", err)
	}

	addr := app.Config.Address()
	var (
		serve    func() error
		shutdown func(context.Context) error
	)
	switch app.Config.Server.Transport {
	case config.TransportHTTP:
		srv := &http.Server{Addr: addr, Handler: app.SetupMux(), ReadHeaderTimeout: readHeaderTimeout}
		serve = func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		shutdown = srv.Shutdown
	default:
		srv := buildServer(app)
		handler := app.SetupRoutes(srv.Router())
		app.Logger.Debugf("static assets under %s", handler.StaticPath())
		serve = func() error { return srv.Serve(addr) }
		shutdown = srv.Shutdown
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Infof("release order form on http://%s%s (%s)", addr, app.Config.Server.BasePath, app.Config.Server.Transport)
		errCh <- serve()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.Logger.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return shutdown(shutdownCtx)
}

func runPDF(ctx context.Context, app *App, stdout io.Writer) error {
	if err := loadSnapshot(ctx, app); err != nil {
		return err
	}

	var buf bytes.Buffer
	var result releaseorder.ExportResult
	err := app.Commands.Dispatch(ctx, command.ExportPDF{Output: &buf, Result: &result})
	if err != nil {
		return err
	}
	app.Logger.Infof("exported %s (%d bytes, %d pages) in %s", result.Filename, result.Bytes, result.Pages, result.Duration)
	return writeOutput(app.Config.Output, stdout, buf.Bytes())
}

func runCleanView(ctx context.Context, app *App, stdout io.Writer) error {
	if err := loadSnapshot(ctx, app); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := app.Pipeline.CleanView(ctx, &buf); err != nil {
		return err
	}
	return writeOutput(app.Config.Output, stdout, buf.Bytes())
}

func runSchedule(ctx context.Context, app *App, stdout io.Writer) error {
	if err := loadSnapshot(ctx, app); err != nil {
		return err
	}

	var buf bytes.Buffer
	stats, err := app.Workbook.Write(ctx, app.Pipeline.Snapshot(), &buf)
	if err != nil {
		return err
	}
	app.Logger.Infof("wrote schedule workbook with %d rows", stats.Rows)
	return writeOutput(app.Config.Output, stdout, buf.Bytes())
}

func runInspect(ctx context.Context, app *App, stdout io.Writer) error {
	data, err := os.ReadFile(app.Config.Input)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	pages, err := app.Inspector.PageCount(ctx, data)
	if err != nil {
		return err
	}
	text, err := app.Inspector.ExtractText(ctx, data)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(InspectReport{
		File:  filepath.Base(app.Config.Input),
		Bytes: len(data),
		Pages: pages,
		Text:  text,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(app.Config.Output, stdout, append(payload, '\n'))
}

func loadSnapshot(ctx context.Context, app *App) error {
	snapshot, err := command.ReadSnapshotFile(app.Config.Input)
	if err != nil {
		return err
	}
	return app.Commands.Dispatch(ctx, command.LoadSnapshot{Snapshot: snapshot})
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
