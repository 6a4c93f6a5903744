package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-command/dispatcher"
	releasepdf "github.com/goliatone/go-release-order/adapters/pdf"
	releasestorebun "github.com/goliatone/go-release-order/adapters/store/bun"
	releasestorefs "github.com/goliatone/go-release-order/adapters/store/fs"
	releasetemplate "github.com/goliatone/go-release-order/adapters/template"
	releasexlsx "github.com/goliatone/go-release-order/adapters/xlsx"
	"github.com/goliatone/go-release-order/cmd/releaseorder/config"
	"github.com/goliatone/go-release-order/command"
	"github.com/goliatone/go-release-order/query"
	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the application dependencies.
type App struct {
	Config    config.Config
	Logger    *ConsoleLogger
	Pipeline  *releaseorder.Pipeline
	Handlers  *command.Handlers
	Commands  command.Dispatcher
	History   releaseorder.ExportHistory
	Inspector *releasepdf.Inspector
	Workbook  releasexlsx.Workbook

	db            *bun.DB
	chromium      *releasepdf.ChromiumEngine
	subscriptions []dispatcher.Subscription
}

// NewApp creates and initializes the application.
func NewApp(ctx context.Context, cfg config.Config, logger *ConsoleLogger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Inspector: releasepdf.NewInspector()}

	store, history, err := app.openStorage(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.History = history

	images := releaseorder.NewImageService(store)
	images.Logger = logger
	if err := images.Restore(ctx); err != nil {
		logger.Errorf("restore uploaded images: %v", err)
	}

	renderer := releasetemplate.NewRenderer()
	renderer.StaticPath = cfg.Server.BasePath + "/static/"

	pipeline := releaseorder.NewPipeline(releaseorder.NewForm(), images)
	pipeline.Renderer = renderer
	pipeline.Stylesheets = renderer.Stylesheets()
	pipeline.Converter = app.buildConverter()
	pipeline.Inspector = app.Inspector
	pipeline.History = history
	pipeline.Logger = logger
	pipeline.Options.Timeout = cfg.PDF.Timeout
	pipeline.Options.UseCORS = releaseorder.BoolPtr(cfg.PDF.UseCORS)
	if cfg.PDF.Filename != "" {
		pipeline.FilenameTemplate = cfg.PDF.Filename
	}
	app.Pipeline = pipeline
	app.Handlers = command.NewHandlers(pipeline)
	app.Commands = command.Direct{Handlers: app.Handlers}

	return app, nil
}

// UseBus subscribes the command and query handlers to the go-command
// dispatcher and routes commands through it.
func (a *App) UseBus() error {
	subscriptions, err := command.Register(nil, a.Handlers)
	a.subscriptions = append(a.subscriptions, subscriptions...)
	if err != nil {
		return fmt.Errorf("register command handlers: %w", err)
	}
	subscriptions, err = query.Register(nil,
		query.NewFormStateHandler(a.Pipeline),
		query.NewExportHistoryHandler(a.History),
	)
	a.subscriptions = append(a.subscriptions, subscriptions...)
	if err != nil {
		return fmt.Errorf("register query handlers: %w", err)
	}
	a.Commands = command.Bus{}
	return nil
}

// Close releases the browser, the database and dispatcher subscriptions.
func (a *App) Close() {
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	a.subscriptions = nil
	if a.chromium != nil {
		if err := a.chromium.Close(); err != nil {
			a.Logger.Errorf("close chromium: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Errorf("close database: %v", err)
		}
	}
}

func (a *App) openStorage(ctx context.Context) (releaseorder.AssetStore, releaseorder.ExportHistory, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case config.StorageFS:
		dir := filepath.Join(cfg.Dir, "assets")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		a.Logger.Infof("storing images in %s", dir)
		return releasestorefs.NewStore(dir), releaseorder.NewMemoryExportHistory(), nil
	case config.StorageSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		a.db = bun.NewDB(sqldb, sqlitedialect.New())
		if err := releasestorebun.CreateSchema(ctx, a.db); err != nil {
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		a.Logger.Infof("storing images and export history in sqlite")
		return releasestorebun.NewStore(a.db), releasestorebun.NewHistory(a.db), nil
	default:
		return releaseorder.NewMemoryAssetStore(), releaseorder.NewMemoryExportHistory(), nil
	}
}

func (a *App) buildConverter() releaseorder.Converter {
	cfg := a.Config.PDF

	chromium := releasepdf.NewChromiumEngine(cfg.ChromiumPath)
	chromium.Headless = cfg.Headless
	chromium.Capture = releasepdf.CaptureMode(cfg.Capture)
	chromium.Timeout = cfg.Timeout
	chromium.BaseURL = cfg.BaseURL

	wkhtml := releasepdf.WKHTMLTOPDFEngine{Command: cfg.WKHTMLTOPDFPath, Timeout: cfg.Timeout}
	native := releasepdf.NewNativeEngine()

	switch cfg.Engine {
	case config.EngineChromium:
		a.chromium = chromium
		return releasepdf.Chain{chromium}
	case config.EngineWKHTMLTOPDF:
		return releasepdf.Chain{wkhtml}
	case config.EngineNative:
		return releasepdf.Chain{native}
	default:
		a.chromium = chromium
		return releasepdf.Chain{chromium, wkhtml, native}
	}
}
