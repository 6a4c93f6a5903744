package main

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-release-order/adapters/formapi"
	releasehttp "github.com/goliatone/go-release-order/adapters/http"
	releaserouter "github.com/goliatone/go-release-order/adapters/router"
	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/goliatone/go-router"
)

// maxRequestBytes leaves room for an image upload plus framing.
const maxRequestBytes = int(releaseorder.DefaultMaxImageBytes) + 1<<20

// SetupRoutes registers the form routes and its static assets.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) *releaserouter.Handler {
	handler := releaserouter.NewHandler(a.formConfig())

	r.Static(handler.StaticPath(), "", router.Static{
		FS: releaserouter.StaticFS(),
	})
	handler.RegisterRoutes(r)
	return handler
}

// SetupMux registers the form on a net/http ServeMux.
func (a *App) SetupMux() http.Handler {
	mux := http.NewServeMux()
	releasehttp.NewHandler(a.formConfig()).RegisterRoutes(mux)
	return http.MaxBytesHandler(mux, int64(maxRequestBytes))
}

func (a *App) formConfig() formapi.Config {
	return formapi.Config{
		Pipeline: a.Pipeline,
		Commands: a.Commands,
		History:  a.History,
		Workbook: a.Workbook,
		BasePath: a.Config.Server.BasePath,
		Logger:   a.Logger,
	}
}

func buildServer(a *App) router.Server[*fiber.App] {
	return router.NewFiberAdapter(fiberAppInitializer(a))
}

func fiberAppInitializer(a *App) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName:               "Release Order",
			BodyLimit:             maxRequestBytes,
			DisableStartupMessage: !a.Config.IsDebug(),
		})

		fiberApp.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		fiberApp.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,DELETE,OPTIONS",
			AllowHeaders: "Content-Type",
		}))

		return fiberApp
	}
}
