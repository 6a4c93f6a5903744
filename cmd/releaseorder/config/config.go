package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Run modes.
const (
	ModeServe     = "serve"
	ModePDF       = "pdf"
	ModeCleanView = "clean-view"
	ModeSchedule  = "schedule"
	ModeInspect   = "inspect"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageSQLite = "sqlite"
)

// Serve transports.
const (
	TransportFiber = "fiber"
	TransportHTTP  = "http"
)

// PDF engines. EngineAuto tries chromium, then wkhtmltopdf, then native.
const (
	EngineAuto        = "auto"
	EngineChromium    = "chromium"
	EngineWKHTMLTOPDF = "wkhtmltopdf"
	EngineNative      = "native"
)

// EnvPrefix prefixes every environment override, e.g. RELEASE_ORDER_PORT.
const EnvPrefix = "RELEASE_ORDER"

// Config holds the release order CLI configuration.
type Config struct {
	Mode     string
	LogLevel string
	Input    string
	Output   string
	Server   ServerConfig
	Storage  StorageConfig
	PDF      PDFConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string
	Port      int
	BasePath  string
	Transport string
}

// StorageConfig selects where uploaded images and export history live.
type StorageConfig struct {
	Backend string
	Dir     string
	DSN     string
}

// PDFConfig holds conversion engine settings.
type PDFConfig struct {
	Engine          string
	ChromiumPath    string
	WKHTMLTOPDFPath string
	Headless        bool
	UseCORS         bool
	Capture         string
	Timeout         time.Duration
	BaseURL         string
	Filename        string
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Mode:     ModeServe,
		LogLevel: "info",
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			BasePath:  "/release-order",
			Transport: TransportFiber,
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
			Dir:     "./data",
			DSN:     "file:release-order.db?cache=shared",
		},
		PDF: PDFConfig{
			Engine:          EngineAuto,
			WKHTMLTOPDFPath: "wkhtmltopdf",
			Headless:        true,
			UseCORS:         true,
			Capture:         "raster",
			Timeout:         60 * time.Second,
		},
	}
}

// Load parses args (without the program name) together with RELEASE_ORDER_*
// environment overrides. The first positional argument selects the mode.
func Load(args []string, usage io.Writer) (Config, error) {
	cfg := Defaults()
	flags := pflag.NewFlagSet("releaseorder", pflag.ContinueOnError)
	v := viper.New()

	defineFlags(flags, cfg)
	setUsage(flags, usage)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return cfg, fmt.Errorf("bind flags: %w", err)
	}

	if mode := flags.Arg(0); mode != "" {
		v.Set("mode", mode)
	}
	populate(&cfg, v)

	if cfg.Storage.Dir != "" {
		if abs, err := filepath.Abs(cfg.Storage.Dir); err == nil {
			cfg.Storage.Dir = abs
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defineFlags(flags *pflag.FlagSet, cfg Config) {
	flags.String("mode", cfg.Mode, "Run mode: serve, pdf, clean-view, schedule or inspect")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, error)")
	flags.StringP("input", "i", cfg.Input, "Snapshot JSON file (pdf, clean-view, schedule) or PDF file (inspect)")
	flags.StringP("output", "o", cfg.Output, "Output file; empty writes to stdout")
	flags.String("host", cfg.Server.Host, "Server host address")
	flags.Int("port", cfg.Server.Port, "Server port")
	flags.String("transport", cfg.Server.Transport, "Serve transport: fiber (go-router) or http (net/http)")
	flags.String("base-path", cfg.Server.BasePath, "URL prefix of the form routes")
	flags.String("storage", cfg.Storage.Backend, "Image and history storage: memory, fs or sqlite")
	flags.String("storage-dir", cfg.Storage.Dir, "Directory for the fs storage backend")
	flags.String("dsn", cfg.Storage.DSN, "SQLite DSN for the sqlite storage backend")
	flags.String("engine", cfg.PDF.Engine, "PDF engine: auto, chromium, wkhtmltopdf or native")
	flags.String("chromium-path", cfg.PDF.ChromiumPath, "Chromium binary; empty searches PATH")
	flags.String("wkhtmltopdf-path", cfg.PDF.WKHTMLTOPDFPath, "wkhtmltopdf binary")
	flags.Bool("headless", cfg.PDF.Headless, "Run chromium headless")
	flags.Bool("use-cors", cfg.PDF.UseCORS, "Let capture fetch http(s) assets; false blocks them")
	flags.String("capture", cfg.PDF.Capture, "Chromium capture: raster or print")
	flags.Duration("timeout", cfg.PDF.Timeout, "PDF conversion timeout")
	flags.String("base-url", cfg.PDF.BaseURL, "Base URL for relative assets during conversion")
	flags.String("filename", cfg.PDF.Filename, "Filename pattern for exported PDFs")
}

func setUsage(flags *pflag.FlagSet, w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	flags.SetOutput(w)
	flags.Usage = func() {
		fmt.Fprintf(w, "Usage: releaseorder [mode] [options]\n\n")
		fmt.Fprintf(w, "Modes: serve (default), pdf, clean-view, schedule, inspect\n\n")
		fmt.Fprintf(w, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  releaseorder serve --port=8081 --storage=sqlite\n")
		fmt.Fprintf(w, "  releaseorder pdf -i order.json -o order.pdf --engine=native\n")
		fmt.Fprintf(w, "  releaseorder inspect -i order.pdf\n")
		fmt.Fprintf(w, "\nEvery option can be set through %s_<OPTION>, e.g. %s_PORT.\n", EnvPrefix, EnvPrefix)
	}
}

func populate(cfg *Config, v *viper.Viper) {
	cfg.Mode = strings.ToLower(strings.TrimSpace(v.GetString("mode")))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString("loglevel")))
	cfg.Input = v.GetString("input")
	cfg.Output = v.GetString("output")
	cfg.Server.Host = v.GetString("host")
	cfg.Server.Port = v.GetInt("port")
	cfg.Server.BasePath = v.GetString("base-path")
	cfg.Server.Transport = strings.ToLower(v.GetString("transport"))
	cfg.Storage.Backend = strings.ToLower(v.GetString("storage"))
	cfg.Storage.Dir = v.GetString("storage-dir")
	cfg.Storage.DSN = v.GetString("dsn")
	cfg.PDF.Engine = strings.ToLower(v.GetString("engine"))
	cfg.PDF.ChromiumPath = v.GetString("chromium-path")
	cfg.PDF.WKHTMLTOPDFPath = v.GetString("wkhtmltopdf-path")
	cfg.PDF.Headless = v.GetBool("headless")
	cfg.PDF.UseCORS = v.GetBool("use-cors")
	cfg.PDF.Capture = strings.ToLower(v.GetString("capture"))
	cfg.PDF.Timeout = v.GetDuration("timeout")
	cfg.PDF.BaseURL = v.GetString("base-url")
	cfg.PDF.Filename = v.GetString("filename")
}

// Validate checks the configuration for the selected mode.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeServe:
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Server.BasePath, "/") {
			return errors.New("base path must start with /")
		}
		if c.Server.Transport != TransportFiber && c.Server.Transport != TransportHTTP {
			return fmt.Errorf("unknown transport %q", c.Server.Transport)
		}
	case ModePDF, ModeCleanView, ModeSchedule, ModeInspect:
		if c.Input == "" {
			return fmt.Errorf("mode %s requires --input", c.Mode)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFS:
		if c.Storage.Dir == "" {
			return errors.New("fs storage requires --storage-dir")
		}
	case StorageSQLite:
		if c.Storage.DSN == "" {
			return errors.New("sqlite storage requires --dsn")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.PDF.Engine {
	case EngineAuto, EngineChromium, EngineWKHTMLTOPDF, EngineNative:
	default:
		return fmt.Errorf("unknown pdf engine %q", c.PDF.Engine)
	}
	if c.PDF.Capture != "raster" && c.PDF.Capture != "print" {
		return fmt.Errorf("unknown capture mode %q", c.PDF.Capture)
	}
	if c.PDF.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, error)", c.LogLevel)
	}
	return nil
}

// Address returns the server address as host:port.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDebug reports whether debug logging is enabled.
func (c Config) IsDebug() bool {
	return c.LogLevel == "debug"
}
