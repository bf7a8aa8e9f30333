// Package formfield serves server-rendered form fields whose validation
// state lives on the server. Browser events reach the fields over HTTP or
// WebSocket and come back as re-rendered fragments.
package formfield

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/component"
	"github.com/aydenstechdungeon/formfield/config"
	"github.com/aydenstechdungeon/formfield/embed"
	"github.com/aydenstechdungeon/formfield/fiber"
	"github.com/aydenstechdungeon/formfield/internal/telemetry"
	"github.com/aydenstechdungeon/formfield/store"
	"github.com/aydenstechdungeon/formfield/store/redis"
	formtempl "github.com/aydenstechdungeon/formfield/templ"
	fiberpkg "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Version is the current version of formfield.
const Version = "0.1.0"

// Config holds the application configuration.
type Config struct {
	// AppName is the application name.
	AppName string
	// DevMode enables request logging and detailed errors.
	DevMode bool
	// RuntimeScript is the path the client runtime is served on.
	RuntimeScript string
	// EventPrefix is the prefix of the HTTP event endpoint.
	EventPrefix string
	// EnableWebSocket enables the websocket event transport.
	EnableWebSocket bool
	// WebSocketPath is the WebSocket endpoint path.
	WebSocketPath string
	// AllowedOrigins lists every origin allowed to open the websocket, the
	// app's own included. Empty means same origin only.
	AllowedOrigins []string
	// EnableCompression compresses fragments and the runtime.
	EnableCompression bool
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
	// MaxRequestBodySize caps event request bodies.
	MaxRequestBodySize int
	// Demo mounts the demo page on "/".
	Demo bool

	// Storage holds field state between events. Defaults to memory.
	Storage store.Storage
	// Codec encodes stored snapshots. Defaults to msgpack.
	Codec store.Codec
	// PubSub relays websocket renders between processes. Defaults to the
	// storage when it can publish, otherwise an in-memory relay.
	PubSub store.PubSub
	// StateTTL bounds idle form instances.
	StateTTL time.Duration

	// Logger defaults to console logging on stdout.
	Logger *telemetry.Logger
	// Classes override the default class names.
	Classes formtempl.Classes
	// Forms are registered at startup.
	Forms []*component.Form
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AppName:            "formfield",
		RuntimeScript:      "/_formfield/runtime.js",
		EventPrefix:        "/_formfield/event",
		EnableWebSocket:    true,
		WebSocketPath:      "/_formfield/ws",
		EnableCompression:  true,
		MetricsPath:        "/metrics",
		MaxRequestBodySize: 64 * 1024,
		StateTTL:           30 * time.Minute,
	}
}

// FromFile builds a Config from a loaded configuration file, dialing redis
// when the file selects it.
func FromFile(ctx context.Context, file *config.Config) (Config, error) {
	cfg := DefaultConfig()
	cfg.AppName = file.AppName
	cfg.DevMode = file.DevMode
	cfg.Demo = file.Demo
	cfg.EnableWebSocket = file.Transport.WebSocket
	cfg.EnableCompression = file.Transport.Compression
	if !file.Transport.Metrics {
		cfg.MetricsPath = ""
	}
	cfg.MaxRequestBodySize = file.Transport.MaxBodySize
	cfg.AllowedOrigins = file.Transport.AllowedOrigins
	cfg.StateTTL = file.Store.TTL
	cfg.Classes = file.Classes
	cfg.Forms = file.FormDefs()

	codec, err := store.CodecByName(file.Store.Codec)
	if err != nil {
		return cfg, err
	}
	cfg.Codec = codec

	l, err := telemetry.NewLogger(file.Logging)
	if err != nil {
		return cfg, fmt.Errorf("create logger: %w", err)
	}
	cfg.Logger = l

	if file.Store.Backend == "redis" {
		rs, err := redis.Dial(ctx, file.Store.RedisAddr, file.Store.RedisPassword, file.Store.RedisDB, file.Store.Prefix)
		if err != nil {
			_ = l.Close()
			return cfg, fmt.Errorf("connect redis %s: %w", file.Store.RedisAddr, err)
		}
		cfg.Storage = rs
	}
	return cfg, nil
}

// App is the formfield application.
type App struct {
	Config   Config
	Fiber    *fiberpkg.App
	Registry *component.Registry
	Hub      *fiber.WSHub
	Metrics  *telemetry.Metrics

	logger     *telemetry.Logger
	middleware fiber.Config
	runtime    *fiber.CompressedContent
	runtimeVer string
	compress   fiber.CompressionConfig
	hubCtx     context.Context
	stopHub    context.CancelFunc
	closeOnce  sync.Once
}

// New creates an App. Zero values in config get the defaults.
func New(config Config) (*App, error) {
	defaults := DefaultConfig()
	if config.AppName == "" {
		config.AppName = defaults.AppName
	}
	if config.RuntimeScript == "" {
		config.RuntimeScript = defaults.RuntimeScript
	}
	if config.EventPrefix == "" {
		config.EventPrefix = defaults.EventPrefix
	}
	if config.WebSocketPath == "" {
		config.WebSocketPath = defaults.WebSocketPath
	}
	if config.MaxRequestBodySize == 0 {
		config.MaxRequestBodySize = defaults.MaxRequestBodySize
	}
	if config.StateTTL == 0 {
		config.StateTTL = defaults.StateTTL
	}
	if config.Storage == nil {
		config.Storage = store.NewMemoryStorage(time.Minute)
	}
	if config.Codec == nil {
		config.Codec = store.MsgpackCodec{}
	}
	if config.Logger == nil {
		config.Logger = telemetry.NewLoggerWriter(os.Stdout, telemetry.DefaultLoggingConfig())
	}

	metrics := telemetry.NewMetrics("formfield")
	registry := component.NewRegistry(component.RegistryConfig{
		Storage:  config.Storage,
		Codec:    config.Codec,
		TTL:      config.StateTTL,
		Logger:   config.Logger,
		Observer: metrics,
	})
	for _, f := range config.Forms {
		if err := registry.Register(f); err != nil {
			return nil, err
		}
	}

	runtimeJS, err := embed.RuntimeJS()
	if err != nil {
		return nil, fmt.Errorf("load runtime: %w", err)
	}
	runtimeVer, err := embed.RuntimeHash()
	if err != nil {
		return nil, fmt.Errorf("hash runtime: %w", err)
	}
	compressCfg := fiber.DefaultCompressionConfig()
	compressCfg.SkipPaths = []string{config.WebSocketPath}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := fiber.NewWSHub()
	go hub.Run(hubCtx)
	relay := config.PubSub
	if relay == nil {
		if ps, ok := config.Storage.(store.PubSub); ok {
			relay = ps
		} else {
			relay = store.NewMemoryPubSub()
		}
	}
	if err := hub.Attach(hubCtx, relay); err != nil {
		stopHub()
		return nil, fmt.Errorf("attach render relay: %w", err)
	}

	app := &App{
		Config:     config,
		Registry:   registry,
		Hub:        hub,
		Metrics:    metrics,
		logger:     config.Logger.NewComponentLogger("app"),
		middleware: fiber.DefaultConfig(),
		runtime:    fiber.Precompress(compressCfg, runtimeJS),
		runtimeVer: runtimeVer,
		compress:   compressCfg,
		hubCtx:     hubCtx,
		stopHub:    stopHub,
	}
	app.middleware.DevMode = config.DevMode

	errCfg := fiber.ErrorHandlerConfig{
		DevMode: config.DevMode,
		OnError: func(c *fiberpkg.Ctx, appErr *fiber.AppError) {
			if appErr.StatusCode >= fiberpkg.StatusInternalServerError {
				app.logger.WithError(appErr.Unwrap()).Errorf("%s %s: %s", c.Method(), c.Path(), appErr.Code)
			}
		},
	}
	app.Fiber = fiberpkg.New(fiberpkg.Config{
		AppName:               config.AppName,
		BodyLimit:             config.MaxRequestBodySize,
		ErrorHandler:          fiber.ErrorHandler(errCfg),
		DisableStartupMessage: !config.DevMode,
	})

	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

// setupMiddleware configures the middleware stack.
func (a *App) setupMiddleware() {
	a.Fiber.Use(recover.New())

	if a.Config.DevMode {
		a.Fiber.Use(logger.New())
	}
	if a.Config.EnableCompression {
		a.Fiber.Use(fiber.BrotliGzipMiddleware(a.compress))
	}
	a.Fiber.Use(fiber.SecurityHeadersMiddleware())
	a.Fiber.Use(fiber.SessionMiddleware(a.middleware))
	a.Fiber.Use(fiber.CSRFSetTokenMiddleware())
	a.Fiber.Use(func(c *fiberpkg.Ctx) error {
		c.SetUserContext(a.renderContext(c.UserContext()))
		return c.Next()
	})
}

// setupRoutes configures the routes.
func (a *App) setupRoutes() {
	if a.Config.EnableCompression {
		a.Fiber.Get(a.Config.RuntimeScript, func(c *fiberpkg.Ctx) error {
			c.Set("Cache-Control", "public, max-age=31536000, immutable")
			return fiber.ServeCompressed(c, a.compress, a.runtime, "application/javascript")
		})
	} else {
		a.Fiber.Get(a.Config.RuntimeScript, fiber.RuntimeMiddlewareWithContent(a.runtime.Original))
	}

	a.Fiber.Post(a.Config.EventPrefix+"/:form/:field", fiber.CSRFTokenMiddleware(), fiber.EventHandler(a.Registry, a.middleware, a.Hub))

	if a.Config.EnableWebSocket {
		a.Fiber.Get(a.Config.WebSocketPath, fiber.WebSocketUpgradeMiddleware(a.Config.AllowedOrigins...), fiber.WebSocketHandler(fiber.WebSocketConfig{
			Hub:            a.Hub,
			Context:        a.renderContext(a.hubCtx),
			Dispatcher:     a.Registry,
			Config:         a.middleware,
			Logger:         a.Config.Logger,
			AllowedOrigins: a.Config.AllowedOrigins,
		}))
	}

	if a.Config.MetricsPath != "" {
		a.Fiber.Get(a.Config.MetricsPath, adaptor.HTTPHandler(a.Metrics.Handler()))
	}

	if a.Config.Demo {
		if err := a.Registry.Register(DemoForm()); err != nil {
			a.logger.WithError(err).Error("demo form rejected")
		}
		a.Fiber.Get("/", a.demoPage)
	}
}

// Register adds a form definition.
func (a *App) Register(form *component.Form) error {
	return a.Registry.Register(form)
}

// Form returns the session's instance of the named form, ready to render
// inside a page handler.
func (a *App) Form(c *fiberpkg.Ctx, name string) (templ.Component, error) {
	inst, err := a.Registry.Mount(c.UserContext(), fiber.SessionID(c, a.middleware), name)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Scripts returns the script tag loading the client runtime.
func (a *App) Scripts() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		attrs := `src="` + templ.EscapeString(a.Config.RuntimeScript+"?v="+a.runtimeVer) + `" data-event-prefix="` + templ.EscapeString(a.Config.EventPrefix) + `"`
		if a.Config.EnableWebSocket {
			attrs += ` data-ws="` + templ.EscapeString(a.Config.WebSocketPath) + `"`
		}
		_, err := io.WriteString(w, `<script `+attrs+` defer></script>`)
		return err
	})
}

// ReloadForms swaps in a new set of declarative forms.
func (a *App) ReloadForms(forms []*component.Form) error {
	if a.Config.Demo {
		forms = append(forms, DemoForm())
	}
	return a.Registry.Replace(forms)
}

// renderContext carries the configured classes into every render.
func (a *App) renderContext(ctx context.Context) context.Context {
	if a.Config.Classes == (formtempl.Classes{}) {
		return ctx
	}
	return formtempl.WithClasses(ctx, a.Config.Classes)
}

// Listen starts the server on addr.
func (a *App) Listen(addr string) error {
	a.logger.Infof("formfield %s listening on %s", Version, addr)
	return a.Fiber.Listen(addr)
}

// Shutdown stops the server, closes websocket clients, releases storage and
// closes the log file, if any.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		a.stopHub()
		err = a.Fiber.ShutdownWithContext(ctx)
		if closer, ok := a.Config.Storage.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		if lerr := a.Config.Logger.Close(); lerr != nil {
			err = errors.Join(err, lerr)
		}
	})
	return err
}
