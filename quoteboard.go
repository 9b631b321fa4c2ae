// Package quoteboard is a small password-gated quote board built with Go,
// Echo and templ. Quotes live in a JSON file with optional screenshots on
// disk, and an admin whose URL prefix can be changed at runtime manages
// quotes and site settings.
package quoteboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quoteboard/audit"
	"github.com/eringen/quoteboard/logger"
)

// App is the central quoteboard application. It wires together the stores,
// gates, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Log      *logger.Logger
	Quotes   *QuoteStore
	Settings *SettingsStore
	Images   *ImageDir
	Access   *AccessControl
	Events   *audit.Recorder // nil when gate events are disabled
	Metrics  *Metrics        // nil when metrics are disabled

	loginLimiter *LoginLimiter
	admin        *adminRouter
	stopCleanup  func()
	ready        bool
}

// New creates a new quoteboard App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the stores and registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Log == nil {
		log, err := logger.New(a.Config.LogLevel, a.Config.LogFormat)
		if err != nil {
			return fmt.Errorf("quoteboard: init logger: %w", err)
		}
		a.Log = log
	}

	images, err := NewImageDir(a.Config.UploadDir, a.Log)
	if err != nil {
		return fmt.Errorf("quoteboard: init uploads: %w", err)
	}
	a.Images = images

	quotes, err := NewQuoteStore(a.Config.QuotesPath(), images, a.Log)
	if err != nil {
		return fmt.Errorf("quoteboard: init quotes: %w", err)
	}
	a.Quotes = quotes

	settings, err := NewSettingsStore(a.Config.SettingsPath(), DefaultSettings(a.Config.DefaultPassword), a.Log)
	if err != nil {
		return fmt.Errorf("quoteboard: init settings: %w", err)
	}
	a.Settings = settings

	a.Access = NewAccessControl(a.Config.UploadMaxFailures, a.Config.HomeMaxFailures)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	if a.Config.GateEventsEnabled {
		store, err := audit.NewStore(a.Config.GateEventsDatabasePath)
		if err != nil {
			return fmt.Errorf("quoteboard: init gate events: %w", err)
		}
		recorder, err := audit.NewRecorder(store)
		if err != nil {
			store.Close()
			return fmt.Errorf("quoteboard: init gate events salt: %w", err)
		}
		a.Events = recorder
		a.stopCleanup = store.StartCleanupScheduler(a.Config.GateEventsRetentionDays, 24*time.Hour, func(err error) {
			a.Log.Errorw("Gate event cleanup failed", "error", err)
		})
	}

	if a.Config.MetricsEnabled {
		a.Metrics = newMetrics()
	}

	a.admin = newAdminRouter(func() string { return a.Settings.Get().AdminPath })

	a.setupMiddleware()
	a.setupRoutes()

	a.ready = true
	return nil
}

// Start initializes the app and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Log.Infow("Starting quoteboard", "addr", a.Config.Addr, "admin_path", a.Settings.Get().AdminPath)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/assets", a.Config.StaticDir)
	e.GET("/favicon.ico", a.handleFavicon)
	e.GET("/healthz", a.handleHealth)
	if a.Metrics != nil {
		e.GET("/metrics", a.Metrics.handler())
	}

	e.GET("/", a.handleHome)
	e.GET("/401", a.handleErrorPage(http.StatusUnauthorized))
	e.GET("/403", a.handleErrorPage(http.StatusForbidden))
	e.GET("/404", a.handleErrorPage(http.StatusNotFound))

	e.GET("/uploads/:filename", a.handleUpload, a.requireHomeAccess)

	api := e.Group("/api")
	if a.Config.APIRateLimit > 0 {
		api.Use(a.apiRateLimiter())
	}
	api.GET("/public-settings", a.handlePublicSettings)
	api.POST("/public-auth", a.handlePublicAuth)
	api.GET("/quotes", a.handleListQuotes, a.requireHomeAccess)
	api.POST("/quotes", a.handleCreateQuote, a.rejectBlockedUploaders)
	api.PUT("/quotes/:id", a.handleUpdateQuote, a.requireAdmin)
	api.DELETE("/quotes/:id", a.handleDeleteQuote, a.requireAdmin)
	api.GET("/settings", a.handleGetSettings, a.requireAdmin)
	api.PUT("/settings", a.handleUpdateSettings, a.requireAdmin)
	api.GET("/gate-events", a.handleGateEvents, a.requireAdmin)

	a.admin.add(http.MethodGet, "", a.handleAdminIndex)
	a.admin.add(http.MethodGet, "/login", a.handleAdminLoginPage)
	a.admin.add(http.MethodPost, "/login", a.handleAdminLogin)
	a.admin.add(http.MethodPost, "/logout", a.handleAdminLogout)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	var err error
	if a.Events != nil {
		err = a.Events.Store().Close()
	}
	if a.Log != nil {
		_ = a.Log.Close()
	}
	return err
}
