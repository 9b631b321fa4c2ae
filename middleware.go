package quoteboard

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	sessionName      = "admin_session"
	homeAccessCookie = "home_access"
	homeAccessMaxAge = 7 * 24 * 60 * 60
)

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", float64(v.Latency.Nanoseconds()) / 1e6,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error.Error())
			}
			a.Log.Infow("HTTP request", fields...)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	if a.Metrics != nil {
		e.Use(a.Metrics.middleware)
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, uploadsPrefix)
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'",
		HSTSMaxAge:            31536000,
	}))

	e.Use(middleware.BodyLimit("6M"))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(a.cacheControlMiddleware)

	// Must stay last: admin routes are matched after the static router missed.
	e.Use(a.admin.middleware)
}

// apiRateLimiter throttles /api requests per client IP.
func (a *App) apiRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(a.Config.APIRateLimit),
			Burst: a.Config.APIRateBurst,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

func (a *App) cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/assets/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		case strings.HasPrefix(path, uploadsPrefix):
			c.Response().Header().Set("Cache-Control", "private, max-age=86400")
		default:
			c.Response().Header().Set("Cache-Control", "no-store")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   7 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values["authenticated"].(bool)
	return ok && auth
}

func setAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["authenticated"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, "authenticated")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireAdmin rejects requests without an admin session.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

// requireHomeAccess rejects requests without home access while the home
// password is enabled.
func (a *App) requireHomeAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !a.hasHomeAccess(c, a.Settings.Get()) {
			return echo.NewHTTPError(http.StatusUnauthorized, "home access required")
		}
		return next(c)
	}
}

// rejectBlockedUploaders stops blacklisted IPs before the upload body is
// read. Admin sessions are never blocked.
func (a *App) rejectBlockedUploaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if a.Access.Upload.Blocked(c.RealIP()) && !IsAdmin(c) {
			a.recordGate(c, a.Access.Upload.Name(), GateForbidden.String())
			return echo.NewHTTPError(http.StatusForbidden, "uploads from this IP are blocked")
		}
		return next(c)
	}
}

func (a *App) hasHomeAccess(c echo.Context, s Settings) bool {
	if !s.RequireHomePassword {
		return true
	}
	if IsAdmin(c) {
		return true
	}
	ck, err := c.Cookie(homeAccessCookie)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(HomeAccessToken(s.UploadPassword))) == 1
}

func (a *App) grantHomeAccess(c echo.Context, s Settings) {
	c.SetCookie(&http.Cookie{
		Name:     homeAccessCookie,
		Value:    HomeAccessToken(s.UploadPassword),
		Path:     "/",
		MaxAge:   homeAccessMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	})
}

// recordGate logs, counts and persists a gate decision.
func (a *App) recordGate(c echo.Context, gate, outcome string) {
	ip := c.RealIP()
	if outcome != GatePassed.String() {
		a.Log.LogSecurityEvent("gate_"+outcome, ip, map[string]interface{}{
			"gate": gate,
			"path": c.Request().URL.Path,
		})
	}
	if a.Metrics != nil {
		a.Metrics.observeGate(gate, outcome)
	}
	if a.Events != nil {
		if err := a.Events.Record(gate, outcome, ip); err != nil {
			a.Log.Errorw("Failed to record gate event", "gate", gate, "outcome", outcome, "error", err)
		}
	}
}
