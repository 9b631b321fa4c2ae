package quoteboard

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quoteboard/audit"
)

// adminRoute is one handler mounted below the admin prefix.
type adminRoute struct {
	method  string
	suffix  string
	handler echo.HandlerFunc
}

// adminRouter serves the admin pages under a prefix that is read from the
// current settings on every request, so changing the admin path takes
// effect immediately and the old prefix stops answering.
type adminRouter struct {
	prefix func() string
	routes []adminRoute
}

func newAdminRouter(prefix func() string) *adminRouter {
	return &adminRouter{prefix: prefix}
}

func (r *adminRouter) add(method, suffix string, h echo.HandlerFunc) {
	r.routes = append(r.routes, adminRoute{method: method, suffix: suffix, handler: h})
}

func (r *adminRouter) match(method, path string) (adminRoute, bool) {
	base := r.prefix()
	current := normalizeRequestPath(path)
	for _, rt := range r.routes {
		if rt.method == method && normalizeRequestPath(base+rt.suffix) == current {
			return rt, true
		}
	}
	return adminRoute{}, false
}

func (r *adminRouter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rt, ok := r.match(c.Request().Method, c.Request().URL.Path)
		if !ok {
			return next(c)
		}
		c.SetPath("/{admin}" + rt.suffix)
		return rt.handler(c)
	}
}

type passwordForm struct {
	Password string `json:"password" form:"password"`
}

func (a *App) handleAdminIndex(c echo.Context) error {
	s := a.Settings.Get()
	if !IsAdmin(c) {
		return c.Redirect(http.StatusFound, s.AdminLoginPath())
	}
	return a.sendPage(c, http.StatusOK, "admin.html", adminPanelPage(s))
}

func (a *App) handleAdminLoginPage(c echo.Context) error {
	s := a.Settings.Get()
	if IsAdmin(c) {
		return c.Redirect(http.StatusFound, s.AdminPath)
	}
	return a.sendPage(c, http.StatusOK, "admin-login.html", adminLoginPage(s))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if wait := a.loginLimiter.RetryAfter(ip); wait > 0 {
		a.recordGate(c, audit.GateAdmin, audit.OutcomeLimited)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}

	var form passwordForm
	if err := c.Bind(&form); err != nil {
		return invalid("password", "invalid login payload")
	}

	s := a.Settings.Get()
	if form.Password != "" && subtle.ConstantTimeCompare([]byte(form.Password), []byte(s.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		a.recordGate(c, audit.GateAdmin, audit.OutcomeGranted)
		return authSuccess(c, s.AdminPath)
	}

	a.loginLimiter.Record(ip)
	a.recordGate(c, audit.GateAdmin, audit.OutcomeRejected)
	return echo.NewHTTPError(http.StatusUnauthorized, "wrong password")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return authSuccess(c, a.Settings.Get().AdminLoginPath())
}
