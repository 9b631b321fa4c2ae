package quoteboard

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eringen/quoteboard/audit"
	"github.com/eringen/quoteboard/views"
)

const (
	defaultGateEventLimit = 50
	maxGateEventLimit     = 500
)

// quoteForm is the multipart body of quote create and update requests.
type quoteForm struct {
	Text        string `form:"text" validate:"max=5000"`
	Date        string `form:"date" validate:"max=64"`
	Password    string `form:"password"`
	RemoveImage string `form:"removeImage"`
}

type quoteListResponse struct {
	Items   []QuoteItem `json:"items"`
	HasMore bool        `json:"hasMore"`
}

func adminPanelPage(s Settings) templ.Component {
	return views.AdminPanel(s.SiteName, s.AdminPath+"/logout")
}

func adminLoginPage(s Settings) templ.Component {
	return views.AdminLogin(s.SiteName, s.AdminLoginPath())
}

func (a *App) handleHome(c echo.Context) error {
	s := a.Settings.Get()
	if !a.hasHomeAccess(c, s) {
		return a.sendPage(c, http.StatusOK, "home-lock.html", views.HomeLock(s.SiteName))
	}
	return a.sendPage(c, http.StatusOK, "index.html", views.Home(s.SiteName))
}

func (a *App) handleErrorPage(code int) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := a.Settings.Get()
		return a.sendPage(c, code, fmt.Sprintf("%d.html", code), views.ErrorPage(s.SiteName, code, http.StatusText(code)))
	}
}

func (a *App) handleFavicon(c echo.Context) error {
	text := templ.EscapeString(firstRune(a.Settings.Get().SiteName, "吾"))
	svg := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<svg xmlns="http://www.w3.org/2000/svg" width="128" height="128" viewBox="0 0 128 128">` +
		`<rect width="128" height="128" rx="26" fill="#111111" />` +
		`<text x="50%" y="50%" dominant-baseline="middle" text-anchor="middle" fill="#ffffff" ` +
		`font-family="'PingFang SC','Microsoft YaHei',sans-serif" font-size="68" font-weight="500">` +
		text + `</text></svg>`
	return c.Blob(http.StatusOK, "image/svg+xml", []byte(svg))
}

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) handlePublicSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Settings.Get().Public())
}

func (a *App) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Settings.Get().Public())
}

func (a *App) handleUpdateSettings(c echo.Context) error {
	var u SettingsUpdate
	if err := c.Bind(&u); err != nil {
		return invalid("", "invalid settings payload")
	}
	s, err := a.Settings.Update(u)
	if err != nil {
		return err
	}
	a.Log.Infow("Settings updated", "admin_path", s.AdminPath, "site_name", s.SiteName)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": s.Public(),
	})
}

func (a *App) handlePublicAuth(c echo.Context) error {
	ip := c.RealIP()
	gate := a.Access.Home
	if gate.Blocked(ip) {
		a.recordGate(c, gate.Name(), audit.OutcomeForbidden)
		return echo.NewHTTPError(http.StatusForbidden, "access from this IP is blocked")
	}

	s := a.Settings.Get()
	if !s.RequireHomePassword {
		return authSuccess(c, "/")
	}

	var form passwordForm
	if err := c.Bind(&form); err != nil {
		return invalid("password", "invalid payload")
	}
	if form.Password == "" {
		return invalid("password", "password is required")
	}

	switch gate.Attempt(ip, form.Password, s.UploadPassword) {
	case GateForbidden:
		a.recordGate(c, gate.Name(), audit.OutcomeForbidden)
		return echo.NewHTTPError(http.StatusForbidden, "access from this IP is blocked")
	case GateRejected:
		a.recordGate(c, gate.Name(), rejectionOutcome(gate, ip))
		return echo.NewHTTPError(http.StatusUnauthorized, "wrong password")
	}

	a.recordGate(c, gate.Name(), audit.OutcomeGranted)
	a.grantHomeAccess(c, s)
	return authSuccess(c, "/")
}

// rejectionOutcome distinguishes the failure that blacklisted ip.
func rejectionOutcome(g *Gate, ip string) string {
	if g.Blocked(ip) {
		return audit.OutcomeBlocked
	}
	return audit.OutcomeRejected
}

func (a *App) handleListQuotes(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	result, err := a.Quotes.List(QuoteQuery{
		Search:   c.QueryParam("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return err
	}

	items := make([]QuoteItem, 0, len(result.Items))
	for _, q := range result.Items {
		items = append(items, q.Item())
	}
	return c.JSON(http.StatusOK, quoteListResponse{Items: items, HasMore: result.HasMore})
}

func (a *App) handleCreateQuote(c echo.Context) error {
	var form quoteForm
	if err := c.Bind(&form); err != nil {
		return invalid("", "invalid form")
	}

	imageFile, err := a.receiveScreenshot(c)
	if err != nil {
		return err
	}
	discard := func() { a.Images.Remove(imageFile) }

	s := a.Settings.Get()
	if s.RequireUploadPassword && !IsAdmin(c) {
		if form.Password == "" {
			discard()
			return invalid("password", "password is required")
		}
		ip := c.RealIP()
		gate := a.Access.Upload
		switch gate.Attempt(ip, form.Password, s.UploadPassword) {
		case GateForbidden:
			discard()
			a.recordGate(c, gate.Name(), audit.OutcomeForbidden)
			return echo.NewHTTPError(http.StatusForbidden, "uploads from this IP are blocked")
		case GateRejected:
			discard()
			a.recordGate(c, gate.Name(), rejectionOutcome(gate, ip))
			return echo.NewHTTPError(http.StatusUnauthorized, "wrong password")
		}
		a.recordGate(c, gate.Name(), audit.OutcomeGranted)
	}

	if err := c.Validate(&form); err != nil {
		discard()
		return formValidationError(err)
	}

	quote, err := a.Quotes.Create(form.Text, form.Date, imageFile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"item":    quote.Item(),
	})
}

func (a *App) handleUpdateQuote(c echo.Context) error {
	var form quoteForm
	if err := c.Bind(&form); err != nil {
		return invalid("", "invalid form")
	}

	imageFile, err := a.receiveScreenshot(c)
	if err != nil {
		return err
	}
	if err := c.Validate(&form); err != nil {
		a.Images.Remove(imageFile)
		return formValidationError(err)
	}

	quote, err := a.Quotes.Update(c.Param("id"), QuoteUpdate{
		Text:        form.Text,
		Date:        form.Date,
		ImageFile:   imageFile,
		RemoveImage: strings.EqualFold(strings.TrimSpace(form.RemoveImage), "true"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"item":    quote.Item(),
	})
}

func (a *App) handleDeleteQuote(c echo.Context) error {
	if err := a.Quotes.Delete(c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *App) handleUpload(c echo.Context) error {
	name := filepath.Base(c.Param("filename"))
	if !a.Images.Exists(name) {
		return echo.ErrNotFound
	}
	return c.File(a.Images.Path(name))
}

func (a *App) handleGateEvents(c echo.Context) error {
	if a.Events == nil {
		return echo.NewHTTPError(http.StatusNotFound, "gate event log is disabled")
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultGateEventLimit
	}
	if limit > maxGateEventLimit {
		limit = maxGateEventLimit
	}

	store := a.Events.Store()
	events, err := store.Recent(c.QueryParam("gate"), limit)
	if err != nil {
		return err
	}
	summary, err := store.Summary(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":  events,
		"summary": summary,
	})
}

// formValidationError turns validator errors on quoteForm into a
// ValidationError naming the first offending field.
func formValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		return invalid(field, field+" is too long")
	}
	return invalid("", "invalid form")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := classifyError(err)
	if code >= http.StatusInternalServerError {
		a.Log.Errorw("Request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
		message = "internal server error"
	}

	if wantsHTML(c) {
		s := a.Settings.Get()
		page := views.ErrorPage(s.SiteName, code, message)
		if perr := a.sendPage(c, code, fmt.Sprintf("%d.html", code), page); perr != nil {
			a.Log.Errorw("Failed to render error page", "error", perr)
		}
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": message})
}

// classifyError maps an error to its HTTP status and client message.
func classifyError(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}
	if errors.Is(err, ErrQuoteNotFound) {
		return http.StatusNotFound, "quote not found"
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "internal server error"
}

// wantsHTML reports whether an error should be rendered as a page rather
// than JSON: browser navigations outside /api only.
// wantsHTML is true for browser navigations. Script calls under /api get
// JSON unless they come from a plain HTML form.
func wantsHTML(c echo.Context) bool {
	if !strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/html") {
		return false
	}
	return !strings.HasPrefix(c.Request().URL.Path, "/api/") || isFormPost(c)
}

// isFormPost reports whether the body is a urlencoded HTML form, as sent by
// the no-script login pages.
func isFormPost(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm)
}

// authSuccess answers a successful login or logout: form posts are sent on
// to next, script calls get a JSON ack.
func authSuccess(c echo.Context, next string) error {
	if isFormPost(c) {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
