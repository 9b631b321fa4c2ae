package quoteboard

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// sendPage serves name from the static directory when it exists and falls
// back to the built-in component otherwise.
func (a *App) sendPage(c echo.Context, code int, name string, fallback templ.Component) error {
	path := filepath.Join(a.Config.StaticDir, name)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		if code == http.StatusOK {
			return c.File(path)
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return c.HTMLBlob(code, data)
		}
	}
	return RenderStatus(c, code, fallback)
}
