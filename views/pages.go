// Package views holds the built-in fallback pages served when the static
// directory does not provide its own HTML.
package views

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

const baseStyle = `body{font-family:system-ui,sans-serif;max-width:36rem;margin:4rem auto;padding:0 1rem;color:#111}` +
	`input,button{font:inherit;padding:.4rem .6rem}p.muted{color:#666}`

// layout wraps body in a minimal HTML document.
func layout(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html><html><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><link rel="icon" href="/favicon.ico"><style>%s</style></head><body>`,
			templ.EscapeString(title), baseStyle); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// ErrorPage renders a status page such as 404 Not Found.
func ErrorPage(siteName string, code int, message string) templ.Component {
	title := fmt.Sprintf("%d %s", code, http.StatusText(code))
	return layout(title+" · "+siteName, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><p class="muted">%s</p><p><a href="/">%s</a></p>`,
			templ.EscapeString(title), templ.EscapeString(message), templ.EscapeString(siteName))
		return err
	})
}

// Home is the landing page shell; the quote feed is loaded client-side.
func Home(siteName string) templ.Component {
	return layout(siteName, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><div id="feed" data-source="/api/quotes"></div>`+
			`<script src="/assets/app.js" defer></script>`,
			templ.EscapeString(siteName))
		return err
	})
}

// HomeLock asks for the home-access password.
func HomeLock(siteName string) templ.Component {
	return layout(siteName, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><form method="post" action="/api/public-auth">`+
			`<input type="password" name="password" placeholder="Password" autofocus required> `+
			`<button type="submit">Enter</button></form>`,
			templ.EscapeString(siteName))
		return err
	})
}

// AdminLogin is the admin sign-in form; it posts to loginPath.
func AdminLogin(siteName, loginPath string) templ.Component {
	return layout("Admin · "+siteName, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>Admin</h1><form method="post" action="%s">`+
			`<input type="password" name="password" placeholder="Admin password" autofocus required> `+
			`<button type="submit">Sign in</button></form>`,
			templ.EscapeString(loginPath))
		return err
	})
}

// AdminPanel is the admin dashboard shell.
func AdminPanel(siteName, logoutPath string) templ.Component {
	return layout("Admin · "+siteName, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><div id="admin" data-settings="/api/settings" data-quotes="/api/quotes"></div>`+
			`<form method="post" action="%s"><button type="submit">Sign out</button></form>`+
			`<script src="/assets/admin.js" defer></script>`,
			templ.EscapeString(siteName), templ.EscapeString(logoutPath))
		return err
	})
}
