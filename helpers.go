package quoteboard

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"time"
)

// isoMillis matches the ISO-8601 UTC form used for createdAt.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var quoteDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// parseQuoteDate accepts the free-form dates visitors type.
func parseQuoteDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range quoteDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slashRun      = regexp.MustCompile(`/+`)
)

// NormalizeAdminPath turns user input into a clean absolute route prefix:
// leading slash, no whitespace, no repeated or trailing slashes. Empty or
// root input falls back to the default prefix.
func NormalizeAdminPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultAdminPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = whitespaceRun.ReplaceAllString(p, "")
	p = slashRun.ReplaceAllString(p, "/")
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" || p == "/" {
		return defaultAdminPath
	}
	return p
}

// normalizeRequestPath drops trailing slashes so "/admin/" matches "/admin".
func normalizeRequestPath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

// clampFontSize maps v into [minFontSize, maxFontSize]; non-finite values
// become fallback.
func clampFontSize(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Min(maxFontSize, math.Max(minFontSize, v))
}

// HomeAccessToken derives the home-access cookie value from a password.
func HomeAccessToken(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// firstRune returns the first character of s, or fallback when s is blank.
func firstRune(s, fallback string) string {
	for _, r := range strings.TrimSpace(s) {
		return string(r)
	}
	return fallback
}

// publicPrefixes are served by fixed routes and cannot host the admin area.
var publicPrefixes = []string{"/api", "/uploads", "/assets", "/healthz", "/metrics", "/favicon.ico", "/401", "/403", "/404"}

// reservedPath reports whether p is "/" or falls under a public route.
func reservedPath(p string) bool {
	p = strings.ToLower(normalizeRequestPath(p))
	if p == "/" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
