package quoteboard

import (
	"math"
	"testing"
)

func TestNormalizeAdminPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/admin"},
		{"   ", "/admin"},
		{"/", "/admin"},
		{"///", "/admin"},
		{"manage", "/manage"},
		{"/manage/", "/manage"},
		{" /my admin// area/ ", "/myadmin/area"},
		{"//a///b", "/a/b"},
	}
	for _, tt := range tests {
		if got := NormalizeAdminPath(tt.in); got != tt.want {
			t.Errorf("NormalizeAdminPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRequestPath(t *testing.T) {
	tests := map[string]string{
		"":         "/",
		"/":        "/",
		"/admin/":  "/admin",
		"/admin//": "/admin",
		"/admin":   "/admin",
	}
	for in, want := range tests {
		if got := normalizeRequestPath(in); got != want {
			t.Errorf("normalizeRequestPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClampFontSize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{12, 12},
		{2, 8},
		{100, 40},
		{math.NaN(), 15},
		{math.Inf(1), 15},
	}
	for _, tt := range tests {
		if got := clampFontSize(tt.in, 15); got != tt.want {
			t.Errorf("clampFontSize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseQuoteDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024/01/15", "2024-01-15T10:30", "2024-01-15T10:30:00.000Z"} {
		if _, ok := parseQuoteDate(s); !ok {
			t.Errorf("parseQuoteDate(%q) failed", s)
		}
	}
	for _, s := range []string{"", "yesterday", "15th"} {
		if _, ok := parseQuoteDate(s); ok {
			t.Errorf("parseQuoteDate(%q) should fail", s)
		}
	}
}

func TestHomeAccessToken(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HomeAccessToken("abc"); got != want {
		t.Fatalf("HomeAccessToken = %s", got)
	}
	if HomeAccessToken("a") == HomeAccessToken("b") {
		t.Fatal("different passwords must give different tokens")
	}
}

func TestFirstRune(t *testing.T) {
	if got := firstRune("  语录墙", "x"); got != "语" {
		t.Errorf("got %q", got)
	}
	if got := firstRune("   ", "吾"); got != "吾" {
		t.Errorf("blank input: got %q", got)
	}
}

func TestReservedPath(t *testing.T) {
	reserved := []string{"/", "/api", "/api/quotes", "/API/Settings", "/uploads/x", "/assets", "/healthz", "/metrics", "/favicon.ico", "/404"}
	for _, p := range reserved {
		if !reservedPath(p) {
			t.Errorf("reservedPath(%q) = false, want true", p)
		}
	}
	free := []string{"/admin", "/manage", "/apiary", "/uploads-admin", "/my/panel"}
	for _, p := range free {
		if reservedPath(p) {
			t.Errorf("reservedPath(%q) = true, want false", p)
		}
	}
}
