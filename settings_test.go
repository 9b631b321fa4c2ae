package quoteboard

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eringen/quoteboard/logger"
)

func newTestSettings(t *testing.T, contents string) (*SettingsStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := NewSettingsStore(path, DefaultSettings("changeme"), logger.NewNop())
	if err != nil {
		t.Fatalf("NewSettingsStore failed: %v", err)
	}
	return s, path
}

func strPtr(s string) *string { return &s }

func fontPtr(v float64) *FontSize {
	f := FontSize(v)
	return &f
}

func flagPtr(v bool) *Flag {
	f := Flag(v)
	return &f
}

func TestSettingsMissingFileWritesDefaults(t *testing.T) {
	s, path := newTestSettings(t, "")

	got := s.Get()
	if got != DefaultSettings("changeme") {
		t.Fatalf("got %+v, want defaults", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings file should have been created: %v", err)
	}
	var onDisk Settings
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("settings file is not JSON: %v", err)
	}
	if onDisk != got {
		t.Fatalf("file = %+v, memory = %+v", onDisk, got)
	}
}

func TestSettingsMalformedFileFallsBackToDefaults(t *testing.T) {
	s, path := newTestSettings(t, "{oops")

	if got := s.Get(); got != DefaultSettings("changeme") {
		t.Fatalf("got %+v, want defaults", got)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "{oops" {
		t.Fatalf("malformed file must not be rewritten, got %q", raw)
	}
}

func TestSettingsLoadNormalizesFile(t *testing.T) {
	s, _ := newTestSettings(t, `{
		"uploadPassword": "up",
		"siteName": "   ",
		"dateFontSize": "99",
		"textFontSize": "abc",
		"requireHomePassword": "true",
		"adminPath": "manage//panel/"
	}`)

	got := s.Get()
	if got.UploadPassword != "up" || got.AdminPassword != "changeme" {
		t.Errorf("passwords = %q/%q", got.UploadPassword, got.AdminPassword)
	}
	if got.SiteName != defaultSiteName {
		t.Errorf("siteName = %q, want default", got.SiteName)
	}
	if got.DateFontSize != maxFontSize {
		t.Errorf("dateFontSize = %v, want clamped to %d", got.DateFontSize, maxFontSize)
	}
	if got.TextFontSize != defaultTextFontSize {
		t.Errorf("textFontSize = %v, want default", got.TextFontSize)
	}
	if !got.RequireHomePassword || !got.RequireUploadPassword {
		t.Errorf("flags = upload:%v home:%v", got.RequireUploadPassword, got.RequireHomePassword)
	}
	if got.AdminPath != "/manage/panel" {
		t.Errorf("adminPath = %q, want /manage/panel", got.AdminPath)
	}
}

func TestSettingsLoadKeepsValidFieldsBesideBadOnes(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		check    func(t *testing.T, got Settings)
	}{
		{
			name:     "numeric password",
			contents: `{"uploadPassword":123,"siteName":"Mine","adminPath":"/manage","textFontSize":20}`,
			check: func(t *testing.T, got Settings) {
				if got.UploadPassword != "changeme" {
					t.Errorf("uploadPassword = %q, want default", got.UploadPassword)
				}
				if got.SiteName != "Mine" || got.AdminPath != "/manage" || got.TextFontSize != 20 {
					t.Errorf("valid fields lost: %+v", got)
				}
			},
		},
		{
			name:     "numeric site name",
			contents: `{"siteName":42,"adminPassword":"boss","adminPath":"/manage","dateFontSize":18}`,
			check: func(t *testing.T, got Settings) {
				if got.SiteName != defaultSiteName {
					t.Errorf("siteName = %q, want default", got.SiteName)
				}
				if got.AdminPassword != "boss" || got.AdminPath != "/manage" || got.DateFontSize != 18 {
					t.Errorf("valid fields lost: %+v", got)
				}
			},
		},
		{
			name:     "object where a string belongs",
			contents: `{"adminPath":{"x":1},"siteName":"Mine"}`,
			check: func(t *testing.T, got Settings) {
				if got.AdminPath != defaultAdminPath || got.SiteName != "Mine" {
					t.Errorf("unexpected settings %+v", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSettings(t, tt.contents)
			tt.check(t, s.Get())
		})
	}
}

func TestSettingsUpdate(t *testing.T) {
	s, path := newTestSettings(t, "")

	got, err := s.Update(SettingsUpdate{
		TextFontSize:        fontPtr(20),
		SiteName:            strPtr("  Board  "),
		RequireHomePassword: flagPtr(true),
		AdminPath:           strPtr("manage"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.TextFontSize != 20 || got.SiteName != "Board" || !got.RequireHomePassword || got.AdminPath != "/manage" {
		t.Fatalf("unexpected settings %+v", got)
	}

	reloaded, err := NewSettingsStore(path, DefaultSettings("other"), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Get() != got {
		t.Fatalf("persisted %+v, want %+v", reloaded.Get(), got)
	}
}

func TestSettingsUpdateIgnoresBlankPasswordsAndPath(t *testing.T) {
	s, _ := newTestSettings(t, "")

	got, err := s.Update(SettingsUpdate{
		UploadPassword: strPtr("  "),
		AdminPassword:  strPtr(""),
		AdminPath:      strPtr("   "),
		DateFontSize:   fontPtr(14),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.UploadPassword != "changeme" || got.AdminPassword != "changeme" || got.AdminPath != "/admin" {
		t.Fatalf("blank fields must be ignored, got %+v", got)
	}
}

func TestSettingsUpdateRejects(t *testing.T) {
	tests := []struct {
		name  string
		u     SettingsUpdate
		field string
	}{
		{"font too large", SettingsUpdate{TextFontSize: fontPtr(50)}, "textFontSize"},
		{"font too small", SettingsUpdate{DateFontSize: fontPtr(7.5)}, "dateFontSize"},
		{"font zero", SettingsUpdate{DateFontSize: fontPtr(0)}, "dateFontSize"},
		{"empty site name", SettingsUpdate{SiteName: strPtr("  ")}, "siteName"},
		{"nothing to update", SettingsUpdate{UploadPassword: strPtr(" ")}, ""},
		{"admin path on api", SettingsUpdate{AdminPath: strPtr("/api/quotes")}, "adminPath"},
		{"admin path on uploads", SettingsUpdate{AdminPath: strPtr("uploads")}, "adminPath"},
		{"admin path on metrics", SettingsUpdate{AdminPath: strPtr("/metrics/")}, "adminPath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSettings(t, "")
			before := s.Get()

			_, err := s.Update(tt.u)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if s.Get() != before {
				t.Errorf("rejected update changed settings")
			}
		})
	}
}

func TestFontSizeUnmarshal(t *testing.T) {
	var u SettingsUpdate
	if err := json.Unmarshal([]byte(`{"dateFontSize":"18","textFontSize":22.5}`), &u); err != nil {
		t.Fatal(err)
	}
	if *u.DateFontSize != 18 || *u.TextFontSize != 22.5 {
		t.Fatalf("got %v / %v", *u.DateFontSize, *u.TextFontSize)
	}
}
