package quoteboard

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/quotes")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("DEFAULT_PASSWORD", "pw")
	t.Setenv("UPLOAD_MAX_FAILURES", "7")
	t.Setenv("LOGIN_WINDOW", "30s")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != "/srv/quotes" || cfg.SessionSecret != "s3cret" || cfg.DefaultPassword != "pw" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.UploadMaxFailures != 7 || cfg.HomeMaxFailures != DefaultHomeMaxFailures {
		t.Errorf("failures = %d/%d", cfg.UploadMaxFailures, cfg.HomeMaxFailures)
	}
	if cfg.LoginWindow != 30*time.Second {
		t.Errorf("login window = %v", cfg.LoginWindow)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics should be disabled")
	}
	if cfg.Addr != ":3000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if want := filepath.Join("/srv/quotes", "quotes.json"); cfg.QuotesPath() != want {
		t.Errorf("quotes path = %q, want %q", cfg.QuotesPath(), want)
	}
	if want := filepath.Join("/srv/quotes", "gate-events.db"); cfg.GateEventsDatabasePath != want {
		t.Errorf("gate events path = %q, want %q", cfg.GateEventsDatabasePath, want)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{SessionSecret: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error without DEFAULT_PASSWORD")
	}
	cfg.DefaultPassword = "pw"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DEFAULT_PASSWORD", "pw")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics endpoint must be opt-in")
	}
	if cfg.LoginMaxAttempts != DefaultLoginMaxAttempts || cfg.LoginWindow != DefaultLoginWindow {
		t.Errorf("login limits = %d/%v", cfg.LoginMaxAttempts, cfg.LoginWindow)
	}
	if !cfg.GateEventsEnabled {
		t.Error("gate events should be enabled by default")
	}
}

func TestMetricsRouteOnlyWhenEnabled(t *testing.T) {
	app := newTestApp(t)
	rec := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("/metrics with metrics disabled: got %d, want 404", rec.Code)
	}
}
