package quoteboard

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eringen/quoteboard/logger"
)

// Config holds all process-level configuration. Site settings that the
// admin can change at runtime live in Settings instead.
type Config struct {
	Addr      string `mapstructure:"addr"`       // Listen address (default ":3000")
	DataDir   string `mapstructure:"data_dir"`   // quotes.json and settings.json (default "data")
	UploadDir string `mapstructure:"upload_dir"` // Screenshot files (default "uploads")
	StaticDir string `mapstructure:"static_dir"` // index.html, admin.html, error pages (default "public")

	SessionSecret   string `mapstructure:"session_secret"`   // Required: admin session encryption secret
	CookieSecure    bool   `mapstructure:"cookie_secure"`    // Set true for HTTPS
	DefaultPassword string `mapstructure:"default_password"` // Required: initial upload/admin password

	UploadMaxFailures int `mapstructure:"upload_max_failures"` // default 3
	HomeMaxFailures   int `mapstructure:"home_max_failures"`   // default 5

	LoginMaxAttempts int           `mapstructure:"login_max_attempts"` // Admin login attempts per window (default 5)
	LoginWindow      time.Duration `mapstructure:"login_window"`       // default 1m

	APIRateLimit float64 `mapstructure:"api_rate_limit"` // Requests per second per IP on /api (0 disables)
	APIRateBurst int     `mapstructure:"api_rate_burst"`

	LogLevel  string `mapstructure:"log_level"`  // default "info"
	LogFormat string `mapstructure:"log_format"` // "json" or "console" (default "json")

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	GateEventsEnabled       bool   `mapstructure:"gate_events_enabled"`
	GateEventsDatabasePath  string `mapstructure:"gate_events_database_path"`  // default "<data_dir>/gate-events.db"
	GateEventsRetentionDays int    `mapstructure:"gate_events_retention_days"` // default 90
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.UploadMaxFailures <= 0 {
		c.UploadMaxFailures = DefaultUploadMaxFailures
	}
	if c.HomeMaxFailures <= 0 {
		c.HomeMaxFailures = DefaultHomeMaxFailures
	}
	if c.LoginMaxAttempts <= 0 {
		c.LoginMaxAttempts = DefaultLoginMaxAttempts
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = DefaultLoginWindow
	}
	if c.APIRateBurst <= 0 {
		c.APIRateBurst = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.GateEventsDatabasePath == "" {
		c.GateEventsDatabasePath = filepath.Join(c.DataDir, "gate-events.db")
	}
	if c.GateEventsRetentionDays <= 0 {
		c.GateEventsRetentionDays = 90
	}
}

// QuotesPath is the quotes JSON file.
func (c *Config) QuotesPath() string {
	return filepath.Join(c.DataDir, "quotes.json")
}

// SettingsPath is the settings JSON file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("quoteboard: SESSION_SECRET is required")
	}
	if c.DefaultPassword == "" {
		return fmt.Errorf("quoteboard: DEFAULT_PASSWORD is required")
	}
	return nil
}

// LoadConfig reads configuration from an optional .env file and the
// environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":3000")
	v.SetDefault("data_dir", "data")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("static_dir", "public")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("upload_max_failures", DefaultUploadMaxFailures)
	v.SetDefault("home_max_failures", DefaultHomeMaxFailures)
	v.SetDefault("login_max_attempts", DefaultLoginMaxAttempts)
	v.SetDefault("login_window", DefaultLoginWindow)
	v.SetDefault("api_rate_limit", 10)
	v.SetDefault("api_rate_burst", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("gate_events_enabled", true)
	v.SetDefault("gate_events_retention_days", 90)

	bindings := map[string]string{
		"addr":                       "QUOTEBOARD_ADDR",
		"data_dir":                   "DATA_DIR",
		"upload_dir":                 "UPLOAD_DIR",
		"static_dir":                 "STATIC_DIR",
		"session_secret":             "SESSION_SECRET",
		"cookie_secure":              "COOKIE_SECURE",
		"default_password":           "DEFAULT_PASSWORD",
		"upload_max_failures":        "UPLOAD_MAX_FAILURES",
		"home_max_failures":          "HOME_MAX_FAILURES",
		"login_max_attempts":         "LOGIN_MAX_ATTEMPTS",
		"login_window":               "LOGIN_WINDOW",
		"api_rate_limit":             "API_RATE_LIMIT",
		"api_rate_burst":             "API_RATE_BURST",
		"log_level":                  "LOG_LEVEL",
		"log_format":                 "LOG_FORMAT",
		"metrics_enabled":            "METRICS_ENABLED",
		"gate_events_enabled":        "GATE_EVENTS_ENABLED",
		"gate_events_database_path":  "GATE_EVENTS_DATABASE_PATH",
		"gate_events_retention_days": "GATE_EVENTS_RETENTION_DAYS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger replaces the logger built from Config.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}
