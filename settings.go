package quoteboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/eringen/quoteboard/logger"
)

const (
	defaultSiteName     = "Quotes"
	defaultAdminPath    = "/admin"
	defaultDateFontSize = 12
	defaultTextFontSize = 15
	minFontSize         = 8
	maxFontSize         = 40
)

// DefaultSettings returns the settings a fresh install starts with. Both
// passwords start out as password.
func DefaultSettings(password string) Settings {
	return Settings{
		UploadPassword:        password,
		AdminPassword:         password,
		RequireUploadPassword: true,
		RequireHomePassword:   false,
		SiteName:              defaultSiteName,
		DateFontSize:          defaultDateFontSize,
		TextFontSize:          defaultTextFontSize,
		AdminPath:             defaultAdminPath,
	}
}

// FontSize is a number that also decodes from a numeric JSON string.
// Anything unparseable decodes to NaN and fails validation later.
type FontSize float64

func (f *FontSize) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = math.NaN()
	}
	*f = FontSize(v)
	return nil
}

// Flag is a boolean that also decodes from strings and numbers.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(strings.Trim(string(b), `"`)))
	switch s {
	case "true", "1", "on", "yes":
		*f = true
	case "", "false", "0", "off", "no", "null":
		*f = false
	default:
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = v != 0
			return nil
		}
		*f = true
	}
	return nil
}

// SettingsUpdate is a partial settings change. Nil fields are left alone.
type SettingsUpdate struct {
	UploadPassword        *string   `json:"uploadPassword"`
	AdminPassword         *string   `json:"adminPassword"`
	RequireUploadPassword *Flag     `json:"requireUploadPassword"`
	RequireHomePassword   *Flag     `json:"requireHomePassword"`
	SiteName              *string   `json:"siteName" validate:"omitempty,max=100"`
	DateFontSize          *FontSize `json:"dateFontSize" validate:"omitempty,gte=8,lte=40"`
	TextFontSize          *FontSize `json:"textFontSize" validate:"omitempty,gte=8,lte=40"`
	AdminPath             *string   `json:"adminPath" validate:"omitempty,max=200"`
}

// settingsFile mirrors Settings with optional fields so defaults can be
// told apart from explicit values when normalizing a loaded file.
type settingsFile struct {
	UploadPassword        *string   `json:"uploadPassword"`
	AdminPassword         *string   `json:"adminPassword"`
	RequireUploadPassword *Flag     `json:"requireUploadPassword"`
	RequireHomePassword   *Flag     `json:"requireHomePassword"`
	SiteName              *string   `json:"siteName"`
	DateFontSize          *FontSize `json:"dateFontSize"`
	TextFontSize          *FontSize `json:"textFontSize"`
	AdminPath             *string   `json:"adminPath"`
}

// SettingsStore holds the current settings in memory and persists every
// change to a JSON file.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	defaults Settings
	current  Settings
	validate *validator.Validate
	log      *logger.Logger
}

// NewSettingsStore loads settings from path. A missing or blank file is
// created with defaults; a malformed one is logged and replaced by
// defaults in memory only.
func NewSettingsStore(path string, defaults Settings, log *logger.Logger) (*SettingsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &SettingsStore{
		path:     path,
		defaults: defaults,
		validate: validator.New(),
		log:      log.WithComponent("settings"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SettingsStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read settings: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		s.current = s.defaults
		return s.save(s.current)
	}
	f, err := decodeSettingsFile(raw)
	if err != nil {
		s.log.Errorw("Failed to parse settings file, using defaults", "path", s.path, "error", err)
		s.current = s.defaults
		return nil
	}
	s.current = s.normalize(f)
	return nil
}

// decodeSettingsFile decodes each known key on its own. A value of the wrong
// type leaves only that field unset; only a file that is not a JSON object
// is an error.
func decodeSettingsFile(raw []byte) (settingsFile, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return settingsFile{}, err
	}

	var f settingsFile
	targets := map[string]interface{}{
		"uploadPassword":        &f.UploadPassword,
		"adminPassword":         &f.AdminPassword,
		"requireUploadPassword": &f.RequireUploadPassword,
		"requireHomePassword":   &f.RequireHomePassword,
		"siteName":              &f.SiteName,
		"dateFontSize":          &f.DateFontSize,
		"textFontSize":          &f.TextFontSize,
		"adminPath":             &f.AdminPath,
	}
	for key, dst := range targets {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			clearField(dst)
		}
	}
	return f, nil
}

// clearField resets a settingsFile pointer field after a failed decode.
func clearField(dst interface{}) {
	switch p := dst.(type) {
	case **string:
		*p = nil
	case **Flag:
		*p = nil
	case **FontSize:
		*p = nil
	}
}

func (s *SettingsStore) save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// normalize merges f over the defaults and coerces every field into range.
func (s *SettingsStore) normalize(f settingsFile) Settings {
	out := s.defaults
	if f.UploadPassword != nil {
		out.UploadPassword = *f.UploadPassword
	}
	if f.AdminPassword != nil {
		out.AdminPassword = *f.AdminPassword
	}
	if f.RequireUploadPassword != nil {
		out.RequireUploadPassword = bool(*f.RequireUploadPassword)
	}
	if f.RequireHomePassword != nil {
		out.RequireHomePassword = bool(*f.RequireHomePassword)
	}
	if f.SiteName != nil {
		out.SiteName = strings.TrimSpace(*f.SiteName)
	}
	if out.SiteName == "" {
		out.SiteName = s.defaults.SiteName
	}
	if f.DateFontSize != nil {
		out.DateFontSize = clampFontSize(float64(*f.DateFontSize), s.defaults.DateFontSize)
	}
	if f.TextFontSize != nil {
		out.TextFontSize = clampFontSize(float64(*f.TextFontSize), s.defaults.TextFontSize)
	}
	if f.AdminPath != nil {
		out.AdminPath = *f.AdminPath
	}
	out.AdminPath = NormalizeAdminPath(out.AdminPath)
	return out
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies u on top of the current settings, re-normalizes and
// persists the result.
func (s *SettingsStore) Update(u SettingsUpdate) (Settings, error) {
	f, err := s.prepare(u)
	if err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := settingsFromCurrent(s.current)
	f.overlay(&merged)
	next := s.normalize(merged)
	if err := s.save(next); err != nil {
		return Settings{}, err
	}
	s.current = next
	return next, nil
}

// prepare validates u and drops the fields that are ignored when blank.
func (s *SettingsStore) prepare(u SettingsUpdate) (settingsFile, error) {
	if err := s.validate.Struct(u); err != nil {
		return settingsFile{}, settingsValidationError(err)
	}
	// omitempty lets an explicit zero through.
	if isZeroFont(u.DateFontSize) {
		return settingsFile{}, fontRangeError("dateFontSize")
	}
	if isZeroFont(u.TextFontSize) {
		return settingsFile{}, fontRangeError("textFontSize")
	}

	var f settingsFile
	changed := false
	if u.RequireUploadPassword != nil {
		f.RequireUploadPassword = u.RequireUploadPassword
		changed = true
	}
	if u.RequireHomePassword != nil {
		f.RequireHomePassword = u.RequireHomePassword
		changed = true
	}
	if u.UploadPassword != nil {
		if p := strings.TrimSpace(*u.UploadPassword); p != "" {
			f.UploadPassword = &p
			changed = true
		}
	}
	if u.AdminPassword != nil {
		if p := strings.TrimSpace(*u.AdminPassword); p != "" {
			f.AdminPassword = &p
			changed = true
		}
	}
	if u.AdminPath != nil && strings.TrimSpace(*u.AdminPath) != "" {
		p := NormalizeAdminPath(*u.AdminPath)
		if reservedPath(p) {
			return settingsFile{}, invalid("adminPath", "adminPath "+p+" is used by a public route")
		}
		f.AdminPath = &p
		changed = true
	}
	if u.SiteName != nil {
		name := strings.TrimSpace(*u.SiteName)
		if name == "" {
			return settingsFile{}, invalid("siteName", "siteName must not be empty")
		}
		f.SiteName = &name
		changed = true
	}
	if u.DateFontSize != nil {
		f.DateFontSize = u.DateFontSize
		changed = true
	}
	if u.TextFontSize != nil {
		f.TextFontSize = u.TextFontSize
		changed = true
	}
	if !changed {
		return settingsFile{}, invalid("", "no settings to update")
	}
	return f, nil
}

func settingsFromCurrent(cur Settings) settingsFile {
	requireUpload := Flag(cur.RequireUploadPassword)
	requireHome := Flag(cur.RequireHomePassword)
	dateFont := FontSize(cur.DateFontSize)
	textFont := FontSize(cur.TextFontSize)
	return settingsFile{
		UploadPassword:        &cur.UploadPassword,
		AdminPassword:         &cur.AdminPassword,
		RequireUploadPassword: &requireUpload,
		RequireHomePassword:   &requireHome,
		SiteName:              &cur.SiteName,
		DateFontSize:          &dateFont,
		TextFontSize:          &textFont,
		AdminPath:             &cur.AdminPath,
	}
}

// overlay copies every non-nil field of f into dst.
func (f settingsFile) overlay(dst *settingsFile) {
	if f.UploadPassword != nil {
		dst.UploadPassword = f.UploadPassword
	}
	if f.AdminPassword != nil {
		dst.AdminPassword = f.AdminPassword
	}
	if f.RequireUploadPassword != nil {
		dst.RequireUploadPassword = f.RequireUploadPassword
	}
	if f.RequireHomePassword != nil {
		dst.RequireHomePassword = f.RequireHomePassword
	}
	if f.SiteName != nil {
		dst.SiteName = f.SiteName
	}
	if f.DateFontSize != nil {
		dst.DateFontSize = f.DateFontSize
	}
	if f.TextFontSize != nil {
		dst.TextFontSize = f.TextFontSize
	}
	if f.AdminPath != nil {
		dst.AdminPath = f.AdminPath
	}
}

func settingsValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("", "invalid settings")
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "gte", "lte":
		return fontRangeError(field)
	case "max":
		return invalid(field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	}
	return invalid(field, fmt.Sprintf("%s is invalid", field))
}

func isZeroFont(f *FontSize) bool {
	return f != nil && *f == 0
}

func fontRangeError(field string) error {
	return invalid(field, fmt.Sprintf("%s must be between %d and %d", field, minFontSize, maxFontSize))
}
