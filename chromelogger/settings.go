package chromelogger

import (
	"sync/atomic"

	"github.com/zircuit-labs/zkr-chromelogger/backtrace"
	"github.com/zircuit-labs/zkr-chromelogger/config"
)

const (
	// DefaultBacktraceLevel points at the code calling the logging method.
	DefaultBacktraceLevel = 2
	// DefaultMaxHeaderBytes keeps the header below the limits of common proxies.
	DefaultMaxHeaderBytes = 240 * 1024
)

// Settings control how rows are annotated and encoded.
type Settings struct {
	// BacktraceLevel selects the frame shown for each row: 1 is the logging method itself,
	// 2 the function calling it, and so on.
	BacktraceLevel int `koanf:"backtrace_level"`
	// BacktraceFormat is the template for rendering a frame. See package backtrace.
	BacktraceFormat string `koanf:"backtrace_format"`
	// BasePath is stripped from the start of file paths.
	BasePath string `koanf:"base_path"`
	// BacktraceCollapsed makes Trace open a collapsed group.
	BacktraceCollapsed bool `koanf:"backtrace_collapsed"`
	// Compress gzips the JSON payload before it is base64 encoded.
	Compress bool `koanf:"compress"`
	// MaxHeaderBytes is the largest header value written. Zero or less disables the limit.
	MaxHeaderBytes int `koanf:"max_header_bytes"`
	// Enabled turns logging on. A disabled logger records nothing and writes no header.
	Enabled bool `koanf:"enabled"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		BacktraceLevel:  DefaultBacktraceLevel,
		BacktraceFormat: backtrace.DefaultFormat,
		MaxHeaderBytes:  DefaultMaxHeaderBytes,
		Enabled:         true,
	}
}

// LoadSettings reads settings rooted at path on top of the defaults.
// Missing keys keep their default value.
func LoadSettings(cfg *config.Configuration, path string) (Settings, error) {
	settings := DefaultSettings()
	if cfg == nil || !cfg.Exists(path) {
		return settings, nil
	}
	if err := cfg.Unmarshal(path, &settings); err != nil {
		return DefaultSettings(), err
	}
	return settings.normalize(), nil
}

func (s Settings) normalize() Settings {
	if s.BacktraceLevel < 1 {
		s.BacktraceLevel = 1
	}
	if s.BacktraceFormat == "" {
		s.BacktraceFormat = backtrace.DefaultFormat
	}
	return s
}

// SettingsStore holds the current Settings. They may be replaced while loggers are being
// created from them; loggers already created keep the settings they started with.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

// NewSettingsStore returns a store holding settings.
func NewSettingsStore(settings Settings) *SettingsStore {
	s := &SettingsStore{}
	s.Store(settings)
	return s
}

// Load returns the current settings.
func (s *SettingsStore) Load() Settings {
	return *s.current.Load()
}

// Store replaces the current settings.
func (s *SettingsStore) Store(settings Settings) {
	settings = settings.normalize()
	s.current.Store(&settings)
}

// Reload reads settings rooted at path and stores them. On error the current settings are kept.
func (s *SettingsStore) Reload(cfg *config.Configuration, path string) error {
	settings, err := LoadSettings(cfg, path)
	if err != nil {
		return err
	}
	s.Store(settings)
	return nil
}
