// Package config loads layered runtime configuration from a TOML file and environment variables.
//
// The TOML file holds one top level table per environment. The `default` table is always
// applied, the table named by the `<prefix>ENV` variable is merged over it, and finally any
// `<prefix>`-prefixed environment variable overrides a single key. In variable names the
// separator between nested keys is a double underscore, so that keys may contain single ones:
// `CFG_SERVER__CHROMELOGGER__BACKTRACE_LEVEL=3` sets `server.chromelogger.backtrace_level`.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	koanffs "github.com/knadh/koanf/providers/fs"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

const (
	defaultEnv           = "default"
	defaultEnvPrefix     = "CFG_"
	defaultEnvSeparator  = "__"
	defaultConfSeparator = "."
	defaultSettingsPath  = "data/settings.toml"

	envVarName = "ENV"
)

type options struct {
	defaultEnv   string
	envPrefix    string
	filepath     string
	separator    string
	envSeparator string
}

// Option is an option func for NewConfiguration.
type Option func(options *options) error

// WithDefaultEnv sets the name of the table that is always applied.
func WithDefaultEnv(env string) Option {
	return func(options *options) error {
		options.defaultEnv = env
		return nil
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(options *options) error {
		options.envPrefix = prefix
		return nil
	}
}

// WithFilePath sets the path of the TOML file within the file system.
func WithFilePath(path string) Option {
	return func(options *options) error {
		if path == "" {
			return persistent(fmt.Errorf("empty settings file path"))
		}
		options.filepath = path
		return nil
	}
}

// WithSeparator sets the separator of nested keys.
func WithSeparator(separator string) Option {
	return func(options *options) error {
		options.separator = separator
		return nil
	}
}

// WithEnvSeparator sets the separator of nested keys within environment variable names.
func WithEnvSeparator(separator string) Option {
	return func(options *options) error {
		options.envSeparator = separator
		return nil
	}
}

// Configuration is read-only runtime configuration.
type Configuration struct {
	k   *koanf.Koanf
	env string
}

// NewConfigurationFromMap creates a Configuration from flat, dot separated keys.
func NewConfigurationFromMap(cfg map[string]any) (*Configuration, error) {
	k := koanf.New(defaultConfSeparator)
	if err := k.Load(confmap.Provider(cfg, defaultConfSeparator), nil); err != nil {
		return nil, persistent(err)
	}
	return &Configuration{k: k, env: defaultEnv}, nil
}

// NewConfiguration reads the TOML file from f and applies the environment on top.
// With a nil f only environment variables are used.
func NewConfiguration(f fs.FS, opts ...Option) (*Configuration, error) {
	options := options{
		defaultEnv:   defaultEnv,
		envPrefix:    defaultEnvPrefix,
		separator:    defaultConfSeparator,
		envSeparator: defaultEnvSeparator,
		filepath:     defaultSettingsPath,
	}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	environment := os.Getenv(options.envPrefix + envVarName)
	merged := koanf.New(options.separator)

	if f != nil {
		file := koanf.New(defaultConfSeparator)
		if err := file.Load(koanffs.Provider(f, options.filepath), toml.Parser()); err != nil {
			return nil, persistent(err)
		}

		if err := mergeTable(merged, file, options.defaultEnv, options.separator); err != nil {
			return nil, err
		}
		if environment != "" {
			if err := mergeTable(merged, file, environment, options.separator); err != nil {
				return nil, err
			}
		}
	}

	if err := merged.Load(env.Provider(options.envPrefix, options.separator, envToConfig(options)), nil); err != nil {
		return nil, persistent(err)
	}

	if environment == "" {
		environment = options.defaultEnv
	}
	return &Configuration{k: merged, env: environment}, nil
}

// mergeTable loads the top level table `name` of file into dst.
func mergeTable(dst, file *koanf.Koanf, name, separator string) error {
	if !file.Exists(name) {
		return persistent(fmt.Errorf("environment settings for '%s' not found", name))
	}
	table, ok := file.Get(name).(map[string]any)
	if !ok {
		return persistent(fmt.Errorf("environment settings for '%s' are not a table", name))
	}
	if err := dst.Load(confmap.Provider(table, separator), nil); err != nil {
		return persistent(err)
	}
	return nil
}

// Unmarshal sets values in struct `a` from the config rooted at `path`.
// Fields of `a` missing from the config keep their current values.
func (c Configuration) Unmarshal(path string, a any) error {
	if err := c.k.Unmarshal(path, a); err != nil {
		return persistent(err)
	}
	return nil
}

// Exists reports whether any value is configured at `path`.
func (c Configuration) Exists(path string) bool {
	return c.k.Exists(path)
}

// Environment returns the name of the environment applied over the default one.
func (c Configuration) Environment() string {
	return c.env
}

// envToConfig turns `PREFIX_NESTED__VALUE_A` into `nested.value_a`.
func envToConfig(options options) func(s string) string {
	return func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, options.envPrefix))
		return strings.ReplaceAll(key, strings.ToLower(options.envSeparator), options.separator)
	}
}

func persistent(err error) error {
	return errclass.WrapAs(stacktrace.Wrap(err), errclass.Persistent)
}
