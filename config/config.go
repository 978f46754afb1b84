// Package config loads the harness settings from command line flags, ICT_ environment
// variables and an optional TOML file.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
)

const (
	Namespace       = "ICT"
	ConfigExtension = ".toml"
)

// Config holds every harness setting. Values from a TOML file take precedence over flags and
// environment variables.
type Config struct {
	conf.Version
	ConfigFile string `toml:"-" conf:"flag:config,help:optional TOML settings file"`

	Manifest string `toml:"manifest" conf:"default:implementations.json,help:implementation manifest (JSON)"`
	Template string `toml:"template" conf:"help:credential template (JSON) or the built-in template if empty"`
	Profile  string `toml:"profile" conf:"default:vc-api,help:protocol profile"`
	Tag      string `toml:"tag" conf:"help:issuer tag to select or the profile tag if empty"`

	Run  []string `toml:"run" conf:"help:regex patterns of tests to run separated by ;"`
	Skip []string `toml:"skip" conf:"help:regex patterns of tests to skip separated by ;"`

	Concurrency int           `toml:"concurrency" conf:"default:4,help:implementations tested at the same time"`
	InsecureTLS bool          `toml:"insecure_tls" conf:"default:false,help:skip TLS certificate verification"`
	Timeout     time.Duration `toml:"timeout" conf:"default:0s,help:timeout for each request or 0 for none"`
	Tracing     bool          `toml:"tracing" conf:"default:false,help:OpenTelemetry instrumentation of requests"`

	Debug    bool `toml:"debug" conf:"default:false,help:show debug output for failed tests"`
	DebugAll bool `toml:"debug_all" conf:"default:false,help:show debug output for all tests"`

	LogLevel    string `toml:"log_level" conf:"default:warn"`
	LogFormat   string `toml:"log_format" conf:"default:text"`
	LogLocation string `toml:"log_location"`

	Report string `toml:"report" conf:"help:write the matrix as JSON to this file"`
}

// Load parses args (without the program name) and the environment, then applies the TOML
// file named by --config. It returns nil and no error when --help or --version was given, after
// writing the requested text to out.
func Load(args []string, out io.Writer) (*Config, error) {
	var cfg Config
	cfg.Version.Desc = "conformance tests for credential issuer services"

	if err := conf.Parse(args, Namespace, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(Namespace, &cfg)
			if err != nil {
				return nil, errors.Wrap(err, "generating usage")
			}
			fmt.Fprintln(out, usage)
			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(Namespace, &cfg)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}
			fmt.Fprintln(out, version)
			return nil, nil
		}
		return nil, errors.Wrap(err, "parsing config")
	}

	if cfg.ConfigFile != "" {
		if filepath.Ext(cfg.ConfigFile) != ConfigExtension {
			return nil, errors.Errorf("path<%s> did not match the expected TOML format", cfg.ConfigFile)
		}
		if _, err := toml.DecodeFile(cfg.ConfigFile, &cfg); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", cfg.ConfigFile)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return errors.New("a manifest is required")
	}
	if c.Concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout cannot be negative, got %s", c.Timeout)
	}
	return nil
}
