// Package config loads lpci-build settings from command line flags and
// LPCI_BUILD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables, e.g. LPCI_BUILD_TIMEOUT.
const EnvPrefix = "LPCI_BUILD"

// Setting keys, shared by flags and environment variables.
const (
	KeyCredentialsB64     = "lp-credentials-b64"
	KeyCredentialsFile    = "lp-credentials-file"
	KeyTimeout            = "timeout"
	KeyAllowBuildFailures = "allow-build-failures"
	KeyAcceptPublicUpload = "launchpad-accept-public-upload"
	KeyService            = "launchpad-service"
	KeyLogDir             = "log-dir"
	KeyTUI                = "tui"
	KeyVerbose            = "verbose"
	KeyStoreDSN           = "store-dsn"
	KeyBrokers            = "brokers"
	KeyTrace              = "trace"
)

// DefaultTimeout is the build timeout in seconds.
const DefaultTimeout = 3600

var (
	ErrNoCredentials          = errors.New("Launchpad credentials are required")
	ErrConflictingCredentials = errors.New("--lp-credentials-b64 and --lp-credentials-file are mutually exclusive")
)

// Config holds the lpci-build settings.
type Config struct {
	// Base64 encoded Launchpad credentials file.
	CredentialsB64 string `mapstructure:"lp-credentials-b64"`
	// Path to a Launchpad credentials file.
	CredentialsFile string `mapstructure:"lp-credentials-file"`
	// Build timeout in seconds.
	Timeout            int  `mapstructure:"timeout"`
	AllowBuildFailures bool `mapstructure:"allow-build-failures"`
	AcceptPublicUpload bool `mapstructure:"launchpad-accept-public-upload"`
	// production, staging, qastaging or an API root URL.
	Service string `mapstructure:"launchpad-service"`
	LogDir  string `mapstructure:"log-dir"`
	TUI     bool   `mapstructure:"tui"`
	Verbose bool   `mapstructure:"verbose"`
	// Postgres DSN for run history; empty keeps history in memory.
	StoreDSN string `mapstructure:"store-dsn"`
	// Redpanda/Kafka seed brokers for build events.
	Brokers []string `mapstructure:"brokers"`
	// File receiving OpenTelemetry spans.
	Trace string `mapstructure:"trace"`
}

// RegisterFlags defines the lpci-build flags on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyCredentialsB64, "", "Launchpad credentials file, base64 encoded")
	flags.String(KeyCredentialsFile, "", "Path to a Launchpad credentials file")
	flags.Int(KeyTimeout, DefaultTimeout, "Seconds to wait for the remote builds")
	flags.Bool(KeyAllowBuildFailures, false, "Fetch the rocks of successful builds even if others fail")
	flags.Bool(KeyAcceptPublicUpload, false, "Acknowledge that the project is uploaded to a public Launchpad repository")
	flags.String(KeyService, "production", "Launchpad instance: production, staging, qastaging or an API root URL")
	flags.String(KeyLogDir, "", "Directory receiving the build logs (default: system temp dir)")
	flags.Bool(KeyTUI, false, "Show a live build status view")
	flags.BoolP(KeyVerbose, "v", false, "Enable verbose output")
	flags.String(KeyStoreDSN, "", "Postgres DSN recording run history")
	flags.StringSlice(KeyBrokers, nil, "Redpanda brokers receiving build events")
	flags.String(KeyTrace, "", "Write OpenTelemetry spans to this file")
}

// Load reads the settings from flags, with LPCI_BUILD_* environment
// variables filling in flags that were not given.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyService, "production")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that exactly one credentials source and a positive timeout are set.
func (c *Config) Validate() error {
	switch {
	case c.CredentialsB64 == "" && c.CredentialsFile == "":
		return ErrNoCredentials
	case c.CredentialsB64 != "" && c.CredentialsFile != "":
		return ErrConflictingCredentials
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

// TimeoutDuration returns the build timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
