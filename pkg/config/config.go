// Package config builds the runtime configuration for Song-Rec-Go. Values are
// read from an optional YAML file and then overridden by environment
// variables so deployments can keep secrets out of the file. The resulting
// Config is passed explicitly to every component at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Defaults applied by Default and Load.
const (
	DefaultAddr           = ":4000"
	DefaultFingerprintAPI = "shazam.p.rapidapi.com"
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultMaxUploadBytes = 8 << 20
	DefaultRecordDuration = 10 * time.Second
)

// Config holds every option recognised by the server and the CLI. The first
// four fields are the credentials for the two upstream APIs.
type Config struct {
	FingerprintAPIKey   string `yaml:"fingerprint_api_key"`
	FingerprintAPIHost  string `yaml:"fingerprint_api_host"`
	CatalogClientID     string `yaml:"catalog_client_id"`
	CatalogClientSecret string `yaml:"catalog_client_secret"`

	Addr           string        `yaml:"addr"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`

	// RecordInput and RecordFormat select the capture device passed to
	// ffmpeg, e.g. "default" with "pulse" or ":0" with "avfoundation".
	RecordInput    string        `yaml:"record_input"`
	RecordFormat   string        `yaml:"record_format"`
	RecordDuration time.Duration `yaml:"record_duration"`
}

// Default returns a Config populated with defaults and no credentials.
func Default() Config {
	return Config{
		FingerprintAPIHost: DefaultFingerprintAPI,
		Addr:               DefaultAddr,
		LogLevel:           "info",
		LogFormat:          "text",
		HTTPTimeout:        DefaultHTTPTimeout,
		MaxUploadBytes:     DefaultMaxUploadBytes,
		RecordInput:        "default",
		RecordFormat:       "pulse",
		RecordDuration:     DefaultRecordDuration,
	}
}

// Load reads path (when non-empty) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment. lookup is injectable so
// tests do not have to mutate the process environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"SHAZAM_API_KEY":        &c.FingerprintAPIKey,
		"SHAZAM_API_HOST":       &c.FingerprintAPIHost,
		"SPOTIFY_CLIENT_ID":     &c.CatalogClientID,
		"SPOTIFY_CLIENT_SECRET": &c.CatalogClientSecret,
		"ADDR":                  &c.Addr,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_FORMAT":            &c.LogFormat,
		"RECORD_INPUT":          &c.RecordInput,
		"RECORD_FORMAT":         &c.RecordFormat,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	durations := map[string]*time.Duration{
		"HTTP_TIMEOUT":    &c.HTTPTimeout,
		"RECORD_DURATION": &c.RecordDuration,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate reports missing credentials or nonsensical limits. All problems
// are returned together.
func (c Config) Validate() error {
	var missing []string
	if c.FingerprintAPIKey == "" {
		missing = append(missing, "SHAZAM_API_KEY")
	}
	if c.FingerprintAPIHost == "" {
		missing = append(missing, "SHAZAM_API_HOST")
	}
	if c.CatalogClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if c.CatalogClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%s must be set", strings.Join(missing, ", ")))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, errors.New("http_timeout must not be negative"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	return errors.Join(errs...)
}
