package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/resolver"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Source kinds.
const (
	SourceVault  = "vault"
	SourceSiYuan = "siyuan"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Source SourceConfig      `yaml:"source"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	SiYuan SiYuanConfig      `yaml:"siyuan"`
	Auth   AuthConfig        `yaml:"auth"`
	Scan   ScanConfig        `yaml:"scan"`
}

// Validate validates the configuration. Only the sections of the
// selected source are checked.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourceVault:
		if err := c.Vault.Validate(); err != nil {
			return err
		}
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	case SourceSiYuan:
		if err := c.SiYuan.Validate(); err != nil {
			return err
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Scan.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig selects the document store.
type SourceConfig struct {
	Kind string `yaml:"kind"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = SourceVault
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.In(SourceVault, SourceSiYuan)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SiYuanConfig holds the remote kernel endpoint.
type SiYuanConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the SiYuan configuration.
func (c *SiYuanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.PollInterval, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ScanConfig holds the directory filters and scan tuning.
type ScanConfig struct {
	Directories    []models.ProjectDirectory `yaml:"directories"`
	Groups         []models.ProjectGroup     `yaml:"groups"`
	TagSearchLimit int                       `yaml:"tag_search_limit"`
	Concurrency    int                       `yaml:"concurrency"`
	Timezone       string                    `yaml:"timezone"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.TagSearchLimit, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.Timezone, validation.By(checkTimezone)),
	); err != nil {
		return err
	}
	for i, d := range c.Directories {
		if err := validation.ValidateStruct(&c.Directories[i],
			validation.Field(&c.Directories[i].Path, validation.Required),
		); err != nil {
			return fmt.Errorf("scan: directory %d (%s): %w", i, d.ID, err)
		}
	}
	return nil
}

// Location returns the configured time zone. Empty means local time.
func (c *ScanConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResolverOptions returns the resolver tuning from the scan section.
func (c *ScanConfig) ResolverOptions() resolver.Options {
	return resolver.Options{
		TagSearchLimit: c.TagSearchLimit,
		Concurrency:    c.Concurrency,
	}
}

func checkTimezone(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return errors.New("unknown time zone")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Kind: SourceVault,
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./bujo.db",
		},
		SiYuan: SiYuanConfig{
			URL:          "http://127.0.0.1:6806",
			PollInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Scan: ScanConfig{
			TagSearchLimit: resolver.DefaultTagSearchLimit,
			Concurrency:    resolver.DefaultConcurrency,
		},
	}
}
