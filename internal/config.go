package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/licaudit/internal/parser"
	"github.com/starford/licaudit/internal/treeindex"
	"github.com/starford/licaudit/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Project ProjectConfig     `yaml:"project"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Cache   CacheConfig       `yaml:"cache"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// ProjectConfig locates the project directory and the files inside it.
// Input and ExportDir are relative to Dir.
type ProjectConfig struct {
	Dir       string `yaml:"dir"`
	Input     string `yaml:"input"`
	ExportDir string `yaml:"export_dir"`
	Watch     bool   `yaml:"watch"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Input, validation.Required, validation.By(relativeDataFile)),
		validation.Field(&c.ExportDir, validation.Required, validation.By(relativePath)),
	)
}

func relativePath(value any) error {
	p, _ := value.(string)
	if filepath.IsAbs(p) {
		return validation.NewError("validation_relative_path", "must be relative to the project directory")
	}
	return nil
}

func relativeDataFile(value any) error {
	if err := relativePath(value); err != nil {
		return err
	}
	p, _ := value.(string)
	if _, err := parser.FormatOf(p); err != nil {
		return validation.NewError("validation_input_extension", "must end with .json, .yaml or .yml")
	}
	return nil
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

// CacheConfig bounds the memoised resource indices.
type CacheConfig struct {
	IndexEntries int `yaml:"index_entries"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IndexEntries, validation.Required, validation.Min(2)),
	)
}

// EventsConfig tunes the SSE feed.
type EventsConfig struct {
	StatisticsThrottle time.Duration `yaml:"statistics_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StatisticsThrottle, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: ProjectConfig{
			Dir:       "./project",
			Input:     workspace.DefaultInput,
			ExportDir: workspace.DefaultExportDir,
			Watch:     true,
		},
		SQLite: SQLiteConfig{
			Path: "./licaudit.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Cache: CacheConfig{
			IndexEntries: treeindex.DefaultCacheEntries,
		},
		Events: EventsConfig{
			StatisticsThrottle: 2 * time.Second,
		},
	}
}
