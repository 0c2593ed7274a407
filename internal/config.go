package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/noteservice"
	"github.com/starford/carnet/internal/resolver"
	"github.com/starford/carnet/internal/store"
	"github.com/starford/carnet/internal/watcher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Editor EditorConfig      `yaml:"editor"`
	Images ImagesConfig      `yaml:"images"`
	Watch  WatchConfig       `yaml:"watch"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	if err := c.Images.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
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
// Host defaults to the loopback interface; the API has no multi-user model.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the database backing the note store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(string(store.SQLite), string(store.Postgres))),
		validation.Field(&c.DSN, validation.Required),
	)
}

// EditorConfig tunes the editor sessions.
type EditorConfig struct {
	AutosaveDelay time.Duration `yaml:"autosave_delay"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveDelay, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// ImagesConfig limits uploads and names the URL prefix of resolved images.
type ImagesConfig struct {
	MaxBytes     int64  `yaml:"max_bytes"`
	HandlePrefix string `yaml:"handle_prefix"`
}

// Validate validates the images configuration.
func (c *ImagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.HandlePrefix, validation.Required, validation.By(func(any) error {
			if !strings.HasPrefix(c.HandlePrefix, "/") || strings.HasPrefix(c.HandlePrefix, "/api/") {
				return fmt.Errorf("must be an absolute path outside /api/")
			}
			return nil
		})),
	)
}

// WatchConfig controls detection of writes made by other processes.
type WatchConfig struct {
	Enabled bool          `yaml:"enabled"`
	Delay   time.Duration `yaml:"delay"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delay, validation.Min(time.Duration(0))),
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
				Host: "127.0.0.1",
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Driver: string(store.SQLite),
			DSN:    "./carnet.db",
		},
		Editor: EditorConfig{
			AutosaveDelay: editor.DefaultDelay,
		},
		Images: ImagesConfig{
			MaxBytes:     noteservice.DefaultMaxImageBytes,
			HandlePrefix: resolver.DefaultPrefix,
		},
		Watch: WatchConfig{
			Enabled: true,
			Delay:   watcher.DefaultDelay,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
