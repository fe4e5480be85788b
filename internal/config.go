package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/starford/quicknote/internal/debounce"
	"github.com/starford/quicknote/internal/notestore"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/sse"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Notes    NotesConfig       `yaml:"notes"`
	Recycle  RecycleConfig     `yaml:"recycle"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Events   EventsConfig      `yaml:"events"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Recycle.Validate(); err != nil {
		return err
	}
	if err := c.Autosave.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// Duration is a time.Duration read from YAML strings such as "500ms" or "720h".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
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

// DefaultHost keeps the server on the loopback interface unless configured
// otherwise.
const DefaultHost = "127.0.0.1"

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration. An empty host selects
// DefaultHost.
func (c *HTTPConfig) Validate() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, is.Host),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the storage root. An empty root selects the per-user
// application data directory.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// NotesConfig lists the file patterns recognized as notes.
type NotesConfig struct {
	Patterns []string `yaml:"patterns"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Patterns, validation.Required, validation.By(func(interface{}) error {
			return notestore.Patterns(c.Patterns).Validate()
		})),
	)
}

// RecycleConfig controls the recycle bin and its sweeper.
//
// Policy decides what happens when a deleted note collides with an entry of
// the same name already in the bin:
//   - "preserve" (default): the older entry is renamed aside.
//   - "overwrite": the newer delete replaces it.
//
// A zero SweepInterval sweeps once at startup only.
type RecycleConfig struct {
	Retention     Duration `yaml:"retention"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Policy        string   `yaml:"policy"`
}

// Validate validates the recycle configuration.
func (c *RecycleConfig) Validate() error {
	if c.Policy == "" {
		c.Policy = string(recyclebin.PolicyPreserve)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Retention, validation.Required, validation.Min(Duration(time.Hour))),
		validation.Field(&c.SweepInterval, validation.Min(Duration(0))),
		validation.Field(&c.Policy, validation.In(string(recyclebin.PolicyPreserve), string(recyclebin.PolicyOverwrite))),
	)
}

// AutosaveConfig holds the editor autosave quiet interval.
type AutosaveConfig struct {
	Delay Duration `yaml:"delay"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delay, validation.Required, validation.Max(Duration(time.Minute))),
	)
}

// EventsConfig holds the SSE refresh throttle.
type EventsConfig struct {
	RefreshThrottle Duration `yaml:"refresh_throttle"`
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
				Host: DefaultHost,
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			Patterns: append([]string(nil), notestore.DefaultPatterns...),
		},
		Recycle: RecycleConfig{
			Retention:     Duration(recyclebin.DefaultRetention),
			SweepInterval: Duration(recyclebin.DefaultSweepInterval),
			Policy:        string(recyclebin.PolicyPreserve),
		},
		Autosave: AutosaveConfig{
			Delay: Duration(debounce.DefaultDelay),
		},
		Events: EventsConfig{
			RefreshThrottle: Duration(sse.DefaultRefreshThrottle),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
