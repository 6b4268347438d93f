package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/raido/internal/applier"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Run modes.
const (
	ModePoll  = "poll"
	ModeOnce  = "once"
	ModeWatch = "watch"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Organizer OrganizerConfig   `yaml:"organizer"`
	LLM       LLMConfig         `yaml:"llm"`
	Index     IndexConfig       `yaml:"index"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Organizer.Validate(); err != nil {
		return fmt.Errorf("organizer: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a copy of every log line.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The server only runs in
// poll and watch modes.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(c.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

// OrganizerConfig controls which folders are organized and how.
type OrganizerConfig struct {
	MonitorFolders []string `yaml:"monitor_folders"`
	// RootFolder is the organizational root suggested folders are relative
	// to. Empty means each file's own folder.
	RootFolder     string        `yaml:"root_folder"`
	AutoConfirm    bool          `yaml:"auto_confirm"`
	DryRun         bool          `yaml:"dry_run"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	PreviewChars   int           `yaml:"preview_chars"`
	ConflictPolicy string        `yaml:"conflict_policy"`
	RecentOutcomes int           `yaml:"recent_outcomes"`
}

// Validate validates the organizer configuration.
func (c *OrganizerConfig) Validate() error {
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = string(applier.ConflictFail)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MonitorFolders, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.CheckInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0))),
		validation.Field(&c.PreviewChars, validation.Min(0)),
		validation.Field(&c.ConflictPolicy, validation.In(string(applier.ConflictFail), string(applier.ConflictSuffix))),
		validation.Field(&c.RecentOutcomes, validation.Min(0)),
	)
}

// LLMConfig holds the OpenAI-compatible model endpoint configuration.
type LLMConfig struct {
	// BaseURL may list several comma separated endpoints tried in order.
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	JSONMode     bool          `yaml:"json_mode"`
	MaxFailures  int           `yaml:"max_failures"`
	Cooldown     time.Duration `yaml:"cooldown"`
	CustomPrompt string        `yaml:"custom_prompt"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(eachURL)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxFailures, validation.Min(0)),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
	)
}

func eachURL(value interface{}) error {
	s, _ := value.(string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := validation.Validate(part, is.URL); err != nil {
			return fmt.Errorf("%q: %w", part, err)
		}
	}
	return nil
}

// IndexConfig holds the SQLite catalog configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
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

var errUnknownMode = errors.New("unknown run mode")

// ValidateMode checks a run mode name.
func ValidateMode(mode string) error {
	switch mode {
	case ModePoll, ModeOnce, ModeWatch:
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownMode, mode)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Enabled: true,
				Port:    8088,
			},
		},
		Organizer: OrganizerConfig{
			MonitorFolders: []string{"~/Downloads"},
			CheckInterval:  10 * time.Minute,
			WatchDebounce:  500 * time.Millisecond,
			PreviewChars:   500,
			ConflictPolicy: string(applier.ConflictFail),
			RecentOutcomes: 200,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     60 * time.Second,
			JSONMode:    true,
			MaxFailures: 3,
			Cooldown:    5 * time.Minute,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    "./raido.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
