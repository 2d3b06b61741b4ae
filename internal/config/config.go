package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jfmyers9/nowplaying/internal/widget"
)

const envPrefix = "NOWPLAYING"

// Config holds application configuration
type Config struct {
	// Last.fm API settings
	LastFM LastFMConfig

	// Last.fm usernames, in tie-break order
	Members []string

	// How often the page is refreshed (0 = render once)
	RefreshPeriod time.Duration

	// Id of the element renders are placed after
	// Default: "lastfm"
	Anchor string

	// HTML page to render into, and where to write the result
	// (Output defaults to Page)
	Page   string
	Output string

	// Inline token template, or a file holding one. When both are empty
	// the anchor element's own content is used.
	Template     string
	TemplateFile string

	// Upper bound on one fetch/render cycle
	CycleTimeout time.Duration

	// Concurrent request limit (0 = one request per member at once)
	MaxInFlight int

	// Render journal settings
	History HistoryConfig

	// Output settings for the now command
	// Default: "{ track.artist } - { track.title }"
	OutputFormat     string
	OutputWidth      int
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey  string
	BaseURL string
}

// HistoryConfig holds render journal configuration
type HistoryConfig struct {
	Enabled bool
	DB      string
}

// Load reads .env, the config file from the default locations, and the
// environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v), nil
}

// LoadFile reads configuration from an explicit file plus the environment.
func LoadFile(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("anchor", "lastfm")
	v.SetDefault("refresh_period", 0)
	v.SetDefault("cycle_timeout", widget.DefaultCycleTimeout)
	v.SetDefault("max_in_flight", 0)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db", filepath.Join(GetDataDir(), "history.db"))
	v.SetDefault("output_format", "{ track.artist } - { track.title }")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")

	// NOWPLAYING_LASTFM_API_KEY maps to lastfm.api_key
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound for AutomaticEnv to see them
	for _, key := range []string{"lastfm.api_key", "lastfm.base_url", "members", "page", "output", "template", "template_file"} {
		_ = v.BindEnv(key)
	}

	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		LastFM: LastFMConfig{
			APIKey:  v.GetString("lastfm.api_key"),
			BaseURL: v.GetString("lastfm.base_url"),
		},
		Members:       splitMembers(v.GetStringSlice("members")),
		RefreshPeriod: time.Duration(v.GetInt64("refresh_period")) * time.Millisecond,
		Anchor:        v.GetString("anchor"),
		Page:          v.GetString("page"),
		Output:        v.GetString("output"),
		Template:      v.GetString("template"),
		TemplateFile:  v.GetString("template_file"),
		CycleTimeout:  v.GetDuration("cycle_timeout"),
		MaxInFlight:   v.GetInt("max_in_flight"),
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
			DB:      v.GetString("history.db"),
		},
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
	}
}

// splitMembers accepts both list and comma separated forms.
func splitMembers(raw []string) []string {
	var members []string
	for _, item := range raw {
		for _, m := range strings.Split(item, ",") {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}
	}
	return members
}

// loadDotEnv exports variables from a .env file without overriding the
// real environment. A missing file is not an error.
func loadDotEnv(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for key, val := range env {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// Widget returns the widget settings. The template is left empty; use
// TemplateSource to resolve it.
func (c *Config) Widget() widget.Config {
	return widget.Config{
		Members:       c.Members,
		APIKey:        c.LastFM.APIKey,
		RefreshPeriod: c.RefreshPeriod,
		Anchor:        c.Anchor,
		CycleTimeout:  c.CycleTimeout,
		MaxInFlight:   c.MaxInFlight,
	}
}

// TemplateSource returns the inline template, or the contents of
// TemplateFile. Empty means the anchor's content is the template.
func (c *Config) TemplateSource() (string, error) {
	if c.Template != "" {
		return c.Template, nil
	}
	if c.TemplateFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}
	return string(data), nil
}

// Validate reports missing or invalid widget settings.
func (c *Config) Validate() error {
	if err := c.Widget().Validate(); err != nil {
		return err
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("max_in_flight must not be negative, got %d", c.MaxInFlight)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "nowplaying")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// GetDataDir returns the directory for the render journal
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "nowplaying")
}
