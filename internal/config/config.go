package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/flip/internal/validation"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Pager    PagerConfig    `mapstructure:"pager"`
	Server   ServerConfig   `mapstructure:"server"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RemoteConfig points the client at the saved-item service. Mode "local"
// keeps saved items in the bbolt database instead.
type RemoteConfig struct {
	Mode        string        `mapstructure:"mode"`
	BaseURL     string        `mapstructure:"base_url"`
	User        string        `mapstructure:"user"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BulkHydrate bool          `mapstructure:"bulk_hydrate"`
}

type FeedConfig struct {
	Source          string        `mapstructure:"source"`
	DefaultCategory string        `mapstructure:"default_category"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MinifluxURL     string        `mapstructure:"miniflux_url"`
	MinifluxAPIKey  string        `mapstructure:"miniflux_api_key"`
}

type PagerConfig struct {
	CommitRatio       float64       `mapstructure:"commit_ratio"`
	VelocityThreshold float64       `mapstructure:"velocity_threshold"`
	CommitDuration    time.Duration `mapstructure:"commit_duration"`
	SpringFrequency   float64       `mapstructure:"spring_frequency"`
	SpringDamping     float64       `mapstructure:"spring_damping"`
	FPS               int           `mapstructure:"fps"`
	// CellWidth is how many px one terminal column counts for when turning
	// mouse drags into gesture samples.
	CellWidth float64 `mapstructure:"cell_width"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	Store       string `mapstructure:"store"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type BrowserConfig struct {
	Opener string `mapstructure:"opener"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Article ArticleConfig `mapstructure:"article"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ArticleConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Bindings KeyBindings `mapstructure:"bindings"`
}

// KeyBindings maps actions to keys. A binding may list several keys
// separated by commas, e.g. "right,l".
type KeyBindings struct {
	Quit       string `mapstructure:"quit"`
	Next       string `mapstructure:"next"`
	Previous   string `mapstructure:"previous"`
	ToggleSave string `mapstructure:"toggle_save"`
	Category   string `mapstructure:"category"`
	Saved      string `mapstructure:"saved"`
	Open       string `mapstructure:"open"`
	Read       string `mapstructure:"read"`
	Remove     string `mapstructure:"remove"`
	Search     string `mapstructure:"search"`
	Refresh    string `mapstructure:"refresh"`
	Back       string `mapstructure:"back"`
	Help       string `mapstructure:"help"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Path:    filepath.Join(homeDir, ".flip.db"),
			Timeout: 1 * time.Second,
		},
		Remote: RemoteConfig{
			Mode:        "http",
			BaseURL:     "http://127.0.0.1:5000",
			User:        defaultUser(),
			Timeout:     10 * time.Second,
			BulkHydrate: false,
		},
		Feed: FeedConfig{
			Source:          "api",
			DefaultCategory: "local",
			HTTPTimeout:     30 * time.Second,
			UserAgent:       "flip/1.0 (https://github.com/pders01/flip)",
		},
		Pager: PagerConfig{
			CommitRatio:       0.3,
			VelocityThreshold: 500,
			CommitDuration:    300 * time.Millisecond,
			SpringFrequency:   7.0,
			SpringDamping:     0.75,
			FPS:               60,
			CellWidth:         8,
		},
		Server: ServerConfig{
			Addr:  "127.0.0.1:5000",
			Store: "bolt",
		},
		Browser: BrowserConfig{
			Opener: getDefaultOpener(),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#8B5CF6",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				MaxDescriptionLength: 280,
				WordWrapMaxWidth:     100,
				WordWrapMinWidth:     40,
			},
		},
		Keys: KeyConfig{
			Bindings: KeyBindings{
				Quit:       "q",
				Next:       "right,l",
				Previous:   "left,h",
				ToggleSave: "s",
				Category:   "c",
				Saved:      "v",
				Open:       "o",
				Read:       "enter",
				Remove:     "x",
				Search:     "/",
				Refresh:    "r",
				Back:       "esc",
				Help:       "?",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(homeDir, ".flip", "flip.log"),
		},
	}
}

// defaultUser names the saved-item owner after the login user.
func defaultUser() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// flatten lists every leaf setting so viper can merge partial files with
// the defaults key by key.
func flatten(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"database.path":    cfg.Database.Path,
		"database.timeout": cfg.Database.Timeout.String(),

		"remote.mode":         cfg.Remote.Mode,
		"remote.base_url":     cfg.Remote.BaseURL,
		"remote.user":         cfg.Remote.User,
		"remote.timeout":      cfg.Remote.Timeout.String(),
		"remote.bulk_hydrate": cfg.Remote.BulkHydrate,

		"feed.source":           cfg.Feed.Source,
		"feed.default_category": cfg.Feed.DefaultCategory,
		"feed.http_timeout":     cfg.Feed.HTTPTimeout.String(),
		"feed.user_agent":       cfg.Feed.UserAgent,
		"feed.miniflux_url":     cfg.Feed.MinifluxURL,
		"feed.miniflux_api_key": cfg.Feed.MinifluxAPIKey,

		"pager.commit_ratio":       cfg.Pager.CommitRatio,
		"pager.velocity_threshold": cfg.Pager.VelocityThreshold,
		"pager.commit_duration":    cfg.Pager.CommitDuration.String(),
		"pager.spring_frequency":   cfg.Pager.SpringFrequency,
		"pager.spring_damping":     cfg.Pager.SpringDamping,
		"pager.fps":                cfg.Pager.FPS,
		"pager.cell_width":         cfg.Pager.CellWidth,

		"server.addr":         cfg.Server.Addr,
		"server.store":        cfg.Server.Store,
		"server.postgres_dsn": cfg.Server.PostgresDSN,

		"browser.opener": cfg.Browser.Opener,

		"ui.colors.primary":                 cfg.UI.Colors.Primary,
		"ui.colors.secondary":               cfg.UI.Colors.Secondary,
		"ui.colors.accent":                  cfg.UI.Colors.Accent,
		"ui.colors.background":              cfg.UI.Colors.Background,
		"ui.colors.surface":                 cfg.UI.Colors.Surface,
		"ui.colors.text":                    cfg.UI.Colors.Text,
		"ui.colors.muted":                   cfg.UI.Colors.Muted,
		"ui.colors.error":                   cfg.UI.Colors.Error,
		"ui.colors.success":                 cfg.UI.Colors.Success,
		"ui.article.max_description_length": cfg.UI.Article.MaxDescriptionLength,
		"ui.article.word_wrap_max_width":    cfg.UI.Article.WordWrapMaxWidth,
		"ui.article.word_wrap_min_width":    cfg.UI.Article.WordWrapMinWidth,

		"keys.bindings.quit":        cfg.Keys.Bindings.Quit,
		"keys.bindings.next":        cfg.Keys.Bindings.Next,
		"keys.bindings.previous":    cfg.Keys.Bindings.Previous,
		"keys.bindings.toggle_save": cfg.Keys.Bindings.ToggleSave,
		"keys.bindings.category":    cfg.Keys.Bindings.Category,
		"keys.bindings.saved":       cfg.Keys.Bindings.Saved,
		"keys.bindings.open":        cfg.Keys.Bindings.Open,
		"keys.bindings.read":        cfg.Keys.Bindings.Read,
		"keys.bindings.remove":      cfg.Keys.Bindings.Remove,
		"keys.bindings.search":      cfg.Keys.Bindings.Search,
		"keys.bindings.refresh":     cfg.Keys.Bindings.Refresh,
		"keys.bindings.back":        cfg.Keys.Bindings.Back,
		"keys.bindings.help":        cfg.Keys.Bindings.Help,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range flatten(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "flip")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FLIP")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch c.Remote.Mode {
	case "http":
		if _, err := validation.NewServiceURLValidator().ValidateAndNormalize(c.Remote.BaseURL); err != nil {
			return fmt.Errorf("remote.base_url: %w", err)
		}
	case "local":
	default:
		return fmt.Errorf("remote.mode: unknown mode %q", c.Remote.Mode)
	}
	if strings.TrimSpace(c.Remote.User) == "" {
		return fmt.Errorf("remote.user is required")
	}

	switch c.Feed.Source {
	case "api", "rss":
	case "miniflux":
		if c.Feed.MinifluxURL == "" || c.Feed.MinifluxAPIKey == "" {
			return fmt.Errorf("feed: miniflux source needs miniflux_url and miniflux_api_key")
		}
	default:
		return fmt.Errorf("feed.source: unknown source %q", c.Feed.Source)
	}

	switch c.Server.Store {
	case "bolt":
	case "postgres":
		if c.Server.PostgresDSN == "" {
			return fmt.Errorf("server.postgres_dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("server.store: unknown store %q", c.Server.Store)
	}

	if c.Pager.CommitRatio <= 0 || c.Pager.CommitRatio >= 1 {
		return fmt.Errorf("pager.commit_ratio must be between 0 and 1")
	}
	return nil
}

// expandPaths expands all paths in the config
func expandPaths(cfg *Config) {
	cfg.Database.Path = validation.ExpandPath(cfg.Database.Path)
	cfg.Log.File = validation.ExpandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	for key, value := range flatten(config) {
		v.Set(key, value)
	}

	if err := validation.EnsureParentDir(path); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
