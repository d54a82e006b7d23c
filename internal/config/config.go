package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	// HighlightPoll is how often highlights are re-located while the find
	// bar is open. Zero disables polling.
	HighlightPoll  time.Duration `mapstructure:"highlight_poll"`
	ScrollTarget   string        `mapstructure:"scroll_target"`
	CaseSensitive  bool          `mapstructure:"case_sensitive"`
	UseRegex       bool          `mapstructure:"use_regex"`
	MaxQueryLength int           `mapstructure:"max_query_length"`
}

// Scroll targets for a new search term.
const (
	ScrollTargetFirst   = "first"
	ScrollTargetClosest = "closest"
)

type UIConfig struct {
	Colors          UIColors `mapstructure:"colors"`
	Markdown        bool     `mapstructure:"markdown"`
	Overscan        int      `mapstructure:"overscan"`
	RenderCacheSize int      `mapstructure:"render_cache_size"`
	WordWrapMax     int      `mapstructure:"word_wrap_max_width"`
	WordWrapMin     int      `mapstructure:"word_wrap_min_width"`
}

type UIColors struct {
	Primary      string `mapstructure:"primary"`
	Secondary    string `mapstructure:"secondary"`
	Accent       string `mapstructure:"accent"`
	Background   string `mapstructure:"background"`
	Surface      string `mapstructure:"surface"`
	Text         string `mapstructure:"text"`
	Muted        string `mapstructure:"muted"`
	Error        string `mapstructure:"error"`
	Success      string `mapstructure:"success"`
	Match        string `mapstructure:"match"`
	CurrentMatch string `mapstructure:"current_match"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

// KeyBindings are the letters combined with the modifier.
type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Find    string `mapstructure:"find"`
	Compact string `mapstructure:"compact"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".convo")

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "convo.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Search: SearchConfig{
			Debounce:       300 * time.Millisecond,
			HighlightPoll:  500 * time.Millisecond,
			ScrollTarget:   ScrollTargetFirst,
			MaxQueryLength: 256,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:      "#FF6B6B",
				Secondary:    "#4ECDC4",
				Accent:       "#95E1D3",
				Background:   "#1A1A2E",
				Surface:      "#16213E",
				Text:         "#EAEAEA",
				Muted:        "#94A3B8",
				Error:        "#F87171",
				Success:      "#4ADE80",
				Match:        "#FFE66D",
				CurrentMatch: "#FF9F1C",
			},
			Markdown:        true,
			Overscan:        2,
			RenderCacheSize: 256,
			WordWrapMax:     120,
			WordWrapMin:     40,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Find:    "f",
				Compact: "k",
				Back:    "esc",
				Help:    "?",
			},
		},
		Log: LogConfig{
			Level:      "off",
			Path:       filepath.Join(dataDir, "convo.log"),
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("database", cfg.Database)
	v.SetDefault("search", cfg.Search)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)
	v.SetDefault("log", cfg.Log)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "convo")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONVO")
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
	normalize(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

// normalize replaces out-of-range values with their defaults.
func normalize(cfg *Config) {
	def := defaultConfig()
	if cfg.Search.Debounce < 0 {
		cfg.Search.Debounce = def.Search.Debounce
	}
	if cfg.Search.HighlightPoll < 0 {
		cfg.Search.HighlightPoll = 0
	}
	if cfg.Search.ScrollTarget != ScrollTargetClosest {
		cfg.Search.ScrollTarget = ScrollTargetFirst
	}
	if cfg.Search.MaxQueryLength <= 0 {
		cfg.Search.MaxQueryLength = def.Search.MaxQueryLength
	}
	if cfg.UI.RenderCacheSize <= 0 {
		cfg.UI.RenderCacheSize = def.UI.RenderCacheSize
	}
	if cfg.UI.Overscan < 0 {
		cfg.UI.Overscan = 0
	}
	if cfg.Keys.Modifier == "" {
		cfg.Keys.Modifier = def.Keys.Modifier
	}
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings keep the TOML readable.
	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	searchCfg := map[string]interface{}{
		"debounce":         config.Search.Debounce.String(),
		"highlight_poll":   config.Search.HighlightPoll.String(),
		"scroll_target":    config.Search.ScrollTarget,
		"case_sensitive":   config.Search.CaseSensitive,
		"use_regex":        config.Search.UseRegex,
		"max_query_length": config.Search.MaxQueryLength,
	}

	v.Set("database", dbCfg)
	v.Set("search", searchCfg)
	v.Set("ui", config.UI)
	v.Set("keys", config.Keys)
	v.Set("log", config.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
