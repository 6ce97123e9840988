// Package config loads and saves user preferences from a TOML file under
// the user's config directory.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/dictdeck/dictdeck/internal/logging"
)

var configLog = logging.ForComponent(logging.CompConfig)

// FileName is the TOML config file for user preferences.
const FileName = "config.toml"

// Config represents user-facing configuration in TOML format.
type Config struct {
	// Theme sets the color scheme: "dark", "light", or "system" (default).
	Theme string `toml:"theme"`

	// Engine configures the connection to the search engine process.
	Engine EngineSettings `toml:"engine"`

	// Search tunes the result window.
	Search SearchSettings `toml:"search"`

	// Library configures dictionary library directories.
	Library LibrarySettings `toml:"library"`

	// History configures lookup history.
	History HistorySettings `toml:"history"`

	// Logs configures file logging.
	Logs LogSettings `toml:"logs"`
}

// EngineSettings configures the search engine connection.
type EngineSettings struct {
	// Address is the websocket URL of the engine, e.g. "ws://127.0.0.1:8787/ipc".
	Address string `toml:"address"`

	// ConnectTimeoutSeconds bounds the initial dial (default: 5).
	ConnectTimeoutSeconds int `toml:"connect_timeout_seconds"`
}

// SearchSettings tunes the result window.
type SearchSettings struct {
	// DefaultMode is "index" (default) or "fulltext".
	DefaultMode string `toml:"default_mode"`

	// PageSize is the number of result keys per fetched page (default: 50).
	PageSize int `toml:"page_size"`

	// MaxCachedPages bounds the page cache (default: 20).
	MaxCachedPages int `toml:"max_cached_pages"`

	// FetchTimeoutSeconds bounds each page fetch (default: 10).
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
}

// LibrarySettings configures dictionary library directories.
type LibrarySettings struct {
	// Paths are directories scanned for dictionary profiles.
	Paths []string `toml:"paths"`
}

// HistorySettings configures lookup history.
type HistorySettings struct {
	// MaxSize caps stored history entries (default: 1000).
	MaxSize int `toml:"max_size"`
}

// LogSettings configures file logging.
type LogSettings struct {
	// Debug enables debug-level logging (default: false).
	Debug bool `toml:"debug"`

	// Format is "json" (default) or "text".
	Format string `toml:"format"`

	// MaxSizeMB rotates the log past this size (default: 10).
	MaxSizeMB int `toml:"max_size_mb"`
}

var defaultConfig = Config{
	Theme: "system",
	Engine: EngineSettings{
		Address:               "ws://127.0.0.1:8787/ipc",
		ConnectTimeoutSeconds: 5,
	},
	Search: SearchSettings{
		DefaultMode:         "index",
		PageSize:            50,
		MaxCachedPages:      20,
		FetchTimeoutSeconds: 10,
	},
	History: HistorySettings{
		MaxSize: 1000,
	},
	Logs: LogSettings{
		Format:    "json",
		MaxSizeMB: 10,
	},
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Dir returns the dictdeck config directory, honoring DICTDECK_CONFIG_DIR
// for tests and portable installs.
func Dir() (string, error) {
	if dir := os.Getenv("DICTDECK_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate config dir: %w", err)
	}
	return filepath.Join(base, "dictdeck"), nil
}

// Path returns the full path of the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config file, caching the result. A missing file yields the
// defaults. A malformed file yields the defaults plus the parse error so the
// caller can surface it.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache != nil {
		return cache, nil
	}

	path, err := Path()
	if err != nil {
		def := defaultConfig
		cache = &def
		return cache, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		def := defaultConfig
		cache = &def
		return cache, nil
	}

	cfg := defaultConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		// Cache the defaults anyway to avoid repeated parse attempts.
		def := defaultConfig
		cache = &def
		return cache, fmt.Errorf("config: parse %s: %w", FileName, err)
	}
	applyDefaults(&cfg)

	cache = &cfg
	configLog.Debug("config loaded", "path", path)
	return cache, nil
}

// ClearCache drops the cached config so the next Load re-reads the file.
func ClearCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = nil
}

func applyDefaults(cfg *Config) {
	if cfg.Theme == "" {
		cfg.Theme = defaultConfig.Theme
	}
	if cfg.Engine.Address == "" {
		cfg.Engine.Address = defaultConfig.Engine.Address
	}
	if cfg.Engine.ConnectTimeoutSeconds <= 0 {
		cfg.Engine.ConnectTimeoutSeconds = defaultConfig.Engine.ConnectTimeoutSeconds
	}
	if cfg.Search.DefaultMode != "fulltext" {
		cfg.Search.DefaultMode = "index"
	}
	if cfg.Search.PageSize <= 0 {
		cfg.Search.PageSize = defaultConfig.Search.PageSize
	}
	if cfg.Search.MaxCachedPages <= 0 {
		cfg.Search.MaxCachedPages = defaultConfig.Search.MaxCachedPages
	}
	if cfg.Search.FetchTimeoutSeconds <= 0 {
		cfg.Search.FetchTimeoutSeconds = defaultConfig.Search.FetchTimeoutSeconds
	}
	if cfg.History.MaxSize <= 0 {
		cfg.History.MaxSize = defaultConfig.History.MaxSize
	}
	if cfg.Logs.Format != "text" {
		cfg.Logs.Format = "json"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = defaultConfig.Logs.MaxSizeMB
	}
}

// Save writes cfg atomically: temp file, fsync, rename. The cache is
// cleared so the next Load picks up the saved values.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# DictDeck configuration\n")
	buf.WriteString("# Edit this file or use Settings in the app\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := syncFile(tmpPath); err != nil {
		configLog.Warn("config fsync failed", "error", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: finalize save: %w", err)
	}

	ClearCache()
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// ResolveTheme turns the configured theme into "dark" or "light", asking
// the OS when set to "system".
func (c *Config) ResolveTheme() string {
	switch c.Theme {
	case "dark", "light":
		return c.Theme
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}
