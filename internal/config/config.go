package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the base service configuration.
type Config struct {
	Host      string
	Port      string
	JWTSecret string

	SQLiteDBPath string

	// Library server (Plex-style media library) settings. The library
	// backend is only attached when host and token are both set.
	LibraryHost         string
	LibraryPort         int
	LibraryToken        string
	LibrarySubtitleLang string

	// Video search settings. The video backend is only attached when the
	// search API key is set.
	VideoSearchAPIKey string
	VideoSearchAPIURL string
	MovieDBAPIKey     string
	MovieDBAPIURL     string

	// Device discovery settings.
	RescanIntervalMin    int
	CastConnectTimeoutMs int

	// Per-command timeout at the dispatcher boundary.
	CommandTimeoutMs int
}

// fileOverlay is the optional YAML config file shape. Values present in the
// file take precedence over environment variables.
type fileOverlay struct {
	Host                string `yaml:"host"`
	Port                string `yaml:"port"`
	JWTSecret           string `yaml:"jwt_secret"`
	SQLiteDBPath        string `yaml:"sqlite_db_path"`
	LibraryHost         string `yaml:"library_host"`
	LibraryPort         int    `yaml:"library_port"`
	LibraryToken        string `yaml:"library_token"`
	LibrarySubtitleLang string `yaml:"library_subtitle_lang"`
	VideoSearchAPIKey   string `yaml:"video_search_api_key"`
	VideoSearchAPIURL   string `yaml:"video_search_api_url"`
	MovieDBAPIKey       string `yaml:"moviedb_api_key"`
	MovieDBAPIURL       string `yaml:"moviedb_api_url"`
	RescanIntervalMin   int    `yaml:"rescan_interval_minutes"`
	CommandTimeoutMs    int    `yaml:"command_timeout_ms"`
}

// Load reads configuration from environment variables with defaults, then
// applies the optional YAML file named by CONFIG_FILE.
func Load() (Config, error) {
	cfg := Config{
		Host:                 envString("HOST", "0.0.0.0"),
		Port:                 envString("PORT", "9000"),
		JWTSecret:            envString("JWT_SECRET", ""),
		SQLiteDBPath:         envString("SQLITE_DB_PATH", "./data/castbridge.db"),
		LibraryHost:          envString("LIBRARY_HOST", ""),
		LibraryPort:          envInt("LIBRARY_PORT", 32400),
		LibraryToken:         envString("LIBRARY_TOKEN", ""),
		LibrarySubtitleLang:  envString("LIBRARY_SUBTITLE_LANG", "eng"),
		VideoSearchAPIKey:    envString("VIDEO_SEARCH_API_KEY", ""),
		VideoSearchAPIURL:    envString("VIDEO_SEARCH_API_URL", "https://www.googleapis.com/youtube/v3"),
		MovieDBAPIKey:        envString("MOVIEDB_API_KEY", ""),
		MovieDBAPIURL:        envString("MOVIEDB_API_URL", "https://api.themoviedb.org/3"),
		RescanIntervalMin:    envInt("RESCAN_INTERVAL_MINUTES", 120),
		CastConnectTimeoutMs: envInt("CAST_CONNECT_TIMEOUT_MS", 10000),
		CommandTimeoutMs:     envInt("COMMAND_TIMEOUT_MS", 30000),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if len(strings.TrimSpace(cfg.JWTSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.RescanIntervalMin <= 0 {
		return Config{}, fmt.Errorf("RESCAN_INTERVAL_MINUTES must be positive")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if overlay.Host != "" {
		cfg.Host = overlay.Host
	}
	if overlay.Port != "" {
		cfg.Port = overlay.Port
	}
	if overlay.JWTSecret != "" {
		cfg.JWTSecret = overlay.JWTSecret
	}
	if overlay.SQLiteDBPath != "" {
		cfg.SQLiteDBPath = overlay.SQLiteDBPath
	}
	if overlay.LibraryHost != "" {
		cfg.LibraryHost = overlay.LibraryHost
	}
	if overlay.LibraryPort != 0 {
		cfg.LibraryPort = overlay.LibraryPort
	}
	if overlay.LibraryToken != "" {
		cfg.LibraryToken = overlay.LibraryToken
	}
	if overlay.LibrarySubtitleLang != "" {
		cfg.LibrarySubtitleLang = overlay.LibrarySubtitleLang
	}
	if overlay.VideoSearchAPIKey != "" {
		cfg.VideoSearchAPIKey = overlay.VideoSearchAPIKey
	}
	if overlay.VideoSearchAPIURL != "" {
		cfg.VideoSearchAPIURL = overlay.VideoSearchAPIURL
	}
	if overlay.MovieDBAPIKey != "" {
		cfg.MovieDBAPIKey = overlay.MovieDBAPIKey
	}
	if overlay.MovieDBAPIURL != "" {
		cfg.MovieDBAPIURL = overlay.MovieDBAPIURL
	}
	if overlay.RescanIntervalMin != 0 {
		cfg.RescanIntervalMin = overlay.RescanIntervalMin
	}
	if overlay.CommandTimeoutMs != 0 {
		cfg.CommandTimeoutMs = overlay.CommandTimeoutMs
	}
	return nil
}

// HasLibrary reports whether the library backend is configured.
func (cfg Config) HasLibrary() bool {
	return cfg.LibraryHost != "" && cfg.LibraryToken != ""
}

// HasVideoSearch reports whether the video search backend is configured.
func (cfg Config) HasVideoSearch() bool {
	return cfg.VideoSearchAPIKey != ""
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
