// Package config loads the TOML configuration that drives report runs.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
)

// Config is the full configuration file.
type Config struct {
	Cache   CacheConfig   `toml:"cache"`
	Archive ArchiveConfig `toml:"archive"`
	Report  ReportConfig  `toml:"report"`
	Sources SourcesConfig `toml:"sources"`
}

// CacheConfig selects and tunes the response cache.
type CacheConfig struct {
	// Backend is "file", "redis" or "none".
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     duration `toml:"ttl"`
	Redis   struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
}

// ArchiveConfig points at the optional MongoDB run archive.
type ArchiveConfig struct {
	Enabled  bool   `toml:"enabled"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// ReportConfig carries the defaults shared by every report command.
type ReportConfig struct {
	// Period is the default bucketing granularity: week, month,
	// quarter or year.
	Period string `toml:"period"`
	// Lookback bounds how far back the report reaches.
	Lookback duration `toml:"lookback"`
	// OutDir is where report files and chart artifacts are written.
	OutDir string `toml:"out_dir"`
	// Top is the row cutoff for frequency tables before they collapse.
	Top int `toml:"top"`
}

// SourcesConfig holds the per-tracker settings.
type SourcesConfig struct {
	Bugzilla  BugzillaConfig  `toml:"bugzilla"`
	Addons    AddonsConfig    `toml:"addons"`
	Forum     ForumConfig     `toml:"forum"`
	GitHub    GitHubConfig    `toml:"github"`
	Localized LocalizedConfig `toml:"l10n"`
}

type BugzillaConfig struct {
	BaseURL    string   `toml:"base_url"`
	APIKey     string   `toml:"api_key"`
	Products   []string `toml:"products"`
	Components []string `toml:"components"`
}

type AddonsConfig struct {
	BaseURL string `toml:"base_url"`
	App     string `toml:"app"`
	// AppVersion is the application release used for compatibility
	// checks, e.g. "115.0".
	AppVersion string `toml:"app_version"`
}

type ForumConfig struct {
	BaseURL    string   `toml:"base_url"`
	APIKey     string   `toml:"api_key"`
	APIUser    string   `toml:"api_user"`
	Categories []string `toml:"categories"`
}

type GitHubConfig struct {
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Owner   string   `toml:"owner"`
	Repo    string   `toml:"repo"`
	Labels  []string `toml:"labels"`
}

type LocalizedConfig struct {
	BaseURL string `toml:"base_url"`
	Project string `toml:"project"`
}

// duration lets TOML carry values like "24h" or "720h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Duration converts the TOML wrapper back to a time.Duration.
func (d duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Cache.Backend = "file"
	cfg.Cache.TTL = duration(24 * time.Hour)
	cfg.Archive.Database = "trackstats"
	cfg.Report.Period = "week"
	cfg.Report.Lookback = duration(365 * 24 * time.Hour)
	cfg.Report.OutDir = "reports"
	cfg.Report.Top = 20
	cfg.Sources.Bugzilla.BaseURL = "https://bugzilla.mozilla.org"
	cfg.Sources.Addons.BaseURL = "https://addons.thunderbird.net/api/v4"
	cfg.Sources.Addons.App = "thunderbird"
	cfg.Sources.GitHub.BaseURL = "https://api.github.com"
	cfg.Sources.Localized.BaseURL = "https://pontoon.mozilla.org"
	return cfg
}

// Load reads the configuration at path, layered over the defaults. An
// empty path returns the defaults unchanged; a missing file at an
// explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if err := apperrors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read config")
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, nil
}
