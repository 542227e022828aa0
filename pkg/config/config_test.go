package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("default cache backend = %q, want %q", cfg.Cache.Backend, "file")
	}
	if cfg.Cache.TTL.Duration() != 24*time.Hour {
		t.Errorf("default cache TTL = %v, want 24h", cfg.Cache.TTL.Duration())
	}
	if cfg.Report.Period != "week" {
		t.Errorf("default period = %q, want %q", cfg.Report.Period, "week")
	}
	if cfg.Report.Top != 20 {
		t.Errorf("default top = %d, want 20", cfg.Report.Top)
	}
}

func TestLoadFile(t *testing.T) {
	content := `
[cache]
backend = "redis"
ttl = "1h"

[cache.redis]
addr = "localhost:6379"
db = 2

[archive]
enabled = true
uri = "mongodb://localhost:27017"

[report]
period = "month"
lookback = "2160h"

[sources.bugzilla]
products = ["MailClient", "Calendar"]
api_key = "secret"

[sources.github]
owner = "example"
repo = "mailclient"
`
	path := filepath.Join(t.TempDir(), "trackstats.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Duration() != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.Cache.TTL.Duration())
	}
	if !cfg.Archive.Enabled || cfg.Archive.URI != "mongodb://localhost:27017" {
		t.Errorf("archive config = %+v", cfg.Archive)
	}
	// Database keeps its default when the file does not set it.
	if cfg.Archive.Database != "trackstats" {
		t.Errorf("archive database = %q, want default", cfg.Archive.Database)
	}
	if cfg.Report.Period != "month" || cfg.Report.Lookback.Duration() != 2160*time.Hour {
		t.Errorf("report config = %+v", cfg.Report)
	}
	if len(cfg.Sources.Bugzilla.Products) != 2 || cfg.Sources.Bugzilla.APIKey != "secret" {
		t.Errorf("bugzilla config = %+v", cfg.Sources.Bugzilla)
	}
	// Unset fields keep their defaults.
	if cfg.Sources.Bugzilla.BaseURL != "https://bugzilla.mozilla.org" {
		t.Errorf("bugzilla base url = %q, want default", cfg.Sources.Bugzilla.BaseURL)
	}
	if cfg.Sources.GitHub.Owner != "example" || cfg.Sources.GitHub.Repo != "mailclient" {
		t.Errorf("github config = %+v", cfg.Sources.GitHub)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() should fail for an explicit missing path")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[cache]\nttl = \"soon\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject an unparsable duration")
	}
}
