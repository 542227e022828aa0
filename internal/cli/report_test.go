package cli

import (
	"io"
	"testing"
	"time"

	"github.com/trackstats/trackstats/pkg/config"
	"github.com/trackstats/trackstats/pkg/period"
)

func TestBuildOptionsDefaults(t *testing.T) {
	cfg := config.Default()
	opts, err := buildOptions(cfg, &reportFlags{})
	if err != nil {
		t.Fatalf("buildOptions() error: %v", err)
	}

	if opts.Granularity != period.Week {
		t.Errorf("Granularity = %v, want %v", opts.Granularity, period.Week)
	}
	if opts.Top != 20 {
		t.Errorf("Top = %d, want 20", opts.Top)
	}
	if opts.Start.IsZero() {
		t.Error("Start should be derived from the configured lookback")
	}
}

func TestBuildOptionsFlagOverrides(t *testing.T) {
	cfg := config.Default()
	f := &reportFlags{
		periodName: "month",
		start:      "2024-01-01",
		end:        "2024-06-01",
		top:        5,
		charts:     true,
		refresh:    true,
	}

	opts, err := buildOptions(cfg, f)
	if err != nil {
		t.Fatalf("buildOptions() error: %v", err)
	}

	if opts.Granularity != period.Month {
		t.Errorf("Granularity = %v, want %v", opts.Granularity, period.Month)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !opts.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", opts.Start, want)
	}
	if want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC); !opts.End.Equal(want) {
		t.Errorf("End = %v, want %v", opts.End, want)
	}
	if opts.Top != 5 {
		t.Errorf("Top = %d, want 5", opts.Top)
	}
	if !opts.Charts || !opts.Refresh {
		t.Error("Charts and Refresh flags should carry over")
	}
}

func TestBuildOptionsRejectsBadInput(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name string
		f    reportFlags
	}{
		{name: "bad period", f: reportFlags{periodName: "fortnight"}},
		{name: "bad start", f: reportFlags{start: "yesterday"}},
		{name: "bad end", f: reportFlags{end: "01/02/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildOptions(cfg, &tt.f); err == nil {
				t.Error("buildOptions() should fail")
			}
		})
	}
}

func TestResolveCacheDirPrefersConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = "/tmp/trackstats-cache"

	dir, err := resolveCacheDir(cfg)
	if err != nil {
		t.Fatalf("resolveCacheDir() error: %v", err)
	}
	if dir != "/tmp/trackstats-cache" {
		t.Errorf("resolveCacheDir() = %q, want configured dir", dir)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	for _, name := range []string{"report", "runs", "serve", "cache", "completion"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}
