package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("SCHEDULE_TICK", "")
	t.Setenv("HERO_DENYLIST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TickInterval != 20*time.Second {
		t.Errorf("expected 20s tick, got %v", cfg.TickInterval)
	}
	if cfg.SlotSpacing != 15*time.Minute {
		t.Errorf("expected 15m spacing, got %v", cfg.SlotSpacing)
	}
	if cfg.HeroMinWidth != 200 || cfg.HeroMinHeight != 150 || cfg.HeroProximityBand != 800 {
		t.Errorf("unexpected hero defaults: %v %v %v", cfg.HeroMinWidth, cfg.HeroMinHeight, cfg.HeroProximityBand)
	}
	if len(cfg.HeroDenylist) != 6 {
		t.Errorf("expected 6 denylist entries, got %v", cfg.HeroDenylist)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("HERO_DENYLIST", "sprite, badge")
	t.Setenv("HERO_PROXIMITY_BAND", "600")
	t.Setenv("SCHEDULE_MATCH", "due")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.HeroDenylist) != 2 || cfg.HeroDenylist[1] != "badge" {
		t.Errorf("unexpected denylist %v", cfg.HeroDenylist)
	}
	if cfg.HeroProximityBand != 600 {
		t.Errorf("expected band 600, got %v", cfg.HeroProximityBand)
	}
	if cfg.MatchMode != "due" {
		t.Errorf("expected due match mode, got %q", cfg.MatchMode)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := "sources:\n  - url: https://a.example/rss\n    active: true\n  - id: b\n    name: B\n    url: https://b.example/rss\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].ID != "seed-1" || sources[0].Name != "https://a.example/rss" || !sources[0].Active {
		t.Errorf("unexpected first source %+v", sources[0])
	}
	if sources[1].Active {
		t.Error("second source should default to inactive")
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || sources != nil {
		t.Fatalf("expected nil, nil for missing file, got %v, %v", sources, err)
	}
}
