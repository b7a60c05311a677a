package config

import (
	"path/filepath"
	"testing"
)

func TestLoadRuntimeFlagsDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("LOCAL_SQLITE_PATH", "")

	flags := LoadRuntimeFlags()
	if flags.Mode != ModeOnline {
		t.Fatalf("unexpected default mode: %q", flags.Mode)
	}
	if flags.Port != "8787" {
		t.Fatalf("unexpected default port: %q", flags.Port)
	}
	if !filepath.IsAbs(flags.Local.DBPath) {
		t.Fatalf("sqlite path should be absolute: %q", flags.Local.DBPath)
	}
}

func TestLoadRuntimeFlagsLocalMode(t *testing.T) {
	t.Setenv("APP_MODE", " Local ")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOCAL_SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))

	flags := LoadRuntimeFlags()
	if flags.Mode != ModeLocal {
		t.Fatalf("mode should be lowercased and trimmed: %q", flags.Mode)
	}
	if flags.Port != "9000" {
		t.Fatalf("unexpected port: %q", flags.Port)
	}
}

func TestNormalisePathRelative(t *testing.T) {
	got := normalisePath("data/app.db")
	if !filepath.IsAbs(got) {
		t.Fatalf("relative path should be expanded: %q", got)
	}
}
