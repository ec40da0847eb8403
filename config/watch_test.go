package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_DeliversReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  default:\n    model: gpt-3.5-turbo\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	w, err := Watch(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("profiles:\n  default:\n    model: gpt-4o\n"), 0o644); err != nil {
		t.Fatalf("rewriting profiles: %v", err)
	}

	select {
	case cfg, ok := <-w.Changes():
		if !ok {
			t.Fatal("changes channel closed unexpectedly")
		}
		if got := cfg.Profile("default").Model; got != "gpt-4o" {
			t.Fatalf("expected reloaded model gpt-4o, got %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles: {}\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	w, err := Watch(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing unrelated file: %v", err)
	}

	select {
	case <-w.Changes():
		t.Fatal("unrelated file change must not trigger a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
