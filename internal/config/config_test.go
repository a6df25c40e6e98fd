package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeAppliesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("lock-timeout"); got != "5s" {
		t.Fatalf("lock-timeout default = %q, want 5s", got)
	}
	if got := GetInt("revsdiff-concurrency"); got != 8 {
		t.Fatalf("revsdiff-concurrency default = %d, want 8", got)
	}
}

func TestEnvVarOverridesDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOCSTORE_LOCK_TIMEOUT", "30s")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("lock-timeout"); got != "30s" {
		t.Fatalf("lock-timeout = %q, want 30s", got)
	}
}

func TestWalksUpToProjectConfig(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, ".docstore")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte("root: /tmp/custom-root\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	t.Chdir(sub)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("root"); got != "/tmp/custom-root" {
		t.Fatalf("root = %q, want /tmp/custom-root", got)
	}
	if ConfigFileUsed() == "" {
		t.Fatal("ConfigFileUsed() is empty, want the discovered config path")
	}
}
