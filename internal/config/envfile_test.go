package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileRespectsExistingValues(t *testing.T) {
	tmp := t.TempDir()
	envPath := filepath.Join(tmp, "env")
	content := `
# comment
export MC_TEST_FOO=bar
MC_TEST_QUOTED="hello world"
MC_TEST_SINGLE='x y'
`
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("MC_TEST_FOO", "existing")
	t.Setenv("MC_TEST_QUOTED", "")
	os.Unsetenv("MC_TEST_QUOTED")
	t.Setenv("MC_TEST_SINGLE", "")
	os.Unsetenv("MC_TEST_SINGLE")

	if err := loadEnvFile(envPath); err != nil {
		t.Fatalf("load env file: %v", err)
	}

	if got := os.Getenv("MC_TEST_FOO"); got != "existing" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
	if got := os.Getenv("MC_TEST_QUOTED"); got != "hello world" {
		t.Fatalf("expected quoted value, got %q", got)
	}
	if got := os.Getenv("MC_TEST_SINGLE"); got != "x y" {
		t.Fatalf("expected single-quoted value, got %q", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvFileCandidatesUsesExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	envPath := filepath.Join(tmp, "arena.env")
	if err := os.WriteFile(envPath, []byte("MC_TEST_EXPLICIT=yes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOLTCOURT_ENV_FILE", envPath)
	t.Setenv("MC_TEST_EXPLICIT", "")
	os.Unsetenv("MC_TEST_EXPLICIT")

	LoadEnvFileCandidates()

	if got := os.Getenv("MC_TEST_EXPLICIT"); got != "yes" {
		t.Fatalf("expected value from explicit env file, got %q", got)
	}
}
