package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dohr-michael/dayplan/internal/config"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestSetEnv_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".env")

	if err := SetEnv(path, "GEMINI_API_KEY", "secret123"); err != nil {
		t.Fatalf("SetEnv: %v", err)
	}
	if got := readFile(t, path); got != "GEMINI_API_KEY=secret123\n" {
		t.Errorf("file = %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}
}

func TestSetEnv_ReplacesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	initial := "# comment\nexport FOO=bar\n\nBAZ=qux\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := SetEnv(path, "FOO", "updated"); err != nil {
		t.Fatalf("SetEnv: %v", err)
	}
	if err := SetEnv(path, "NEW", "v"); err != nil {
		t.Fatalf("SetEnv: %v", err)
	}

	want := "# comment\nFOO=updated\n\nBAZ=qux\nNEW=v\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestUnsetEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("A=1\nB=2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := UnsetEnv(path, "A"); err != nil {
		t.Fatalf("UnsetEnv: %v", err)
	}
	if err := UnsetEnv(path, "MISSING"); err != nil {
		t.Fatalf("UnsetEnv missing: %v", err)
	}
	if got := readFile(t, path); got != "B=2\n" {
		t.Errorf("file = %q", got)
	}
}

func TestSetEnv_RejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := SetEnv(path, "BAD KEY", "v"); err == nil {
		t.Error("key with space accepted")
	}
	if err := SetEnv(path, "K", "a\nb"); err == nil {
		t.Error("multi-line value accepted")
	}
}

// Values written by SetEnv read back verbatim through the config loader.
func TestSetEnv_ReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	k := newKeyring(t)
	sealed, err := k.Seal("AIza-key")
	if err != nil {
		t.Fatal(err)
	}

	values := map[string]string{
		"DAYPLAN_T_SPACES": "value with spaces",
		"DAYPLAN_T_QUOTE":  "it's # here",
		"DAYPLAN_T_SEALED": sealed,
	}
	for key, v := range values {
		if err := SetEnv(path, key, v); err != nil {
			t.Fatalf("SetEnv(%s): %v", key, err)
		}
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	if !strings.Contains(readFile(t, path), "DAYPLAN_T_SPACES='value with spaces'") {
		t.Errorf("spaces not quoted:\n%s", readFile(t, path))
	}

	if err := config.LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	for key, want := range values {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if got, err := k.Reveal(os.Getenv("DAYPLAN_T_SEALED")); err != nil || got != "AIza-key" {
		t.Errorf("Reveal = %q, %v", got, err)
	}
}
