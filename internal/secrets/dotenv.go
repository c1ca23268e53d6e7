package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetEnv writes KEY=value into the .env file at path, replacing the
// existing assignment in place or appending a new one. Comments, blank
// lines and order are preserved.
func SetEnv(path, key, value string) error {
	if key == "" || strings.ContainsAny(key, "= \t") {
		return fmt.Errorf("invalid env key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("env value for %s spans lines", key)
	}

	lines, err := readLines(path)
	if err != nil {
		return fmt.Errorf("read dotenv: %w", err)
	}

	entry := key + "=" + quoteValue(value)
	if i := findKey(lines, key); i >= 0 {
		lines[i] = entry
	} else {
		lines = append(lines, entry)
	}
	return writeLines(path, lines)
}

// UnsetEnv removes key from the .env file. A missing key is not an error.
func UnsetEnv(path, key string) error {
	lines, err := readLines(path)
	if err != nil {
		return fmt.Errorf("read dotenv: %w", err)
	}
	i := findKey(lines, key)
	if i < 0 {
		return nil
	}
	return writeLines(path, append(lines[:i], lines[i+1:]...))
}

func findKey(lines []string, key string) int {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "export ")
		k, _, ok := strings.Cut(trimmed, "=")
		if ok && strings.TrimSpace(k) == key {
			return i
		}
	}
	return -1
}

// readLines returns nil for a missing file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create dotenv dir: %w", err)
	}
	content := strings.Join(lines, "\n") + "\n"
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write dotenv: %w", err)
	}
	return os.Rename(tmp, path)
}

// quoteValue quotes v when the dotenv reader would otherwise trim or
// misread it. The reader strips one pair of quotes and never unescapes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, " \t\"'#") {
		return v
	}
	if strings.Contains(v, "'") {
		return `"` + v + `"`
	}
	return "'" + v + "'"
}
