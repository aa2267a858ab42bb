// Package utils provides shared helper functions.
package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// EnsureDir ensures a directory exists, creating it if necessary.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// DataPath returns the wassist data directory (~/.wassist).
func DataPath() string {
	home, _ := os.UserHomeDir()
	p := filepath.Join(home, ".wassist")
	os.MkdirAll(p, 0755)
	return p
}

// LogsPath returns the interaction logs directory under dataDir.
func LogsPath(dataDir string) string {
	p := filepath.Join(dataDir, "logs")
	os.MkdirAll(p, 0755)
	return p
}

// Timestamp returns the current time as an ISO 8601 string.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// TruncateString truncates a string to maxLen runes, adding suffix if truncated.
func TruncateString(s string, maxLen int, suffix string) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if suffix == "" {
		suffix = "..."
	}
	cutoff := maxLen - len([]rune(suffix))
	if cutoff < 0 {
		cutoff = 0
	}
	return string(r[:cutoff]) + suffix
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// SafeFilename sanitizes a string for use as a file or directory name.
// Chat ids like "15551234567@c.us" become "15551234567_c.us".
func SafeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "unnamed_chat"
	}
	return name
}
