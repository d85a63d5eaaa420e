package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// DefaultFilename is the suggested save name for an export started at now.
func DefaultFilename(now time.Time, format Format) string {
	if format == "" {
		format = FormatMP4
	}
	return fmt.Sprintf("clipforge-export-%d.%s", now.UnixMilli(), format)
}

// ValidateDestination checks that dest names a file whose parent directory
// exists. The file extension must match the format.
func ValidateDestination(dest string, format Format) error {
	if strings.TrimSpace(dest) == "" {
		return ErrNoDestination
	}
	if hasTraversal(dest) {
		return fmt.Errorf("destination cannot contain path traversal")
	}
	if filepath.Clean(dest) != dest {
		return fmt.Errorf("destination must be clean path")
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return fmt.Errorf("destination is a directory")
	}
	if format != "" && !strings.EqualFold(filepath.Ext(dest), "."+string(format)) {
		return fmt.Errorf("destination must have a .%s extension", format)
	}
	return ValidateOutputDir(filepath.Dir(dest))
}

func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output_dir is required")
	}

	if hasTraversal(dir) {
		return fmt.Errorf("output_dir cannot contain path traversal")
	}

	cleaned := filepath.Clean(dir)
	if cleaned != dir {
		return fmt.Errorf("output_dir must be clean path")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output_dir does not exist")
		}
		return fmt.Errorf("invalid output_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output_dir is not a directory")
	}

	return nil
}

func hasTraversal(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
