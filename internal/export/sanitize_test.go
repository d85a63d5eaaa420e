package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if strings.ContainsAny(got, "\n\r\t\x00") {
		t.Fatalf("sanitize output contains control chars: %q", got)
	}
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("bad<>|\"name", 100)
	if got != "bad____name" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestDefaultFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := DefaultFilename(now, FormatMP4); got != "clipforge-export-1700000000123.mp4" {
		t.Fatalf("DefaultFilename() = %q", got)
	}
	if got := DefaultFilename(now, FormatEDL); !strings.HasSuffix(got, ".edl") {
		t.Fatalf("DefaultFilename(edl) = %q", got)
	}
}

func TestValidateDestination(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		dest    string
		format  Format
		wantErr bool
	}{
		{name: "valid", dest: filepath.Join(dir, "out.mp4"), format: FormatMP4},
		{name: "extension case", dest: filepath.Join(dir, "out.MP4"), format: FormatMP4},
		{name: "wrong extension", dest: filepath.Join(dir, "out.mov"), format: FormatMP4, wantErr: true},
		{name: "missing parent", dest: filepath.Join(dir, "missing", "out.mp4"), format: FormatMP4, wantErr: true},
		{name: "directory", dest: dir, format: "", wantErr: true},
		{name: "traversal", dest: "/tmp/../etc/out.mp4", format: FormatMP4, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDestination(tc.dest, tc.format)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateDestination(%q) error = %v, wantErr %v", tc.dest, err, tc.wantErr)
			}
		})
	}
}

func TestValidateDestination_Empty(t *testing.T) {
	if err := ValidateDestination("  ", FormatMP4); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("error = %v, want ErrNoDestination", err)
	}
}

func TestValidateOutputDir_NotADir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if err := ValidateOutputDir(filePath); err == nil {
		t.Fatalf("ValidateOutputDir(%q) expected non-directory error", filePath)
	}
}
