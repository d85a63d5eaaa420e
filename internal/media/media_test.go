package media

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipforge/clipforge-agent/internal/timeline"
)

func TestParseByteRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantFirst int64
		wantLast  int64
		wantNil   bool
		wantErr   error
	}{
		{"no header", "", 1000, 0, 0, true, nil},
		{"whole file", "bytes=0-999", 1000, 0, 999, false, nil},
		{"open ended", "bytes=500-", 1000, 500, 999, false, nil},
		{"suffix", "bytes=-500", 1000, 500, 999, false, nil},
		{"single byte", "bytes=0-0", 1000, 0, 0, false, nil},
		{"end clamped", "bytes=0-2000", 1000, 0, 999, false, nil},
		{"suffix longer than file", "bytes=-2000", 500, 0, 499, false, nil},
		{"first of many", "bytes=0-99, 200-299", 1000, 0, 99, false, nil},

		{"start at size", "bytes=1000-", 1000, 0, 0, false, ErrRangeOutside},
		{"past end", "bytes=1500-2000", 1000, 0, 0, false, ErrRangeOutside},
		{"reversed", "bytes=200-100", 1000, 0, 0, false, ErrRangeOutside},
		{"no unit", "0-100", 1000, 0, 0, false, ErrMalformedRange},
		{"wrong unit", "frames=0-100", 1000, 0, 0, false, ErrMalformedRange},
		{"no dash", "bytes=100", 1000, 0, 0, false, ErrMalformedRange},
		{"bad start", "bytes=x-100", 1000, 0, 0, false, ErrMalformedRange},
		{"bad end", "bytes=0-y", 1000, 0, 0, false, ErrMalformedRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, false, ErrMalformedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteRange(tt.header, tt.size)
			if err != tt.wantErr {
				t.Fatalf("ParseByteRange() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseByteRange() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ParseByteRange() = nil")
			}
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("ParseByteRange() = {%d, %d}, want {%d, %d}", got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestByteRange_Headers(t *testing.T) {
	br := ByteRange{First: 500, Last: 999}
	if got := br.Length(); got != 500 {
		t.Errorf("Length() = %d, want 500", got)
	}
	if got := br.ContentRange(1000); got != "bytes 500-999/1000" {
		t.Errorf("ContentRange() = %q", got)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"/a/clip.mp4":  "video/mp4",
		"/a/clip.MOV":  "video/quicktime",
		"/a/clip.webm": "video/webm",
		"/a/clip":      "application/octet-stream",
	}
	for path, want := range tests {
		if got := ContentType(path); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", path, got, want)
		}
	}
}

func writeMedia(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestServer_ServeClip(t *testing.T) {
	path := writeMedia(t, "clip.mp4", "0123456789")
	clip := timeline.Clip{ID: "c1", PlayablePath: path}
	srv := NewServer(nil)

	tests := []struct {
		name      string
		method    string
		rangeHdr  string
		wantCode  int
		wantBody  string
		wantRange string
	}{
		{"full", http.MethodGet, "", http.StatusOK, "0123456789", ""},
		{"partial", http.MethodGet, "bytes=2-5", http.StatusPartialContent, "2345", "bytes 2-5/10"},
		{"suffix", http.MethodGet, "bytes=-3", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"malformed falls back", http.MethodGet, "bytes=abc", http.StatusOK, "0123456789", ""},
		{"unsatisfiable", http.MethodGet, "bytes=20-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
		{"head", http.MethodHead, "bytes=0-4", http.StatusPartialContent, "", "bytes 0-4/10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/media/c1", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := httptest.NewRecorder()

			if err := srv.ServeClip(rec, req, clip); err != nil {
				t.Fatalf("ServeClip() error = %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if tt.wantCode != http.StatusRequestedRangeNotSatisfiable {
				if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
					t.Errorf("Content-Type = %q, want video/mp4", got)
				}
			}
		})
	}
}

func TestServer_ServeClipRejects(t *testing.T) {
	srv := NewServer(nil)

	rec := httptest.NewRecorder()
	err := srv.ServeClip(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		timeline.Clip{ID: "c1", PlayablePath: writeMedia(t, "notes.txt", "hello")})
	if err != nil {
		t.Fatalf("ServeClip() error = %v", err)
	}
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}

	rec = httptest.NewRecorder()
	missing := filepath.Join(t.TempDir(), "gone.mp4")
	if err := srv.ServeClip(rec, httptest.NewRequest(http.MethodGet, "/", nil), timeline.Clip{PlayablePath: missing}); err != nil {
		t.Fatalf("ServeClip() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not found") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
