package ingest

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bookvision/bookvision/internal/types"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"book.pdf", true},
		{"book.epub", true},
		{"notes.txt", true},
		{"BOOK.PDF", true},
		{"book.docx", false},
		{"book", false},
	}

	for _, tt := range tests {
		if got := Supported(tt.filename); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestExtractTXT(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "book.txt")
	content := "Chapter One\r\n\r\n\r\nIt was a dark and stormy night.  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Extract(path, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "Chapter One\n\nIt was a dark and stormy night."
	if res.Text != want {
		t.Errorf("Extract() text = %q, want %q", res.Text, want)
	}
	if res.Format != "txt" {
		t.Errorf("Extract() format = %q, want txt", res.Format)
	}
	if res.CharCount != len(want) {
		t.Errorf("Extract() char count = %d, want %d", res.CharCount, len(want))
	}
}

func TestExtractEPUB(t *testing.T) {
	path := writeTestEPUB(t)

	res, err := Extract(path, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Format != "epub" {
		t.Errorf("Extract() format = %q, want epub", res.Format)
	}
	if !strings.Contains(res.Text, "Call me Ishmael.") {
		t.Errorf("chapter one text missing from %q", res.Text)
	}
	if !strings.Contains(res.Text, "The Carpet-Bag") {
		t.Errorf("chapter two text missing from %q", res.Text)
	}
	// Spine order must be preserved.
	if strings.Index(res.Text, "Call me Ishmael.") > strings.Index(res.Text, "The Carpet-Bag") {
		t.Error("chapters extracted out of spine order")
	}
	if strings.Contains(res.Text, "<") {
		t.Errorf("markup leaked into extracted text: %q", res.Text)
	}
}

func TestExtractErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Extract("/nonexistent/book.txt", nil)
		var ingErr *types.IngestionError
		if !errors.As(err, &ingErr) {
			t.Fatalf("Extract() error = %T, want *types.IngestionError", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "book.docx")
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Extract(path, nil)
		var ingErr *types.IngestionError
		if !errors.As(err, &ingErr) {
			t.Fatalf("Extract() error = %T, want *types.IngestionError", err)
		}
	})

	t.Run("empty text file", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "empty.txt")
		if err := os.WriteFile(path, []byte("   \n\n  "), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Extract(path, nil)
		if err == nil {
			t.Fatal("Extract() error = nil for whitespace-only file, want error")
		}
	})

	t.Run("corrupt epub", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "bad.epub")
		if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Extract(path, nil)
		var ingErr *types.IngestionError
		if !errors.As(err, &ingErr) {
			t.Fatalf("Extract() error = %T, want *types.IngestionError", err)
		}
	})
}

func TestStripMarkup(t *testing.T) {
	in := `<html><body><h1>Title</h1><p>First &amp; second.</p><p>Third.</p></body></html>`
	got := stripMarkup([]byte(in))

	if !strings.Contains(got, "First & second.") {
		t.Errorf("entity not decoded: %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Errorf("tags not stripped: %q", got)
	}
	if !strings.Contains(got, "First & second.\nThird.") {
		t.Errorf("paragraph break not preserved: %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"windows line endings", "a\r\nb", "a\nb"},
		{"squeezes blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"trims line whitespace", "  a  \n  b  ", "a\nb"},
		{"trims surrounding blanks", "\n\na\n\n", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.in); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// writeTestEPUB builds a minimal two-chapter EPUB fixture.
func writeTestEPUB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Moby Dick</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"OEBPS/ch1.xhtml": `<html><body><h1>Loomings</h1><p>Call me Ishmael.</p></body></html>`,
		"OEBPS/ch2.xhtml": `<html><body><h1>The Carpet-Bag</h1><p>I stuffed a shirt or two.</p></body></html>`,
	}

	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
