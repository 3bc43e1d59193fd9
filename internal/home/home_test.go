package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-bookvision")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-bookvision" {
			t.Errorf("expected path /tmp/test-bookvision, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-bookvision")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-bookvision/config.yaml"},
		{"LibraryFilePath", dir.LibraryFilePath(), "/tmp/test-bookvision/library/library.json"},
		{"UploadPath", dir.UploadPath("book.pdf"), "/tmp/test-bookvision/uploads/book.pdf"},
		{"UploadPath strips directories", dir.UploadPath("../evil/book.pdf"), "/tmp/test-bookvision/uploads/book.pdf"},
		{"AnalysisPath", dir.AnalysisPath("abc"), "/tmp/test-bookvision/books/abc/analysis.json"},
		{"NarrationPath", dir.NarrationPath("abc", 2, "mp3"), "/tmp/test-bookvision/media/abc/narration_002.mp3"},
		{"CoverImagePath", dir.CoverImagePath("abc", "storybook"), "/tmp/test-bookvision/media/abc/image_00_title_storybook.jpg"},
		{"SceneImagePath", dir.SceneImagePath("abc", 3), "/tmp/test-bookvision/media/abc/image_01_scene_03.jpg"},
		{"EntityImagePath", dir.EntityImagePath("abc", "Long John Silver"), "/tmp/test-bookvision/media/abc/image_02_entity_Long_John_Silver.jpg"},
		{"PodcastSegmentPath", dir.PodcastSegmentPath("abc", 7, "Jax", "mp3"), "/tmp/test-bookvision/media/abc/podcast_seg_007_Jax.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "bookvision-test")

	dir, err := New(homeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, sub := range []string{dir.LibraryDir(), dir.UploadsDir()} {
		if _, err := os.Stat(sub); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", sub)
		}
	}
}

func TestDir_EnsureBookDirs(t *testing.T) {
	dir, _ := New(t.TempDir())
	if err := dir.EnsureBookDirs("book-1"); err != nil {
		t.Fatalf("EnsureBookDirs failed: %v", err)
	}
	if _, err := os.Stat(dir.MediaDir("book-1")); os.IsNotExist(err) {
		t.Error("media dir should exist after EnsureBookDirs")
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Long John Silver", "Long_John_Silver"},
		{"storybook", "storybook"},
		{"we/ird\\chars!", "weirdchars"},
		{"", "unnamed"},
	}

	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
