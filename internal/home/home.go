package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the bookvision home directory.
	DefaultDirName = ".bookvision"

	// LibraryDirName is the subdirectory holding the library index.
	LibraryDirName = "library"

	// UploadsDirName is the subdirectory holding original uploaded files.
	UploadsDirName = "uploads"

	// BooksDirName is the subdirectory holding per-book derived data.
	BooksDirName = "books"

	// MediaDirName is the subdirectory holding generated media assets.
	MediaDirName = "media"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// LibraryFileName is the library index file name.
	LibraryFileName = "library.json"
)

// Dir represents the bookvision home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.bookvision).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// LibraryDir returns the library index directory.
func (d *Dir) LibraryDir() string {
	return filepath.Join(d.path, LibraryDirName)
}

// LibraryFilePath returns the path to the library index file.
func (d *Dir) LibraryFilePath() string {
	return filepath.Join(d.LibraryDir(), LibraryFileName)
}

// UploadsDir returns the directory holding original uploaded files.
func (d *Dir) UploadsDir() string {
	return filepath.Join(d.path, UploadsDirName)
}

// UploadPath returns the stored path for an uploaded file.
func (d *Dir) UploadPath(filename string) string {
	return filepath.Join(d.UploadsDir(), filepath.Base(filename))
}

// BookDir returns the derived-data directory for a book.
func (d *Dir) BookDir(bookID string) string {
	return filepath.Join(d.path, BooksDirName, bookID)
}

// AnalysisPath returns the path to a book's persisted analysis.
func (d *Dir) AnalysisPath(bookID string) string {
	return filepath.Join(d.BookDir(bookID), "analysis.json")
}

// MediaDir returns the generated-media directory for a book.
func (d *Dir) MediaDir(bookID string) string {
	return filepath.Join(d.path, MediaDirName, bookID)
}

// MediaPath returns the path for a named media asset of a book.
func (d *Dir) MediaPath(bookID, name string) string {
	return filepath.Join(d.MediaDir(bookID), filepath.Base(name))
}

// NarrationPath returns the path for a narration audio artifact.
func (d *Dir) NarrationPath(bookID string, generation int, format string) string {
	return d.MediaPath(bookID, fmt.Sprintf("narration_%03d.%s", generation, format))
}

// CoverImagePath returns the path for the title/cover image of a visuals run.
func (d *Dir) CoverImagePath(bookID, style string) string {
	return d.MediaPath(bookID, fmt.Sprintf("image_00_title_%s.jpg", sanitizeName(style)))
}

// SceneImagePath returns the path for a scene image. Scene indexes are 1-based
// (index 0 is the cover).
func (d *Dir) SceneImagePath(bookID string, sceneIdx int) string {
	return d.MediaPath(bookID, fmt.Sprintf("image_01_scene_%02d.jpg", sceneIdx))
}

// EntityImagePath returns the path for an entity portrait.
func (d *Dir) EntityImagePath(bookID, entityName string) string {
	return d.MediaPath(bookID, fmt.Sprintf("image_02_entity_%s.jpg", sanitizeName(entityName)))
}

// PodcastSegmentPath returns the path for a podcast segment audio file.
func (d *Dir) PodcastSegmentPath(bookID string, segmentIdx int, speaker, format string) string {
	return d.MediaPath(bookID, fmt.Sprintf("podcast_seg_%03d_%s.%s", segmentIdx, sanitizeName(speaker), format))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.LibraryDir(), d.UploadsDir(), filepath.Join(d.path, BooksDirName), filepath.Join(d.path, MediaDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureBookDirs creates the per-book derived-data and media directories.
func (d *Dir) EnsureBookDirs(bookID string) error {
	if err := os.MkdirAll(d.BookDir(bookID), 0o755); err != nil {
		return fmt.Errorf("failed to create book directory: %w", err)
	}
	if err := os.MkdirAll(d.MediaDir(bookID), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// sanitizeName makes a string safe for use inside a filename.
func sanitizeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '-' || r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unnamed"
	}
	return string(out)
}
