// Package library maintains the persistent index of ingested books.
package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/ingest"
	"github.com/bookvision/bookvision/internal/types"
)

// DefaultSession is the session slot used when a caller supplies no
// session identifier.
const DefaultSession = "default"

// SortOrder controls List output ordering.
type SortOrder string

const (
	// SortNewest orders books newest-first by creation time.
	SortNewest SortOrder = "newest"
	// SortOldest orders books oldest-first by creation time.
	SortOldest SortOrder = "oldest"
	// SortTitle orders books alphabetically by title.
	SortTitle SortOrder = "title"
)

// index is the on-disk shape of library.json.
type index struct {
	Books   []types.Book      `json:"books"`
	Current map[string]string `json:"current"` // session -> book ID
}

// Store is the file-backed library index. All mutations are persisted
// to library.json before returning.
type Store struct {
	mu     sync.RWMutex
	home   *home.Dir
	logger *slog.Logger
	books  []types.Book
	// current maps a session to its loaded book. A missing entry means
	// the session has no book loaded.
	current map[string]string
}

// NewStore loads the library index from disk, creating an empty one if
// no index file exists yet.
func NewStore(homeDir *home.Dir, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		home:    homeDir,
		logger:  logger,
		books:   make([]types.Book, 0),
		current: make(map[string]string),
	}

	data, err := os.ReadFile(homeDir.LibraryFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read library index: %w", err)
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse library index: %w", err)
	}
	s.books = idx.Books
	if idx.Current != nil {
		s.current = idx.Current
	}

	// Drop current pointers to books that no longer exist.
	for session, bookID := range s.current {
		if s.findLocked(bookID) == nil {
			delete(s.current, session)
		}
	}

	logger.Debug("library loaded", "books", len(s.books))
	return s, nil
}

// persistLocked writes the index to disk. Caller must hold the write lock.
func (s *Store) persistLocked() error {
	idx := index{Books: s.books, Current: s.current}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal library index: %w", err)
	}

	path := s.home.LibraryFilePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write library index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace library index: %w", err)
	}
	return nil
}

// findLocked returns a pointer into s.books, or nil. Caller must hold a lock.
func (s *Store) findLocked(bookID string) *types.Book {
	for i := range s.books {
		if s.books[i].ID == bookID {
			return &s.books[i]
		}
	}
	return nil
}

// Add creates a new library entry and persists the index. The new book
// is prepended so List returns newest-first by default.
func (s *Store) Add(book types.Book) (types.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	if book.Status == "" {
		book.Status = types.StatusUploaded
	}

	s.books = append([]types.Book{book}, s.books...)
	if err := s.persistLocked(); err != nil {
		s.books = s.books[1:]
		return types.Book{}, err
	}

	s.logger.Info("book added", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// Get returns a book by ID.
func (s *Store) Get(bookID string) (types.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b := s.findLocked(bookID); b != nil {
		return *b, nil
	}
	return types.Book{}, &types.NotFoundError{Resource: "book", ID: bookID}
}

// Update replaces an existing book record and persists the index.
func (s *Store) Update(book types.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.findLocked(book.ID)
	if b == nil {
		return &types.NotFoundError{Resource: "book", ID: book.ID}
	}
	*b = book
	return s.persistLocked()
}

// List returns all books in the requested order. Unrecognized orders
// fall back to newest-first.
func (s *Store) List(order SortOrder) []types.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Book, len(s.books))
	copy(out, s.books)

	switch order {
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// Delete removes a book and all of its on-disk data: the original
// upload, derived analysis, and generated media. Sessions pointing at
// the deleted book are cleared.
func (s *Store) Delete(bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.findLocked(bookID)
	if b == nil {
		return &types.NotFoundError{Resource: "book", ID: bookID}
	}

	for _, dir := range []string{s.home.BookDir(bookID), s.home.MediaDir(bookID)} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	if b.Filename != "" {
		if err := os.Remove(s.home.UploadPath(b.Filename)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove upload: %w", err)
		}
	}

	books := make([]types.Book, 0, len(s.books)-1)
	for _, bk := range s.books {
		if bk.ID != bookID {
			books = append(books, bk)
		}
	}
	s.books = books

	for session, id := range s.current {
		if id == bookID {
			delete(s.current, session)
		}
	}

	if err := s.persistLocked(); err != nil {
		return err
	}

	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// SetCurrent marks a book as the loaded book for a session.
func (s *Store) SetCurrent(session, bookID string) error {
	if session == "" {
		session = DefaultSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(bookID) == nil {
		return &types.NotFoundError{Resource: "book", ID: bookID}
	}
	s.current[session] = bookID
	return s.persistLocked()
}

// Current returns the loaded book for a session, or NotFoundError if
// the session has none.
func (s *Store) Current(session string) (types.Book, error) {
	if session == "" {
		session = DefaultSession
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bookID, ok := s.current[session]
	if !ok {
		return types.Book{}, &types.NotFoundError{Resource: "book", ID: "current:" + session}
	}
	if b := s.findLocked(bookID); b != nil {
		return *b, nil
	}
	return types.Book{}, &types.NotFoundError{Resource: "book", ID: bookID}
}

// ScanAndBackfill walks the uploads directory and creates library
// entries for supported files that are not yet indexed. Returns the
// number of entries created.
func (s *Store) ScanAndBackfill() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.home.UploadsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	known := make(map[string]bool, len(s.books))
	for _, b := range s.books {
		known[b.Filename] = true
	}

	added := 0
	for _, e := range entries {
		if e.IsDir() || !ingest.Supported(e.Name()) || known[e.Name()] {
			continue
		}

		book := types.Book{
			ID:        uuid.New().String(),
			Title:     deriveTitle(e.Name()),
			Filename:  e.Name(),
			Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), "."),
			Status:    types.StatusUploaded,
			CreatedAt: time.Now().UTC(),
		}
		s.books = append([]types.Book{book}, s.books...)
		added++
		s.logger.Info("backfilled book", "book_id", book.ID, "file", e.Name())
	}

	if added > 0 {
		if err := s.persistLocked(); err != nil {
			return 0, err
		}
	}
	return added, nil
}

// deriveTitle extracts a display title from an uploaded filename.
// e.g. "treasure-island.pdf" -> "treasure island"
func deriveTitle(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}
