package shadow

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// FileStore implements Store on the local filesystem, one JSON file per
// thing name. It lets a long-lived lambda keep its local shadows across
// restarts without the cloud being reachable.
// Example:
//
//	store, err := shadow.NewFileStore("file:///greengrass/shadows")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, err := store.Get(ctx, "my-thing")
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at the directory named by a
// file:// URI, creating the directory when missing.
func NewFileStore(uri string) (*FileStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("invalid file URI scheme: %s", u.Scheme)
	}

	dir := filepath.Join(u.Host, u.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shadow directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps a thing name to its document file. Thing names are restricted
// enough that escaping path separators is sufficient.
func (s *FileStore) path(thing string) string {
	safe := strings.ReplaceAll(thing, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, safe+".json")
}

// Get reads and decodes the document for thing.
func (s *FileStore) Get(ctx context.Context, thing string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(thing)
}

// Update merges patch into the stored document and writes it back.
func (s *FileStore) Update(ctx context.Context, thing string, patch Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(thing)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	merged := Merge(doc, patch)
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shadow document: %w", err)
	}
	if err := os.WriteFile(s.path(thing), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write shadow document: %w", err)
	}
	return merged, nil
}

// Delete removes the document file for thing.
func (s *FileStore) Delete(ctx context.Context, thing string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(thing)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete shadow document: %w", err)
	}
	return nil
}

// read loads a document without locking; callers hold the mutex.
func (s *FileStore) read(thing string) (Document, error) {
	data, err := os.ReadFile(s.path(thing))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read shadow document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode shadow document: %w", err)
	}
	return doc, nil
}
