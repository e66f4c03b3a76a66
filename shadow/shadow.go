// Package shadow implements thing-shadow document storage and merge
// semantics. A shadow is a JSON document per thing name; updates replace
// only the keys present in the patch, recursively for nested objects, and a
// null value removes its key, mirroring the shadow service's documented
// merge behavior.
package shadow

import (
	"context"
	"fmt"
	"sync"
)

// Document is a decoded shadow document.
type Document map[string]any

// ErrNotFound is returned when no shadow document exists for a thing name.
var ErrNotFound = fmt.Errorf("shadow document not found")

// Store persists shadow documents keyed by thing name.
type Store interface {
	// Get returns the current document for thing, or ErrNotFound.
	Get(ctx context.Context, thing string) (Document, error)
	// Update merges patch into the document for thing, creating it when
	// absent, and returns the merged result.
	Update(ctx context.Context, thing string, patch Document) (Document, error)
	// Delete removes the document for thing, or returns ErrNotFound.
	Delete(ctx context.Context, thing string) error
}

// Merge applies patch onto doc and returns the result. Neither input is
// modified. Keys absent from the patch are kept; object values merge
// recursively; any other value replaces the existing one; explicit nulls
// remove their key.
func Merge(doc, patch Document) Document {
	merged := make(Document, len(doc)+len(patch))
	for k, v := range doc {
		merged[k] = copyValue(v)
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		patchObj, patchIsObj := v.(map[string]any)
		baseObj, baseIsObj := merged[k].(map[string]any)
		if patchIsObj && baseIsObj {
			merged[k] = map[string]any(Merge(baseObj, patchObj))
			continue
		}
		merged[k] = copyValue(v)
	}
	return merged
}

// copyValue deep-copies the JSON value shapes a decoded document can hold.
func copyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// MemoryStore implements Store using process memory. It is the store the
// mock backend uses, and the one tests should reach for.
type MemoryStore struct {
	docs map[string]Document
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

// Get returns a copy of the stored document so callers can never alias
// internal state.
func (s *MemoryStore) Get(ctx context.Context, thing string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[thing]
	if !ok {
		return nil, ErrNotFound
	}
	return Merge(doc, nil), nil
}

// Update merges patch into the stored document and returns the result.
func (s *MemoryStore) Update(ctx context.Context, thing string, patch Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := Merge(s.docs[thing], patch)
	s.docs[thing] = merged
	return Merge(merged, nil), nil
}

// Delete removes the document for thing.
func (s *MemoryStore) Delete(ctx context.Context, thing string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[thing]; !ok {
		return ErrNotFound
	}
	delete(s.docs, thing)
	return nil
}
