package shadow

import (
	"context"
	"errors"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

// mustDecode turns a JSON literal into a Document for table entries.
func mustDecode(t *testing.T, data string) Document {
	t.Helper()
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("failed to decode test document %s: %v", data, err)
	}
	return doc
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		patch string
		want  string
	}{
		{
			name:  "nested objects merge recursively",
			doc:   `{"a":1,"b":{"x":1}}`,
			patch: `{"b":{"y":2}}`,
			want:  `{"a":1,"b":{"x":1,"y":2}}`,
		},
		{
			name:  "null removes key",
			doc:   `{"a":1,"b":2}`,
			patch: `{"a":null}`,
			want:  `{"b":2}`,
		},
		{
			name:  "null removes nested key",
			doc:   `{"a":{"x":1,"y":2}}`,
			patch: `{"a":{"x":null}}`,
			want:  `{"a":{"y":2}}`,
		},
		{
			name:  "scalar replaces object",
			doc:   `{"a":{"x":1}}`,
			patch: `{"a":7}`,
			want:  `{"a":7}`,
		},
		{
			name:  "object replaces scalar",
			doc:   `{"a":7}`,
			patch: `{"a":{"x":1}}`,
			want:  `{"a":{"x":1}}`,
		},
		{
			name:  "array replaces wholesale",
			doc:   `{"a":[1,2,3]}`,
			patch: `{"a":[9]}`,
			want:  `{"a":[9]}`,
		},
		{
			name:  "empty patch keeps document",
			doc:   `{"a":1}`,
			patch: `{}`,
			want:  `{"a":1}`,
		},
		{
			name:  "patch onto empty document",
			doc:   `{}`,
			patch: `{"a":{"b":true}}`,
			want:  `{"a":{"b":true}}`,
		},
		{
			name:  "null for absent key is a no-op",
			doc:   `{"a":1}`,
			patch: `{"missing":null}`,
			want:  `{"a":1}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(mustDecode(t, tc.doc), mustDecode(t, tc.patch))
			want := mustDecode(t, tc.want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("merge result: got %v, want %v", got, want)
			}
		})
	}
}

func TestMerge_InputsUntouched(t *testing.T) {
	doc := mustDecode(t, `{"a":{"x":1}}`)
	patch := mustDecode(t, `{"a":{"y":2},"b":3}`)

	merged := Merge(doc, patch)
	merged["b"] = 99
	merged["a"].(map[string]any)["x"] = 99.0

	if got := doc["a"].(map[string]any)["x"]; got != 1.0 {
		t.Errorf("source document mutated: got %v, want 1", got)
	}
	if got := patch["b"]; got != 3.0 {
		t.Errorf("patch mutated: got %v, want 3", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "thing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get before update: got %v, want %v", err, ErrNotFound)
	}

	merged, err := store.Update(ctx, "thing-1", mustDecode(t, `{"a":1,"b":{"x":1}}`))
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if want := mustDecode(t, `{"a":1,"b":{"x":1}}`); !reflect.DeepEqual(merged, want) {
		t.Errorf("first update result: got %v, want %v", merged, want)
	}

	merged, err = store.Update(ctx, "thing-1", mustDecode(t, `{"b":{"y":2}}`))
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	want := mustDecode(t, `{"a":1,"b":{"x":1,"y":2}}`)
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("second update result: got %v, want %v", merged, want)
	}

	got, err := store.Get(ctx, "thing-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stored document: got %v, want %v", got, want)
	}

	// Mutating the returned copy must not touch the stored document.
	got["a"] = 42.0
	again, err := store.Get(ctx, "thing-1")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if again["a"] != 1.0 {
		t.Errorf("stored document aliased by returned copy: got %v, want 1", again["a"])
	}

	if err := store.Delete(ctx, "thing-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, "thing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want %v", err, ErrNotFound)
	}
	if _, err := store.Get(ctx, "thing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: got %v, want %v", err, ErrNotFound)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore("file://" + dir)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	if _, err := store.Get(ctx, "thing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get before update: got %v, want %v", err, ErrNotFound)
	}

	if _, err := store.Update(ctx, "thing-1", mustDecode(t, `{"a":1,"b":{"x":1}}`)); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if _, err := store.Update(ctx, "thing-1", mustDecode(t, `{"b":{"y":2}}`)); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	got, err := store.Get(ctx, "thing-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	want := mustDecode(t, `{"a":1,"b":{"x":1,"y":2}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stored document: got %v, want %v", got, want)
	}

	// Documents survive a fresh store over the same directory.
	reopened, err := NewFileStore("file://" + dir)
	if err != nil {
		t.Fatalf("failed to reopen file store: %v", err)
	}
	got, err = reopened.Get(ctx, "thing-1")
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("document after reopen: got %v, want %v", got, want)
	}

	if err := store.Delete(ctx, "thing-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete(ctx, "thing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want %v", err, ErrNotFound)
	}
}

func TestNewFileStore_InvalidURI(t *testing.T) {
	testCases := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "s3://bucket/shadows"},
		{"no scheme", "/var/shadows"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFileStore(tc.uri); err == nil {
				t.Errorf("expected error for URI %q", tc.uri)
			}
		})
	}
}

func TestFileStore_ThingNameWithSeparator(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore("file://" + t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	if _, err := store.Update(ctx, "fleet/device-1", mustDecode(t, `{"on":true}`)); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err := store.Get(ctx, "fleet/device-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got["on"] != true {
		t.Errorf("document value: got %v, want true", got["on"])
	}
}
