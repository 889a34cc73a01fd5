// Package testutil provides shared test helpers for link source trees.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// SourceTree creates a temporary source directory holding files, keyed by
// slash-separated relative path.
func SourceTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// WriteFiles writes files under root, creating parent directories.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// FakeEmitter records Emit calls instead of rendering images.
type FakeEmitter struct {
	mu    sync.Mutex
	calls map[string]string

	// Err, when set, is returned for payloads it selects.
	Err func(text string) error
}

// Emit records text under dest.
func (f *FakeEmitter) Emit(ctx context.Context, text, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Err != nil {
		if err := f.Err(text); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]string)
	}
	f.calls[dest] = text
	return nil
}

// Calls returns a copy of dest -> text for every successful Emit.
func (f *FakeEmitter) Calls() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.calls))
	for k, v := range f.calls {
		out[k] = v
	}
	return out
}
