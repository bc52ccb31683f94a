// Package sink provides destinations for generated files.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// TempPattern names the temporary files used for atomic writes.
// Leftovers after a crash can be removed by matching this pattern.
const TempPattern = ".jrpc-*.tmp"

// Sink receives generated file content. Implementations must be safe
// for concurrent calls.
type Sink interface {
	// WriteFile stores content under the slash-separated relative path.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// Dir writes files below a directory on the local filesystem.
type Dir struct {
	// Root is the base directory. It is created on first write.
	Root string

	// Mode is the permission of written files (default 0644).
	Mode os.FileMode

	// KeepUnchanged skips the write when the file already holds
	// identical content, preserving its modification time.
	KeepUnchanged bool
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root, Mode: 0644, KeepUnchanged: true}
}

// WriteFile replaces root/path atomically: content goes to a temporary
// file in the same directory, which is then renamed over the target.
// Readers never observe a partially written file.
func (d *Dir) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	if d.KeepUnchanged {
		if old, err := os.ReadFile(full); err == nil && bytes.Equal(old, content) {
			return nil
		}
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	mode := d.Mode
	if mode == 0 {
		mode = 0644
	}

	tmp, err := os.CreateTemp(dir, TempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	_, writeErr := tmp.Write(content)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	committed = true
	return nil
}

// resolve joins path onto the root and rejects results outside it.
func (d *Dir) resolve(path string) (string, error) {
	absRoot, err := filepath.Abs(d.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	full := filepath.Join(absRoot, filepath.FromSlash(path))
	if !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory: %q", path)
	}
	return full, nil
}

// Memory keeps generated files in memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content.
func (m *Memory) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = bytes.Clone(content)
	return nil
}

// Get returns a copy of the file at path, or nil.
func (m *Memory) Get(path string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return bytes.Clone(m.files[path])
}

// Paths returns the stored paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Files returns a copy of every stored file.
func (m *Memory) Files() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.files))
	for p, c := range m.files {
		out[p] = bytes.Clone(c)
	}
	return out
}

// Reset removes all stored files.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.files)
}

// ValidatePath reports whether path is an acceptable output path:
// relative, slash-separated, clean and free of ".." elements.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.New("path is empty")
	case strings.HasPrefix(path, "/") || filepath.IsAbs(path) || hasDriveLetter(path):
		return errors.New("absolute paths not allowed")
	case strings.Contains(path, "\\"):
		return errors.New("backslash not allowed")
	}
	for _, elem := range strings.Split(path, "/") {
		if elem == ".." {
			return errors.New("path traversal not allowed")
		}
	}
	if cleaned := filepath.ToSlash(filepath.Clean(path)); cleaned != path {
		return fmt.Errorf("path is not clean (expected %q)", cleaned)
	}
	return nil
}

func hasDriveLetter(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0] | 0x20
	return c >= 'a' && c <= 'z'
}
