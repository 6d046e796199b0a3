package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// TimestampLayout is the prefix every persisted media file carries.
const TimestampLayout = "2006-01-02_15-04-05_UTC"

var mediaExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".mp4":  true,
}

// Stem returns the filename stem for an item taken at t.
func Stem(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsMedia reports whether name has a media extension
func IsMedia(name string) bool {
	return mediaExts[strings.ToLower(filepath.Ext(name))]
}

// Manager answers skip-existing queries for one directory tree and writes
// files atomically. Directory listings are cached per directory and updated
// on every write.
type Manager struct {
	mu      sync.RWMutex
	listing map[string]map[string]struct{}
}

// NewManager creates a storage manager
func NewManager() *Manager {
	return &Manager{listing: make(map[string]map[string]struct{})}
}

func (m *Manager) names(dir string) (map[string]struct{}, error) {
	m.mu.RLock()
	names, ok := m.listing[dir]
	m.mu.RUnlock()
	if ok {
		return names, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names = make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names[entry.Name()] = struct{}{}
		}
	}

	m.mu.Lock()
	m.listing[dir] = names
	m.mu.Unlock()
	return names, nil
}

// Exists reports whether dir already holds a file for an item taken at t.
// Only the timestamp prefix is compared.
func (m *Manager) Exists(dir string, t time.Time) bool {
	return m.Has(dir, "", t)
}

// Has is Exists for files named <prefix><stem>*, counting media files only
// so a lone sidecar does not mark an item as downloaded.
func (m *Manager) Has(dir, prefix string, t time.Time) bool {
	for _, path := range m.Matching(dir, prefix+Stem(t)) {
		if IsMedia(path) {
			return true
		}
	}
	return false
}

// Matching lists files in dir whose names start with prefix, sorted.
func (m *Manager) Matching(dir, prefix string) []string {
	names, err := m.names(dir)
	if err != nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name := range names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out
}

// Forget drops the cached listing for dir.
func (m *Manager) Forget(dir string) {
	m.mu.Lock()
	delete(m.listing, dir)
	m.mu.Unlock()
}

// Save writes r to path via a temporary file and rename.
func (m *Manager) Save(r io.Reader, path string) (int64, error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to save data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	if names, err := m.names(dir); err == nil {
		m.mu.Lock()
		names[filepath.Base(path)] = struct{}{}
		m.mu.Unlock()
	}
	return n, nil
}

// EnsureDir creates dir and its parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// HasProfilePic reports whether dir holds a profile picture for userID.
func HasProfilePic(dir, userID string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	prefix := userID + "_"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return true
		}
	}
	return false
}
