// Package assets resolves model and texture files across directories and
// GRF archives.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/Faultbox/pcexport/pkg/encoding"
	"github.com/Faultbox/pcexport/pkg/grf"
)

// source is one searchable location.
type source struct {
	name   string
	fsys   fs.FS
	closer func() error
}

// Manager loads files from its sources. Sources are searched in reverse
// order (last added = highest priority).
type Manager struct {
	sources []source
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory on disk.
func (m *Manager) AddDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("adding directory: %s is not a directory", dir)
	}
	m.add(source{name: dir, fsys: os.DirFS(dir)})
	return nil
}

// AddArchive opens and adds a GRF archive.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.add(source{name: path, fsys: archive, closer: archive.Close})
	return nil
}

// AddFS adds any file system. name is used in errors.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.add(source{name: name, fsys: fsys})
}

func (m *Manager) add(s source) {
	m.mu.Lock()
	m.sources = append(m.sources, s)
	m.mu.Unlock()
}

// Len returns the number of sources.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// Load reads name from the first source holding it. Backslashes and a
// leading slash are accepted. The error wraps fs.ErrNotExist when no source
// has the file.
func (m *Manager) Load(name string) ([]byte, error) {
	p := encoding.SlashPath(name)
	if data, ok := m.cache.Get(p); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.sources[i].fsys, p)
		if err == nil {
			m.cache.Set(p, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", m.sources[i].name, err)
		}
	}

	return nil, fmt.Errorf("asset %s: %w", name, fs.ErrNotExist)
}

// Close closes all archives and empties the cache.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, s := range m.sources {
		if s.closer != nil {
			err = multierr.Append(err, s.closer())
		}
	}
	m.sources = nil
	m.cache.Clear()
	return err
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
