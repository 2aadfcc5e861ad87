package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is wrapped when a catalog has no stream under a name.
var ErrNotFound = errors.New("stream not found")

// Catalog manages a collection of named streams
type Catalog struct {
	streams map[string]Stream
	mu      sync.RWMutex
}

// NewCatalog creates a new empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		streams: make(map[string]Stream),
	}
}

// Register adds a stream to the catalog
func (c *Catalog) Register(name string, s Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams[name] = s
}

// Get retrieves a stream by name
func (c *Catalog) Get(name string) (Stream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, nil
}

// Names lists the registered names in lexical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.streams))
	for n := range c.streams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
