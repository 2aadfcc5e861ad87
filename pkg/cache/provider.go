package cache

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// Provider hands out the cache location for one export. release must be
// called once the export no longer needs the file.
type Provider interface {
	Acquire() (path string, release func(), err error)
}

// DefaultFixedPath is the well-known cache location used when no directory
// is configured.
var DefaultFixedPath = filepath.Join(os.TempDir(), "jsoncsv", "cachedFile")

// Fixed always returns the same path. Exports sharing it are serialised.
type Fixed struct {
	Path string

	mu sync.Mutex
}

// NewFixed creates a Fixed provider; an empty path selects DefaultFixedPath.
func NewFixed(path string) *Fixed {
	if path == "" {
		path = DefaultFixedPath
	}
	return &Fixed{Path: path}
}

func (f *Fixed) Acquire() (string, func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return "", nil, errs.IO("mkdir", filepath.Dir(f.Path), err)
	}
	f.mu.Lock()
	var once sync.Once
	return f.Path, func() { once.Do(f.mu.Unlock) }, nil
}

// TempDir returns a fresh, uniquely named file per export.
type TempDir struct {
	Dir string
}

func (d TempDir) Acquire() (string, func(), error) {
	dir := d.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, errs.IO("mkdir", dir, err)
	}
	path := filepath.Join(dir, "jsoncsv-"+uuid.NewString()+".json")
	return path, func() {}, nil
}
