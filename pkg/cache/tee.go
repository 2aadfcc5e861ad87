package cache

import (
	"errors"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// ErrMismatch is wrapped when a cache file no longer matches what was written.
var ErrMismatch = errors.New("cache file does not match manifest")

// Manifest identifies a completely written cache file.
type Manifest struct {
	Path   string
	Size   int64
	Digest uint64
}

// Tee copies every byte read from src into a cache file before handing it to
// the caller.
type Tee struct {
	src    io.Reader
	file   *os.File
	path   string
	size   int64
	digest *xxhash.Digest

	failed error
	closed bool
}

// NewTee creates (or truncates) path and wraps src.
func NewTee(src io.Reader, path string) (*Tee, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.IO("create", path, err)
	}
	return &Tee{
		src:    src,
		file:   f,
		path:   path,
		digest: xxhash.New(),
	}, nil
}

func (t *Tee) Read(p []byte) (int, error) {
	if t.failed != nil {
		return 0, t.failed
	}
	if t.closed {
		return 0, errs.IO("read", t.path, os.ErrClosed)
	}

	n, err := t.src.Read(p)
	if n > 0 {
		wn, werr := t.file.Write(p[:n])
		if werr == nil && wn != n {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			t.failed = errs.IO("write", t.path, werr)
			return 0, t.failed
		}
		t.digest.Write(p[:n])
		t.size += int64(n)
	}
	if err != nil && err != io.EOF {
		t.failed = errs.IO("read", "source", err)
		return n, t.failed
	}
	return n, err
}

// Failed returns the first read or write failure, if any. A failed tee never
// yields a usable manifest.
func (t *Tee) Failed() error { return t.failed }

// Manifest describes the cache once the tee is closed.
func (t *Tee) Manifest() (Manifest, error) {
	if t.failed != nil {
		return Manifest{}, t.failed
	}
	if !t.closed {
		return Manifest{}, errs.IO("manifest", t.path, errors.New("cache still open"))
	}
	return Manifest{Path: t.path, Size: t.size, Digest: t.digest.Sum64()}, nil
}

// Close syncs and closes the cache file, then closes src when it is an
// io.Closer. Safe to call more than once.
func (t *Tee) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var errList []error
	if err := t.file.Sync(); err != nil {
		errList = append(errList, errs.IO("sync", t.path, err))
	}
	if err := t.file.Close(); err != nil {
		errList = append(errList, errs.IO("close", t.path, err))
	}
	if c, ok := t.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errList = append(errList, errs.IO("close", "source", err))
		}
	}
	err := errors.Join(errList...)
	if err != nil && t.failed == nil {
		t.failed = err
	}
	return err
}

// Discard closes the tee and removes the cache file.
func (t *Tee) Discard() error {
	closeErr := t.Close()
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return errs.IO("remove", t.path, err)
	}
	return closeErr
}

// Open reopens a completed cache for reading. The returned reader checks size
// and digest when it reaches EOF and fails with ErrMismatch when they differ.
func Open(m Manifest) (io.ReadCloser, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, errs.IO("open", m.Path, err)
	}
	return &verifyingReader{f: f, m: m, digest: xxhash.New()}, nil
}

type verifyingReader struct {
	f      *os.File
	m      Manifest
	digest *xxhash.Digest
	n      int64
}

func (r *verifyingReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if n > 0 {
		r.digest.Write(p[:n])
		r.n += int64(n)
		if r.n > r.m.Size {
			return n, errs.IO("verify", r.m.Path, ErrMismatch)
		}
	}
	if err == io.EOF {
		if r.n != r.m.Size || r.digest.Sum64() != r.m.Digest {
			return n, errs.IO("verify", r.m.Path, ErrMismatch)
		}
		return n, io.EOF
	}
	if err != nil {
		return n, errs.IO("read", r.m.Path, err)
	}
	return n, nil
}

func (r *verifyingReader) Close() error {
	return errs.IO("close", r.m.Path, r.f.Close())
}
