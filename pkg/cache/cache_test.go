package cache

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestTeeCopiesEveryByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	doc := `[{"id":"1","name":"Sam"},{"id":"2","instrument":"guitar"}]`
	src := &closeTracker{Reader: strings.NewReader(doc)}

	tee, err := NewTee(src, path)
	if err != nil {
		t.Fatalf("NewTee failed: %v", err)
	}
	got, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := tee.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if string(got) != doc {
		t.Errorf("read %q, want %q", got, doc)
	}
	if !src.closed {
		t.Error("Expected the source to be closed")
	}

	cached, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read cache: %v", err)
	}
	if string(cached) != doc {
		t.Errorf("cached %q, want %q", cached, doc)
	}

	m, err := tee.Manifest()
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}
	if m.Size != int64(len(doc)) || m.Path != path {
		t.Errorf("Unexpected manifest %+v", m)
	}
}

func TestTeeOverwritesPreviousCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	tee, err := NewTee(strings.NewReader("[]"), path)
	if err != nil {
		t.Fatalf("NewTee failed: %v", err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := tee.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cached, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(cached) != "[]" {
		t.Errorf("cached %q, want %q", cached, "[]")
	}
}

func TestTeeCreateFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "cache.json")
	_, err := NewTee(strings.NewReader("[]"), path)
	if !errs.IsIO(err) {
		t.Errorf("Expected an I/O error, got %v", err)
	}
}

type brokenSource struct{}

func (brokenSource) Read(p []byte) (int, error) { return 0, errors.New("source went away") }

func TestTeeSourceFailureInvalidatesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	tee, err := NewTee(io.MultiReader(strings.NewReader("[{"), brokenSource{}), path)
	if err != nil {
		t.Fatalf("NewTee failed: %v", err)
	}

	if _, err := io.ReadAll(tee); !errs.IsIO(err) {
		t.Errorf("Expected an I/O error, got %v", err)
	}
	tee.Close()

	if _, err := tee.Manifest(); err == nil {
		t.Error("Manifest must fail after a source error")
	}
	if tee.Failed() == nil {
		t.Error("Failed must report the source error")
	}

	if err := tee.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cache should have been removed, stat err = %v", err)
	}
}

func TestManifestRequiresClose(t *testing.T) {
	tee, err := NewTee(strings.NewReader("[]"), filepath.Join(t.TempDir(), "c.json"))
	if err != nil {
		t.Fatalf("NewTee failed: %v", err)
	}
	defer tee.Close()

	if _, err := tee.Manifest(); err == nil {
		t.Error("Manifest must fail before Close")
	}
}

func writeCache(t *testing.T, doc string) Manifest {
	t.Helper()
	tee, err := NewTee(strings.NewReader(doc), filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("NewTee failed: %v", err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := tee.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	m, err := tee.Manifest()
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}
	return m
}

func TestOpenVerifiesContent(t *testing.T) {
	doc := `[{"a":"1"}]`
	m := writeCache(t, doc)

	for i := 0; i < 2; i++ {
		r, err := Open(m)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if err := r.Close(); err != nil {
			t.Fatal(err)
		}
		if string(got) != doc {
			t.Errorf("read %q, want %q", got, doc)
		}
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"same size different bytes", `[{"a":"2"}]`},
		{"shorter", `[]`},
		{"longer", `[{"a":"1"},{"b":"2"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := writeCache(t, `[{"a":"1"}]`)
			if err := os.WriteFile(m.Path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			r, err := Open(m)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer r.Close()

			_, err = io.ReadAll(r)
			if !errors.Is(err, ErrMismatch) {
				t.Errorf("Expected ErrMismatch, got %v", err)
			}
			if !errs.IsIO(err) {
				t.Errorf("Expected an I/O error, got %v", err)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(Manifest{Path: filepath.Join(t.TempDir(), "gone.json")})
	if !errs.IsIO(err) {
		t.Errorf("Expected an I/O error, got %v", err)
	}
}

func TestTempDirPathsAreUnique(t *testing.T) {
	dir := t.TempDir()
	p := TempDir{Dir: dir}

	a, releaseA, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer releaseA()
	b, releaseB, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer releaseB()

	if a == b {
		t.Errorf("Expected distinct paths, both are %q", a)
	}
	if filepath.Dir(a) != dir {
		t.Errorf("%q is not under %q", a, dir)
	}
}

func TestFixedSerialisesExports(t *testing.T) {
	f := NewFixed(filepath.Join(t.TempDir(), "nested", "cachedFile"))

	var (
		mu     sync.Mutex
		active int
		peak   int
		wg     sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, release, err := f.Acquire()
			if err != nil {
				t.Error(err)
				return
			}
			defer release()
			if path != f.Path {
				t.Errorf("got path %q, want %q", path, f.Path)
			}

			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("%d exports shared the cache file", peak)
	}
}

func TestFixedReleaseIsIdempotent(t *testing.T) {
	f := NewFixed(filepath.Join(t.TempDir(), "cachedFile"))
	_, release, err := f.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	release()
	release()

	_, release, err = f.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	release()
}

func TestTeeDigestMatchesContent(t *testing.T) {
	doc := bytes.Repeat([]byte(`{"k":"v"},`), 10000)
	m1 := writeCache(t, string(doc))
	m2 := writeCache(t, string(doc))
	if m1.Digest != m2.Digest {
		t.Errorf("digests differ: %x vs %x", m1.Digest, m2.Digest)
	}
	if m1.Digest == 0 {
		t.Error("Expected a non-zero digest")
	}
}
