package export

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/cache"
	"github.com/bisegni/jsoncsv/pkg/columns"
	"github.com/bisegni/jsoncsv/pkg/csvout"
	"github.com/bisegni/jsoncsv/pkg/errs"
	"github.com/bisegni/jsoncsv/pkg/header"
	"github.com/bisegni/jsoncsv/pkg/parser"
	"github.com/bisegni/jsoncsv/pkg/source"
)

// Exporter turns sources into CSV. An Exporter can be shared; every export
// owns its own iterators, header set and cache file.
type Exporter struct {
	// Cache decides where pass 1 writes its copy of the source.
	Cache cache.Provider
	// KeepCache leaves the cache file in place after a successful export.
	KeepCache bool
	// Escape quotes cells the RFC 4180 way instead of joining them as-is.
	Escape bool
	// Columns optionally restricts and renames the reconciled header.
	Columns *columns.Selection
}

// Result describes a finished export.
type Result struct {
	Header     []string
	Rows       int
	CacheBytes int64
	Digest     uint64
	// CachePath is set only when the cache file was kept.
	CachePath string
	Duration  time.Duration
}

func NewExporter(provider cache.Provider) *Exporter {
	if provider == nil {
		provider = cache.TempDir{}
	}
	return &Exporter{Cache: provider}
}

// ExportStream converts the JSON array produced by src into CSV on w.
//
// Pass 1 reads src once through a tee cache and reconciles the header. Pass 2
// starts only after pass 1 and the cache file are completely closed, reads
// the cache back and writes the header line followed by one row per object.
func (e *Exporter) ExportStream(ctx context.Context, src source.Stream, w io.Writer) (*Result, error) {
	start := time.Now()

	path, release, err := e.provider().Acquire()
	if err != nil {
		klog.ErrorS(err, "Failed to acquire cache location")
		return nil, err
	}
	defer release()

	klog.V(2).InfoS("Export started", "cache", path)

	manifest, set, count, err := e.reconcile(ctx, src, path)
	if err != nil {
		klog.ErrorS(err, "Header reconciliation failed", "cache", path)
		return nil, err
	}
	klog.V(2).InfoS("Header reconciled", "fields", set.Len(), "records", count, "cacheBytes", manifest.Size)

	keep := e.KeepCache
	defer func() {
		if !keep {
			removeCache(path)
		}
	}()

	res, err := e.ReprojectCache(ctx, manifest, set, w)
	if err != nil {
		keep = false
		klog.ErrorS(err, "Row projection failed", "cache", path)
		return res, err
	}
	if keep {
		res.CachePath = path
	}
	res.Duration = time.Since(start)

	klog.V(2).InfoS("Export finished", "rows", res.Rows, "columns", len(res.Header), "duration", res.Duration)
	return res, nil
}

// Headers runs pass 1 only and returns the reconciled header. The cache file
// is always removed.
func (e *Exporter) Headers(ctx context.Context, src source.Stream) (*header.Set, int, error) {
	path, release, err := e.provider().Acquire()
	if err != nil {
		return nil, 0, err
	}
	defer release()
	defer removeCache(path)

	_, set, count, err := e.reconcile(ctx, src, path)
	if err != nil {
		return nil, count, err
	}
	return set, count, nil
}

// reconcile is pass 1. On success the cache file is closed and holds every
// byte the source produced; on failure it has been removed.
func (e *Exporter) reconcile(ctx context.Context, src source.Stream, path string) (cache.Manifest, *header.Set, int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return cache.Manifest{}, nil, 0, err
	}

	tee, err := cache.NewTee(rc, path)
	if err != nil {
		rc.Close()
		return cache.Manifest{}, nil, 0, err
	}

	it := parser.NewObjectIterator(tee)
	set, count, err := header.Reconcile(withContext(ctx, it))
	if err == nil {
		// Anything after the closing bracket still belongs in the replica.
		if _, cerr := io.Copy(io.Discard, tee); cerr != nil {
			err = cerr
		}
	}
	// Closing the iterator closes the tee, which closes the cache file and rc.
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		tee.Discard()
		return cache.Manifest{}, nil, count, err
	}

	manifest, err := tee.Manifest()
	if err != nil {
		tee.Discard()
		return cache.Manifest{}, nil, count, err
	}
	return manifest, set, count, nil
}

// ReprojectCache is pass 2: it reads a completed cache and writes the CSV
// document for set. Running it again on the same cache yields the same bytes.
func (e *Exporter) ReprojectCache(ctx context.Context, m cache.Manifest, set *header.Set, w io.Writer) (*Result, error) {
	rc, err := cache.Open(m)
	if err != nil {
		return nil, err
	}
	it := parser.NewObjectIterator(rc)
	defer it.Close()

	proj, labels := e.Columns.Apply(set)
	res := &Result{Header: labels, CacheBytes: m.Size, Digest: m.Digest}

	cw := csvout.NewWriter(w)
	cw.Escape = e.Escape
	if err := cw.Write(labels); err != nil {
		return res, err
	}

	rows := withContext(ctx, it)
	for {
		ok, err := rows.HasNext()
		if err != nil {
			cw.Flush()
			return res, err
		}
		if !ok {
			break
		}
		rec, err := rows.Next()
		if err != nil {
			cw.Flush()
			return res, err
		}
		if err := cw.Write(header.Project(rec, proj)); err != nil {
			return res, err
		}
		res.Rows++
	}

	// Read the cache to EOF so the digest check runs.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		cw.Flush()
		return res, err
	}
	if err := cw.Flush(); err != nil {
		return res, err
	}
	return res, nil
}

// ExportUniform writes uniformly shaped players with their static header.
// There is no reconciliation and no cache.
func (e *Exporter) ExportUniform(ctx context.Context, players source.Players, w io.Writer) (*Result, error) {
	start := time.Now()

	cur, err := players.Players(ctx)
	if err != nil {
		klog.ErrorS(err, "Failed to open players")
		return nil, err
	}
	defer cur.Close()

	static := header.NewSet(source.PlayerHeader...).Freeze()
	proj, labels := e.Columns.Apply(static)
	positions := make([]int, proj.Len())
	for i, name := range proj.Names() {
		positions[i] = static.Index(name)
	}

	res := &Result{Header: labels}
	cw := csvout.NewWriter(w)
	cw.Escape = e.Escape
	if err := cw.Write(labels); err != nil {
		return res, err
	}

	cells := make([]string, len(positions))
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			cw.Flush()
			return res, err
		}
		row := cur.Player().Row()
		for i, pos := range positions {
			if pos >= 0 {
				cells[i] = row[pos]
			} else {
				cells[i] = ""
			}
		}
		if err := cw.Write(cells); err != nil {
			klog.ErrorS(err, "Failed to write player row", "row", res.Rows)
			return res, err
		}
		res.Rows++
	}
	if err := cur.Err(); err != nil {
		cw.Flush()
		klog.ErrorS(err, "Player cursor failed", "rows", res.Rows)
		return res, err
	}
	if err := cw.Flush(); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (e *Exporter) provider() cache.Provider {
	if e.Cache == nil {
		return cache.TempDir{}
	}
	return e.Cache
}

func removeCache(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		klog.ErrorS(errs.IO("remove", path, err), "Failed to remove cache file")
	}
}

// ctxIterator stops an iteration once ctx is done.
type ctxIterator struct {
	ctx context.Context
	it  header.Iterator
}

func withContext(ctx context.Context, it header.Iterator) header.Iterator {
	return ctxIterator{ctx: ctx, it: it}
}

func (c ctxIterator) HasNext() (bool, error) {
	if err := c.ctx.Err(); err != nil {
		return false, err
	}
	return c.it.HasNext()
}

func (c ctxIterator) Next() (parser.Record, error) {
	return c.it.Next()
}
