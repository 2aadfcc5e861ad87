package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/errs"
	"github.com/bisegni/jsoncsv/pkg/export"
	"github.com/bisegni/jsoncsv/pkg/source"
)

// Event reports one export triggered by the watcher.
type Event struct {
	Input  string
	Output string
	Result *export.Result
	Err    error
}

// Watcher exports every JSON file that settles in a directory to a CSV file
// of the same base name. Exports run one at a time on the Run goroutine.
type Watcher struct {
	exporter *export.Exporter
	dir      string
	out      string
	settle   time.Duration
	fw       *fsnotify.Watcher

	// OnExport, when set, is called on the Run goroutine after every export.
	OnExport func(Event)
}

// New starts watching dir. CSV files go to out, or to dir when out is empty.
func New(e *export.Exporter, dir, out string, settle time.Duration) (*Watcher, error) {
	if out == "" {
		out = dir
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errs.IO("mkdir", out, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errs.IO("watch", dir, err)
	}
	return &Watcher{exporter: e, dir: dir, out: out, settle: settle, fw: fw}, nil
}

// Run handles file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	klog.InfoS("Watching directory", "dir", w.dir, "out", w.out, "settle", w.settle)

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !isJSON(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if t, exists := timers[ev.Name]; exists {
					t.Stop()
					delete(timers, ev.Name)
				}
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if t, exists := timers[ev.Name]; exists {
				t.Stop()
			}
			name := ev.Name
			timers[name] = time.AfterFunc(w.settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(timers, name)
			ev := w.ExportFile(ctx, name)
			if ev.Err != nil {
				klog.ErrorS(ev.Err, "Watched export failed", "input", ev.Input)
			} else {
				klog.InfoS("Watched export finished", "input", ev.Input, "output", ev.Output, "rows", ev.Result.Rows)
			}
			if w.OnExport != nil {
				w.OnExport(ev)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			klog.ErrorS(err, "Watcher error", "dir", w.dir)
		}
	}
}

// ExportFile converts in to <out>/<base>.csv. A failed export leaves no
// output file behind.
func (w *Watcher) ExportFile(ctx context.Context, in string) Event {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	ev := Event{Input: in, Output: filepath.Join(w.out, base+".csv")}

	f, err := os.Create(ev.Output)
	if err != nil {
		ev.Err = errs.IO("create", ev.Output, err)
		return ev
	}
	res, err := w.exporter.ExportStream(ctx, source.File{Path: in}, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errs.IO("close", ev.Output, cerr)
	}
	if err != nil {
		os.Remove(ev.Output)
	}
	ev.Result, ev.Err = res, err
	return ev
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}

func isJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
