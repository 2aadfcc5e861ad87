package source

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// ErrConsumed is returned when a one-shot stream is opened a second time.
var ErrConsumed = errors.New("stream already consumed")

// Stream hands back a forward-only byte stream holding a JSON array of
// objects. Callers must not assume a stream can be opened twice.
type Stream interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// File streams a local file.
type File struct {
	Path string
}

func (f File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, errs.IO("open", f.Path, err)
	}
	return fh, nil
}

// OneShot wraps a reader that can only be consumed once, such as stdin or a
// request body.
type OneShot struct {
	mu   sync.Mutex
	r    io.Reader
	used bool
}

// NewOneShot wraps r.
func NewOneShot(r io.Reader) *OneShot {
	return &OneShot{r: r}
}

func (o *OneShot) Open(ctx context.Context) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.used {
		return nil, ErrConsumed
	}
	o.used = true
	if rc, ok := o.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(o.r), nil
}
