package cmd

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/bisegni/jsoncsv/pkg/errs"
	"github.com/bisegni/jsoncsv/pkg/source"
)

// inputStream maps a file argument to a stream; "-" or no argument is stdin.
func inputStream(args []string) (source.Stream, string) {
	if len(args) == 0 || args[0] == "-" {
		return source.NewOneShot(os.Stdin), "<stdin>"
	}
	return source.File{Path: args[0]}, args[0]
}

// output is the CSV destination of a command.
type output struct {
	w       io.Writer
	buf     *bufio.Writer
	gz      *gzip.Writer
	f       *os.File
	path    string
	created bool
}

// openOutput opens path for writing, or stdout when path is empty or "-".
func openOutput(path string, compress bool) (*output, error) {
	o := &output{path: path}
	if path == "" || path == "-" {
		o.buf = bufio.NewWriter(os.Stdout)
	} else {
		f, err := os.Create(path)
		if err != nil {
			return nil, errs.IO("create", path, err)
		}
		o.f, o.created = f, true
		o.buf = bufio.NewWriter(f)
	}
	o.w = o.buf
	if compress {
		o.gz = gzip.NewWriter(o.buf)
		o.w = o.gz
	}
	return o, nil
}

func (o *output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Close finishes the output. When failed is set a created file is removed.
func (o *output) Close(failed bool) error {
	var err error
	if o.gz != nil {
		err = errors.Join(err, o.gz.Close())
	}
	err = errors.Join(err, o.buf.Flush())
	if o.f != nil {
		err = errors.Join(err, o.f.Close())
	}
	if failed && o.created {
		os.Remove(o.path)
	}
	if err != nil {
		return errs.IO("write", o.path, err)
	}
	return nil
}
