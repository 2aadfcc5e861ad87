package csvout

import (
	"bufio"
	"io"
	"strings"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

const defaultBufferSize = 64 * 1024

// Writer emits comma separated lines terminated by a single '\n'.
//
// By default cells are joined as-is: embedded commas, quotes or newlines are
// not escaped. Set Escape to quote such cells the RFC 4180 way.
type Writer struct {
	dst *bufio.Writer

	// Escape enables quoting of cells containing ',', '"', '\r' or '\n'.
	Escape bool

	rows int
	err  error
}

// NewWriter creates a Writer with internal buffering.
func NewWriter(w io.Writer) *Writer {
	return &Writer{dst: bufio.NewWriterSize(w, defaultBufferSize)}
}

// Write emits one line. The first error is sticky and returned by every
// later call.
func (w *Writer) Write(cells []string) error {
	if w.err != nil {
		return w.err
	}
	for i, cell := range cells {
		if i > 0 {
			if err := w.dst.WriteByte(','); err != nil {
				return w.fail(err)
			}
		}
		if err := w.writeCell(cell); err != nil {
			return w.fail(err)
		}
	}
	if err := w.dst.WriteByte('\n'); err != nil {
		return w.fail(err)
	}
	w.rows++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		return w.fail(err)
	}
	return nil
}

// Error reports the first error encountered.
func (w *Writer) Error() error { return w.err }

// Count returns the number of lines written, header included.
func (w *Writer) Count() int { return w.rows }

func (w *Writer) fail(err error) error {
	w.err = errs.IO("write", "", err)
	return w.err
}

func (w *Writer) writeCell(cell string) error {
	if !w.Escape || !strings.ContainsAny(cell, ",\"\r\n") {
		_, err := w.dst.WriteString(cell)
		return err
	}
	if err := w.dst.WriteByte('"'); err != nil {
		return err
	}
	if _, err := w.dst.WriteString(strings.ReplaceAll(cell, `"`, `""`)); err != nil {
		return err
	}
	return w.dst.WriteByte('"')
}
