package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// ObjectIterator lifts the elements of a top-level JSON array one object at a
// time. It keeps exactly one decoded object buffered ahead of the caller so
// HasNext can answer without consuming anything.
//
// An ObjectIterator is single use: once exhausted or failed it stays that way.
type ObjectIterator struct {
	r   io.Reader
	dec *json.Decoder

	started bool
	done    bool
	closed  bool

	next    Record
	hasNext bool
	err     error
}

// NewObjectIterator creates an iterator over r. Nothing is read until the
// first call to HasNext or Next.
func NewObjectIterator(r io.Reader) *ObjectIterator {
	return &ObjectIterator{r: r}
}

// HasNext reports whether a buffered object is available.
// Repeated calls without Next never advance the stream.
func (it *ObjectIterator) HasNext() (bool, error) {
	if err := it.init(); err != nil {
		return false, err
	}
	if it.hasNext {
		return true, nil
	}
	return false, it.err
}

// Next returns the buffered object and reads the following one ahead.
// A failure while reading ahead is reported by the next HasNext call.
func (it *ObjectIterator) Next() (Record, error) {
	if err := it.init(); err != nil {
		return nil, err
	}
	if !it.hasNext {
		if it.err != nil {
			return nil, it.err
		}
		return nil, errs.ErrExhausted
	}
	current := it.next
	it.advance()
	return current, nil
}

// Done reports whether the closing bracket of the array has been read.
func (it *ObjectIterator) Done() bool {
	return it.done
}

// Offset returns the number of bytes consumed by the decoder so far.
func (it *ObjectIterator) Offset() int64 {
	if it.dec == nil {
		return 0
	}
	return it.dec.InputOffset()
}

// Close releases the decoder and closes the underlying reader if it is an
// io.Closer. It is safe to call more than once.
func (it *ObjectIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.dec = nil
	it.next = nil
	it.hasNext = false
	if it.err == nil && !it.done {
		it.err = errs.ErrExhausted
	}
	if c, ok := it.r.(io.Closer); ok {
		return errs.IO("close", "", c.Close())
	}
	return nil
}

func (it *ObjectIterator) init() error {
	if it.closed && !it.started {
		return errs.ErrExhausted
	}
	if it.started {
		return nil
	}
	it.started = true

	it.dec = json.NewDecoder(it.r)
	it.dec.UseNumber()

	tok, err := it.dec.Token()
	if err != nil {
		it.err = it.classify(err, "expected start of array")
		return it.err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		it.err = errs.Malformed(it.dec.InputOffset(), "expected start of array, got "+describe(tok), nil)
		return it.err
	}

	it.advance()
	return nil
}

// advance fills the lookahead slot, marks the iterator done on ']' or
// records the failure.
func (it *ObjectIterator) advance() {
	it.next = nil
	it.hasNext = false

	tok, err := it.dec.Token()
	if err != nil {
		it.err = it.classify(err, "expected start of object or end of array")
		return
	}

	d, ok := tok.(json.Delim)
	switch {
	case ok && d == ']':
		it.done = true
	case ok && d == '{':
		rec, err := it.readObject()
		if err != nil {
			it.err = err
			return
		}
		it.next = rec
		it.hasNext = true
	default:
		it.err = errs.Malformed(it.dec.InputOffset(), "expected start of object, got "+describe(tok), nil)
	}
}

// readObject decodes the members of an object whose '{' was already consumed.
func (it *ObjectIterator) readObject() (Record, error) {
	rec := make(Record, 0, 8)
	for it.dec.More() {
		tok, err := it.dec.Token()
		if err != nil {
			return nil, it.classify(err, "expected field name")
		}
		name, ok := tok.(string)
		if !ok {
			return nil, errs.Malformed(it.dec.InputOffset(), "expected field name, got "+describe(tok), nil)
		}

		value, err := it.readValue(name)
		if err != nil {
			return nil, err
		}
		rec.Set(name, value)
	}

	tok, err := it.dec.Token()
	if err != nil {
		return nil, it.classify(err, "expected end of object")
	}
	if d, ok := tok.(json.Delim); !ok || d != '}' {
		return nil, errs.Malformed(it.dec.InputOffset(), "expected end of object, got "+describe(tok), nil)
	}
	return rec, nil
}

// readValue decodes one value of field. Nested objects become Records so
// their keys keep stream order; arrays become []interface{}.
func (it *ObjectIterator) readValue(field string) (interface{}, error) {
	tok, err := it.dec.Token()
	if err != nil {
		return nil, it.classify(err, fmt.Sprintf("unreadable value for field %q", field))
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return it.readObject()
	case '[':
		list := make([]interface{}, 0)
		for it.dec.More() {
			v, err := it.readValue(field)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		end, err := it.dec.Token()
		if err != nil {
			return nil, it.classify(err, fmt.Sprintf("expected end of array in field %q", field))
		}
		if d, ok := end.(json.Delim); !ok || d != ']' {
			return nil, errs.Malformed(it.dec.InputOffset(), "expected end of array, got "+describe(end), nil)
		}
		return list, nil
	}
	return nil, errs.Malformed(it.dec.InputOffset(), fmt.Sprintf("unexpected %s in field %q", describe(tok), field), nil)
}

// classify separates structural failures from failures of the reader itself.
func (it *ObjectIterator) classify(err error, reason string) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errs.Malformed(it.dec.InputOffset(), reason+": premature end of stream", err)
	case errors.As(err, &syntaxErr):
		return errs.Malformed(syntaxErr.Offset, reason, err)
	case errors.As(err, &typeErr):
		return errs.Malformed(typeErr.Offset, reason, err)
	case errs.IsIO(err), errs.IsMalformed(err):
		return err
	default:
		return errs.IO("read", "", err)
	}
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return fmt.Sprintf("%q", string(v))
	case string:
		return fmt.Sprintf("string %q", v)
	case json.Number:
		return "number " + v.String()
	case bool:
		return fmt.Sprintf("boolean %t", v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
