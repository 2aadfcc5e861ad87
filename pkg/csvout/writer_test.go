package csvout

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

func TestWriterNaiveJoin(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	rows := [][]string{
		{"id", "name", "instrument"},
		{"1", "Sam", ""},
		{"2", "", "guitar"},
		{"3", "a,b", `say "hi"`},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := "id,name,instrument\n1,Sam,\n2,,guitar\n3,a,b,say \"hi\"\n"
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
	if w.Count() != 4 {
		t.Errorf("Expected 4 lines, got %d", w.Count())
	}
}

func TestWriterEscape(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Escape = true

	w.Write([]string{"plain", "a,b", `say "hi"`, "two\nlines"})
	w.Flush()

	want := "plain,\"a,b\",\"say \"\"hi\"\"\",\"two\nlines\"\n"
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriterEmptyRow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write(nil)
	w.Flush()
	if buf.String() != "\n" {
		t.Errorf("Expected a bare newline, got %q", buf.String())
	}
}

type brokenSink struct{}

func (brokenSink) Write(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriterErrorIsSticky(t *testing.T) {
	w := NewWriter(brokenSink{})
	w.Write([]string{"a"})

	err := w.Flush()
	if !errs.IsIO(err) {
		t.Fatalf("Expected IOError, got %v", err)
	}
	if err2 := w.Write([]string{"b"}); err2 != err {
		t.Errorf("Expected sticky error, got %v", err2)
	}
	if w.Error() != err {
		t.Errorf("Error() = %v, want %v", w.Error(), err)
	}
}
