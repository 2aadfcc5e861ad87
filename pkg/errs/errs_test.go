package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestMalformed(t *testing.T) {
	err := Malformed(12, "expected start of array", io.ErrUnexpectedEOF)

	if !IsMalformed(err) {
		t.Error("Expected IsMalformed to match")
	}
	if IsIO(err) {
		t.Error("Malformed error must not match ErrIO")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Expected cause to be reachable")
	}
	want := "malformed stream at offset 12: expected start of array: unexpected EOF"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	var m *MalformedStreamError
	if !errors.As(fmt.Errorf("export: %w", err), &m) || m.Offset != 12 {
		t.Errorf("Expected errors.As through wrapping, got %+v", m)
	}
}

func TestIO(t *testing.T) {
	if IO("write", "x", nil) != nil {
		t.Error("IO(nil) must be nil")
	}

	err := IO("create", "/tmp/cache", io.ErrShortWrite)
	if !IsIO(err) || IsMalformed(err) {
		t.Errorf("Unexpected classification for %v", err)
	}
	if err.Error() != "create /tmp/cache: short write" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if got := IO("read", "", io.ErrClosedPipe).Error(); got != "read: io: read/write on closed pipe" {
		t.Errorf("Unexpected message %q", got)
	}
}
