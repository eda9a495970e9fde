package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type brokenSink struct{}

func (brokenSink) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestLineWriterIsolatesBrokenSink(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newLineWriter([]io.Writer{brokenSink{}, buf}, 16)

	if err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected broken sink error from close")
	}
	if buf.String() != "hello\n" {
		t.Fatalf("healthy sink lost the line: %q", buf.String())
	}
}

func TestLineWriterRejectsWriteAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newLineWriter([]io.Writer{buf}, 16)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write([]byte("late\n")); err == nil {
		t.Fatal("expected error writing after close")
	}
}
