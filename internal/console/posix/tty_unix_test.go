//go:build unix

package posix

import (
	"os"
	"testing"
)

func TestSourceReadsPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	defer r.Close()
	defer w.Close()

	src := NewSource(int(r.Fd()))

	ok, err := src.Peek()
	if err != nil || ok {
		t.Fatalf("Peek() on empty pipe = %v, %v; want false, nil", ok, err)
	}

	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	ok, err = src.Peek()
	if err != nil || !ok {
		t.Fatalf("Peek() = %v, %v; want true, nil", ok, err)
	}
	data, err := src.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("Read() = %q, want %q", data, "abc")
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := src.Peek(); err == nil {
		t.Error("Peek after Close should fail")
	}
}

func TestOpenSourceRejectsNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	defer r.Close()
	defer w.Close()

	if _, err := OpenSource(r); err == nil {
		t.Error("OpenSource on a pipe should fail")
	}
	if _, err := OpenOutput(w, OutputConfig{}); err == nil {
		t.Error("OpenOutput on a pipe should fail")
	}
}
