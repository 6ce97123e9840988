package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRingBufferSimpleWrite(t *testing.T) {
	rb := NewRingBuffer(64)
	if _, err := rb.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := rb.Bytes(); !bytes.Equal(got, []byte("hello")) {
		t.Errorf("expected 'hello', got %q", got)
	}
	if rb.Len() != 5 {
		t.Errorf("expected len 5, got %d", rb.Len())
	}
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer(8)
	_, _ = rb.Write([]byte("abcdef"))
	_, _ = rb.Write([]byte("ghij"))

	// Capacity 8, so only the last 8 bytes survive.
	if got := rb.Bytes(); !bytes.Equal(got, []byte("cdefghij")) {
		t.Errorf("expected 'cdefghij', got %q", got)
	}
	if rb.Len() != 8 {
		t.Errorf("expected len 8, got %d", rb.Len())
	}
}

func TestRingBufferOversizedWrite(t *testing.T) {
	rb := NewRingBuffer(4)
	n, err := rb.Write([]byte("0123456789"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 10 {
		t.Errorf("Write should report full input length, got %d", n)
	}
	if got := rb.Bytes(); !bytes.Equal(got, []byte("6789")) {
		t.Errorf("expected '6789', got %q", got)
	}
}

func TestRingBufferDumpToFile(t *testing.T) {
	rb := NewRingBuffer(32)
	_, _ = rb.Write([]byte("crash context"))

	path := filepath.Join(t.TempDir(), "dump.log")
	if err := rb.DumpToFile(path); err != nil {
		t.Fatalf("dump: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if string(data) != "crash context" {
		t.Errorf("unexpected dump contents: %q", data)
	}
}
