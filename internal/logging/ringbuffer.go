package logging

import (
	"os"
	"sync"
)

// RingBuffer is a thread-safe circular byte buffer holding the tail of the
// log stream. It implements io.Writer and overwrites the oldest data when
// full, so a post-crash dump always shows the most recent activity.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	start int // index of the oldest byte
	n     int // bytes currently held
}

// NewRingBuffer creates a ring buffer with the given capacity in bytes.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1 << 20
	}
	return &RingBuffer{buf: make([]byte, size)}
}

// Write implements io.Writer. Never fails; old data is dropped as needed.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := len(p)
	size := len(rb.buf)
	if len(p) > size {
		p = p[len(p)-size:]
	}

	end := (rb.start + rb.n) % size
	c := copy(rb.buf[end:], p)
	copy(rb.buf, p[c:])

	rb.n += len(p)
	if rb.n > size {
		// Overwrote the oldest bytes; advance the start past them.
		rb.start = (rb.start + rb.n - size) % size
		rb.n = size
	}
	return written, nil
}

// Bytes returns a copy of the buffered data in write order.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]byte, rb.n)
	c := copy(out, rb.buf[rb.start:min(rb.start+rb.n, len(rb.buf))])
	copy(out[c:], rb.buf[:rb.n-c])
	return out
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.n
}

// DumpToFile writes the buffer contents to the given path.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o600)
}
