package runner

import (
	"fmt"
	"sync"
)

// tailBuffer keeps the last maxBytes written to it. A non-positive maxBytes
// keeps everything.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
	overflow bool
}

func newTailBuffer(maxBytes int) *tailBuffer {
	return &tailBuffer{maxBytes: maxBytes}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	if b.maxBytes > 0 && len(b.contents) > b.maxBytes {
		// Trim front to keep the most recent bytes
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
		b.overflow = true
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]byte, len(b.contents))
	copy(cp, b.contents)
	return cp
}

func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow || int64(len(b.contents)) < b.total
}

// String returns the captured text, prefixed with a marker when bytes were dropped
func (b *tailBuffer) String() string {
	data := b.Bytes()
	if !b.Truncated() {
		return string(data)
	}
	dropped := b.TotalBytes() - int64(len(data))
	return fmt.Sprintf("[... %d bytes truncated ...]\n%s", dropped, data)
}
