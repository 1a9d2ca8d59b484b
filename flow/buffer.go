package flow

// DefaultBufferSize is the initial size of a Buffer.
const DefaultBufferSize = 2 << 20

// Buffer is scratch memory reused across I/O calls. It grows once, to the
// first size it cannot serve, and never shrinks.
type Buffer struct {
	buf    []byte
	maxBuf bool
}

// NewBuffer returns a Buffer of DefaultBufferSize bytes.
func NewBuffer() *Buffer {
	return NewBufferSize(DefaultBufferSize)
}

// NewBufferSize returns a Buffer starting at size bytes.
func NewBufferSize(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// Get returns at least size bytes unless the buffer already grew once, in
// which case the whole buffer is returned and the caller works in turns.
func (b *Buffer) Get(size int) []byte {
	if size <= len(b.buf) || b.maxBuf {
		return b.buf
	}
	b.buf = append(b.buf, make([]byte, size-len(b.buf))...)
	b.maxBuf = true
	return b.buf[:size]
}

// Len is the current size of the buffer.
func (b *Buffer) Len() int {
	return len(b.buf)
}
