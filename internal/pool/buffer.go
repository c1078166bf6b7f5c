package pool

import "sync"

// BufferSize is the capacity of pooled receive buffers. It matches the
// largest reply a control daemon sends in one datagram.
const BufferSize = 4096

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, BufferSize)
		return &b
	},
}

// GetBuffer returns a zero-length buffer with BufferSize capacity.
func GetBuffer() []byte {
	b := bufferPool.Get().(*[]byte)
	return (*b)[:0]
}

// PutBuffer returns b to the pool. Buffers whose capacity was changed by the
// caller are dropped instead of pooled.
func PutBuffer(b []byte) {
	if cap(b) != BufferSize {
		return
	}
	b = b[:0]
	bufferPool.Put(&b)
}
