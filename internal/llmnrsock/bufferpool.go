package llmnrsock

import "sync"

// maxDatagramSize covers the largest LLMNR message this responder
// will ever receive; oversize UDP datagrams are truncated by the
// kernel before they reach us.
const maxDatagramSize = 65536

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, maxDatagramSize)
		return &b
	},
}

// getBuffer returns a pooled, full-capacity receive buffer.
func getBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// putBuffer returns buf to the pool for reuse.
func putBuffer(buf *[]byte) {
	bufferPool.Put(buf)
}
