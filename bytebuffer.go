package httpcore

import (
	"github.com/valyala/bytebufferpool"
)

// bodyBufferPool pools the scratch buffers used by Body.Drain (body.go)
// and by the chunked response encoder (framing.go).
var bodyBufferPool bytebufferpool.Pool

// acquireByteBuffer returns an empty byte buffer from the pool.
func acquireByteBuffer() *bytebufferpool.ByteBuffer {
	return bodyBufferPool.Get()
}

// releaseByteBuffer returns b to the pool. b.B must not be touched
// afterward.
func releaseByteBuffer(b *bytebufferpool.ByteBuffer) {
	bodyBufferPool.Put(b)
}
