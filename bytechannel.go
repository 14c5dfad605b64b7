package httpcore

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
)

// ByteChannel is the duplex byte-stream abstraction the exchange
// engine reads and writes against: buffered reads up to N bytes, EOS
// detection on the read half, half-close signaling to the peer, and
// close. net.Conn already
// satisfies the read/write/close surface; ByteChannel wraps it with
// the serialization and half-close semantics the exchange engine
// relies on.
type ByteChannel struct {
	conn net.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex

	writeClosed bool
}

// NewByteChannel wraps conn.
func NewByteChannel(conn net.Conn) *ByteChannel {
	return &ByteChannel{conn: conn}
}

// Read serializes reads per direction. A
// closed peer surfaces as io.EOF on the next read, never a panic.
func (c *ByteChannel) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	n, err := c.conn.Read(p)
	if err != nil && isEOS(err) {
		return n, io.EOF
	}
	return n, err
}

// Write serializes writes per direction. A write that fails with a
// "broken pipe"-class error transitions the write half to closed; no
// further attempts are made.
func (c *ByteChannel) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeClosed {
		return 0, net.ErrClosed
	}
	n, err := c.conn.Write(p)
	if err != nil && isBrokenPipe(err) {
		c.writeClosed = true
	}
	return n, err
}

// CloseWrite half-closes the write direction, signaling EOS to the
// peer without tearing down the read half, when the underlying conn
// supports it (e.g. *net.TCPConn).
func (c *ByteChannel) CloseWrite() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.writeClosed = true
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Close tears down both directions.
func (c *ByteChannel) Close() error {
	return c.conn.Close()
}

func (c *ByteChannel) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
func (c *ByteChannel) LocalAddr() net.Addr  { return c.conn.LocalAddr() }

// isEOS reports whether err represents end-of-stream on the read half:
// the peer closed or half-closed its write side.
func isEOS(err error) bool {
	return errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection")
}

// isBrokenPipe reports whether err is the "broken pipe" class of write
// failure that should stop further write attempts immediately, the way
// fasthttp's check_conn_error_writer.go treats EPIPE/ECONNRESET.
func isBrokenPipe(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection")
}

// acquireBufioReader/acquireBufioWriter wrap a ByteChannel in a
// *bufio.Reader/*bufio.Writer, released back to a pool between
// connections the way fasthttp's server.go pools them. A newly made
// one gets the requested size; a pooled one keeps the size it was
// made with.
var readerPool sync.Pool
var writerPool sync.Pool

func acquireBufioReader(c *ByteChannel, size int) *bufio.Reader {
	if v := readerPool.Get(); v != nil {
		br := v.(*bufio.Reader)
		br.Reset(c)
		return br
	}
	return bufio.NewReaderSize(c, size)
}

func releaseBufioReader(br *bufio.Reader) {
	br.Reset(nil)
	readerPool.Put(br)
}

func acquireBufioWriter(c *ByteChannel, size int) *bufio.Writer {
	if v := writerPool.Get(); v != nil {
		bw := v.(*bufio.Writer)
		bw.Reset(c)
		return bw
	}
	return bufio.NewWriterSize(c, size)
}

func releaseBufioWriter(bw *bufio.Writer) {
	bw.Reset(nil)
	writerPool.Put(bw)
}
