//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const (
	numBuffers   = 3
	writeBufSize = 64 * 1024
	readBufSize  = 1024 * 1024

	// DefaultAbortTimeout bounds how long Abort waits for flushed
	// data to reach the transport.
	DefaultAbortTimeout = 5 * time.Second
)

var (
	// ErrClosed is returned when sending to a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrTooLarge is returned when received data exceeds the size
	// limit.
	ErrTooLarge = errors.New("data too large")
)

// Conn implements a protocol connection. Outgoing data is buffered
// and handed to a writer goroutine so that a blocked transport never
// blocks the receive direction. The send and receive directions may
// be used by different goroutines but each direction must be used by
// one goroutine at a time.
type Conn struct {
	conn      io.ReadWriter
	WriteBuf  []byte
	WritePos  int
	ReadBuf   []byte
	ReadStart int
	ReadEnd   int
	Stats     IOStats

	fromWriter chan []byte
	toWriter   chan []byte
	inflight   sync.WaitGroup
	writerErr  error
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

// IOStats implements I/O statistics.
type IOStats struct {
	Sent    *atomic.Uint64
	Recvd   *atomic.Uint64
	Flushed *atomic.Uint64
}

// NewIOStats creates a new I/O statistics object.
func NewIOStats() IOStats {
	return IOStats{
		Sent:    new(atomic.Uint64),
		Recvd:   new(atomic.Uint64),
		Flushed: new(atomic.Uint64),
	}
}

// Add adds the argument stats to this IOStats and returns the sum.
func (stats IOStats) Add(o IOStats) IOStats {
	sent := new(atomic.Uint64)
	sent.Store(stats.Sent.Load() + o.Sent.Load())

	recvd := new(atomic.Uint64)
	recvd.Store(stats.Recvd.Load() + o.Recvd.Load())

	flushed := new(atomic.Uint64)
	flushed.Store(stats.Flushed.Load() + o.Flushed.Load())

	return IOStats{
		Sent:    sent,
		Recvd:   recvd,
		Flushed: flushed,
	}
}

// Sum returns sum of sent and received bytes.
func (stats IOStats) Sum() uint64 {
	return stats.Sent.Load() + stats.Recvd.Load()
}

func (stats IOStats) String() string {
	return fmt.Sprintf("sent=%d, recvd=%d, flushed=%d",
		stats.Sent.Load(), stats.Recvd.Load(), stats.Flushed.Load())
}

// NewConn creates a new connection around the argument connection.
func NewConn(conn io.ReadWriter) *Conn {
	c := &Conn{
		conn:       conn,
		ReadBuf:    make([]byte, readBufSize),
		fromWriter: make(chan []byte, numBuffers),
		toWriter:   make(chan []byte, numBuffers),
		Stats:      NewIOStats(),
	}

	go c.writer()

	c.WriteBuf = <-c.fromWriter

	return c
}

func (c *Conn) writer() {
	for i := 0; i < numBuffers; i++ {
		c.fromWriter <- make([]byte, writeBufSize)
	}

	for buf := range c.toWriter {
		if c.writerErr == nil {
			_, err := c.conn.Write(buf)
			if err != nil {
				c.writerErr = err
			}
		}
		c.inflight.Done()
		c.fromWriter <- buf[0:cap(buf)]
	}
	close(c.fromWriter)
}

// Flush flushed any pending data in the connection.
func (c *Conn) Flush() error {
	if c.closed {
		return ErrClosed
	}
	if c.WritePos > 0 {
		c.Stats.Sent.Add(uint64(c.WritePos))
		c.inflight.Add(1)
		c.toWriter <- c.WriteBuf[0:c.WritePos]

		next := <-c.fromWriter
		if c.writerErr != nil {
			return c.writerErr
		}

		c.WriteBuf = next
		c.WritePos = 0
		c.Stats.Flushed.Add(1)
	}
	return nil
}

// Fill fills the input buffer from the connection. Any unused data in
// the buffer is moved to the beginning of the buffer. The buffer is
// grown if it can't hold n bytes.
func (c *Conn) Fill(n int) error {
	if c.ReadStart < c.ReadEnd {
		copy(c.ReadBuf[0:], c.ReadBuf[c.ReadStart:c.ReadEnd])
		c.ReadEnd -= c.ReadStart
		c.ReadStart = 0
	} else {
		c.ReadStart = 0
		c.ReadEnd = 0
	}
	if n > len(c.ReadBuf) {
		buf := make([]byte, n)
		copy(buf, c.ReadBuf[:c.ReadEnd])
		c.ReadBuf = buf
	}
	for c.ReadStart+n > c.ReadEnd {
		got, err := c.conn.Read(c.ReadBuf[c.ReadEnd:])
		if err != nil {
			return err
		}
		c.Stats.Recvd.Add(uint64(got))
		c.ReadEnd += got
	}
	return nil
}

// Close flushes any pending data and closes the connection. Close is
// idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Flush()
		c.closed = true

		// Wait that flush completes.
		close(c.toWriter)
		for range c.fromWriter {
		}
		if c.closeErr == nil {
			c.closeErr = c.writerErr
		}
		closer, ok := c.conn.(io.Closer)
		if ok {
			err := closer.Close()
			if c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}

// Abort closes the underlying connection without flushing the write
// buffer. Data that was already flushed is given at most timeout to
// reach the transport so that the peer receives everything sent
// before the failure. Abort unblocks any goroutine reading from or
// writing to the connection. A non-positive timeout selects
// DefaultAbortTimeout.
func (c *Conn) Abort(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultAbortTimeout
	}
	drained := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(drained)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-drained:
	case <-timer.C:
	}

	closer, ok := c.conn.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}

// SendByte sends a byte value.
func (c *Conn) SendByte(val byte) error {
	if c.WritePos+1 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	c.WriteBuf[c.WritePos] = val
	c.WritePos++
	return nil
}

// SendUint32 sends an uint32 value.
func (c *Conn) SendUint32(val int) error {
	if c.WritePos+4 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	c.WriteBuf[c.WritePos+0] = byte((uint32(val) >> 24) & 0xff)
	c.WriteBuf[c.WritePos+1] = byte((uint32(val) >> 16) & 0xff)
	c.WriteBuf[c.WritePos+2] = byte((uint32(val) >> 8) & 0xff)
	c.WriteBuf[c.WritePos+3] = byte(uint32(val) & 0xff)
	c.WritePos += 4
	return nil
}

// SendUint64 sends an uint64 value.
func (c *Conn) SendUint64(val uint64) error {
	if err := c.SendUint32(int(val >> 32)); err != nil {
		return err
	}
	return c.SendUint32(int(val & 0xffffffff))
}

// SendData sends binary data. Data larger than the write buffer is
// sent in multiple writes.
func (c *Conn) SendData(val []byte) error {
	if c.WritePos+4+len(val) > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	err := c.SendUint32(len(val))
	if err != nil {
		return err
	}
	for len(val) > 0 {
		if c.WritePos >= len(c.WriteBuf) {
			if err := c.Flush(); err != nil {
				return err
			}
		}
		n := copy(c.WriteBuf[c.WritePos:], val)
		c.WritePos += n
		val = val[n:]
	}
	return nil
}

// ReceiveByte receives a byte value.
func (c *Conn) ReceiveByte() (byte, error) {
	if c.ReadStart+1 > c.ReadEnd {
		if err := c.Fill(1); err != nil {
			return 0, err
		}
	}
	val := c.ReadBuf[c.ReadStart]
	c.ReadStart++
	return val, nil
}

// ReceiveUint32 receives an uint32 value.
func (c *Conn) ReceiveUint32() (int, error) {
	if c.ReadStart+4 > c.ReadEnd {
		if err := c.Fill(4); err != nil {
			return 0, err
		}
	}
	val := uint32(c.ReadBuf[c.ReadStart+0])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+1])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+2])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+3])
	c.ReadStart += 4

	return int(val), nil
}

// ReceiveUint64 receives an uint64 value.
func (c *Conn) ReceiveUint64() (uint64, error) {
	hi, err := c.ReceiveUint32()
	if err != nil {
		return 0, err
	}
	lo, err := c.ReceiveUint32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReceiveData receives binary data.
func (c *Conn) ReceiveData() ([]byte, error) {
	return c.ReceiveDataLimit(0)
}

// ReceiveDataLimit receives binary data of at most limit bytes. The
// limit 0 means no limit.
func (c *Conn) ReceiveDataLimit(limit int) ([]byte, error) {
	len, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len, limit)
	}
	if c.ReadStart+len > c.ReadEnd {
		if err := c.Fill(len); err != nil {
			return nil, err
		}
	}

	result := make([]byte, len)
	copy(result, c.ReadBuf[c.ReadStart:c.ReadStart+len])
	c.ReadStart += len

	return result, nil
}
