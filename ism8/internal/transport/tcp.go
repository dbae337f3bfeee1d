// Package transport provides the TCP transport the ISM8 module connects to
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrClosed is returned by Accept after the listener has been closed
var ErrClosed = errors.New("transport: listener closed")

// TCPListener accepts ISM8 connections
type TCPListener struct {
	addr      string
	keepAlive time.Duration
	ln        net.Listener
	mu        sync.RWMutex
	closed    bool
}

// NewTCPListener creates a listener for addr, e.g. ":12004"
func NewTCPListener(addr string) *TCPListener {
	return &TCPListener{
		addr:      addr,
		keepAlive: 30 * time.Second,
	}
}

// SetKeepAlive sets the TCP keep-alive period of accepted connections
func (l *TCPListener) SetKeepAlive(d time.Duration) {
	l.mu.Lock()
	l.keepAlive = d
	l.mu.Unlock()
}

// Open starts listening
func (l *TCPListener) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return nil
	}

	lc := net.ListenConfig{KeepAlive: l.keepAlive}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen TCP: %w", err)
	}

	l.ln = ln
	l.closed = false
	return nil
}

// Addr returns the listening address, or nil before Open
func (l *TCPListener) Addr() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Accept waits for the next connection or for ctx to be done
func (l *TCPListener) Accept(ctx context.Context) (net.Conn, error) {
	l.mu.RLock()
	ln := l.ln
	l.mu.RUnlock()

	if ln == nil {
		return nil, fmt.Errorf("transport not open")
	}

	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if l.IsClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}
	return conn, nil
}

// Close stops listening
func (l *TCPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil || l.closed {
		return nil
	}

	l.closed = true
	return l.ln.Close()
}

// IsClosed returns true if the listener is closed
func (l *TCPListener) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Conn wraps an accepted connection with read and write deadlines.
// Writes are serialized so frames from different goroutines never interleave.
type Conn struct {
	conn         net.Conn
	mu           sync.RWMutex
	writeMu      sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
	closed       bool
}

// NewConn wraps conn
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:         conn,
		writeTimeout: 5 * time.Second,
	}
}

// SetReadTimeout sets the idle timeout for Read; zero waits forever
func (c *Conn) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	c.readTimeout = d
	c.mu.Unlock()
}

// SetWriteTimeout sets the deadline applied to every Write; zero waits forever
func (c *Conn) SetWriteTimeout(d time.Duration) {
	c.mu.Lock()
	c.writeTimeout = d
	c.mu.Unlock()
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Read reads the next chunk into buf
func (c *Conn) Read(buf []byte) (int, error) {
	c.mu.RLock()
	readTimeout := c.readTimeout
	c.mu.RUnlock()

	var deadline time.Time
	if readTimeout > 0 {
		deadline = time.Now().Add(readTimeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}
	return c.conn.Read(buf)
}

// Write writes one complete frame
func (c *Conn) Write(data []byte) (int, error) {
	c.mu.RLock()
	writeTimeout := c.writeTimeout
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if writeTimeout > 0 {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set write deadline: %w", err)
	}

	n, err := c.conn.Write(data)
	if err != nil {
		return n, fmt.Errorf("write TCP: %w", err)
	}
	if n != len(data) {
		return n, fmt.Errorf("partial write: %d of %d bytes", n, len(data))
	}
	return n, nil
}

// Close closes the connection; closing twice is a no-op
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// IsClosed returns true if Close has been called
func (c *Conn) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
