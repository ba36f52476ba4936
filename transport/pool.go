// ConnPool is a basic pool of reusable TCP connections to a single
// address, kept as an alternative to DialTCP's one-connection-per-
// Endpoint approach for a caller that wants to borrow a raw net.Conn,
// wire its own Endpoint over it, and return it when done.
package transport

import (
	"fmt"
	"net"
	"sync"
)

// ConnPool manages a pool of reusable TCP connections to a single
// address. Connections are created lazily and capped at maxConns.
type ConnPool struct {
	mu       sync.Mutex
	conns    chan *PoolConn
	addr     string
	maxConns int
	curConns int
	factory  func() (net.Conn, error)
}

// PoolConn wraps a net.Conn with pool bookkeeping.
type PoolConn struct {
	net.Conn
	pool     *ConnPool
	unusable bool
}

// NewConnPool creates a connection pool with the given max size, using
// factory to create each new connection on demand.
func NewConnPool(addr string, maxConns int, factory func() (net.Conn, error)) *ConnPool {
	return &ConnPool{
		conns:    make(chan *PoolConn, maxConns),
		addr:     addr,
		maxConns: maxConns,
		factory:  factory,
	}
}

// Get retrieves a connection from the pool, creating one if the pool
// is below capacity, or blocking until one is returned otherwise.
func (p *ConnPool) Get() (*PoolConn, error) {
	select {
	case conn := <-p.conns:
		if conn.unusable {
			return p.createNew()
		}
		return conn, nil
	default:
		if p.curConns < p.maxConns {
			return p.createNew()
		}
		conn := <-p.conns
		return conn, nil
	}
}

// Put returns conn to the pool, or closes and discards it if it was
// marked unusable.
func (p *ConnPool) Put(conn *PoolConn) {
	if conn.unusable {
		conn.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return
	}
	p.conns <- conn
}

// MarkUnusable flags conn so the next Put discards it instead of
// returning it to circulation — call this after a write or read error.
func (conn *PoolConn) MarkUnusable() { conn.unusable = true }

// Close shuts down the pool and every connection still in it.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.conns)
	for conn := range p.conns {
		conn.Close()
		p.curConns--
	}
	return nil
}

func (p *ConnPool) createNew() (*PoolConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.curConns >= p.maxConns {
		return nil, fmt.Errorf("transport: connection pool exhausted")
	}

	netConn, err := p.factory()
	if err != nil {
		return nil, err
	}

	p.curConns++
	return &PoolConn{Conn: netConn, pool: p}, nil
}
