package connection

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("connection: pool closed")

// Pool keeps idle client connections per address so sequential
// exchanges to the same host skip the dial. Callers Get a connection,
// use it, and either Put it back (still healthy, server keeping it
// alive) or Discard it.
type Pool struct {
	mu      sync.Mutex
	idle    map[string][]net.Conn
	perHost int
	closed  bool

	hits  atomic.Uint64
	dials atomic.Uint64
}

// NewPool builds a pool keeping at most perHost idle connections per
// address.
func NewPool(perHost int) *Pool {
	if perHost <= 0 {
		perHost = 2
	}
	return &Pool{idle: make(map[string][]net.Conn), perHost: perHost}
}

// Get returns an idle connection for the builder's address or dials a
// fresh one.
func (p *Pool) Get(ctx context.Context, b *Builder) (net.Conn, error) {
	addr := b.Address()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if conns := p.idle[addr]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		p.idle[addr] = conns[:len(conns)-1]
		p.mu.Unlock()
		p.hits.Add(1)
		return conn, nil
	}
	p.mu.Unlock()

	p.dials.Add(1)
	return b.Connect(ctx)
}

// Put returns a healthy connection to the idle set under the address it
// was obtained for. Connections over the per-host cap are closed.
func (p *Pool) Put(addr string, conn net.Conn) {
	p.mu.Lock()
	if p.closed || len(p.idle[addr]) >= p.perHost {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.idle[addr] = append(p.idle[addr], conn)
	p.mu.Unlock()
}

// Discard closes a connection that must not be reused.
func (p *Pool) Discard(conn net.Conn) {
	conn.Close()
}

// Stats reports idle reuse hits and fresh dials.
func (p *Pool) Stats() (hits, dials uint64) {
	return p.hits.Load(), p.dials.Load()
}

// IdleCount reports idle connections held for addr.
func (p *Pool) IdleCount(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[addr])
}

// Close drops every idle connection. Subsequent Gets fail.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, conns := range p.idle {
		for _, c := range conns {
			c.Close()
		}
	}
	p.idle = map[string][]net.Conn{}
}
