// Package connection provides the transport layer: the Protocol capability
// pair used to multiplex wire protocols on an accepted connection, and a
// client-side dial builder for plain TCP and TLS.
package connection

import (
	"bufio"
	"context"
	"errors"
	"net"
)

// ErrNoProtocol is returned when no registered protocol claims the
// connection preface.
var ErrNoProtocol = errors.New("connection: no protocol matched preface")

// prefaceSize is how many buffered bytes Test may inspect. Eight bytes
// covers every HTTP method token and the RPC frame magic.
const prefaceSize = 8

// Protocol is the receive-capable role: Test inspects the first buffered
// bytes of a connection without consuming them, and Serve drives the full
// request lifecycle once the protocol is selected. Serve owns the
// connection until it returns; returning nil means the connection was
// ended cleanly.
type Protocol interface {
	Name() string
	Test(preface []byte) bool
	Serve(ctx context.Context, conn net.Conn, r *bufio.Reader) error
}

// Registry holds protocols in precedence order. With a single protocol
// registered, selection skips the preface sniff entirely.
type Registry struct {
	protocols []Protocol
}

// NewRegistry builds a registry preserving registration order, which is
// the selection precedence.
func NewRegistry(protocols ...Protocol) *Registry {
	return &Registry{protocols: append([]Protocol{}, protocols...)}
}

// Register appends a protocol at the lowest precedence.
func (g *Registry) Register(p Protocol) {
	g.protocols = append(g.protocols, p)
}

// Len reports the number of registered protocols.
func (g *Registry) Len() int { return len(g.protocols) }

// Protocols returns the registered protocols in precedence order.
func (g *Registry) Protocols() []Protocol { return g.protocols }

// Select peeks at the connection preface and returns the first protocol
// whose Test accepts it. The peeked bytes stay in the reader for the
// selected protocol to consume.
func (g *Registry) Select(r *bufio.Reader) (Protocol, error) {
	if len(g.protocols) == 1 {
		return g.protocols[0], nil
	}
	preface, err := r.Peek(prefaceSize)
	if len(preface) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, ErrNoProtocol
	}
	for _, p := range g.protocols {
		if p.Test(preface) {
			return p, nil
		}
	}
	return nil, ErrNoProtocol
}

// Dispatch selects a protocol for conn and serves it.
func (g *Registry) Dispatch(ctx context.Context, conn net.Conn) error {
	r := bufio.NewReader(conn)
	p, err := g.Select(r)
	if err != nil {
		return err
	}
	return p.Serve(ctx, conn, r)
}
