package http

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/Redstone-D/starberry/core/extensions"
	"github.com/Redstone-D/starberry/core/middleware"
	"github.com/Redstone-D/starberry/core/router"
)

// methodPrefixes are the byte sequences the protocol sniff accepts. Every
// HTTP/1.x request starts with one of the method tokens.
var methodPrefixes = [][]byte{
	[]byte("GET "), []byte("POST"), []byte("PUT "), []byte("DELE"),
	[]byte("PATC"), []byte("HEAD"), []byte("OPTI"), []byte("TRAC"), []byte("CONN"),
}

// Protocol is the HTTP/1.1 receive implementation: it sniffs the request
// preface, parses metadata lazily, resolves the URL tree, drives the
// middleware chain, and keeps the connection alive between requests when
// the exchange allows it.
type Protocol struct {
	tree    *router.Tree[*Rc]
	safety  Safety
	config  *extensions.Params
	statics *extensions.Locals
	logger  zerolog.Logger
}

// NewProtocol builds an HTTP protocol around a fresh URL tree carrying
// the given default middleware chain.
func NewProtocol(defaults middleware.Chain[*Rc]) *Protocol {
	return &Protocol{
		tree:    router.NewTree(defaults),
		safety:  DefaultSafety(),
		config:  extensions.NewParams(),
		statics: extensions.NewLocals(),
		logger:  zerolog.Nop(),
	}
}

// Tree exposes the URL tree for route registration.
func (p *Protocol) Tree() *router.Tree[*Rc] { return p.tree }

// Handle registers a literal path on the tree.
func (p *Protocol) Handle(path string, h middleware.Handler[*Rc]) *router.Node[*Rc] {
	return p.tree.Handle(path, h)
}

// Register descends the tree along the pattern sequence.
func (p *Protocol) Register(patterns ...router.Pattern) *router.Node[*Rc] {
	return p.tree.Register(patterns...)
}

// SetSafety replaces the protocol's baseline limits.
func (p *Protocol) SetSafety(s Safety) { p.safety = s }

// SetStores wires the app-level config and statics handed to every Rc.
func (p *Protocol) SetStores(config *extensions.Params, statics *extensions.Locals) {
	if config != nil {
		p.config = config
	}
	if statics != nil {
		p.statics = statics
	}
}

// SetLogger wires the logger handed to every Rc.
func (p *Protocol) SetLogger(l zerolog.Logger) { p.logger = l }

// Name implements connection.Protocol.
func (p *Protocol) Name() string { return "http/1.1" }

// Test reports whether the preface starts with an HTTP method token.
func (p *Protocol) Test(preface []byte) bool {
	for _, m := range methodPrefixes {
		n := len(m)
		if len(preface) < n {
			n = len(preface)
		}
		if n > 0 && bytes.Equal(preface[:n], m[:n]) {
			return true
		}
	}
	return false
}

// Serve drives the request/response lifecycle until the peer goes away,
// an error occurs, or the exchange asks for the connection to close.
func (p *Protocol) Serve(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := ParseRequestLazy(r, p.safety)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			resp := StatusResponse(StatusBadRequest)
			w := bufio.NewWriter(conn)
			_ = resp.Send(w)
			_ = w.Flush()
			return err
		}

		rc := NewRc(req, r, conn, p.safety)
		rc.Config = p.config
		rc.Statics = p.statics
		rc.Logger = p.logger
		rc.Endpoint = p.tree.Resolve(req.Meta.PathOnly())

		p.dispatch(ctx, rc)

		// Anything the handler left on the wire must go before the
		// next request can be framed. A body that cannot be cleared
		// forces the connection closed.
		drained := req.Body.Drain(r, req.Meta)

		if err := rc.SendResponse(); err != nil {
			return err
		}
		if !drained || !req.Meta.KeepAlive() {
			return nil
		}
	}
}

func (p *Protocol) dispatch(ctx context.Context, rc *Rc) {
	if rc.Endpoint == nil || rc.Endpoint.Node.Handler() == nil {
		rc.Status(StatusNotFound)
		return
	}
	node := rc.Endpoint.Node
	if code, ok := rc.Safety().Check(rc.Request.Meta); !ok {
		rc.Status(code)
		return
	}
	if err := node.Chain().Run(ctx, rc, node.Handler()); err != nil {
		p.logger.Error().Err(err).Str("path", rc.Path()).Msg("handler failed")
		rc.Status(StatusInternalServerError)
	}
}
