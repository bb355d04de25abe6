package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Redstone-D/starberry/core/connection"
)

// Client is the transmit side of the protocol: it dials a host, sends a
// request, and parses the reply.
type Client struct {
	safety Safety
	pool   *connection.Pool
}

// NewClient returns a client enforcing the given parse limits on
// responses.
func NewClient(safety Safety) *Client {
	return &Client{safety: safety}
}

// NewPooledClient returns a client that keeps idle connections for
// reuse when the server allows keep-alive. Close the pool when done.
func NewPooledClient(safety Safety, pool *connection.Pool) *Client {
	return &Client{safety: safety, pool: pool}
}

// Fetch dials host, sends the request, and returns the fully parsed
// response. The host may carry an http:// or https:// prefix and an
// explicit port; https is inferred from the prefix, the port from the
// scheme when absent.
func (c *Client) Fetch(ctx context.Context, host string, req *Request) (*Response, error) {
	useTLS := strings.HasPrefix(host, "https://")
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")

	port := 80
	if useTLS {
		port = 443
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		if parsed, err := strconv.Atoi(p); err == nil {
			host, port = h, parsed
		}
	}

	builder := connection.NewBuilder(host, port).TLS(useTLS)

	var conn net.Conn
	var err error
	if c.pool != nil {
		conn, err = c.pool.Get(ctx, builder)
	} else {
		conn, err = builder.Connect(ctx)
	}
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, fmt.Errorf("http: set deadline: %w", err)
		}
	}

	if req.Meta.Host() == "" {
		req.Meta.SetHost(host)
	}
	resp, err := c.exchange(conn, req)
	if err != nil {
		conn.Close()
		return nil, err
	}

	switch {
	case c.pool != nil && resp.Meta.KeepAlive():
		_ = conn.SetDeadline(time.Time{})
		c.pool.Put(builder.Address(), conn)
	default:
		conn.Close()
	}
	return resp, nil
}

func (c *Client) exchange(conn net.Conn, req *Request) (*Response, error) {
	if err := req.Send(conn); err != nil {
		return nil, fmt.Errorf("http: send request: %w", err)
	}
	r := bufio.NewReader(conn)
	resp, err := ParseResponseLazy(r, c.safety)
	if err != nil {
		return nil, fmt.Errorf("http: parse response: %w", err)
	}
	if err := resp.ParseBody(r, c.safety); err != nil {
		return nil, fmt.Errorf("http: parse response body: %w", err)
	}
	return resp, nil
}

// Fetch is the one-shot convenience wrapper around Client.
func Fetch(ctx context.Context, host string, req *Request, safety Safety) (*Response, error) {
	return NewClient(safety).Fetch(ctx, host, req)
}

// ConnClient issues requests over one established connection, reusing
// it across exchanges while the server keeps it alive. It is not safe
// for concurrent use.
type ConnClient struct {
	conn   net.Conn
	reader *bufio.Reader
	safety Safety
}

// NewConnClient wraps an established connection. The caller keeps
// ownership of conn.
func NewConnClient(conn net.Conn, safety Safety) *ConnClient {
	return &ConnClient{conn: conn, reader: bufio.NewReader(conn), safety: safety}
}

// Do sends one request and returns the fully parsed response. A
// deadline carried by ctx bounds the whole exchange.
func (c *ConnClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("http: set deadline: %w", err)
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := req.Send(c.conn); err != nil {
		return nil, fmt.Errorf("http: send request: %w", err)
	}
	resp, err := ParseResponseLazy(c.reader, c.safety)
	if err != nil {
		return nil, fmt.Errorf("http: parse response: %w", err)
	}
	if err := resp.ParseBody(c.reader, c.safety); err != nil {
		return nil, fmt.Errorf("http: parse response body: %w", err)
	}
	return resp, nil
}
