package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Redstone-D/starberry/core/connection"
)

var ErrClientClosed = errors.New("rpc: client closed")

// Call tracks one in-flight invocation.
type Call struct {
	Service string
	Method  string
	Args    any
	Reply   any
	Error   error
	Done    chan *Call
}

func (c *Call) finish() {
	select {
	case c.Done <- c:
	default:
	}
}

// Client issues framed calls over a single connection. Replies are
// matched to calls by sequence number, so calls may be issued
// concurrently from any goroutine.
type Client struct {
	conn    net.Conn
	codec   Codec
	seq     atomic.Uint32
	pending sync.Map // uint32 -> *Call

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCodec selects the payload encoding for outgoing calls.
func WithCodec(c Codec) ClientOption {
	return func(cl *Client) { cl.codec = c }
}

// Dial connects to a framed-call server.
func Dial(ctx context.Context, host string, port int, opts ...ClientOption) (*Client, error) {
	conn, err := connection.NewBuilder(host, port).Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, opts...), nil
}

// NewClient wraps an established connection. The client owns conn and
// closes it on Close or receive failure.
func NewClient(conn net.Conn, opts ...ClientOption) *Client {
	c := &Client{conn: conn, codec: JSONCodec{}}
	for _, opt := range opts {
		opt(c)
	}
	go c.receive()
	return c
}

// Call issues an invocation and waits for its reply or ctx.
func (c *Client) Call(ctx context.Context, service, method string, args, reply any) error {
	call := &Call{
		Service: service,
		Method:  method,
		Args:    args,
		Reply:   reply,
		Done:    make(chan *Call, 1),
	}
	c.Go(call)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

// Go issues an invocation without waiting; call.Done receives the call
// once the reply lands.
func (c *Client) Go(call *Call) *Call {
	if c.closed.Load() {
		call.Error = ErrClientClosed
		call.finish()
		return call
	}

	seq := c.seq.Add(1)

	meta, err := json.Marshal(callMeta{Service: call.Service, Method: call.Method})
	if err != nil {
		call.Error = err
		call.finish()
		return call
	}
	payload, err := c.codec.Marshal(call.Args)
	if err != nil {
		call.Error = err
		call.finish()
		return call
	}

	frame := NewFrame(TypeCall, seq)
	frame.Codec = c.codec.ID()
	frame.Metadata = meta
	frame.Payload = payload

	c.pending.Store(seq, call)

	c.writeMu.Lock()
	_, err = frame.WriteTo(c.conn)
	c.writeMu.Unlock()
	if err != nil {
		c.pending.Delete(seq)
		call.Error = err
		call.finish()
	}
	return call
}

// receive matches reply frames to pending calls until the connection
// dies, then fails everything still in flight.
func (c *Client) receive() {
	var cause error
	for {
		frame, err := ReadFrame(c.conn)
		if err != nil {
			cause = err
			break
		}

		v, ok := c.pending.LoadAndDelete(frame.Sequence)
		if !ok {
			continue
		}
		call := v.(*Call)

		switch frame.Type {
		case TypeReply:
			codec, err := CodecByID(frame.Codec)
			if err == nil {
				err = codec.Unmarshal(frame.Payload, call.Reply)
			}
			call.Error = err
		case TypeError:
			call.Error = fmt.Errorf("%w: %s", ErrRemoteFailure, frame.Payload)
		case TypePong:
			// resolved ping, no payload
		default:
			call.Error = ErrUnknownType
		}
		call.finish()
	}

	c.closed.Store(true)
	c.conn.Close()
	c.pending.Range(func(key, v any) bool {
		c.pending.Delete(key)
		call := v.(*Call)
		call.Error = errors.Join(ErrClientClosed, cause)
		call.finish()
		return true
	})
}

// Ping round-trips a keepalive frame.
func (c *Client) Ping(ctx context.Context) error {
	call := &Call{Done: make(chan *Call, 1)}
	seq := c.seq.Add(1)
	c.pending.Store(seq, call)

	frame := NewFrame(TypePing, seq)
	c.writeMu.Lock()
	_, err := frame.WriteTo(c.conn)
	c.writeMu.Unlock()
	if err != nil {
		c.pending.Delete(seq)
		return err
	}

	select {
	case <-ctx.Done():
		c.pending.Delete(seq)
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

// Close tears the connection down. In-flight calls fail with
// ErrClientClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}
