package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"reflect"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// callMeta names the target of a call frame. It travels in the frame
// metadata section, JSON-encoded regardless of the payload codec.
type callMeta struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

// Protocol is the framed-call receive implementation. It claims
// connections whose preface starts with the frame magic and answers call
// frames against a service registry, so an app can serve HTTP and framed
// calls on one port.
type Protocol struct {
	registry *Registry
	logger   zerolog.Logger
	active   atomic.Int64
}

// NewProtocol builds a framed-call protocol around an empty registry.
func NewProtocol() *Protocol {
	return &Protocol{
		registry: NewRegistry(),
		logger:   zerolog.Nop(),
	}
}

// Register exposes receiver's conforming methods under name.
func (p *Protocol) Register(name string, receiver any) error {
	return p.registry.Register(name, receiver)
}

// Registry exposes the service registry.
func (p *Protocol) Registry() *Registry { return p.registry }

// SetLogger wires the connection-level logger.
func (p *Protocol) SetLogger(l zerolog.Logger) { p.logger = l }

// ActiveCalls reports calls currently executing.
func (p *Protocol) ActiveCalls() int64 { return p.active.Load() }

// Name implements connection.Protocol.
func (p *Protocol) Name() string { return "sbrp/1" }

// Test implements connection.Protocol by matching the frame magic.
func (p *Protocol) Test(preface []byte) bool {
	magic := MagicBytes()
	return len(preface) >= len(magic) && bytes.HasPrefix(preface, magic[:])
}

// Serve implements connection.Protocol: it reads frames until the peer
// hangs up or sends something unframeable, answering each call in turn.
// Frames on one connection are answered in arrival order.
func (p *Protocol) Serve(ctx context.Context, conn net.Conn, r *bufio.Reader) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := ReadFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch frame.Type {
		case TypeCall:
			p.handleCall(ctx, conn, frame)
		case TypePing:
			pong := NewFrame(TypePong, frame.Sequence)
			if _, err := pong.WriteTo(conn); err != nil {
				return err
			}
		default:
			p.logger.Warn().Uint8("type", frame.Type).Msg("dropping unknown frame")
			p.reply(conn, errorFrame(frame.Sequence, ErrUnknownType))
		}
	}
}

func (p *Protocol) handleCall(ctx context.Context, conn net.Conn, frame *Frame) {
	p.active.Add(1)
	defer p.active.Add(-1)

	var meta callMeta
	if err := json.Unmarshal(frame.Metadata, &meta); err != nil {
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	codec, err := CodecByID(frame.Codec)
	if err != nil {
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	m, err := p.registry.Lookup(meta.Service, meta.Method)
	if err != nil {
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	arg := reflect.New(m.argType).Interface()
	if err := codec.Unmarshal(frame.Payload, arg); err != nil {
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	result, err := p.registry.Call(ctx, meta.Service, meta.Method, arg)
	if err != nil {
		p.logger.Debug().Err(err).
			Str("service", meta.Service).Str("method", meta.Method).
			Msg("call failed")
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	if frame.HasFlag(FlagOneWay) {
		return
	}

	payload, err := codec.Marshal(result)
	if err != nil {
		p.reply(conn, errorFrame(frame.Sequence, err))
		return
	}

	out := NewFrame(TypeReply, frame.Sequence)
	out.Codec = codec.ID()
	out.Payload = payload
	p.reply(conn, out)
}

func (p *Protocol) reply(conn net.Conn, frame *Frame) {
	if _, err := frame.WriteTo(conn); err != nil {
		p.logger.Warn().Err(err).Msg("write reply failed")
	}
}

func errorFrame(seq uint32, err error) *Frame {
	f := NewFrame(TypeError, seq)
	f.Payload = []byte(err.Error())
	return f
}
