package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire format (16-byte header + variable sections):
//
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	| Magic "SBRP" (4 bytes)            | Ver    | Type   | Flags  | Codec  |
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	| SequenceID (4 bytes)              | MetaLen (2)     | PayloadLen (2)  |
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	| Metadata (MetaLen bytes) | Payload (PayloadLen bytes)                 |
//	+--------+-----------------+--------------------------------------------+

const (
	// Magic is the 4-byte preface identifying a framed call stream.
	Magic uint32 = 0x53425250 // "SBRP"

	Version byte = 0x01

	HeaderSize = 16

	// MaxSection bounds the metadata and payload sections, each
	// carried as a uint16 length.
	MaxSection = 1<<16 - 1
)

// Frame types.
const (
	TypeCall  byte = 0x01
	TypeReply byte = 0x02
	TypeError byte = 0x03
	TypePing  byte = 0x04
	TypePong  byte = 0x05
)

// Frame flags.
const (
	FlagOneWay byte = 1 << 0 // no reply expected
)

var (
	ErrBadMagic      = errors.New("rpc: bad magic")
	ErrBadVersion    = errors.New("rpc: unsupported version")
	ErrSectionTooBig = errors.New("rpc: section exceeds frame limit")
	ErrShortFrame    = errors.New("rpc: short frame")
	ErrUnknownType   = errors.New("rpc: unknown frame type")
	ErrRemoteFailure = errors.New("rpc: remote failure")
)

// MagicBytes returns the wire preface in transmission order.
func MagicBytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], Magic)
	return b
}

// Frame is one framed message on a call stream.
type Frame struct {
	Type     byte
	Flags    byte
	Codec    CodecID
	Sequence uint32
	Metadata []byte
	Payload  []byte
}

// NewFrame builds a frame of the given type carrying a sequence number.
func NewFrame(typ byte, seq uint32) *Frame {
	return &Frame{Type: typ, Sequence: seq}
}

func (f *Frame) HasFlag(flag byte) bool { return f.Flags&flag != 0 }
func (f *Frame) SetFlag(flag byte)      { f.Flags |= flag }

// Encode renders the frame into a single buffer.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Metadata) > MaxSection || len(f.Payload) > MaxSection {
		return nil, ErrSectionTooBig
	}

	buf := make([]byte, HeaderSize+len(f.Metadata)+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	buf[4] = Version
	buf[5] = f.Type
	buf[6] = f.Flags
	buf[7] = byte(f.Codec)
	binary.BigEndian.PutUint32(buf[8:12], f.Sequence)
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(f.Metadata)))
	binary.BigEndian.PutUint16(buf[14:16], uint16(len(f.Payload)))

	copy(buf[HeaderSize:], f.Metadata)
	copy(buf[HeaderSize+len(f.Metadata):], f.Payload)
	return buf, nil
}

// WriteTo encodes and writes the frame in one call.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	buf, err := f.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrame consumes exactly one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	if binary.BigEndian.Uint32(header[0:4]) != Magic {
		return nil, ErrBadMagic
	}
	if header[4] != Version {
		return nil, fmt.Errorf("%w: %#x", ErrBadVersion, header[4])
	}

	f := &Frame{
		Type:     header[5],
		Flags:    header[6],
		Codec:    CodecID(header[7]),
		Sequence: binary.BigEndian.Uint32(header[8:12]),
	}

	metaLen := int(binary.BigEndian.Uint16(header[12:14]))
	payloadLen := int(binary.BigEndian.Uint16(header[14:16]))

	body := make([]byte, metaLen+payloadLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortFrame, err)
	}
	f.Metadata = body[:metaLen:metaLen]
	f.Payload = body[metaLen:]
	return f, nil
}
