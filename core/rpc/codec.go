package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

var ErrUnknownCodec = errors.New("rpc: unknown codec")

// CodecID identifies a payload encoding on the wire.
type CodecID byte

const (
	CodecJSON     CodecID = 0x01
	CodecProtobuf CodecID = 0x02
)

// Codec encodes and decodes call payloads.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ID() CodecID
}

// CodecByID resolves the codec named in a frame header.
func CodecByID(id CodecID) (Codec, error) {
	switch id {
	case CodecJSON:
		return JSONCodec{}, nil
	case CodecProtobuf:
		return ProtobufCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownCodec, byte(id))
	}
}

// JSONCodec is the default payload encoding.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) ID() CodecID                        { return CodecJSON }

// ProtobufCodec encodes payloads that implement proto.Message.
type ProtobufCodec struct{}

func (ProtobufCodec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("rpc: %T does not implement proto.Message", v)
	}
	return proto.Marshal(msg)
}

func (ProtobufCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("rpc: %T does not implement proto.Message", v)
	}
	return proto.Unmarshal(data, msg)
}

func (ProtobufCodec) ID() CodecID { return CodecProtobuf }
