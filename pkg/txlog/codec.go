package txlog

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack"
	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
)

// Codec serializes the data of transactions.
type Codec[T any] interface {
	Encode(data T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// JSONCodec encodes data as JSON. It is the default codec.
type JSONCodec[T any] struct{}

// Encode implements Codec.
func (JSONCodec[T]) Encode(data T) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, xerrors.Errorf("json: %w", err)
	}
	return b, nil
}

// Decode implements Codec.
func (JSONCodec[T]) Decode(b []byte) (T, error) {
	var data T
	if err := json.Unmarshal(b, &data); err != nil {
		return data, xerrors.Errorf("json: %w", err)
	}
	return data, nil
}

// MsgpackCodec encodes data with MessagePack.
type MsgpackCodec[T any] struct{}

// Encode implements Codec.
func (MsgpackCodec[T]) Encode(data T) ([]byte, error) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		return nil, xerrors.Errorf("msgpack: %w", err)
	}
	return b, nil
}

// Decode implements Codec.
func (MsgpackCodec[T]) Decode(b []byte) (T, error) {
	var data T
	if err := msgpack.Unmarshal(b, &data); err != nil {
		return data, xerrors.Errorf("msgpack: %w", err)
	}
	return data, nil
}

// ProtoCodec encodes protobuf messages in their binary wire format. New
// allocates the message to decode into; when nil the message type of T is
// used.
type ProtoCodec[T proto.Message] struct {
	New func() T
}

// Encode implements Codec.
func (c ProtoCodec[T]) Encode(data T) ([]byte, error) {
	b, err := proto.Marshal(data)
	if err != nil {
		return nil, xerrors.Errorf("proto: %w", err)
	}
	return b, nil
}

// Decode implements Codec.
func (c ProtoCodec[T]) Decode(b []byte) (T, error) {
	var msg T
	if c.New != nil {
		msg = c.New()
	} else {
		msg = msg.ProtoReflect().Type().New().Interface().(T)
	}

	if err := proto.Unmarshal(b, msg); err != nil {
		return msg, xerrors.Errorf("proto: %w", err)
	}
	return msg, nil
}

// RawCodec stores byte slices as they are.
type RawCodec struct{}

// Encode implements Codec.
func (RawCodec) Encode(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// Decode implements Codec.
func (RawCodec) Decode(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}
