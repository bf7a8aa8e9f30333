package store

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values before they reach a Storage.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is human-readable; handy when inspecting redis by hand.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return "json" }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec is the compact default.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return "msgpack" }
func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CodecByName resolves a configured codec name. Empty means msgpack.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return MsgpackCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
