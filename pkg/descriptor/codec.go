package descriptor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
)

// Codec marshals and unmarshals the typed argument and result values a
// Method carries across the mailbox boundary as opaque bytes. It builds a
// Method's Decode/Invoke/Encode triple via TypedMethod, and client stubs
// use the same Codec to encode arguments and decode replies; the core
// never uses it, since Command.Payload/Response.Payload stay
// opaque all the way through the mailbox, scheduler, and dispatcher.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

// JSONCodec returns a Codec backed by encoding/json.
func JSONCodec() Codec { return jsonCodec{} }

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBORCodec returns a deterministic CBOR Codec using the "Canonical CBOR"
// encoding rules of RFC 7049 section 3.9.
func CBORCodec() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

type protoCodec struct {
	mo proto.MarshalOptions
	uo proto.UnmarshalOptions
}

// ProtoCodec returns a deterministic Protocol Buffers Codec. Marshal and
// Unmarshal both require v to implement proto.Message.
func ProtoCodec() Codec {
	return protoCodec{mo: proto.MarshalOptions{Deterministic: true}}
}

func (p protoCodec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("descriptor: value does not implement proto.Message: %T", v)
	}
	return p.mo.Marshal(msg)
}

func (p protoCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("descriptor: target does not implement proto.Message: %T", v)
	}
	return p.uo.Unmarshal(data, msg)
}

// TypedMethod builds a Method from a Codec and a typed invoke function, so
// a service's dispatch table states the Go types involved once instead of
// hand-writing a Decode/Invoke/Encode triple that repeats the same type
// assertion for every method. Args' zero value must be a valid "no
// arguments" value for methods called with an empty payload.
func TypedMethod[Args any, Result any](id MethodID, c Codec, invoke func(ctx context.Context, service any, args Args) (Result, error)) Method {
	return Method{
		ID: id,
		Decode: func(payload []byte) (any, error) {
			var a Args
			if len(payload) == 0 {
				return a, nil
			}
			if err := c.Unmarshal(payload, &a); err != nil {
				return nil, err
			}
			return a, nil
		},
		Invoke: func(ctx context.Context, service any, args any) (any, error) {
			a, _ := args.(Args)
			return invoke(ctx, service, a)
		},
		Encode: func(result any) ([]byte, error) {
			r, _ := result.(Result)
			return c.Marshal(r)
		},
	}
}
