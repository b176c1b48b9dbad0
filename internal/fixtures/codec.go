// Package fixtures hand-writes the binding-layer glue — service objects,
// dispatch descriptor tables, and client stubs — that a real code
// generator driven from an interface schema would emit. The core
// (pkg/node, pkg/descriptor, pkg/mailbox, pkg/scheduler, pkg/pending)
// never depends on any of it; these are test doubles exercising the core
// through the same seams a production binding layer would use.
package fixtures

import "github.com/urands/meshcall/pkg/descriptor"

// argCodec is the one codec every generated client stub and dispatch
// table in this package shares, both for descriptor.TypedMethod's
// server-side decode/encode and for a client's own request/reply
// marshaling.
var argCodec = mustCBOR()

func mustCBOR() descriptor.Codec {
	c, err := descriptor.CBORCodec()
	if err != nil {
		panic(err)
	}
	return c
}

func encodeArgs(v any) ([]byte, error) { return argCodec.Marshal(v) }

func decodeArgs(b []byte, v any) error { return argCodec.Unmarshal(b, v) }
