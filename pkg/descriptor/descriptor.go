// Package descriptor is an explicit dispatch-descriptor-per-method
// alternative to compile-time stub generation: each method of a service
// interface is registered once, by name/id, argument decoder, invoker, and
// result encoder, into a Table the dispatcher looks methods up in by
// MethodID. internal/fixtures hand-writes these tables the way a generator
// driven from an interface schema would emit them, using TypedMethod (see
// codec.go) to build a Method from a Codec plus a typed invoke function
// instead of hand-rolling the same Decode/Invoke/Encode type assertions
// for every method. The core itself never depends on how a Table was
// produced.
package descriptor

import (
	"context"
	"fmt"
)

// MethodID is the opaque identifier carried on the wire in Command.Method.
// It must be unique across overloads of the same method name.
type MethodID string

// Arity builds a MethodID that disambiguates overloads of the same method
// name by argument count, e.g. Arity("recv", 1) -> "recv@1".
func Arity(name string, arity int) MethodID {
	return MethodID(fmt.Sprintf("%s@%d", name, arity))
}

// Method is one dispatch descriptor: decode the wire payload into a typed
// argument value, invoke it against the service object, and encode the
// result back to bytes.
type Method struct {
	ID     MethodID
	Decode func(payload []byte) (any, error)
	Invoke func(ctx context.Context, service any, args any) (any, error)
	Encode func(result any) ([]byte, error)
}

// Table is a dispatch table keyed by MethodID, registered once per service
// type and shared by every node spawned with that service.
type Table struct {
	methods map[MethodID]Method
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{methods: make(map[MethodID]Method)}
}

// Register adds m to the table, keyed by m.ID.
func (t *Table) Register(m Method) *Table {
	t.methods[m.ID] = m
	return t
}

// Lookup resolves a wire method identifier. The dispatcher treats a miss
// as a programming error: the binding layer must guarantee consistent
// dispatch tables on both sides of a call.
func (t *Table) Lookup(id string) (Method, bool) {
	m, ok := t.methods[MethodID(id)]
	return m, ok
}
