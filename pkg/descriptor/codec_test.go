package descriptor

import (
	"context"
	"errors"
	"testing"
)

type incrArgs struct{ N int }

func TestTypedMethodJSONRoundTrip(t *testing.T) {
	m := TypedMethod(Arity("incr", 1), JSONCodec(), func(ctx context.Context, service any, a incrArgs) (int, error) {
		return service.(int) + a.N, nil
	})

	payload, err := JSONCodec().Marshal(incrArgs{N: 5})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	args, err := m.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	result, err := m.Invoke(context.Background(), 37, args)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	out, err := m.Encode(result)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var n int
	if err := JSONCodec().Unmarshal(out, &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if n != 42 {
		t.Fatalf("n = %d, want 42", n)
	}
}

func TestTypedMethodDecodeEmptyPayloadUsesZeroValue(t *testing.T) {
	m := TypedMethod(Arity("last", 0), JSONCodec(), func(ctx context.Context, service any, a incrArgs) (string, error) {
		if a.N != 0 {
			t.Fatalf("N = %d, want zero value 0", a.N)
		}
		return "ok", nil
	})
	args, err := m.Decode(nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := m.Invoke(context.Background(), nil, args); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}

func TestTypedMethodInvokePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	m := TypedMethod(Arity("boom", 0), JSONCodec(), func(ctx context.Context, service any, a incrArgs) (int, error) {
		return 0, boom
	})
	args, err := m.Decode(nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := m.Invoke(context.Background(), nil, args); !errors.Is(err, boom) {
		t.Fatalf("Invoke error = %v, want %v", err, boom)
	}
}

func TestCBORCodecRoundTrip(t *testing.T) {
	c, err := CBORCodec()
	if err != nil {
		t.Fatalf("CBORCodec: %v", err)
	}
	data, err := c.Marshal(incrArgs{N: 9})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var a incrArgs
	if err := c.Unmarshal(data, &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.N != 9 {
		t.Fatalf("N = %d, want 9", a.N)
	}
}

func TestProtoCodecRejectsNonProtoValue(t *testing.T) {
	c := ProtoCodec()
	if _, err := c.Marshal(incrArgs{N: 1}); err == nil {
		t.Fatal("Marshal: want error for non-proto.Message value, got nil")
	}
	if err := c.Unmarshal([]byte{}, &incrArgs{}); err == nil {
		t.Fatal("Unmarshal: want error for non-proto.Message target, got nil")
	}
}
