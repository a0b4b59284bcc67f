package binary

import (
	"testing"

	"github.com/meshbus/meshbus/internal/buffer"
)

func TestUint32RoundTrip(t *testing.T) {
	out := buffer.NewOutputBuffer(4)
	if err := PutUint32(out, 0xdeadbeef); err != nil {
		t.Fatalf("PutUint32: %v", err)
	}
	in := buffer.NewInputBuffer(out.Bytes())
	got, err := GetUint32(in)
	if err != nil {
		t.Fatalf("GetUint32: %v", err)
	}
	if got != 0xdeadbeef {
		t.Errorf("got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestInt32RoundTripNegative(t *testing.T) {
	out := buffer.NewOutputBuffer(4)
	if err := PutInt32(out, -42); err != nil {
		t.Fatalf("PutInt32: %v", err)
	}
	in := buffer.NewInputBuffer(out.Bytes())
	got, err := GetInt32(in)
	if err != nil {
		t.Fatalf("GetInt32: %v", err)
	}
	if got != -42 {
		t.Errorf("got %d, want -42", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	out := buffer.NewOutputBuffer(SizeOfString("hello, bus"))
	if err := PutString(out, "hello, bus"); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	in := buffer.NewInputBuffer(out.Bytes())
	got, err := GetString(in)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "hello, bus" {
		t.Errorf("got %q, want %q", got, "hello, bus")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	out := buffer.NewOutputBuffer(SizeOfBytes(data))
	if err := PutBytes(out, data); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	in := buffer.NewInputBuffer(out.Bytes())
	got, err := GetBytes(in)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("got %v, want %v", got, data)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("byte %d: got %d, want %d", i, got[i], data[i])
		}
	}
}
