package buffer

import (
	"bytes"
	"errors"
	"testing"
)

func TestOutputBufferExactCapacityIsLegal(t *testing.T) {
	out := NewOutputBuffer(4)
	if err := out.Append([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Append to exact capacity should succeed, got %v", err)
	}
	if out.Len() != 4 {
		t.Errorf("Len() = %d, want 4", out.Len())
	}
}

func TestOutputBufferOneByteOverOverflows(t *testing.T) {
	out := NewOutputBuffer(4)
	if err := out.Append([]byte{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error on partial fill: %v", err)
	}
	if err := out.Append([]byte{4, 5}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Append() = %v, want ErrOverflow", err)
	}
	if out.Len() != 3 {
		t.Errorf("a failed Append should leave the cursor untouched, got Len() = %d", out.Len())
	}
}

func TestInputBufferTakeExactRemainingIsLegal(t *testing.T) {
	in := NewInputBuffer([]byte{1, 2, 3})
	got, err := in.Take(3)
	if err != nil {
		t.Fatalf("Take(3) on a 3-byte buffer should succeed, got %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Take() = %v, want [1 2 3]", got)
	}
	if in.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", in.Remaining())
	}
}

func TestInputBufferTakeBeyondRemainingOverflows(t *testing.T) {
	in := NewInputBuffer([]byte{1, 2, 3})
	if _, err := in.Take(4); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Take(4) = %v, want ErrOverflow", err)
	}
}
