// Package binary implements the binary wire codec: a length-prefixed
// message-type string, two signed 32-bit recipient coordinates, and a
// payload, matching spec.md's binary wire layout. Scalar/string puts follow
// the same big-endian encoding.Append/Retrieve pattern used throughout the
// original's OutputBuffer/InputBuffer template specializations.
package binary

import (
	"encoding/binary"

	"github.com/meshbus/meshbus/internal/buffer"
)

// PutUint32 appends a big-endian uint32 to out.
func PutUint32(out *buffer.OutputBuffer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return out.Append(b[:])
}

// PutInt32 appends a big-endian two's-complement int32 to out.
func PutInt32(out *buffer.OutputBuffer, v int32) error {
	return PutUint32(out, uint32(v))
}

// PutString appends a uint32 length prefix followed by the UTF-8 bytes of s.
func PutString(out *buffer.OutputBuffer, s string) error {
	if err := PutUint32(out, uint32(len(s))); err != nil {
		return err
	}
	return out.Append([]byte(s))
}

// PutBytes appends a uint32 length prefix followed by data.
func PutBytes(out *buffer.OutputBuffer, data []byte) error {
	if err := PutUint32(out, uint32(len(data))); err != nil {
		return err
	}
	return out.Append(data)
}

// SizeOfString reports how many bytes PutString(out, s) would write.
func SizeOfString(s string) int { return 4 + len(s) }

// SizeOfBytes reports how many bytes PutBytes(out, data) would write.
func SizeOfBytes(data []byte) int { return 4 + len(data) }

// GetUint32 reads a big-endian uint32 from in.
func GetUint32(in *buffer.InputBuffer) (uint32, error) {
	b, err := in.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// GetInt32 reads a big-endian two's-complement int32 from in.
func GetInt32(in *buffer.InputBuffer) (int32, error) {
	v, err := GetUint32(in)
	return int32(v), err
}

// GetString reads a uint32-length-prefixed UTF-8 string from in.
func GetString(in *buffer.InputBuffer) (string, error) {
	n, err := GetUint32(in)
	if err != nil {
		return "", err
	}
	b, err := in.Take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetBytes reads a uint32-length-prefixed byte slice from in.
func GetBytes(in *buffer.InputBuffer) ([]byte, error) {
	n, err := GetUint32(in)
	if err != nil {
		return nil, err
	}
	b, err := in.Take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
