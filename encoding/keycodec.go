// Package encoding provides the Page Store's byte-level key codec and a
// JSON-based Marshaler used to serialize descriptors and table metadata.
package encoding

import (
	"bytes"
	"encoding/binary"
)

// NullTimestamp is the encoded representation of a null timestamp: any
// decoded value less than zero denotes "null", per the big-endian
// millis-since-epoch convention.
const NullTimestamp int64 = -1

// EncodeInt32 big-endian encodes a 32-bit integer. Ordering over the
// resulting bytes is unsigned lexicographic, so the sign bit is flipped to
// keep negative values ordered before positive ones.
func EncodeInt32(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v)^0x80000000)
	return b[:]
}

// DecodeInt32 is the inverse of EncodeInt32.
func DecodeInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b) ^ 0x80000000)
}

// EncodeInt64 big-endian encodes a 64-bit integer, sign-flipped for
// unsigned lexicographic ordering.
func EncodeInt64(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v)^0x8000000000000000)
	return b[:]
}

// DecodeInt64 is the inverse of EncodeInt64.
func DecodeInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ 0x8000000000000000)
}

// EncodeTimestamp big-endian encodes a 64-bit milliseconds-since-epoch
// timestamp. A negative ts encodes as NullTimestamp.
func EncodeTimestamp(ts int64) []byte {
	if ts < 0 {
		ts = NullTimestamp
	}
	return EncodeInt64(ts)
}

// DecodeTimestamp is the inverse of EncodeTimestamp; a negative result
// denotes a null timestamp.
func DecodeTimestamp(b []byte) int64 {
	return DecodeInt64(b)
}

// EncodeString writes s as UTF-8 bytes with no length prefix: equality and
// hashing are over the full byte sequence, and ordering is unsigned
// lexicographic with a shorter prefix ordering before a longer extension,
// which a bare byte sequence already gives for free.
func EncodeString(s string) []byte {
	return []byte(s)
}

// DecodeString is the inverse of EncodeString.
func DecodeString(b []byte) string {
	return string(b)
}

// KeyBuilder concatenates encoded key components into one byte string for
// the Page Store's (table, page-id) and row keys.
type KeyBuilder struct {
	buf bytes.Buffer
}

// NewKeyBuilder returns an empty KeyBuilder.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

// PutInt32 appends a big-endian encoded 32-bit integer.
func (k *KeyBuilder) PutInt32(v int32) *KeyBuilder {
	k.buf.Write(EncodeInt32(v))
	return k
}

// PutInt64 appends a big-endian encoded 64-bit integer.
func (k *KeyBuilder) PutInt64(v int64) *KeyBuilder {
	k.buf.Write(EncodeInt64(v))
	return k
}

// PutTimestamp appends a big-endian encoded millisecond timestamp.
func (k *KeyBuilder) PutTimestamp(ts int64) *KeyBuilder {
	k.buf.Write(EncodeTimestamp(ts))
	return k
}

// PutString appends s as raw UTF-8 bytes.
func (k *KeyBuilder) PutString(s string) *KeyBuilder {
	k.buf.Write(EncodeString(s))
	return k
}

// Bytes returns the accumulated key.
func (k *KeyBuilder) Bytes() []byte {
	return k.buf.Bytes()
}

// CompareKeys returns -1, 0, or 1, implementing the unsigned lexicographic
// ordering required by the Page Store's key contract.
func CompareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
