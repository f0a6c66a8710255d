// Package codec implements the tagged binary format used to serialize
// transactions, accounts and blocks. Every node must produce the exact same
// bytes for the same values since hashes and signatures are taken over them.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// ErrCodec is returned for every encoding or decoding failure.
var ErrCodec = errors.New("codec")

// Tags identifying the kind of value that follows.
const (
	TagNull  byte = 0x00
	TagInt   byte = 0x01
	TagBytes byte = 0x02
	TagList  byte = 0x03
	TagMap   byte = 0x04
)

// maxNativeInt is the largest integer payload, in bytes, that decodes into
// a native Int. Anything longer decodes into a BigInt.
const maxNativeInt = 6

// =============================================================================

// Value represents any value the codec can serialize. The set of
// implementations is closed: Null, Int, BigInt, Hex, List and Map.
type Value interface {
	value()
}

// Null represents the absent value.
type Null struct{}

// Int represents a non-negative integer that fits in 64 bits.
type Int uint64

// BigInt represents an arbitrary precision non-negative integer.
type BigInt struct {
	*big.Int
}

// Hex represents a byte string carried as hex text.
type Hex string

// List represents an ordered sequence of values.
type List []Value

// Pair is a single entry in a Map.
type Pair struct {
	Key   Value
	Value Value
}

// Map represents an ordered set of key/value pairs. The order of insertion
// is the order of encoding.
type Map []Pair

func (Null) value()   {}
func (Int) value()    {}
func (BigInt) value() {}
func (Hex) value()    {}
func (List) value()   {}
func (Map) value()    {}

// NewBigInt constructs a BigInt value.
func NewBigInt(v *big.Int) BigInt {
	return BigInt{Int: new(big.Int).Set(v)}
}

// =============================================================================

// Encode serializes the values in order and concatenates the results.
func Encode(values ...Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		if err := encodeValue(&buf, v); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v := v.(type) {
	case nil, Null:
		buf.WriteByte(TagNull)

	case Int:
		return writeShort(buf, TagInt, intBytes(uint64(v)))

	case BigInt:
		if v.Int == nil || v.Sign() == 0 {
			return writeShort(buf, TagInt, []byte{0})
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%w: negative integer %s", ErrCodec, v.String())
		}
		return writeShort(buf, TagInt, v.Bytes())

	case Hex:
		b, err := HexBytes(string(v))
		if err != nil {
			return err
		}
		return writeShort(buf, TagBytes, b)

	case List:
		var inner bytes.Buffer
		for _, e := range v {
			if err := encodeValue(&inner, e); err != nil {
				return err
			}
		}
		return writeLong(buf, TagList, inner.Bytes())

	case Map:
		var inner bytes.Buffer
		for _, p := range v {
			if err := encodeValue(&inner, p.Key); err != nil {
				return err
			}
			if err := encodeValue(&inner, p.Value); err != nil {
				return err
			}
		}
		return writeLong(buf, TagMap, inner.Bytes())

	case *Map:
		if v == nil {
			buf.WriteByte(TagNull)
			return nil
		}
		return encodeValue(buf, *v)

	default:
		return fmt.Errorf("%w: unsupported value type %T", ErrCodec, v)
	}

	return nil
}

func writeShort(buf *bytes.Buffer, tag byte, payload []byte) error {
	if len(payload) > math.MaxUint16 {
		return fmt.Errorf("%w: payload of %d bytes exceeds 2 byte length", ErrCodec, len(payload))
	}

	buf.WriteByte(tag)
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(payload))))
	buf.Write(payload)

	return nil
}

func writeLong(buf *bytes.Buffer, tag byte, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: payload of %d bytes exceeds 4 byte length", ErrCodec, len(payload))
	}

	buf.WriteByte(tag)
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(payload))))
	buf.Write(payload)

	return nil
}

// intBytes returns the minimal big-endian representation of v. Zero is a
// single zero byte.
func intBytes(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}

	b := binary.BigEndian.AppendUint64(nil, v)
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}

	return b
}

// HexBytes converts hex text into bytes. Odd length text is padded with a
// leading zero.
func HexBytes(s string) ([]byte, error) {
	if len(s)%2 == 1 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex %q", ErrCodec, s)
	}

	return b, nil
}

// =============================================================================

// Decode parses a byte sequence into the list of values it contains. Any
// malformed element fails the whole call.
func Decode(data []byte) ([]Value, error) {
	values := []Value{}

	for idx := 0; idx < len(data); {
		v, n, err := decodeValue(data[idx:])
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", idx, err)
		}

		values = append(values, v)
		idx += n
	}

	return values, nil
}

func decodeValue(data []byte) (Value, int, error) {
	switch tag := data[0]; tag {
	case TagNull:
		return Null{}, 1, nil

	case TagInt:
		payload, n, err := readShort(data)
		if err != nil {
			return nil, 0, err
		}
		if len(payload) == 0 {
			return nil, 0, fmt.Errorf("%w: empty integer", ErrCodec)
		}
		if len(payload) > 1 && payload[0] == 0 {
			return nil, 0, fmt.Errorf("%w: integer has leading zero", ErrCodec)
		}
		if len(payload) <= maxNativeInt {
			var v uint64
			for _, b := range payload {
				v = v<<8 | uint64(b)
			}
			return Int(v), n, nil
		}
		return BigInt{Int: new(big.Int).SetBytes(payload)}, n, nil

	case TagBytes:
		payload, n, err := readShort(data)
		if err != nil {
			return nil, 0, err
		}
		return Hex(hex.EncodeToString(payload)), n, nil

	case TagList:
		payload, n, err := readLong(data)
		if err != nil {
			return nil, 0, err
		}
		values, err := Decode(payload)
		if err != nil {
			return nil, 0, err
		}
		return List(values), n, nil

	case TagMap:
		payload, n, err := readLong(data)
		if err != nil {
			return nil, 0, err
		}
		values, err := Decode(payload)
		if err != nil {
			return nil, 0, err
		}
		if len(values)%2 != 0 {
			return nil, 0, fmt.Errorf("%w: map has %d elements", ErrCodec, len(values))
		}
		m := make(Map, 0, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			m = append(m, Pair{Key: values[i], Value: values[i+1]})
		}
		return m, n, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown tag 0x%02x", ErrCodec, tag)
	}
}

func readShort(data []byte) ([]byte, int, error) {
	if len(data) < 3 {
		return nil, 0, fmt.Errorf("%w: truncated length", ErrCodec)
	}

	l := int(binary.LittleEndian.Uint16(data[1:3]))
	if len(data) < 3+l {
		return nil, 0, fmt.Errorf("%w: truncated payload, need %d have %d", ErrCodec, l, len(data)-3)
	}

	return data[3 : 3+l], 3 + l, nil
}

func readLong(data []byte) ([]byte, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("%w: truncated length", ErrCodec)
	}

	l := uint64(binary.LittleEndian.Uint32(data[1:5]))
	if uint64(len(data)) < 5+l {
		return nil, 0, fmt.Errorf("%w: truncated payload, need %d have %d", ErrCodec, l, len(data)-5)
	}

	return data[5 : 5+l], 5 + int(l), nil
}

// =============================================================================

// Equal reports whether two values share the same canonical encoding. An Int
// and a BigInt holding the same number are equal.
func Equal(a, b Value) bool {
	ea, err := Encode(a)
	if err != nil {
		return false
	}

	eb, err := Encode(b)
	if err != nil {
		return false
	}

	return bytes.Equal(ea, eb)
}

// AsHex returns the hex text held by v in lowercase.
func AsHex(v Value) (string, bool) {
	h, ok := v.(Hex)
	if !ok {
		return "", false
	}

	return strings.ToLower(string(h)), true
}

// AsUint64 returns the integer held by v if it fits in 64 bits.
func AsUint64(v Value) (uint64, bool) {
	switch v := v.(type) {
	case Int:
		return uint64(v), true
	case BigInt:
		if v.Int == nil || !v.IsUint64() {
			return 0, false
		}
		return v.Uint64(), true
	}

	return 0, false
}

// AsBig returns the integer held by v as a big integer.
func AsBig(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case Int:
		return new(big.Int).SetUint64(uint64(v)), true
	case BigInt:
		if v.Int == nil {
			return new(big.Int), true
		}
		return new(big.Int).Set(v.Int), true
	}

	return nil, false
}

// =============================================================================

// Get returns the value stored under key.
func (m Map) Get(key Value) (Value, bool) {
	for _, p := range m {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}

	return nil, false
}

// Set stores the value under key, replacing any existing entry in place.
func (m *Map) Set(key Value, value Value) {
	for i, p := range *m {
		if Equal(p.Key, key) {
			(*m)[i].Value = value
			return
		}
	}

	*m = append(*m, Pair{Key: key, Value: value})
}

// Delete removes the entry stored under key.
func (m *Map) Delete(key Value) {
	for i, p := range *m {
		if Equal(p.Key, key) {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m)
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	cpy := make(Map, len(m))
	for i, p := range m {
		cpy[i] = Pair{Key: Clone(p.Key), Value: Clone(p.Value)}
	}

	return cpy
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch v := v.(type) {
	case BigInt:
		if v.Int == nil {
			return BigInt{Int: new(big.Int)}
		}
		return NewBigInt(v.Int)
	case List:
		cpy := make(List, len(v))
		for i, e := range v {
			cpy[i] = Clone(e)
		}
		return cpy
	case Map:
		return v.Clone()
	}

	return v
}
