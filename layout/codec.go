package layout

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
)

// Value types used by Encode and Decode, per tag:
//
//	u8..u64, i8..i64   uint8..uint64, int8..int64
//	u128, i128         [16]byte (little-endian two's complement)
//	bool               bool
//	char               rune
//	string             string
//	vec<T>             []T of the element type above ([]byte for vec<u8>)

// Encode serializes values according to layout. The result always passes
// Validate against the same layout.
func Encode(layout []byte, values []any) ([]byte, error) {
	if len(values) != len(layout) {
		return nil, &Error{Kind: KindFieldCount, Field: -1, Cause: ErrFieldCount,
			Message: fmt.Sprintf("layout: %d values for %d fields", len(values), len(layout))}
	}
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	for i, b := range layout {
		t := Tag(b)
		if !t.Known() {
			return nil, &Error{Kind: KindUnknownType, Field: i, Cause: ErrUnknownType,
				Message: fmt.Sprintf("layout: field %d has unknown type %d", i, b)}
		}
		var err error
		if t.IsVector() {
			err = encodeVector(enc, t, values[i])
		} else {
			err = encodeScalar(enc, t, values[i])
		}
		if err != nil {
			return nil, fieldErr(i, t, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode materializes data according to layout. data must pass Validate.
func Decode(data []byte, layout []byte) ([]any, error) {
	if err := Validate(data, layout); err != nil {
		return nil, err
	}
	dec := bin.NewBinDecoder(data)
	out := make([]any, 0, len(layout))
	for i, b := range layout {
		t := Tag(b)
		var (
			v   any
			err error
		)
		if t.IsVector() {
			v, err = decodeVector(dec, t)
		} else {
			v, err = decodeScalar(dec, t)
		}
		if err != nil {
			return nil, fieldErr(i, t, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func fieldErr(i int, t Tag, err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: KindValue, Field: i, Cause: fmt.Errorf("%w: %v", ErrValue, err),
		Message: fmt.Sprintf("layout: field %d (%s): %v", i, t, err)}
}

func mismatch(t Tag, v any) error {
	return fmt.Errorf("%s cannot hold %T", t, v)
}

func encodeScalar(enc *bin.Encoder, t Tag, v any) error {
	switch t {
	case U8:
		x, ok := v.(uint8)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteUint8(x)
	case U16:
		x, ok := v.(uint16)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteUint16(x, bin.LE)
	case U32:
		x, ok := v.(uint32)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteUint32(x, bin.LE)
	case U64:
		x, ok := v.(uint64)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteUint64(x, bin.LE)
	case I8:
		x, ok := v.(int8)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteInt8(x)
	case I16:
		x, ok := v.(int16)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteInt16(x, bin.LE)
	case I32:
		x, ok := v.(int32)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteInt32(x, bin.LE)
	case I64:
		x, ok := v.(int64)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteInt64(x, bin.LE)
	case U128, I128:
		x, ok := v.([16]byte)
		if !ok {
			return mismatch(t, v)
		}
		return enc.WriteBytes(x[:], false)
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return mismatch(t, v)
		}
		if x {
			return enc.WriteUint8(1)
		}
		return enc.WriteUint8(0)
	case Char:
		x, ok := v.(rune)
		if !ok {
			return mismatch(t, v)
		}
		if !utf8.ValidRune(x) {
			return fmt.Errorf("invalid char %U", x)
		}
		return enc.WriteUint32(uint32(x), bin.LE)
	case String:
		x, ok := v.(string)
		if !ok {
			return mismatch(t, v)
		}
		if err := enc.WriteUint32(uint32(len(x)), bin.LE); err != nil {
			return err
		}
		return enc.WriteBytes([]byte(x), false)
	}
	return mismatch(t, v)
}

func encodeVector(enc *bin.Encoder, t Tag, v any) error {
	elem := t.Elem()
	switch t {
	case VecU8:
		return encodeSlice[uint8](enc, t, elem, v)
	case VecU16:
		return encodeSlice[uint16](enc, t, elem, v)
	case VecU32:
		return encodeSlice[uint32](enc, t, elem, v)
	case VecU64:
		return encodeSlice[uint64](enc, t, elem, v)
	case VecU128, VecI128:
		return encodeSlice[[16]byte](enc, t, elem, v)
	case VecI8:
		return encodeSlice[int8](enc, t, elem, v)
	case VecI16:
		return encodeSlice[int16](enc, t, elem, v)
	case VecI32:
		return encodeSlice[int32](enc, t, elem, v)
	case VecI64:
		return encodeSlice[int64](enc, t, elem, v)
	case VecBool:
		return encodeSlice[bool](enc, t, elem, v)
	case VecChar:
		return encodeSlice[rune](enc, t, elem, v)
	case VecString:
		return encodeSlice[string](enc, t, elem, v)
	}
	return mismatch(t, v)
}

func encodeSlice[T any](enc *bin.Encoder, t, elem Tag, v any) error {
	s, ok := v.([]T)
	if !ok {
		return mismatch(t, v)
	}
	if err := enc.WriteUint32(uint32(len(s)), bin.LE); err != nil {
		return err
	}
	for _, x := range s {
		if err := encodeScalar(enc, elem, x); err != nil {
			return err
		}
	}
	return nil
}

func decodeScalar(dec *bin.Decoder, t Tag) (any, error) {
	switch t {
	case U8:
		return dec.ReadUint8()
	case U16:
		return dec.ReadUint16(bin.LE)
	case U32:
		return dec.ReadUint32(bin.LE)
	case U64:
		return dec.ReadUint64(bin.LE)
	case I8:
		return dec.ReadInt8()
	case I16:
		return dec.ReadInt16(bin.LE)
	case I32:
		return dec.ReadInt32(bin.LE)
	case I64:
		return dec.ReadInt64(bin.LE)
	case U128, I128:
		raw, err := dec.ReadNBytes(16)
		if err != nil {
			return nil, err
		}
		var x [16]byte
		copy(x[:], raw)
		return x, nil
	case Bool:
		b, err := dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, fmt.Errorf("invalid bool byte %d", b)
		}
		return b == 1, nil
	case Char:
		u, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, err
		}
		r := rune(u)
		if u > utf8.MaxRune || !utf8.ValidRune(r) {
			return nil, fmt.Errorf("invalid char %#x", u)
		}
		return r, nil
	case String:
		n, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, err
		}
		raw, err := dec.ReadNBytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
	return nil, fmt.Errorf("%s is not a scalar", t)
}

func decodeVector(dec *bin.Decoder, t Tag) (any, error) {
	elem := t.Elem()
	switch t {
	case VecU8:
		return decodeSlice[uint8](dec, elem)
	case VecU16:
		return decodeSlice[uint16](dec, elem)
	case VecU32:
		return decodeSlice[uint32](dec, elem)
	case VecU64:
		return decodeSlice[uint64](dec, elem)
	case VecU128, VecI128:
		return decodeSlice[[16]byte](dec, elem)
	case VecI8:
		return decodeSlice[int8](dec, elem)
	case VecI16:
		return decodeSlice[int16](dec, elem)
	case VecI32:
		return decodeSlice[int32](dec, elem)
	case VecI64:
		return decodeSlice[int64](dec, elem)
	case VecBool:
		return decodeSlice[bool](dec, elem)
	case VecChar:
		return decodeSlice[rune](dec, elem)
	case VecString:
		return decodeSlice[string](dec, elem)
	}
	return nil, fmt.Errorf("%s is not a vector", t)
}

func decodeSlice[T any](dec *bin.Decoder, elem Tag) ([]T, error) {
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	// count is bounded by Validate, which ran over the same buffer.
	out := make([]T, 0, count)
	for j := uint32(0); j < count; j++ {
		v, err := decodeScalar(dec, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	return out, nil
}
