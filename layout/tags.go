// Package layout describes and checks the binary shape of attestation data.
//
// A schema layout is a sequence of single-byte type tags. Validate walks a data
// buffer against a layout without decoding it; Encode and Decode materialize
// typed values for tooling and tests.
package layout

import (
	"fmt"
	"strings"
)

// Tag is a single-byte layout type code.
type Tag uint8

const (
	U8 Tag = iota
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	Bool
	Char
	String
	VecU8
	VecU16
	VecU32
	VecU64
	VecU128
	VecI8
	VecI16
	VecI32
	VecI64
	VecI128
	VecBool
	VecChar
	VecString
)

// MaxTag is the largest known tag value.
const MaxTag = VecString

var tagNames = [...]string{
	U8: "u8", U16: "u16", U32: "u32", U64: "u64", U128: "u128",
	I8: "i8", I16: "i16", I32: "i32", I64: "i64", I128: "i128",
	Bool: "bool", Char: "char", String: "string",
	VecU8: "vec<u8>", VecU16: "vec<u16>", VecU32: "vec<u32>", VecU64: "vec<u64>", VecU128: "vec<u128>",
	VecI8: "vec<i8>", VecI16: "vec<i16>", VecI32: "vec<i32>", VecI64: "vec<i64>", VecI128: "vec<i128>",
	VecBool: "vec<bool>", VecChar: "vec<char>", VecString: "vec<string>",
}

// width holds the fixed byte width of a scalar tag or of a vector's element.
// Zero means variable width (strings).
var width = [...]uint64{
	U8: 1, U16: 2, U32: 4, U64: 8, U128: 16,
	I8: 1, I16: 2, I32: 4, I64: 8, I128: 16,
	Bool: 1, Char: 4, String: 0,
	VecU8: 1, VecU16: 2, VecU32: 4, VecU64: 8, VecU128: 16,
	VecI8: 1, VecI16: 2, VecI32: 4, VecI64: 8, VecI128: 16,
	VecBool: 1, VecChar: 4, VecString: 0,
}

// Known reports whether t is a defined tag.
func (t Tag) Known() bool { return t <= MaxTag }

// IsVector reports whether t is one of the vec<...> tags.
func (t Tag) IsVector() bool { return t >= VecU8 && t <= VecString }

// Elem returns the scalar tag of a vector's elements. Scalars return themselves.
func (t Tag) Elem() Tag {
	if !t.IsVector() {
		return t
	}
	switch t {
	case VecBool:
		return Bool
	case VecChar:
		return Char
	case VecString:
		return String
	}
	return t - VecU8
}

// Width returns the fixed byte width of t (or of its elements for vectors),
// and 0 for variable-width strings.
func (t Tag) Width() int {
	if !t.Known() {
		return 0
	}
	return int(width[t])
}

func (t Tag) String() string {
	if !t.Known() {
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
	return tagNames[t]
}

// ParseTag parses a tag name as produced by Tag.String. "vec_u8" is accepted
// as an alias of "vec<u8>".
func ParseTag(s string) (Tag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "vec_") {
		name = "vec<" + strings.TrimPrefix(name, "vec_") + ">"
	}
	for i, n := range tagNames {
		if n == name {
			return Tag(i), nil
		}
	}
	return 0, &Error{Kind: KindUnknownType, Message: fmt.Sprintf("layout: unknown type name %q", s), Cause: ErrUnknownType}
}

// ParseLayout parses a comma-separated list of tag names.
func ParseLayout(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return []byte{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		t, err := ParseTag(p)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(t))
	}
	return out, nil
}

// Tags converts raw layout bytes to tags without checking them.
func Tags(raw []byte) []Tag {
	out := make([]Tag, len(raw))
	for i, b := range raw {
		out[i] = Tag(b)
	}
	return out
}

// Format renders raw layout bytes as a comma-separated list of tag names.
func Format(raw []byte) string {
	names := make([]string, len(raw))
	for i, b := range raw {
		names[i] = Tag(b).String()
	}
	return strings.Join(names, ",")
}
