package layout

import (
	"encoding/binary"
	"fmt"
)

// Validate reports whether data is exactly the concatenation of one encoded
// value per tag in layout.
//
// Strings and vectors carry a u32 little-endian length prefix (byte length for
// strings, element count for vectors). The walk never decodes values and never
// allocates on success. A prefix that would run past the end of data yields
// ErrDataTooShort; bytes left over after the last tag yield ErrLengthMismatch.
func Validate(data []byte, layout []byte) error {
	size := uint64(len(data))
	var off uint64
	for i, b := range layout {
		t := Tag(b)
		if !t.Known() {
			return &Error{Kind: KindUnknownType, Field: i, Offset: off, Cause: ErrUnknownType,
				Message: fmt.Sprintf("layout: field %d has unknown type %d", i, b)}
		}
		switch {
		case t == String:
			n, ok := readPrefix(data, off)
			if !ok {
				return tooShort(i, off)
			}
			off += 4 + uint64(n)
		case t == VecString:
			count, ok := readPrefix(data, off)
			if !ok {
				return tooShort(i, off)
			}
			off += 4
			for j := uint32(0); j < count; j++ {
				n, ok := readPrefix(data, off)
				if !ok {
					return tooShort(i, off)
				}
				off += 4 + uint64(n)
				if off > size {
					return tooShort(i, off)
				}
			}
		case t.IsVector():
			count, ok := readPrefix(data, off)
			if !ok {
				return tooShort(i, off)
			}
			off += 4 + uint64(count)*width[t]
		default:
			off += width[t]
		}
		if off > size {
			return tooShort(i, off)
		}
	}
	if off != size {
		return &Error{Kind: KindLengthMismatch, Field: -1, Offset: off, Cause: ErrLengthMismatch,
			Message: fmt.Sprintf("layout: layout consumed %d of %d bytes", off, size)}
	}
	return nil
}

// ValidateLayout checks a schema layout at declaration time: every tag must be
// known and there must be exactly one field name per tag.
func ValidateLayout(layout []byte, fieldNames int) error {
	for i, b := range layout {
		if !Tag(b).Known() {
			return &Error{Kind: KindUnknownType, Field: i, Cause: ErrUnknownType,
				Message: fmt.Sprintf("layout: field %d has unknown type %d", i, b)}
		}
	}
	if fieldNames != len(layout) {
		return &Error{Kind: KindFieldCount, Field: -1, Cause: ErrFieldCount,
			Message: fmt.Sprintf("layout: %d field names for %d fields", fieldNames, len(layout))}
	}
	return nil
}

func readPrefix(data []byte, off uint64) (uint32, bool) {
	if off > uint64(len(data)) || uint64(len(data))-off < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[off:]), true
}

func tooShort(field int, off uint64) error {
	return &Error{Kind: KindDataTooShort, Field: field, Offset: off, Cause: ErrDataTooShort,
		Message: fmt.Sprintf("layout: data too short at field %d (offset %d)", field, off)}
}
