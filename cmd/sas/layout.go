package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"xdao.co/sas/layout"
)

func cmdLayout(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: sas layout <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: check, encode, decode")
		return 2
	}
	switch args[0] {
	case "check", "decode":
		fs := newFlagSet("layout "+args[0], errOut)
		var types, dataHex string
		fs.StringVar(&types, "layout", "", "Comma-separated layout types")
		fs.StringVar(&dataHex, "data", "", "Attestation data as hex")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		lay, err := layout.ParseLayout(types)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --layout: %v\n", err)
			return 2
		}
		data, err := hexFlag("data", dataHex)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		if args[0] == "check" {
			if err := layout.Validate(data, lay); err != nil {
				fmt.Fprintf(errOut, "invalid: %v\n", err)
				return 1
			}
			_, _ = fmt.Fprintln(out, "OK")
			return 0
		}
		values, err := layout.Decode(data, lay)
		if err != nil {
			fmt.Fprintf(errOut, "invalid: %v\n", err)
			return 1
		}
		for i, v := range values {
			fmt.Fprintf(out, "%d\t%s\t%v\n", i, layout.Tag(lay[i]), v)
		}
		return 0
	case "encode":
		fs := newFlagSet("layout encode", errOut)
		var types string
		var values []string
		fs.StringVar(&types, "layout", "", "Comma-separated layout types")
		fs.StringArrayVar(&values, "value", nil, "Field value, one per layout type (repeatable); vector elements are separated by ';', vec<u8> is hex")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		lay, err := layout.ParseLayout(types)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --layout: %v\n", err)
			return 2
		}
		if len(values) != len(lay) {
			fmt.Fprintf(errOut, "expected %d --value flags, got %d\n", len(lay), len(values))
			return 2
		}
		typed := make([]any, len(lay))
		for i, s := range values {
			v, err := parseValue(layout.Tag(lay[i]), s)
			if err != nil {
				fmt.Fprintf(errOut, "invalid --value %d (%s): %v\n", i, layout.Tag(lay[i]), err)
				return 2
			}
			typed[i] = v
		}
		data, err := layout.Encode(lay, typed)
		if err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		printHex(out, data)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown layout subcommand: %s\n", args[0])
		return 2
	}
}

// parseValue converts a command-line string into the Go value layout.Encode
// expects for t.
func parseValue(t layout.Tag, s string) (any, error) {
	if !t.IsVector() {
		return parseScalar(t, s)
	}
	if t == layout.VecU8 {
		return hex.DecodeString(s)
	}
	var parts []string
	if s != "" {
		parts = strings.Split(s, ";")
	}
	elem := t.Elem()
	switch elem {
	case layout.U16:
		return parseSlice[uint16](elem, parts)
	case layout.U32:
		return parseSlice[uint32](elem, parts)
	case layout.U64:
		return parseSlice[uint64](elem, parts)
	case layout.U128, layout.I128:
		return parseSlice[[16]byte](elem, parts)
	case layout.I8:
		return parseSlice[int8](elem, parts)
	case layout.I16:
		return parseSlice[int16](elem, parts)
	case layout.I32:
		return parseSlice[int32](elem, parts)
	case layout.I64:
		return parseSlice[int64](elem, parts)
	case layout.Bool:
		return parseSlice[bool](elem, parts)
	case layout.Char:
		return parseSlice[rune](elem, parts)
	case layout.String:
		return parseSlice[string](elem, parts)
	}
	return nil, fmt.Errorf("unsupported vector type %s", t)
}

func parseSlice[T any](elem layout.Tag, parts []string) ([]T, error) {
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := parseScalar(elem, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	return out, nil
}

func parseScalar(t layout.Tag, s string) (any, error) {
	switch t {
	case layout.U8, layout.U16, layout.U32, layout.U64:
		n, err := strconv.ParseUint(s, 10, t.Width()*8)
		if err != nil {
			return nil, err
		}
		switch t {
		case layout.U8:
			return uint8(n), nil
		case layout.U16:
			return uint16(n), nil
		case layout.U32:
			return uint32(n), nil
		}
		return n, nil
	case layout.I8, layout.I16, layout.I32, layout.I64:
		n, err := strconv.ParseInt(s, 10, t.Width()*8)
		if err != nil {
			return nil, err
		}
		switch t {
		case layout.I8:
			return int8(n), nil
		case layout.I16:
			return int16(n), nil
		case layout.I32:
			return int32(n), nil
		}
		return n, nil
	case layout.U128, layout.I128:
		return parseWide(t == layout.I128, s)
	case layout.Bool:
		return strconv.ParseBool(s)
	case layout.Char:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, fmt.Errorf("expected a single character, got %q", s)
		}
		return r, nil
	case layout.String:
		return s, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

// parseWide parses a decimal 128-bit integer into little-endian two's
// complement.
func parseWide(signed bool, s string) ([16]byte, error) {
	var out [16]byte
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return out, fmt.Errorf("invalid integer %q", s)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	if signed {
		half := new(big.Int).Rsh(limit, 1)
		if n.Cmp(half) >= 0 || n.Cmp(new(big.Int).Neg(half)) < 0 {
			return out, fmt.Errorf("%s overflows i128", s)
		}
		if n.Sign() < 0 {
			n.Add(n, limit)
		}
	} else if n.Sign() < 0 || n.Cmp(limit) >= 0 {
		return out, fmt.Errorf("%s overflows u128", s)
	}
	be := n.FillBytes(make([]byte, 16))
	for i := range out {
		out[i] = be[15-i]
	}
	return out, nil
}
