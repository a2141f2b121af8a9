package canopen

import "fmt"

// ScalarType governs the N (unused bytes) and S (size-indicated) bits of an
// expedited SDO download.
type ScalarType uint8

const (
	TypeUnspecified ScalarType = iota
	TypeU8
	TypeI8
	TypeU16
	TypeI16
	TypeU24
	TypeI24
	TypeU32
	TypeI32
)

// ParseScalarType maps the CLI type token to a ScalarType. An empty token
// means Unspecified.
func ParseScalarType(token string) (ScalarType, error) {
	switch token {
	case "":
		return TypeUnspecified, nil
	case "u8":
		return TypeU8, nil
	case "i8":
		return TypeI8, nil
	case "u16":
		return TypeU16, nil
	case "i16":
		return TypeI16, nil
	case "u24":
		return TypeU24, nil
	case "i24":
		return TypeI24, nil
	case "u32":
		return TypeU32, nil
	case "i32":
		return TypeI32, nil
	default:
		return 0, fmt.Errorf("%w: unknown SDO type %q", ErrUsage, token)
	}
}

// size returns the byte width of the type, or 0 for Unspecified (all 4
// bytes are used and the size is not declared to the server).
func (t ScalarType) size() int {
	switch t {
	case TypeU8, TypeI8:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU24, TypeI24:
		return 3
	case TypeU32, TypeI32:
		return 4
	default:
		return 0
	}
}

// unusedBytes returns the expedited command byte's n field: 4 minus the
// type's size, or 0 when the size is unspecified (n is meaningless then).
func (t ScalarType) unusedBytes() uint8 {
	if t == TypeUnspecified {
		return 0
	}
	return uint8(4 - t.size())
}

func (t ScalarType) String() string {
	switch t {
	case TypeU8:
		return "u8"
	case TypeI8:
		return "i8"
	case TypeU16:
		return "u16"
	case TypeI16:
		return "i16"
	case TypeU24:
		return "u24"
	case TypeI24:
		return "i24"
	case TypeU32:
		return "u32"
	case TypeI32:
		return "i32"
	default:
		return "unspecified"
	}
}
