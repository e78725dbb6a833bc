package wire

import (
	"errors"
	"fmt"
)

// Opcode errors.
var (
	// ErrInvalidOpcode indicates opcode bytes that cannot be split.
	ErrInvalidOpcode = errors.New("invalid opcode")
)

// reservedOpcode is the 1-octet value reserved for future use.
const reservedOpcode = 0x7F

// Opcode is a 1, 2 or 3 octet access message opcode.
// Opcodes are comparable and can be used as map keys and switch cases.
type Opcode struct {
	b [3]byte
	n uint8
}

// Opcode1 returns a 1-octet opcode. The value must be below 0x7F.
func Opcode1(b0 byte) Opcode {
	return Opcode{b: [3]byte{b0}, n: 1}
}

// Opcode2 returns a 2-octet opcode. The first octet must match 10xxxxxx.
func Opcode2(b0, b1 byte) Opcode {
	return Opcode{b: [3]byte{b0, b1}, n: 2}
}

// Opcode3 returns a 3-octet vendor opcode for the given company identifier.
// The opcode value occupies the low 6 bits of the first octet.
func Opcode3(op byte, company uint16) Opcode {
	return Opcode{b: [3]byte{0xC0 | (op & 0x3F), byte(company), byte(company >> 8)}, n: 3}
}

// Size returns the number of octets in the opcode.
func (o Opcode) Size() int {
	return int(o.n)
}

// Bytes returns the encoded opcode.
func (o Opcode) Bytes() []byte {
	out := make([]byte, o.n)
	copy(out, o.b[:o.n])
	return out
}

// Valid reports whether the opcode is well formed.
func (o Opcode) Valid() bool {
	switch o.n {
	case 1:
		return o.b[0]&0x80 == 0 && o.b[0] != reservedOpcode
	case 2:
		return o.b[0]&0xC0 == 0x80
	case 3:
		return o.b[0]&0xC0 == 0xC0
	default:
		return false
	}
}

// Emit writes the opcode into buf.
func (o Opcode) Emit(buf *Buffer) error {
	return buf.Append(o.b[:o.n]...)
}

// String returns the opcode in hex, e.g. "0x8202" or "0xC1/0x1234" for vendor opcodes.
func (o Opcode) String() string {
	switch o.n {
	case 1:
		return fmt.Sprintf("0x%02X", o.b[0])
	case 2:
		return fmt.Sprintf("0x%02X%02X", o.b[0], o.b[1])
	case 3:
		return fmt.Sprintf("0x%02X/0x%04X", o.b[0], uint16(o.b[1])|uint16(o.b[2])<<8)
	default:
		return "INVALID"
	}
}

// SplitOpcode parses the opcode at the start of data and returns it with the
// remaining bytes.
func SplitOpcode(data []byte) (Opcode, []byte, error) {
	if len(data) == 0 {
		return Opcode{}, nil, fmt.Errorf("%w: empty", ErrInvalidOpcode)
	}

	first := data[0]
	switch {
	case first&0x80 == 0:
		if first == reservedOpcode {
			return Opcode{}, nil, fmt.Errorf("%w: reserved value 0x7F", ErrInvalidOpcode)
		}
		return Opcode1(first), data[1:], nil

	case first&0xC0 == 0x80:
		if len(data) < 2 {
			return Opcode{}, nil, fmt.Errorf("%w: truncated 2-octet opcode", ErrInvalidOpcode)
		}
		return Opcode2(first, data[1]), data[2:], nil

	default:
		if len(data) < 3 {
			return Opcode{}, nil, fmt.Errorf("%w: truncated 3-octet opcode", ErrInvalidOpcode)
		}
		return Opcode{b: [3]byte{first, data[1], data[2]}, n: 3}, data[3:], nil
	}
}
