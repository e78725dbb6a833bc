package wire

import (
	"encoding/json"
	"fmt"
)

// Bytes is a byte sequence that encodes as a JSON array of integers
// instead of base64. CBOR encodes it as a byte string.
type Bytes []byte

// MarshalJSON encodes the bytes as an array of numbers.
func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]uint16, len(b))
	for i, v := range b {
		ints[i] = uint16(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes an array of numbers in the range 0-255.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	if ints == nil {
		*b = nil
		return nil
	}
	out := make(Bytes, len(ints))
	for i, v := range ints {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("byte value %d at index %d out of range", v, i)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// RawMessage is the wire envelope exchanged with JSON-speaking collaborators.
//
// CBOR encoding:
//
//	{
//	  1: address,     // uint16, omitted when absent
//	  2: location,    // uint16
//	  3: opcode,      // bytes (<= 16)
//	  4: parameters   // bytes (<= 386)
//	}
type RawMessage struct {
	// Address is the unicast address of the target node, if any.
	Address *uint16 `json:"address,omitempty" cbor:"1,keyasint,omitempty"`

	// Location identifies the element slot on the node.
	Location uint16 `json:"location" cbor:"2,keyasint"`

	// Opcode holds the encoded opcode.
	Opcode Bytes `json:"opcode" cbor:"3,keyasint"`

	// Parameters holds the encoded parameters.
	Parameters Bytes `json:"parameters" cbor:"4,keyasint"`
}

// Validate checks the envelope field capacities.
func (m RawMessage) Validate() error {
	if len(m.Opcode) > MaxOpcodeSize {
		return &CapacityError{Field: "opcode", Capacity: MaxOpcodeSize}
	}
	if len(m.Parameters) > MaxParametersSize {
		return &CapacityError{Field: "parameters", Capacity: MaxParametersSize}
	}
	return nil
}

// EncodeRaw encodes msg into an envelope for the given location.
// address may be nil.
func EncodeRaw(msg Message, location uint16, address *uint16) (RawMessage, error) {
	opcode, params, err := Encode(msg)
	if err != nil {
		return RawMessage{}, err
	}
	return RawMessage{
		Address:    address,
		Location:   location,
		Opcode:     opcode,
		Parameters: params,
	}, nil
}

// MustEncodeRaw is like EncodeRaw but panics on failure.
func MustEncodeRaw(msg Message, location uint16, address *uint16) RawMessage {
	opcode, params := MustEncode(msg)
	return RawMessage{
		Address:    address,
		Location:   location,
		Opcode:     opcode,
		Parameters: params,
	}
}

// Addr returns a pointer to a copy of a, for filling RawMessage.Address.
func Addr(a uint16) *uint16 {
	return &a
}
