// Package sensor implements the Sensor model messages used by temperature
// sensing nodes.
//
// Sensor Status carries marshalled sensor data: a list of property records,
// each a Marshalled Property ID (MPID) header followed by the raw value.
// Format A headers are two octets (1-bit format, 4-bit length-1, 11-bit
// property ID); format B headers are three octets (1-bit format, 7-bit
// length-1, 16-bit property ID).
//
// Temperatures use the Temperature 8 characteristic: a signed octet in units
// of 0.5 degrees Celsius. Values stay at that scale inside the node; the
// conversion to whole degrees happens at the JSON boundary.
package sensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Sensor opcodes.
var (
	OpGet    = wire.Opcode2(0x82, 0x31)
	OpStatus = wire.Opcode1(0x52)
)

// PropertyPresentAmbientTemperature is the Present Ambient Temperature property ID.
const PropertyPresentAmbientTemperature uint16 = 0x004F

// MPID limits.
const (
	formatAMaxProperty = 0x07FF
	formatAMaxLength   = 16
	formatBMaxLength   = 127
	formatBZeroLength  = 0x7F
)

// Temperature is a temperature in half-degree units.
type Temperature int8

// Celsius returns the temperature in degrees Celsius.
func (t Temperature) Celsius() float64 {
	return float64(t) / 2
}

// TemperatureFromCelsius rounds c to the nearest half degree and clamps it
// to the representable range.
func TemperatureFromCelsius(c float64) Temperature {
	half := math.Round(c * 2)
	switch {
	case math.IsNaN(half):
		return 0
	case half > math.MaxInt8:
		return math.MaxInt8
	case half < math.MinInt8:
		return math.MinInt8
	}
	return Temperature(half)
}

// Payload is the sensor data published by a node.
type Payload struct {
	Temperature Temperature
}

// Get requests sensor data, optionally for a single property.
type Get struct {
	Property *uint16
}

// Status reports sensor data.
type Status struct {
	Data Payload
}

// NewStatus wraps a payload in a Status message.
func NewStatus(data Payload) Status {
	return Status{Data: data}
}

// Opcode implements wire.Message.
func (Get) Opcode() wire.Opcode { return OpGet }

// Opcode implements wire.Message.
func (Status) Opcode() wire.Opcode { return OpStatus }

// EmitParameters implements wire.Message.
func (m Get) EmitParameters(buf *wire.Buffer) error {
	if m.Property == nil {
		return nil
	}
	if *m.Property == 0 {
		return fmt.Errorf("%w: property ID 0 is prohibited", wire.ErrInvalidValue)
	}
	return buf.AppendUint16LE(*m.Property)
}

// EmitParameters implements wire.Message.
func (m Status) EmitParameters(buf *wire.Buffer) error {
	if err := emitMPID(buf, PropertyPresentAmbientTemperature, 1); err != nil {
		return err
	}
	return buf.Append(byte(m.Data.Temperature))
}

// emitMPID writes a property header, preferring the shorter format A.
func emitMPID(buf *wire.Buffer, property uint16, length int) error {
	if length < 1 || length > formatBMaxLength {
		return fmt.Errorf("%w: property length %d", wire.ErrInvalidValue, length)
	}
	if property <= formatAMaxProperty && length <= formatAMaxLength {
		hdr := uint16(length-1)<<1 | property<<5
		return buf.AppendUint16LE(hdr)
	}
	if err := buf.Append(byte(length-1)<<1 | 0x01); err != nil {
		return err
	}
	return buf.AppendUint16LE(property)
}

// Parse decodes Sensor messages. It implements wire.ParserFunc.
func Parse(op wire.Opcode, params []byte) (wire.Message, bool, error) {
	switch op {
	case OpGet:
		switch len(params) {
		case 0:
			return Get{}, true, nil
		case 2:
			property := binary.LittleEndian.Uint16(params)
			if property == 0 {
				return nil, true, fmt.Errorf("%w: property ID 0", wire.ErrMalformed)
			}
			return Get{Property: &property}, true, nil
		default:
			return nil, true, fmt.Errorf("%w: get length %d", wire.ErrMalformed, len(params))
		}

	case OpStatus:
		data, err := parseData(params)
		if err != nil {
			return nil, true, err
		}
		return Status{Data: data}, true, nil

	default:
		return nil, false, nil
	}
}

// parseData walks the marshalled property records and extracts the
// temperature. Unknown properties are skipped.
func parseData(params []byte) (Payload, error) {
	var (
		data  Payload
		found bool
		rest  = params
	)
	for len(rest) > 0 {
		var (
			property uint16
			length   int
		)
		if rest[0]&0x01 == 0 {
			if len(rest) < 2 {
				return Payload{}, fmt.Errorf("%w: truncated format A header", wire.ErrMalformed)
			}
			hdr := binary.LittleEndian.Uint16(rest)
			length = int((hdr>>1)&0x0F) + 1
			property = hdr >> 5
			rest = rest[2:]
		} else {
			if len(rest) < 3 {
				return Payload{}, fmt.Errorf("%w: truncated format B header", wire.ErrMalformed)
			}
			n := rest[0] >> 1
			if n == formatBZeroLength {
				length = 0
			} else {
				length = int(n) + 1
			}
			property = binary.LittleEndian.Uint16(rest[1:])
			rest = rest[3:]
		}

		if len(rest) < length {
			return Payload{}, fmt.Errorf("%w: property 0x%04X needs %d bytes, have %d",
				wire.ErrMalformed, property, length, len(rest))
		}
		if property == PropertyPresentAmbientTemperature && length == 1 {
			data.Temperature = Temperature(int8(rest[0]))
			found = true
		}
		rest = rest[length:]
	}

	if !found {
		return Payload{}, fmt.Errorf("%w: no present ambient temperature", wire.ErrMalformed)
	}
	return data, nil
}

// Parser decodes the Sensor opcode space.
var Parser wire.Parser = wire.ParserFunc(Parse)

// Compile-time interface satisfaction checks.
var (
	_ wire.Message = Get{}
	_ wire.Message = Status{}
)
