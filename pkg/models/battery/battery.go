// Package battery implements the Generic Battery model messages.
//
// Status parameters:
//
//	BatteryLevel(1) TimeToDischarge(3) TimeToCharge(3) Flags(1)
//
// Times are little-endian minutes. The flags octet packs four 2-bit fields:
// presence (bits 0-1), indicator (bits 2-3), charging (bits 4-5) and
// serviceability (bits 6-7).
package battery

import (
	"fmt"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Generic Battery opcodes.
var (
	OpGet    = wire.Opcode2(0x82, 0x23)
	OpStatus = wire.Opcode2(0x82, 0x24)
)

// Special values.
const (
	// LevelUnknown marks an unknown battery level.
	LevelUnknown uint8 = 0xFF

	// MaxLevel is the highest valid battery level in percent.
	MaxLevel uint8 = 100

	// TimeUnknown marks an unknown charge or discharge time.
	TimeUnknown uint32 = 0xFFFFFF

	statusLength = 8
)

// Presence describes whether a battery is present.
type Presence uint8

const (
	PresenceNotPresent Presence = iota
	PresencePresentRemovable
	PresencePresentNotRemovable
	PresenceUnknown
)

// String returns the presence name.
func (p Presence) String() string {
	switch p {
	case PresenceNotPresent:
		return "NotPresent"
	case PresencePresentRemovable:
		return "PresentRemovable"
	case PresencePresentNotRemovable:
		return "PresentNotRemovable"
	default:
		return "Unknown"
	}
}

// Indicator describes the charge level.
type Indicator uint8

const (
	IndicatorCriticallyLow Indicator = iota
	IndicatorLow
	IndicatorGood
	IndicatorUnknown
)

// String returns the indicator name.
func (i Indicator) String() string {
	switch i {
	case IndicatorCriticallyLow:
		return "CriticallyLow"
	case IndicatorLow:
		return "Low"
	case IndicatorGood:
		return "Good"
	default:
		return "Unknown"
	}
}

// Charging describes the charging state.
type Charging uint8

const (
	ChargingNotChargeable Charging = iota
	ChargingNotCharging
	ChargingCharging
	ChargingUnknown
)

// String returns the charging state name.
func (c Charging) String() string {
	switch c {
	case ChargingNotChargeable:
		return "NotChargeable"
	case ChargingNotCharging:
		return "NotCharging"
	case ChargingCharging:
		return "Charging"
	default:
		return "Unknown"
	}
}

// Serviceability describes whether the battery needs service.
type Serviceability uint8

const (
	ServiceabilityReserved Serviceability = iota
	ServiceabilityNotRequired
	ServiceabilityRequired
	ServiceabilityUnknown
)

// String returns the serviceability name.
func (s Serviceability) String() string {
	switch s {
	case ServiceabilityReserved:
		return "Reserved"
	case ServiceabilityNotRequired:
		return "NotRequired"
	case ServiceabilityRequired:
		return "Required"
	default:
		return "Unknown"
	}
}

// Flags is the decoded flags octet.
type Flags struct {
	Presence       Presence
	Indicator      Indicator
	Charging       Charging
	Serviceability Serviceability
}

// Byte packs the flags into a single octet.
func (f Flags) Byte() byte {
	return byte(f.Presence&0x03) |
		byte(f.Indicator&0x03)<<2 |
		byte(f.Charging&0x03)<<4 |
		byte(f.Serviceability&0x03)<<6
}

// FlagsFromByte unpacks a flags octet.
func FlagsFromByte(b byte) Flags {
	return Flags{
		Presence:       Presence(b & 0x03),
		Indicator:      Indicator((b >> 2) & 0x03),
		Charging:       Charging((b >> 4) & 0x03),
		Serviceability: Serviceability((b >> 6) & 0x03),
	}
}

// Get requests the battery state.
type Get struct{}

// Status reports the battery state.
type Status struct {
	Level           uint8
	TimeToDischarge uint32
	TimeToCharge    uint32
	Flags           Flags
}

// Opcode implements wire.Message.
func (Get) Opcode() wire.Opcode { return OpGet }

// Opcode implements wire.Message.
func (Status) Opcode() wire.Opcode { return OpStatus }

// EmitParameters implements wire.Message.
func (Get) EmitParameters(*wire.Buffer) error { return nil }

// EmitParameters implements wire.Message.
func (m Status) EmitParameters(buf *wire.Buffer) error {
	if m.Level > MaxLevel && m.Level != LevelUnknown {
		return fmt.Errorf("%w: battery level %d", wire.ErrInvalidValue, m.Level)
	}
	if m.TimeToDischarge > TimeUnknown || m.TimeToCharge > TimeUnknown {
		return fmt.Errorf("%w: time exceeds 24 bits", wire.ErrInvalidValue)
	}
	if err := buf.Append(m.Level); err != nil {
		return err
	}
	if err := buf.AppendUint24LE(m.TimeToDischarge); err != nil {
		return err
	}
	if err := buf.AppendUint24LE(m.TimeToCharge); err != nil {
		return err
	}
	return buf.Append(m.Flags.Byte())
}

// Parse decodes Generic Battery messages. It implements wire.ParserFunc.
func Parse(op wire.Opcode, params []byte) (wire.Message, bool, error) {
	switch op {
	case OpGet:
		if len(params) != 0 {
			return nil, true, fmt.Errorf("%w: get carries %d bytes", wire.ErrMalformed, len(params))
		}
		return Get{}, true, nil

	case OpStatus:
		if len(params) != statusLength {
			return nil, true, fmt.Errorf("%w: status length %d", wire.ErrMalformed, len(params))
		}
		level := params[0]
		if level > MaxLevel && level != LevelUnknown {
			return nil, true, fmt.Errorf("%w: battery level %d", wire.ErrMalformed, level)
		}
		return Status{
			Level:           level,
			TimeToDischarge: uint24(params[1:4]),
			TimeToCharge:    uint24(params[4:7]),
			Flags:           FlagsFromByte(params[7]),
		}, true, nil

	default:
		return nil, false, nil
	}
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// Parser decodes the Generic Battery opcode space.
var Parser wire.Parser = wire.ParserFunc(Parse)

// Compile-time interface satisfaction checks.
var (
	_ wire.Message = Get{}
	_ wire.Message = Status{}
)
