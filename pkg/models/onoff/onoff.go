// Package onoff implements the Generic OnOff model messages.
//
// A Generic OnOff server exposes a single boolean state. Set and
// SetUnacknowledged change it; Get and Status only report it.
//
// Parameter layouts:
//
//	Get                 (no parameters)
//	Set, SetUnack       OnOff(1) TID(1) [TransitionTime(1) Delay(1)]
//	Status              PresentOnOff(1) [TargetOnOff(1) RemainingTime(1)]
package onoff

import (
	"fmt"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Generic OnOff opcodes.
var (
	OpGet               = wire.Opcode2(0x82, 0x01)
	OpSet               = wire.Opcode2(0x82, 0x02)
	OpSetUnacknowledged = wire.Opcode2(0x82, 0x03)
	OpStatus            = wire.Opcode2(0x82, 0x04)
)

// OnOff state values. Other values are prohibited.
const (
	Off uint8 = 0x00
	On  uint8 = 0x01
)

// Transition holds the optional transition parameters of a Set.
type Transition struct {
	// Time is the encoded Generic Default Transition Time.
	Time uint8

	// Delay is the message execution delay in 5 ms steps.
	Delay uint8
}

// Target holds the optional target state of a Status.
type Target struct {
	OnOff         uint8
	RemainingTime uint8
}

// Get requests the current state.
type Get struct{}

// Set changes the state and requests a Status in response.
type Set struct {
	OnOff      uint8
	TID        uint8
	Transition *Transition
}

// SetUnacknowledged changes the state without a response.
type SetUnacknowledged Set

// Status reports the current state.
type Status struct {
	Present uint8
	Target  *Target
}

// NewSet returns a Set for the given intent.
func NewSet(on bool, tid uint8) Set {
	return Set{OnOff: value(on), TID: tid}
}

// NewSetUnacknowledged returns a SetUnacknowledged for the given intent.
func NewSetUnacknowledged(on bool, tid uint8) SetUnacknowledged {
	return SetUnacknowledged{OnOff: value(on), TID: tid}
}

func value(on bool) uint8 {
	if on {
		return On
	}
	return Off
}

// IsOn reports the on/off intent.
func (m Set) IsOn() bool { return m.OnOff != Off }

// IsOn reports the on/off intent.
func (m SetUnacknowledged) IsOn() bool { return m.OnOff != Off }

// IsOn reports the present state.
func (m Status) IsOn() bool { return m.Present != Off }

// Opcode implements wire.Message.
func (Get) Opcode() wire.Opcode { return OpGet }

// Opcode implements wire.Message.
func (Set) Opcode() wire.Opcode { return OpSet }

// Opcode implements wire.Message.
func (SetUnacknowledged) Opcode() wire.Opcode { return OpSetUnacknowledged }

// Opcode implements wire.Message.
func (Status) Opcode() wire.Opcode { return OpStatus }

// EmitParameters implements wire.Message.
func (Get) EmitParameters(*wire.Buffer) error { return nil }

// EmitParameters implements wire.Message.
func (m Set) EmitParameters(buf *wire.Buffer) error {
	return emitSet(buf, m.OnOff, m.TID, m.Transition)
}

// EmitParameters implements wire.Message.
func (m SetUnacknowledged) EmitParameters(buf *wire.Buffer) error {
	return emitSet(buf, m.OnOff, m.TID, m.Transition)
}

// EmitParameters implements wire.Message.
func (m Status) EmitParameters(buf *wire.Buffer) error {
	if m.Present > On {
		return fmt.Errorf("%w: present on/off %d", wire.ErrInvalidValue, m.Present)
	}
	if err := buf.Append(m.Present); err != nil {
		return err
	}
	if m.Target == nil {
		return nil
	}
	if m.Target.OnOff > On {
		return fmt.Errorf("%w: target on/off %d", wire.ErrInvalidValue, m.Target.OnOff)
	}
	return buf.Append(m.Target.OnOff, m.Target.RemainingTime)
}

func emitSet(buf *wire.Buffer, onOff, tid uint8, tr *Transition) error {
	if onOff > On {
		return fmt.Errorf("%w: on/off %d", wire.ErrInvalidValue, onOff)
	}
	if err := buf.Append(onOff, tid); err != nil {
		return err
	}
	if tr == nil {
		return nil
	}
	return buf.Append(tr.Time, tr.Delay)
}

// Parse decodes Generic OnOff messages. It implements wire.ParserFunc.
func Parse(op wire.Opcode, params []byte) (wire.Message, bool, error) {
	switch op {
	case OpGet:
		if len(params) != 0 {
			return nil, true, fmt.Errorf("%w: get carries %d bytes", wire.ErrMalformed, len(params))
		}
		return Get{}, true, nil

	case OpSet:
		set, err := parseSet(params)
		if err != nil {
			return nil, true, err
		}
		return set, true, nil

	case OpSetUnacknowledged:
		set, err := parseSet(params)
		if err != nil {
			return nil, true, err
		}
		return SetUnacknowledged(set), true, nil

	case OpStatus:
		status, err := parseStatus(params)
		if err != nil {
			return nil, true, err
		}
		return status, true, nil

	default:
		return nil, false, nil
	}
}

func parseSet(params []byte) (Set, error) {
	if len(params) != 2 && len(params) != 4 {
		return Set{}, fmt.Errorf("%w: set length %d", wire.ErrMalformed, len(params))
	}
	if params[0] > On {
		return Set{}, fmt.Errorf("%w: on/off value %d", wire.ErrMalformed, params[0])
	}
	set := Set{OnOff: params[0], TID: params[1]}
	if len(params) == 4 {
		set.Transition = &Transition{Time: params[2], Delay: params[3]}
	}
	return set, nil
}

func parseStatus(params []byte) (Status, error) {
	if len(params) != 1 && len(params) != 3 {
		return Status{}, fmt.Errorf("%w: status length %d", wire.ErrMalformed, len(params))
	}
	if params[0] > On {
		return Status{}, fmt.Errorf("%w: present value %d", wire.ErrMalformed, params[0])
	}
	status := Status{Present: params[0]}
	if len(params) == 3 {
		if params[1] > On {
			return Status{}, fmt.Errorf("%w: target value %d", wire.ErrMalformed, params[1])
		}
		status.Target = &Target{OnOff: params[1], RemainingTime: params[2]}
	}
	return status, nil
}

// Parser decodes the Generic OnOff opcode space.
var Parser wire.Parser = wire.ParserFunc(Parse)

// Compile-time interface satisfaction checks.
var (
	_ wire.Message = Get{}
	_ wire.Message = Set{}
	_ wire.Message = SetUnacknowledged{}
	_ wire.Message = Status{}
)
