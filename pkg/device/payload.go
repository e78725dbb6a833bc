package device

import (
	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// InboundPayload is a unit of work delivered to a model.
// It is one of MessagePayload or ControlPayload.
type InboundPayload interface {
	inbound()
}

// Metadata describes where a message came from and where it was sent.
type Metadata struct {
	// Source is the sender's unicast address, if known.
	Source *uint16

	// Destination is the address the message was sent to, if any.
	Destination *uint16

	// Location is the element slot the message was routed to.
	Location uint16
}

// MessagePayload carries a decoded access message.
type MessagePayload struct {
	Message wire.Message
	Meta    Metadata
}

// ControlPayload carries a local control event.
type ControlPayload struct {
	Event ControlEvent
}

func (MessagePayload) inbound() {}
func (ControlPayload) inbound() {}

// ControlEvent is a local instruction to a model.
// The only variant is PublicationCadence.
type ControlEvent interface {
	control()
}

// PublicationCadence changes how often a model publishes on its own.
type PublicationCadence struct {
	Mode cadence.Mode
}

func (PublicationCadence) control() {}

// ControlEnvelope is the serialized form of a control event addressed to a
// location. Transports use it to carry control events alongside messages.
type ControlEnvelope struct {
	Location uint16        `json:"location" cbor:"1,keyasint"`
	Cadence  *cadence.Mode `json:"cadence,omitempty" cbor:"2,keyasint,omitempty"`
}

// Event returns the control event held by the envelope.
func (e ControlEnvelope) Event() (ControlEvent, bool) {
	if e.Cadence != nil {
		return PublicationCadence{Mode: *e.Cadence}, true
	}
	return nil, false
}

// CadenceEnvelope builds an envelope requesting mode at location.
func CadenceEnvelope(location uint16, mode cadence.Mode) ControlEnvelope {
	return ControlEnvelope{Location: location, Cadence: &mode}
}
