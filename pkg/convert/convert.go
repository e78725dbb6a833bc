// Package convert translates between mesh envelopes and the JSON documents
// used by the cloud side of a deployment.
//
// Telemetry turns a node's published envelope into a partial state update:
//
//	{"button":  {"on": true, "location": 0}}
//	{"sensor":  {"payload": {"temperature": 22}, "location": 1}}
//	{"battery": {"level": 87, "flags": {"presence": "PresentRemovable"}, "location": 2}}
//
// Sensor temperatures leave the mesh in half degrees and are divided by two
// with integer truncation here, so odd raw values lose their half degree.
//
// Command turns a display command into an addressed Generic OnOff Set:
//
//	{"address": 2, "display": {"on": true, "location": 0}}
package convert

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meshnode/meshnode-go/pkg/models"
	"github.com/meshnode/meshnode-go/pkg/models/battery"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// ErrNotCommand is returned for documents that are not display commands.
var ErrNotCommand = errors.New("not a display command")

// Button is the telemetry of an on/off switch.
type Button struct {
	On       bool   `json:"on"`
	Location uint16 `json:"location"`
}

// SensorPayload is the sensor data at whole-degree scale.
type SensorPayload struct {
	Temperature int `json:"temperature"`
}

// Sensor is the telemetry of a sensor.
type Sensor struct {
	Payload  SensorPayload `json:"payload"`
	Location uint16        `json:"location"`
}

// BatteryFlags is the reported subset of the battery flags.
type BatteryFlags struct {
	Presence string `json:"presence"`
}

// Battery is the telemetry of a battery.
type Battery struct {
	Level    uint8        `json:"level"`
	Flags    BatteryFlags `json:"flags"`
	Location uint16       `json:"location"`
}

// State is a partial device state. Exactly one field is set.
type State struct {
	Button  *Button  `json:"button,omitempty"`
	Sensor  *Sensor  `json:"sensor,omitempty"`
	Battery *Battery `json:"battery,omitempty"`
}

// Update wraps a State for the device registry.
type Update struct {
	State   State `json:"state"`
	Partial bool  `json:"partial"`
}

// Telemetry converts a published envelope. It returns false for envelopes
// that do not carry a convertible message.
func Telemetry(raw wire.RawMessage) (State, bool) {
	msg, ok, err := models.DefaultRegistry().DecodeRaw(raw)
	if err != nil || !ok {
		return State{}, false
	}
	return FromMessage(msg, raw.Location)
}

// FromMessage converts a decoded message published at location.
func FromMessage(msg wire.Message, location uint16) (State, bool) {
	switch m := msg.(type) {
	case onoff.Set:
		return State{Button: &Button{On: m.OnOff == onoff.On, Location: location}}, true
	case onoff.SetUnacknowledged:
		return State{Button: &Button{On: m.OnOff == onoff.On, Location: location}}, true
	case sensor.Status:
		return State{Sensor: &Sensor{
			Payload:  SensorPayload{Temperature: WholeDegrees(m.Data.Temperature)},
			Location: location,
		}}, true
	case battery.Status:
		return State{Battery: &Battery{
			Level:    m.Level,
			Flags:    BatteryFlags{Presence: m.Flags.Presence.String()},
			Location: location,
		}}, true
	default:
		return State{}, false
	}
}

// WholeDegrees converts half-degree units to degrees, truncating toward zero.
func WholeDegrees(t sensor.Temperature) int {
	return int(t) / 2
}

// TelemetryJSON converts a JSON envelope into a JSON partial update.
// It returns false when the envelope is not convertible.
func TelemetryJSON(data []byte) ([]byte, bool, error) {
	var raw wire.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("decode envelope: %w", err)
	}
	state, ok := Telemetry(raw)
	if !ok {
		return nil, false, nil
	}
	out, err := json.Marshal(Update{State: state, Partial: true})
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// DisplayCommand is a request to switch a display.
type DisplayCommand struct {
	Address *uint16  `json:"address"`
	Display *Display `json:"display"`
}

// Display is the display part of a command.
type Display struct {
	On       bool   `json:"on"`
	Location uint16 `json:"location"`
}

// Command converts a JSON display command into an addressed envelope.
// Missing "on" means off and missing "location" means 0.
func Command(data []byte) (wire.RawMessage, error) {
	var cmd DisplayCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wire.RawMessage{}, fmt.Errorf("%w: %v", ErrNotCommand, err)
	}
	if cmd.Address == nil || cmd.Display == nil {
		return wire.RawMessage{}, ErrNotCommand
	}
	return wire.MustEncodeRaw(onoff.NewSet(cmd.Display.On, 0), cmd.Display.Location, cmd.Address), nil
}

// CommandJSON converts a JSON display command into a JSON envelope.
func CommandJSON(data []byte) ([]byte, error) {
	raw, err := Command(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}
