// Package models bundles the model codecs compiled into meshnode.
package models

import (
	"github.com/meshnode/meshnode-go/pkg/models/battery"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// DefaultRegistry returns a registry that tries the Generic OnOff, Sensor
// and Generic Battery parsers, in that order.
func DefaultRegistry() *wire.Registry {
	return wire.NewRegistry(onoff.Parser, sensor.Parser, battery.Parser)
}
