package sensing

import (
	"context"

	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Sensor publishes Present Ambient Temperature readings.
type Sensor struct {
	thermometer Thermometer
	pub         *publisher
}

// NewSensor creates a Sensor reading from thermometer.
func NewSensor(config Config, thermometer Thermometer) *Sensor {
	s := &Sensor{thermometer: thermometer}
	s.pub = newPublisher("sensor", config, s.read)
	return s
}

func (s *Sensor) read(ctx context.Context) (wire.Message, error) {
	t, err := s.thermometer.Temperature(ctx)
	if err != nil {
		return nil, err
	}
	return sensor.NewStatus(sensor.Payload{Temperature: t}), nil
}

// Run implements device.Model. The cadence state belongs to the Run
// goroutine; Run must not be called concurrently.
func (s *Sensor) Run(ctx context.Context, dc device.Context) error {
	return s.pub.run(ctx, dc)
}

// Compile-time interface satisfaction check.
var _ device.Model = (*Sensor)(nil)
