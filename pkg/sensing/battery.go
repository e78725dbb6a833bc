package sensing

import (
	"context"

	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Battery publishes Generic Battery Status readings.
type Battery struct {
	gauge Gauge
	pub   *publisher
}

// NewBattery creates a Battery reading from gauge.
func NewBattery(config Config, gauge Gauge) *Battery {
	b := &Battery{gauge: gauge}
	b.pub = newPublisher("battery", config, b.read)
	return b
}

func (b *Battery) read(ctx context.Context) (wire.Message, error) {
	status, err := b.gauge.Battery(ctx)
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Run implements device.Model.
func (b *Battery) Run(ctx context.Context, dc device.Context) error {
	return b.pub.run(ctx, dc)
}

// Compile-time interface satisfaction check.
var _ device.Model = (*Battery)(nil)
