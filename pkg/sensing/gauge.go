package sensing

import (
	"context"
	"sync"

	"github.com/meshnode/meshnode-go/pkg/models/battery"
)

// Gauge reports the battery state.
type Gauge interface {
	Battery(ctx context.Context) (battery.Status, error)
}

// SimulatedGauge is a removable battery that loses one percent per read
// and reports an unknown charging state.
type SimulatedGauge struct {
	mu    sync.Mutex
	level uint8
}

// NewSimulatedGauge creates a gauge starting at level percent.
func NewSimulatedGauge(level uint8) *SimulatedGauge {
	if level > battery.MaxLevel {
		level = battery.MaxLevel
	}
	return &SimulatedGauge{level: level}
}

// Battery implements Gauge.
func (g *SimulatedGauge) Battery(context.Context) (battery.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := battery.Status{
		Level:           g.level,
		TimeToDischarge: battery.TimeUnknown,
		TimeToCharge:    battery.TimeUnknown,
		Flags: battery.Flags{
			Presence:       battery.PresencePresentRemovable,
			Indicator:      indicator(g.level),
			Charging:       battery.ChargingNotChargeable,
			Serviceability: serviceability(g.level),
		},
	}
	if g.level > 0 {
		g.level--
	}
	return status, nil
}

func indicator(level uint8) battery.Indicator {
	switch {
	case level < 10:
		return battery.IndicatorCriticallyLow
	case level < 30:
		return battery.IndicatorLow
	default:
		return battery.IndicatorGood
	}
}

func serviceability(level uint8) battery.Serviceability {
	if level < 10 {
		return battery.ServiceabilityRequired
	}
	return battery.ServiceabilityNotRequired
}

// Compile-time interface satisfaction check.
var _ Gauge = (*SimulatedGauge)(nil)
