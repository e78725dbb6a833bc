package sensing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/meshnode/meshnode-go/pkg/models/sensor"
)

// ErrNoSensor is returned when no matching host temperature sensor exists.
var ErrNoSensor = errors.New("no temperature sensor")

// Thermometer reads the ambient temperature.
type Thermometer interface {
	// Temperature returns the current temperature in half-degree units.
	Temperature(ctx context.Context) (sensor.Temperature, error)
}

// SimulatedThermometer returns a temperature that drifts around a base
// value in a fixed pattern.
type SimulatedThermometer struct {
	mu   sync.Mutex
	base float64
	step int
	fail error
}

// NewSimulatedThermometer creates a thermometer centred on celsius.
func NewSimulatedThermometer(celsius float64) *SimulatedThermometer {
	return &SimulatedThermometer{base: celsius}
}

// Set changes the base temperature.
func (s *SimulatedThermometer) Set(celsius float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = celsius
}

// Fail makes subsequent reads return err. Pass nil to recover.
func (s *SimulatedThermometer) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Temperature implements Thermometer.
func (s *SimulatedThermometer) Temperature(context.Context) (sensor.Temperature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return 0, s.fail
	}
	// +/- 1 degree, one step per read
	drift := math.Sin(float64(s.step)*math.Pi/8) * 1.0
	s.step++
	return sensor.TemperatureFromCelsius(s.base + drift), nil
}

// HostThermometer reads a temperature sensor of the machine the node runs
// on.
type HostThermometer struct {
	// Key selects sensors whose key contains this substring.
	// Empty selects the first sensor reporting a plausible value.
	Key string

	// read is replaced in tests.
	read func(ctx context.Context) ([]host.TemperatureStat, error)
}

// NewHostThermometer creates a HostThermometer matching key.
func NewHostThermometer(key string) *HostThermometer {
	return &HostThermometer{Key: key, read: host.SensorsTemperaturesWithContext}
}

// Temperature implements Thermometer.
func (h *HostThermometer) Temperature(ctx context.Context) (sensor.Temperature, error) {
	read := h.read
	if read == nil {
		read = host.SensorsTemperaturesWithContext
	}
	// gopsutil reports partial results alongside warnings.
	stats, err := read(ctx)
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("read host sensors: %w", err)
	}
	for _, st := range stats {
		if h.Key != "" && !strings.Contains(st.SensorKey, h.Key) {
			continue
		}
		if st.Temperature <= -100 || st.Temperature >= 200 {
			continue
		}
		return sensor.TemperatureFromCelsius(st.Temperature), nil
	}
	if h.Key != "" {
		return 0, fmt.Errorf("%w: %q", ErrNoSensor, h.Key)
	}
	return 0, ErrNoSensor
}

// Compile-time interface satisfaction checks.
var (
	_ Thermometer = (*SimulatedThermometer)(nil)
	_ Thermometer = (*HostThermometer)(nil)
)
