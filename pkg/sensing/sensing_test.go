package sensing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/models"
	"github.com/meshnode/meshnode-go/pkg/models/battery"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/sensing/mocks"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// sink records published envelopes and can be told to fail.
type sink struct {
	mu   sync.Mutex
	raws []wire.RawMessage
	fail error
}

func (s *sink) send(_ context.Context, raw wire.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.raws = append(s.raws, raw)
	return nil
}

func (s *sink) setFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *sink) temperatures(t *testing.T) []sensor.Temperature {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []sensor.Temperature
	for _, raw := range s.raws {
		msg, ok, err := models.DefaultRegistry().DecodeRaw(raw)
		require.NoError(t, err)
		require.True(t, ok)
		status, isStatus := msg.(sensor.Status)
		require.True(t, isStatus, "published %T", msg)
		out = append(out, status.Data.Temperature)
	}
	return out
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raws)
}

type harness struct {
	router *device.Router
	sink   *sink
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, model device.Model) *harness {
	t.Helper()
	h := &harness{sink: &sink{}, done: make(chan error, 1)}
	h.router = device.NewRouter(device.DefaultRouterConfig(), h.sink.send)
	ch, err := h.router.Bind(0, models.DefaultRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- model.Run(ctx, ch) }()
	return h
}

func (h *harness) cadence(t *testing.T, mode cadence.Mode) {
	t.Helper()
	require.NoError(t, h.router.Control(context.Background(), 0, device.PublicationCadence{Mode: mode}))
	synctest.Wait()
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	assert.ErrorIs(t, <-h.done, context.Canceled)
}

func TestSensorPeriodicPublishes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		thermo := NewSimulatedThermometer(22)
		h := start(t, NewSensor(DefaultConfig(), thermo))

		h.cadence(t, cadence.Periodic(time.Second))
		time.Sleep(3500 * time.Millisecond)
		synctest.Wait()

		temps := h.sink.temperatures(t)
		require.Len(t, temps, 3)
		for _, temp := range temps {
			assert.InDelta(t, 22, temp.Celsius(), 1.0)
		}
		h.stop(t)
	})
}

func TestSensorIdleWithoutCadence(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		thermo := mocks.NewMockThermometer(t)
		h := start(t, NewSensor(DefaultConfig(), thermo))

		// Messages are accepted and ignored.
		require.NoError(t, h.router.Deliver(context.Background(), wire.MustEncodeRaw(sensor.Get{}, 0, nil)))
		require.NoError(t, h.router.Deliver(context.Background(), wire.MustEncodeRaw(onoff.NewSet(true, 0), 0, nil)))

		time.Sleep(10 * time.Second)
		synctest.Wait()
		assert.Equal(t, 0, h.sink.count())
		h.stop(t)
	})
}

func TestSensorConfiguredCadence(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cadence = cadence.Periodic(2 * time.Second)
		h := start(t, NewSensor(cfg, NewSimulatedThermometer(20)))

		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 2, h.sink.count())
		h.stop(t)
	})
}

func TestSensorCadenceTransitions(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := log.NewRecorder(0)
		cfg := DefaultConfig()
		cfg.ProtocolLogger = rec
		h := start(t, NewSensor(cfg, NewSimulatedThermometer(20)))

		h.cadence(t, cadence.Periodic(time.Second))
		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, 2, h.sink.count())

		h.cadence(t, cadence.OnChange())
		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 2, h.sink.count(), "on-change publishes nothing unsolicited")

		h.cadence(t, cadence.Periodic(time.Second))
		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 3, h.sink.count())

		h.cadence(t, cadence.None())
		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 3, h.sink.count())
		h.stop(t)

		var phases []string
		for _, e := range rec.Events() {
			if e.StateChange != nil {
				phases = append(phases, e.StateChange.NewState)
			}
		}
		assert.Equal(t, []string{"PERIODIC", "ON_CHANGE", "PERIODIC", "DISABLED"}, phases)
	})
}

func TestSensorCadenceChangeBeatsPendingTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		release := make(chan struct{})
		thermo := mocks.NewMockThermometer(t)
		thermo.EXPECT().Temperature(mock.Anything).
			RunAndReturn(func(context.Context) (sensor.Temperature, error) {
				<-release
				return 30, nil
			}).Once()

		h := start(t, NewSensor(DefaultConfig(), thermo))
		h.cadence(t, cadence.Periodic(time.Second))

		// First tick: the model is now blocked reading the thermometer.
		time.Sleep(time.Second)
		synctest.Wait()

		// Queue a cadence change and let the next tick become due, so both
		// sources are ready when the model selects again.
		require.NoError(t, h.router.Control(context.Background(), 0,
			device.PublicationCadence{Mode: cadence.None()}))
		time.Sleep(time.Second)
		synctest.Wait()

		close(release)
		synctest.Wait()
		time.Sleep(5 * time.Second)
		synctest.Wait()

		assert.Equal(t, []sensor.Temperature{30}, h.sink.temperatures(t))
		h.stop(t)
	})
}

func TestSensorReadErrorSkipsTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		thermo := mocks.NewMockThermometer(t)
		thermo.EXPECT().Temperature(mock.Anything).Return(0, errors.New("sensor busy")).Once()
		thermo.EXPECT().Temperature(mock.Anything).Return(41, nil)

		h := start(t, NewSensor(DefaultConfig(), thermo))
		h.cadence(t, cadence.Periodic(time.Second))

		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, []sensor.Temperature{41}, h.sink.temperatures(t))
		h.stop(t)
	})
}

func TestSensorPublishErrorContinues(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, NewSensor(DefaultConfig(), NewSimulatedThermometer(18)))
		h.sink.setFail(errors.New("transport down"))
		h.cadence(t, cadence.Periodic(time.Second))

		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, h.sink.count())

		h.sink.setFail(nil)
		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 1, h.sink.count(), "publishing resumes without retrying old ticks")
		h.stop(t)
	})
}

func TestSensorClosedInbound(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, NewSensor(DefaultConfig(), NewSimulatedThermometer(18)))
		h.cadence(t, cadence.Periodic(time.Second))

		h.router.Close()
		assert.ErrorIs(t, <-h.done, device.ErrClosed)
		h.cancel()
	})
}

func TestBatteryPublishes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, NewBattery(DefaultConfig(), NewSimulatedGauge(12)))
		h.cadence(t, cadence.Periodic(time.Second))

		time.Sleep(3500 * time.Millisecond)
		synctest.Wait()
		h.stop(t)

		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		require.Len(t, h.sink.raws, 3)

		var levels []uint8
		for _, raw := range h.sink.raws {
			msg, ok, err := models.DefaultRegistry().DecodeRaw(raw)
			require.NoError(t, err)
			require.True(t, ok)
			status := msg.(battery.Status)
			levels = append(levels, status.Level)
			assert.Equal(t, battery.PresencePresentRemovable, status.Flags.Presence)
		}
		assert.Equal(t, []uint8{12, 11, 10}, levels)
	})
}

func TestSimulatedGauge(t *testing.T) {
	g := NewSimulatedGauge(200)
	st, err := g.Battery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, battery.MaxLevel, st.Level)
	assert.Equal(t, battery.IndicatorGood, st.Flags.Indicator)

	low := NewSimulatedGauge(5)
	st, _ = low.Battery(context.Background())
	assert.Equal(t, battery.IndicatorCriticallyLow, st.Flags.Indicator)
	assert.Equal(t, battery.ServiceabilityRequired, st.Flags.Serviceability)

	empty := NewSimulatedGauge(0)
	st, _ = empty.Battery(context.Background())
	st, _ = empty.Battery(context.Background())
	assert.Equal(t, uint8(0), st.Level)
}

func TestSimulatedThermometer(t *testing.T) {
	th := NewSimulatedThermometer(21.5)
	for i := 0; i < 32; i++ {
		temp, err := th.Temperature(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 21.5, temp.Celsius(), 1.0)
	}

	boom := errors.New("i2c timeout")
	th.Fail(boom)
	_, err := th.Temperature(context.Background())
	assert.ErrorIs(t, err, boom)

	th.Fail(nil)
	th.Set(-10)
	temp, err := th.Temperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -10, temp.Celsius(), 1.0)
}

func TestHostThermometer(t *testing.T) {
	stats := []host.TemperatureStat{
		{SensorKey: "acpitz", Temperature: 0},
		{SensorKey: "coretemp_package_id_0", Temperature: 47.3},
		{SensorKey: "nvme_composite", Temperature: 38},
	}
	h := &HostThermometer{read: func(context.Context) ([]host.TemperatureStat, error) {
		return stats, nil
	}}

	temp, err := h.Temperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sensor.Temperature(0), temp, "first plausible sensor wins")

	h.Key = "coretemp"
	temp, err = h.Temperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sensor.TemperatureFromCelsius(47.3), temp)

	h.Key = "gpu"
	_, err = h.Temperature(context.Background())
	assert.ErrorIs(t, err, ErrNoSensor)

	failing := &HostThermometer{read: func(context.Context) ([]host.TemperatureStat, error) {
		return nil, errors.New("not supported")
	}}
	_, err = failing.Temperature(context.Background())
	assert.Error(t, err)
}
