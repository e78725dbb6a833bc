package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/convert"
	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/discovery"
	"github.com/meshnode/meshnode-go/pkg/display"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/models/battery"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/sensing"
	"github.com/meshnode/meshnode-go/pkg/transport"
	"github.com/meshnode/meshnode-go/pkg/transport/mqtt"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Hooks replaced in tests.
var (
	findBroker = func(ctx context.Context, cfg discovery.BrowserConfig) (string, error) {
		return discovery.NewBrowser(cfg).FindBroker(ctx)
	}
	newAdvertiser = func() advertiser {
		return discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	}
)

type advertiser interface {
	Advertise(info discovery.NodeInfo) error
	Stop()
}

// recentEvents is the number of protocol events kept for the console.
const recentEvents = 20

// app wires the node elements to a transport.
type app struct {
	cfg    *Config
	logger *slog.Logger
	plog   log.Logger

	// recent keeps the latest protocol events for the console.
	recent *log.Recorder

	router  *device.Router
	node    *device.Node
	matrix  *display.VirtualMatrix
	display *display.OnOff

	// simulated is nil when the sensor reads the host.
	simulated *sensing.SimulatedThermometer

	// peers reports stream connections; nil for other transports.
	peers func() int
}

// setupLogging creates the operational logger writing to w.
func setupLogging(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newApp builds the router and the node elements. cfg must be validated
// and have its defaults applied.
func newApp(cfg *Config, logger *slog.Logger, plog log.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		recent: log.NewRecorder(recentEvents),
		matrix: display.NewVirtualMatrix(),
	}
	a.plog = log.NewMultiLogger(plog, a.recent)

	a.router = device.NewRouter(device.RouterConfig{
		NodeID:         cfg.Node.ID,
		Address:        cfg.Node.Address,
		QueueSize:      device.DefaultQueueSize,
		Logger:         logger.With("component", "router"),
		ProtocolLogger: a.plog,
	}, nil)

	dcfg := display.DefaultConfig()
	if cfg.Display.Choreography != nil {
		dcfg.Choreography = *cfg.Display.Choreography
	}
	dcfg.Location = cfg.Display.Location
	dcfg.NodeID = cfg.Node.ID
	dcfg.Logger = logger.With("element", "display")
	dcfg.ProtocolLogger = a.plog
	a.display = display.NewOnOff(dcfg, a.matrix)

	elements := []device.Element{{
		Name:     "display",
		Location: cfg.Display.Location,
		Model:    a.display,
		Parser:   onoff.Parser,
	}}

	sensorCadence, err := cadence.ParseMode(cfg.Sensor.Cadence)
	if err != nil {
		return nil, fmt.Errorf("sensor cadence: %w", err)
	}
	var thermometer sensing.Thermometer
	if cfg.Sensor.Source == SourceHost {
		thermometer = sensing.NewHostThermometer(cfg.Sensor.HostKey)
	} else {
		a.simulated = sensing.NewSimulatedThermometer(cfg.Sensor.Celsius)
		thermometer = a.simulated
	}
	elements = append(elements, device.Element{
		Name:     "sensor",
		Location: cfg.Sensor.Location,
		Model:    sensing.NewSensor(a.publisherConfig("sensor", cfg.Sensor.Location, sensorCadence), thermometer),
		Parser:   sensor.Parser,
	})

	if cfg.Battery.Enabled {
		batteryCadence, err := cadence.ParseMode(cfg.Battery.Cadence)
		if err != nil {
			return nil, fmt.Errorf("battery cadence: %w", err)
		}
		elements = append(elements, device.Element{
			Name:     "battery",
			Location: cfg.Battery.Location,
			Model: sensing.NewBattery(
				a.publisherConfig("battery", cfg.Battery.Location, batteryCadence),
				sensing.NewSimulatedGauge(cfg.Battery.Level)),
			Parser: battery.Parser,
		})
	}

	a.node, err = device.NewNode(a.router, logger, elements...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) publisherConfig(name string, location uint16, mode cadence.Mode) sensing.Config {
	return sensing.Config{
		Cadence:        mode,
		Location:       location,
		NodeID:         a.cfg.Node.ID,
		Logger:         a.logger.With("element", name),
		ProtocolLogger: a.plog,
	}
}

// run connects the transport and runs the node until ctx is done or either
// of them fails.
func (a *app) run(ctx context.Context) error {
	runTransport, err := a.connect(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.node.Run(gctx) })
	if runTransport != nil {
		g.Go(func() error { return runTransport(gctx) })
	}
	return g.Wait()
}

// connect sets the router sink and returns the transport's run function.
// The local transport has none.
func (a *app) connect(ctx context.Context) (func(context.Context) error, error) {
	tc := a.cfg.Transport
	switch tc.Kind {
	case TransportMQTT:
		broker := tc.MQTT.Broker
		if broker == "" {
			a.logger.Info("browsing for mqtt broker")
			bcfg := discovery.DefaultBrowserConfig()
			bcfg.Logger = a.logger.With("component", "discovery")
			found, err := findBroker(ctx, bcfg)
			if err != nil {
				return nil, fmt.Errorf("discover broker: %w", err)
			}
			broker = found
			a.logger.Info("found mqtt broker", "broker", broker)
		}

		mc := mqtt.DefaultConfig()
		mc.Broker = broker
		mc.ClientID = tc.MQTT.ClientID
		mc.TopicPrefix = tc.MQTT.TopicPrefix
		mc.Encoding = tc.MQTT.Encoding
		mc.PublishState = tc.MQTT.PublishState
		mc.Logger = a.logger.With("component", "mqtt")
		t, err := mqtt.New(mc, a.router)
		if err != nil {
			return nil, err
		}
		a.router.SetSink(t.Publish)
		return t.Run, nil

	case TransportStream:
		sc := transport.DefaultStreamConfig()
		sc.Address = tc.Stream.Address
		sc.Listen = tc.Stream.Listen
		sc.Backoff = tc.Stream.Backoff
		sc.NodeID = a.cfg.Node.ID
		sc.Logger = a.logger.With("component", "stream")
		sc.ProtocolLogger = a.plog
		s := transport.NewStream(sc, a.router)
		a.router.SetSink(s.Publish)
		a.peers = s.Peers
		if tc.Stream.Advertise {
			return a.advertised(s.Run), nil
		}
		return s.Run, nil

	default:
		a.router.SetSink(a.publishLocal)
		return nil, nil
	}
}

// advertised wraps run so that the node is announced over mDNS while the
// stream listener is up.
func (a *app) advertised(run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		port, err := listenPort(a.cfg.Transport.Stream.Address)
		if err != nil {
			return err
		}
		locations := a.router.Locations()
		slices.Sort(locations)

		adv := newAdvertiser()
		info := discovery.NodeInfo{
			NodeID:    a.cfg.Node.ID,
			Address:   a.cfg.Node.Address,
			Locations: locations,
			Port:      port,
		}
		if err := adv.Advertise(info); err != nil {
			return fmt.Errorf("advertise: %w", err)
		}
		defer adv.Stop()
		a.logger.Info("advertising node", "instance", info.InstanceName(), "port", port)
		return run(ctx)
	}
}

// publishLocal is the sink of the local transport: published envelopes are
// only logged.
func (a *app) publishLocal(_ context.Context, raw wire.RawMessage) error {
	state, ok := convert.Telemetry(raw)
	if !ok {
		a.logger.Debug("published", "location", raw.Location, "opcode", fmt.Sprintf("%X", []byte(raw.Opcode)))
		return nil
	}
	data, err := json.Marshal(convert.Update{State: state, Partial: true})
	if err != nil {
		return err
	}
	a.logger.Info("telemetry", "location", raw.Location, "update", string(data))
	return nil
}

// printStatus writes a summary of the node to w.
func (a *app) printStatus(w io.Writer) {
	cfg := a.cfg
	fmt.Fprintf(w, "Node:      %s", cfg.Node.ID)
	if cfg.Node.Address != nil {
		fmt.Fprintf(w, " (address 0x%04X)", *cfg.Node.Address)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Transport: %s", cfg.Transport.Kind)
	if a.peers != nil {
		fmt.Fprintf(w, " (%d peers)", a.peers())
	}
	fmt.Fprintln(w)

	state := a.matrix.State()
	onOff := "off"
	if a.display.Active() {
		onOff = "on"
	}
	fmt.Fprintf(w, "Display:   location %d, %s, brightness %d, %d frames shown\n",
		cfg.Display.Location, onOff, state.Brightness, a.matrix.FramesShown())

	fmt.Fprintf(w, "Sensor:    location %d, source %s\n", cfg.Sensor.Location, cfg.Sensor.Source)
	if cfg.Battery.Enabled {
		fmt.Fprintf(w, "Battery:   location %d\n", cfg.Battery.Location)
	}
}
