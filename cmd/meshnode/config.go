package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/display"
	"github.com/meshnode/meshnode-go/pkg/models/battery"
	"github.com/meshnode/meshnode-go/pkg/transport"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Transport kinds.
const (
	TransportLocal  = "local"
	TransportMQTT   = "mqtt"
	TransportStream = "stream"
)

// Thermometer sources.
const (
	SourceSimulated = "simulated"
	SourceHost      = "host"
)

// Config holds the node configuration.
type Config struct {
	Node        NodeConfig      `yaml:"node"`
	Transport   TransportConfig `yaml:"transport"`
	Display     DisplayConfig   `yaml:"display"`
	Sensor      SensorConfig    `yaml:"sensor"`
	Battery     BatteryConfig   `yaml:"battery"`
	Log         LogConfig       `yaml:"log"`
	Interactive bool            `yaml:"interactive"`
}

// NodeConfig identifies the node.
type NodeConfig struct {
	// ID names the node in logs and discovery. Generated if empty.
	ID string `yaml:"id"`

	// Address is the unicast address. Nil accepts every command.
	Address *uint16 `yaml:"address"`
}

// TransportConfig selects how envelopes enter and leave the node.
type TransportConfig struct {
	Kind   string       `yaml:"kind"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Stream StreamConfig `yaml:"stream"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	TopicPrefix  string `yaml:"topic_prefix"`
	Encoding     string `yaml:"encoding"`
	Discover     bool   `yaml:"discover"`
	PublishState bool   `yaml:"publish_state"`
}

// StreamConfig configures the framed TCP transport.
type StreamConfig struct {
	Address   string `yaml:"address"`
	Listen    bool   `yaml:"listen"`
	Advertise bool   `yaml:"advertise"`

	// Backoff tunes redialing. Zero fields take the transport defaults.
	Backoff transport.BackoffConfig `yaml:"backoff"`
}

// DisplayConfig configures the on/off display element.
type DisplayConfig struct {
	Location     uint16                `yaml:"location"`
	Choreography *display.Choreography `yaml:"choreography"`
}

// SensorConfig configures the temperature sensor element.
type SensorConfig struct {
	Location uint16 `yaml:"location"`

	// Source is "simulated" or "host".
	Source string `yaml:"source"`

	// HostKey selects a host sensor by key substring.
	HostKey string `yaml:"host_key"`

	// Celsius is the base temperature of the simulated thermometer.
	Celsius float64 `yaml:"celsius"`

	// Cadence is parsed with cadence.ParseMode.
	Cadence string `yaml:"cadence"`
}

// BatteryConfig configures the optional battery element.
type BatteryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Location uint16 `yaml:"location"`
	Level    uint8  `yaml:"level"`
	Cadence  string `yaml:"cadence"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ProtocolFile string `yaml:"protocol_file"`
}

// defaultConfig returns the configuration used before the file and flags
// are applied.
func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind: TransportLocal,
			MQTT: MQTTConfig{
				TopicPrefix: "meshnode",
				Encoding:    "json",
			},
		},
		Display: DisplayConfig{Location: 0},
		Sensor: SensorConfig{
			Location: 1,
			Source:   SourceSimulated,
			Celsius:  21.5,
			Cadence:  "10s",
		},
		Battery: BatteryConfig{
			Location: 2,
			Level:    battery.MaxLevel,
			Cadence:  "60s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// loadConfig builds the configuration from defaults, an optional YAML file
// and command-line flags, in that order. Only flags given explicitly
// override the file.
func loadConfig(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("meshnode", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		configFile   string
		id           string
		address      string
		kind         string
		broker       string
		discover     bool
		encoding     string
		publishState bool
		streamAddr   string
		listen       bool
		advertise    bool
		source       string
		sensorCad    string
		withBattery  bool
		batteryCad   string
		logLevel     string
		logFormat    string
		protocolLog  string
		interactive  bool
	)
	fs.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&id, "id", "", "Node ID (generated if empty)")
	fs.StringVar(&address, "address", "", "Unicast address, e.g. 2 or 0x0002 (empty accepts every command)")
	fs.StringVar(&kind, "transport", TransportLocal, "Transport: local, mqtt, stream")
	fs.StringVar(&broker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.BoolVar(&discover, "discover", false, "Find the MQTT broker via mDNS when -broker is empty")
	fs.StringVar(&encoding, "encoding", "json", "MQTT envelope encoding: json, cbor")
	fs.BoolVar(&publishState, "publish-state", false, "Also publish converted state updates over MQTT")
	fs.StringVar(&streamAddr, "stream", "", "Stream transport address (host:port)")
	fs.BoolVar(&listen, "listen", false, "Accept stream connections instead of dialing")
	fs.BoolVar(&advertise, "advertise", false, "Advertise the stream listener via mDNS")
	fs.StringVar(&source, "sensor-source", SourceSimulated, "Thermometer: simulated, host")
	fs.StringVar(&sensorCad, "sensor-cadence", "10s", "Sensor cadence: none, onchange, periodic:<d> or <d>")
	fs.BoolVar(&withBattery, "battery", false, "Add a simulated battery element")
	fs.StringVar(&batteryCad, "battery-cadence", "60s", "Battery cadence")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&logFormat, "log-format", "text", "Log format: text, json")
	fs.StringVar(&protocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	fs.BoolVar(&interactive, "interactive", false, "Enable interactive console")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := defaultConfig()
	if configFile != "" {
		if err := readConfigFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			cfg.Node.ID = id
		case "address":
			var a uint16
			if a, err = parseAddress(address); err == nil {
				cfg.Node.Address = &a
			}
		case "transport":
			cfg.Transport.Kind = kind
		case "broker":
			cfg.Transport.MQTT.Broker = broker
		case "discover":
			cfg.Transport.MQTT.Discover = discover
		case "encoding":
			cfg.Transport.MQTT.Encoding = encoding
		case "publish-state":
			cfg.Transport.MQTT.PublishState = publishState
		case "stream":
			cfg.Transport.Stream.Address = streamAddr
		case "listen":
			cfg.Transport.Stream.Listen = listen
		case "advertise":
			cfg.Transport.Stream.Advertise = advertise
		case "sensor-source":
			cfg.Sensor.Source = source
		case "sensor-cadence":
			cfg.Sensor.Cadence = sensorCad
		case "battery":
			cfg.Battery.Enabled = withBattery
		case "battery-cadence":
			cfg.Battery.Cadence = batteryCad
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-format":
			cfg.Log.Format = logFormat
		case "protocol-log":
			cfg.Log.ProtocolFile = protocolLog
		case "interactive":
			cfg.Interactive = interactive
		}
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func parseAddress(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: must be 0-65535", s)
	}
	return uint16(v), nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Transport.Kind {
	case TransportLocal:
	case TransportMQTT:
		mc := cfg.Transport.MQTT
		if mc.Broker == "" && !mc.Discover {
			return errors.New("mqtt transport needs a broker or discover")
		}
		if _, err := wire.CodecFor(mc.Encoding); err != nil {
			return err
		}
	case TransportStream:
		sc := cfg.Transport.Stream
		if sc.Address == "" {
			return errors.New("stream transport needs an address")
		}
		if sc.Advertise {
			if !sc.Listen {
				return errors.New("advertise requires listen")
			}
			if _, err := listenPort(sc.Address); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Transport.Kind)
	}

	locations := map[uint16]string{cfg.Display.Location: "display"}
	if other, ok := locations[cfg.Sensor.Location]; ok {
		return fmt.Errorf("sensor location %d already used by %s", cfg.Sensor.Location, other)
	}
	locations[cfg.Sensor.Location] = "sensor"
	if cfg.Battery.Enabled {
		if other, ok := locations[cfg.Battery.Location]; ok {
			return fmt.Errorf("battery location %d already used by %s", cfg.Battery.Location, other)
		}
		if cfg.Battery.Level > battery.MaxLevel {
			return fmt.Errorf("battery level must be 0-%d, got %d", battery.MaxLevel, cfg.Battery.Level)
		}
		if _, err := cadence.ParseMode(cfg.Battery.Cadence); err != nil {
			return fmt.Errorf("battery cadence: %w", err)
		}
	}

	switch cfg.Sensor.Source {
	case SourceSimulated, SourceHost:
	default:
		return fmt.Errorf("unknown sensor source: %s", cfg.Sensor.Source)
	}
	if _, err := cadence.ParseMode(cfg.Sensor.Cadence); err != nil {
		return fmt.Errorf("sensor cadence: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s", cfg.Log.Format)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Node.ID == "" {
		cfg.Node.ID = uuid.NewString()
	}
	if cfg.Display.Choreography == nil {
		c := display.DefaultChoreography()
		cfg.Display.Choreography = &c
	}
}

// listenPort extracts a non-zero port from a listen address.
func listenPort(addr string) (uint16, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("stream address: %w", err)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("stream address %s: advertising needs a fixed port", addr)
	}
	return uint16(p), nil
}
