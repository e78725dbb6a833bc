// Command meshnode runs a mesh node with an on/off display, a temperature
// sensor and an optional battery element.
//
// The node can run on its own (local transport, published telemetry is
// logged), attached to an MQTT broker, or over a length-prefixed TCP stream.
//
// Usage:
//
//	meshnode [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-id string              Node ID (generated if empty)
//	-address string         Unicast address (empty accepts every command)
//	-transport string       Transport: local, mqtt, stream (default "local")
//	-broker string          MQTT broker URL
//	-discover               Find the MQTT broker via mDNS
//	-stream string          Stream transport address
//	-listen                 Accept stream connections instead of dialing
//	-advertise              Advertise the stream listener via mDNS
//	-sensor-cadence string  Sensor cadence (default "10s")
//	-battery                Add a simulated battery element
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-protocol-log string    File path for protocol event logging (CBOR format)
//	-interactive            Enable interactive console
//
// Examples:
//
//	# Run locally with an interactive console
//	meshnode -address 2 -interactive
//
//	# Attach to a broker found on the local network
//	meshnode -transport mqtt -discover -address 2
//
//	# Serve the stream transport and advertise it
//	meshnode -transport stream -stream :7070 -listen -advertise
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/meshnode/meshnode-go/cmd/meshnode/interactive"
	"github.com/meshnode/meshnode-go/pkg/log"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
		os.Exit(2)
	}

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	applyDefaults(cfg)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	var out io.Writer = os.Stderr

	var rl *readline.Instance
	if cfg.Interactive {
		var err error
		if rl, err = interactive.NewReadline(); err != nil {
			return err
		}
		out = rl.Stdout()
	}

	logger := setupLogging(cfg.Log, out)
	logger.Info("meshnode starting",
		"node_id", cfg.Node.ID,
		"transport", cfg.Transport.Kind,
		"display", cfg.Display.Location,
		"sensor", cfg.Sensor.Location)

	plog, closeLog, err := setupProtocolLog(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger, plog)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if rl != nil {
		console := interactive.New(rl, a.router, interactive.Config{
			Address:         cfg.Node.Address,
			DisplayLocation: cfg.Display.Location,
			SensorLocation:  cfg.Sensor.Location,
			Thermometer:     a.simulated,
			Status:          a.printStatus,
			Recent:          a.recent,
		})
		go console.Run(ctx, cancel)
	}

	err = a.run(ctx)
	logger.Info("meshnode stopped")
	return err
}

// setupProtocolLog opens the protocol log file when configured. In debug
// mode events are also mirrored to the operational log.
func setupProtocolLog(cfg *Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.Log.ProtocolFile != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
		logger.Info("protocol logging enabled", "file", cfg.Log.ProtocolFile)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger.With("component", "protocol")))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}
