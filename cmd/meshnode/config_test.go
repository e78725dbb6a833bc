package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, TransportLocal, cfg.Transport.Kind)
	assert.Nil(t, cfg.Node.Address)
	assert.Equal(t, uint16(0), cfg.Display.Location)
	assert.Equal(t, uint16(1), cfg.Sensor.Location)
	assert.Equal(t, SourceSimulated, cfg.Sensor.Source)
	assert.Equal(t, "10s", cfg.Sensor.Cadence)
	assert.False(t, cfg.Battery.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := writeConfigFile(t, `
node:
  id: kitchen
  address: 5
transport:
  kind: mqtt
  mqtt:
    broker: tcp://broker:1883
    encoding: cbor
    publish_state: true
display:
  location: 3
  choreography:
    frame_duration: 20ms
    ramp_up: 200ms
    ramp_down: 100ms
    pause: 500ms
sensor:
  location: 4
  cadence: periodic:5s
battery:
  enabled: true
  location: 6
  level: 80
log:
  level: warn
`)

	cfg, err := loadConfig([]string{"-config", path, "-log-level", "debug", "-address", "0x10"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.Node.ID)
	require.NotNil(t, cfg.Node.Address)
	assert.Equal(t, uint16(0x10), *cfg.Node.Address, "explicit flag overrides the file")
	assert.Equal(t, TransportMQTT, cfg.Transport.Kind, "unset flag keeps the file value")
	assert.Equal(t, "tcp://broker:1883", cfg.Transport.MQTT.Broker)
	assert.Equal(t, "cbor", cfg.Transport.MQTT.Encoding)
	assert.True(t, cfg.Transport.MQTT.PublishState)
	assert.Equal(t, "meshnode", cfg.Transport.MQTT.TopicPrefix, "defaults survive a partial file")
	assert.Equal(t, uint16(3), cfg.Display.Location)
	require.NotNil(t, cfg.Display.Choreography)
	assert.Equal(t, 20*time.Millisecond, cfg.Display.Choreography.FrameDuration)
	assert.Equal(t, 500*time.Millisecond, cfg.Display.Choreography.Pause)
	assert.Equal(t, "periodic:5s", cfg.Sensor.Cadence)
	assert.True(t, cfg.Battery.Enabled)
	assert.Equal(t, uint8(80), cfg.Battery.Level)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig([]string{"-address", "70000"}, io.Discard)
	assert.ErrorContains(t, err, "invalid address")

	_, err = loadConfig([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	assert.ErrorContains(t, err, "read config")

	_, err = loadConfig([]string{"-config", writeConfigFile(t, "node: [")}, io.Discard)
	assert.ErrorContains(t, err, "parse config")

	_, err = loadConfig([]string{"extra"}, io.Discard)
	assert.ErrorContains(t, err, "unexpected arguments")

	_, err = loadConfig([]string{"-h"}, io.Discard)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Transport.Kind = "carrier-pigeon" },
			wantErr: "unknown transport",
		},
		{
			name:    "mqtt without broker",
			modify:  func(c *Config) { c.Transport.Kind = TransportMQTT },
			wantErr: "broker or discover",
		},
		{
			name: "mqtt with discovery",
			modify: func(c *Config) {
				c.Transport.Kind = TransportMQTT
				c.Transport.MQTT.Discover = true
			},
		},
		{
			name: "mqtt bad encoding",
			modify: func(c *Config) {
				c.Transport.Kind = TransportMQTT
				c.Transport.MQTT.Broker = "tcp://b:1883"
				c.Transport.MQTT.Encoding = "xml"
			},
			wantErr: "xml",
		},
		{
			name:    "stream without address",
			modify:  func(c *Config) { c.Transport.Kind = TransportStream },
			wantErr: "needs an address",
		},
		{
			name: "advertise without listen",
			modify: func(c *Config) {
				c.Transport.Kind = TransportStream
				c.Transport.Stream.Address = ":7070"
				c.Transport.Stream.Advertise = true
			},
			wantErr: "requires listen",
		},
		{
			name: "advertise ephemeral port",
			modify: func(c *Config) {
				c.Transport.Kind = TransportStream
				c.Transport.Stream.Address = ":0"
				c.Transport.Stream.Listen = true
				c.Transport.Stream.Advertise = true
			},
			wantErr: "fixed port",
		},
		{
			name:    "shared location",
			modify:  func(c *Config) { c.Sensor.Location = c.Display.Location },
			wantErr: "already used by display",
		},
		{
			name: "battery shares sensor location",
			modify: func(c *Config) {
				c.Battery.Enabled = true
				c.Battery.Location = c.Sensor.Location
			},
			wantErr: "already used by sensor",
		},
		{
			name: "disabled battery location ignored",
			modify: func(c *Config) {
				c.Battery.Location = c.Sensor.Location
			},
		},
		{
			name: "battery level",
			modify: func(c *Config) {
				c.Battery.Enabled = true
				c.Battery.Level = 101
			},
			wantErr: "battery level",
		},
		{
			name:    "sensor source",
			modify:  func(c *Config) { c.Sensor.Source = "thermistor" },
			wantErr: "unknown sensor source",
		},
		{
			name:    "sensor cadence",
			modify:  func(c *Config) { c.Sensor.Cadence = "periodic" },
			wantErr: "sensor cadence",
		},
		{
			name:    "log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log level",
		},
		{
			name:    "log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultConfig()
	applyDefaults(cfg)
	assert.Len(t, cfg.Node.ID, 36, "generated node ID is a UUID")
	require.NotNil(t, cfg.Display.Choreography)

	cfg = defaultConfig()
	cfg.Node.ID = "fixed"
	applyDefaults(cfg)
	assert.Equal(t, "fixed", cfg.Node.ID)
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":7070")
	require.NoError(t, err)
	assert.Equal(t, uint16(7070), port)

	_, err = listenPort("localhost")
	assert.Error(t, err)
}
