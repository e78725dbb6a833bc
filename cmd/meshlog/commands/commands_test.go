package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mlog")

	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

// sensorEvent is an outbound Sensor Status reporting 22 degrees.
func sensorEvent(ts time.Time) log.Event {
	return log.Event{
		Timestamp: ts,
		NodeID:    "node-1234-5678",
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Location:  1,
		Message: &log.MessageEvent{
			Opcode:     []byte{0x52},
			Parameters: []byte{0xE0, 0x09, 0x2C},
			Name:       "sensor.Status",
		},
	}
}

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: testTime,
			NodeID:    "node-1234-5678",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Frame:     &log.FrameEvent{Size: 14, Data: []byte{0xa1, 0x01}},
		},
		{
			Timestamp: testTime.Add(time.Second),
			NodeID:    "node-1234-5678",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Location:  0,
			Address:   wire.Addr(5),
			Message: &log.MessageEvent{
				Opcode:     []byte{0x82, 0x02},
				Parameters: []byte{0x01, 0x00},
				Name:       "onoff.Set",
			},
		},
		sensorEvent(testTime.Add(2 * time.Second)),
		{
			Timestamp: testTime.Add(3 * time.Second),
			NodeID:    "node-1234-5678",
			Layer:     log.LayerModel,
			Category:  log.CategoryError,
			Location:  1,
			Error:     &log.ErrorEventData{Layer: log.LayerModel, Message: "no sensor", Context: "read"},
		},
	}
}

func TestFormatFrameEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	assert.Contains(t, output, "2026-01-28T10:15:32.123456Z")
	assert.Contains(t, output, "[node:node-123]")
	assert.Contains(t, output, "IN  TRANSPORT @0 Frame")
	assert.Contains(t, output, "Size: 14 bytes")
	assert.Contains(t, output, "Data: a101")
	assert.NotContains(t, output, "truncated")
}

func TestFormatMessageEventTelemetry(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sensorEvent(testTime))
	output := buf.String()

	assert.Contains(t, output, "OUT WIRE @1 sensor.Status")
	assert.Contains(t, output, "Opcode: 52")
	assert.Contains(t, output, "Parameters: e0092c")
	assert.Contains(t, output, `Telemetry: {"sensor":{"payload":{"temperature":22},"location":1}}`)
}

func TestFormatMessageEventAddress(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	assert.Contains(t, output, "Address: 0x0005")
	assert.Contains(t, output, `Telemetry: {"button":{"on":true,"location":0}}`)
}

func TestFormatUnrecognizedMessage(t *testing.T) {
	event := log.Event{
		Timestamp: testTime,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   &log.MessageEvent{Opcode: []byte{0x82, 0x99}},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	assert.Contains(t, output, "[node:-]")
	assert.Contains(t, output, "@0 Message")
	assert.NotContains(t, output, "Telemetry")
}

func TestFormatControlEvent(t *testing.T) {
	event := log.Event{
		Timestamp: testTime,
		Layer:     log.LayerModel,
		Category:  log.CategoryControl,
		Location:  1,
		Control:   &log.ControlEvent{Type: log.ControlPublicationCadence, Cadence: "periodic(1s)"},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	assert.Contains(t, output, "CTRL @1 PUBLICATION_CADENCE")
	assert.Contains(t, output, "Cadence: periodic(1s)")
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: testTime,
		Layer:     log.LayerModel,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDisplay,
			OldState: "OFF",
			NewState: "ON",
			Reason:   "onoff.Set",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	assert.Contains(t, output, "Entity: DISPLAY")
	assert.Contains(t, output, "OFF -> ON")
	assert.Contains(t, output, "Reason: onoff.Set")
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	output := buf.String()

	assert.Contains(t, output, "Error")
	assert.Contains(t, output, "Message: no sensor")
	assert.Contains(t, output, "Context: read")
}

func TestFlagsFilter(t *testing.T) {
	f := Flags{
		Layer:     "WIRE",
		Direction: "out",
		Category:  "message",
		NodeID:    "node-1",
		Location:  "0x01",
		TimeStart: "2026-01-28T10:00:00Z",
	}
	filter, err := f.Filter()
	require.NoError(t, err)

	require.NotNil(t, filter.Layer)
	assert.Equal(t, log.LayerWire, *filter.Layer)
	require.NotNil(t, filter.Direction)
	assert.Equal(t, log.DirectionOut, *filter.Direction)
	require.NotNil(t, filter.Category)
	assert.Equal(t, log.CategoryMessage, *filter.Category)
	require.NotNil(t, filter.Location)
	assert.Equal(t, uint16(1), *filter.Location)
	require.NotNil(t, filter.TimeStart)
	assert.Nil(t, filter.TimeEnd)
	assert.Equal(t, "node-1", filter.NodeID)
}

func TestFlagsFilterInvalid(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
	}{
		{"layer", Flags{Layer: "service"}},
		{"direction", Flags{Direction: "sideways"}},
		{"category", Flags{Category: "snapshot"}},
		{"location", Flags{Location: "70000"}},
		{"since", Flags{TimeStart: "yesterday"}},
		{"until", Flags{TimeEnd: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.Filter()
			assert.Error(t, err)
		})
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	loc := uint16(1)
	cat := log.CategoryMessage
	var buf bytes.Buffer
	require.NoError(t, RunView(path, log.Filter{Location: &loc, Category: &cat}, &buf))

	output := buf.String()
	assert.Contains(t, output, "sensor.Status")
	assert.NotContains(t, output, "onoff.Set")
	assert.NotContains(t, output, "Frame")
	assert.NotContains(t, output, "no sensor")
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.mlog"), log.Filter{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestStatsCounts(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, log.Filter{}, &buf))
	output := buf.String()

	assert.Contains(t, output, "Total Events: 4")
	assert.Contains(t, output, "TRANSPORT:")
	assert.Contains(t, output, "WIRE:")
	assert.Contains(t, output, "MODEL:")
	assert.Contains(t, output, "ERROR:")
	assert.Contains(t, output, "onoff.Set:")
	assert.Contains(t, output, "sensor.Status:")
	assert.Contains(t, output, "Nodes: 1")
	assert.Contains(t, output, "[node-123] 4 events, duration 3s")
	assert.Contains(t, output, "Location 1: 2 events")
	assert.Contains(t, output, "Errors: 1")
}

func TestStatsAggregation(t *testing.T) {
	stats := newStats()
	stats.add(log.Event{Timestamp: testTime, NodeID: "a"})
	stats.add(log.Event{Timestamp: testTime.Add(-time.Minute), NodeID: "b", Message: &log.MessageEvent{}})
	stats.add(log.Event{Timestamp: testTime.Add(time.Minute), NodeID: "a", Location: 2})

	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, testTime.Add(-time.Minute), stats.TimeRange.Start)
	assert.Equal(t, testTime.Add(time.Minute), stats.TimeRange.End)
	require.Contains(t, stats.Nodes, "a")
	assert.Equal(t, 2, stats.Nodes["a"].Events)
	assert.Equal(t, map[uint16]int{0: 1, 2: 1}, stats.Nodes["a"].Locations)
	assert.Equal(t, 1, stats.Messages["(unrecognized)"])
}

func TestStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, log.Filter{}, &buf))
	assert.Contains(t, buf.String(), "Total Events: 0")
	assert.NotContains(t, buf.String(), "Time Range")
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunExport(path, log.Filter{}, "jsonl", &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "node-1234-5678", rec["NodeID"])
	assert.Equal(t, float64(1), rec["Location"])

	tele, ok := rec["Telemetry"].(map[string]any)
	require.True(t, ok, "sensor event should carry telemetry: %s", lines[2])
	assert.Contains(t, tele, "sensor")

	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	_, hasTelemetry := rec["Telemetry"]
	assert.False(t, hasTelemetry)
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunExport(path, log.Filter{}, "csv", &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"timestamp", "node_id", "direction", "layer", "category", "location", "address", "type", "telemetry"}, rows[0])
	assert.Equal(t, "2026-01-28T10:15:32.123456Z", rows[1][0])
	assert.Equal(t, "Frame", rows[1][7])
	assert.Equal(t, "5", rows[2][6])
	assert.Equal(t, "onoff.Set", rows[2][7])
	assert.JSONEq(t, `{"button":{"on":true,"location":0}}`, rows[2][8])
	assert.JSONEq(t, `{"sensor":{"payload":{"temperature":22},"location":1}}`, rows[3][8])
	assert.Empty(t, rows[4][8])
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	err := RunExport(path, log.Filter{}, "xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "errors.mlog")

	cat := log.CategoryError
	count, err := RunFilter(path, log.Filter{Category: &cat}, out)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reader, err := log.NewReader(out)
	require.NoError(t, err)
	defer reader.Close()

	event, err := reader.Next()
	require.NoError(t, err)
	require.NotNil(t, event.Error)
	assert.Equal(t, "no sensor", event.Error.Message)
}
