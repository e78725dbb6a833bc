package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

func TestStatusEncoding(t *testing.T) {
	opcode, params, err := wire.Encode(NewStatus(Payload{Temperature: 44}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x52}, opcode)
	assert.Equal(t, []byte{0xE0, 0x09, 0x2C}, params)
}

func TestStatusRoundTripKeepsHalfDegrees(t *testing.T) {
	for _, temp := range []Temperature{-128, -41, -1, 0, 1, 43, 44, 127} {
		_, params, err := wire.Encode(NewStatus(Payload{Temperature: temp}))
		require.NoError(t, err)

		msg, ok, err := Parse(OpStatus, params)
		require.NoError(t, err)
		require.True(t, ok)
		if got := msg.(Status).Data.Temperature; got != temp {
			t.Errorf("temperature = %d, want %d", got, temp)
		}
	}
}

func TestParseStatusSkipsUnknownProperties(t *testing.T) {
	params := []byte{
		0x22, 0x00, 0xAA, 0xBB, // format A, property 0x0001, length 2
		0x03, 0x34, 0x12, 0x01, 0x02, // format B, property 0x1234, length 2
		0xE0, 0x09, 0xF6, // present ambient temperature, -10
	}
	msg, ok, err := Parse(OpStatus, params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Temperature(-10), msg.(Status).Data.Temperature)
	assert.Equal(t, -5.0, msg.(Status).Data.Temperature.Celsius())
}

func TestParseStatusFormatBZeroLength(t *testing.T) {
	params := []byte{
		0xFF, 0x00, 0x01, // format B, property 0x0100, zero length
		0xE0, 0x09, 0x02,
	}
	msg, ok, err := Parse(OpStatus, params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Temperature(2), msg.(Status).Data.Temperature)
}

func TestParseStatusMalformed(t *testing.T) {
	tests := []struct {
		name   string
		params []byte
	}{
		{"empty", nil},
		{"truncated header", []byte{0xE0}},
		{"missing value", []byte{0xE0, 0x09}},
		{"truncated format B", []byte{0x03, 0x34}},
		{"other property only", []byte{0x20, 0x00, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Parse(OpStatus, tt.params)
			assert.True(t, ok)
			if !errors.Is(err, wire.ErrMalformed) {
				t.Errorf("Parse error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestGet(t *testing.T) {
	property := PropertyPresentAmbientTemperature
	opcode, params, err := wire.Encode(Get{Property: &property})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0x31}, opcode)
	assert.Equal(t, []byte{0x4F, 0x00}, params)

	msg, ok, err := Parse(OpGet, params)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, msg.(Get).Property)
	assert.Equal(t, property, *msg.(Get).Property)

	msg, ok, err = Parse(OpGet, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, msg.(Get).Property)

	_, _, err = Parse(OpGet, []byte{0x00, 0x00})
	assert.ErrorIs(t, err, wire.ErrMalformed)
}

func TestTemperatureFromCelsius(t *testing.T) {
	assert.Equal(t, Temperature(44), TemperatureFromCelsius(22))
	assert.Equal(t, Temperature(45), TemperatureFromCelsius(22.5))
	assert.Equal(t, Temperature(-7), TemperatureFromCelsius(-3.4))
	assert.Equal(t, Temperature(127), TemperatureFromCelsius(200))
	assert.Equal(t, Temperature(-128), TemperatureFromCelsius(-200))
}

func TestEmitMPIDFormatB(t *testing.T) {
	buf := wire.NewBuffer(8)
	require.NoError(t, emitMPID(buf, 0x1234, 2))
	assert.Equal(t, []byte{0x03, 0x34, 0x12}, buf.Bytes())

	buf.Reset()
	require.NoError(t, emitMPID(buf, 0x0001, 20))
	assert.Equal(t, []byte{0x27, 0x01, 0x00}, buf.Bytes())
}
