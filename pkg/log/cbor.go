package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

type cborModes struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// modes builds the event codec on first use. Timestamps keep nanoseconds
// and map keys are sorted so identical events encode identically.
var modes = sync.OnceValue(func() cborModes {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: event encoder mode: %v", err))
	}
	dec, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: event decoder mode: %v", err))
	}
	return cborModes{enc: enc, dec: dec}
})

// EncodeEvent encodes an Event to CBOR.
func EncodeEvent(event Event) ([]byte, error) {
	return modes().enc.Marshal(event)
}

// DecodeEvent decodes a CBOR-encoded Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := modes().dec.Unmarshal(data, &event)
	return event, err
}

// NewEncoder returns an encoder writing a sequence of events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return modes().enc.NewEncoder(w)
}

// NewDecoder returns a decoder reading a sequence of events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return modes().dec.NewDecoder(r)
}
