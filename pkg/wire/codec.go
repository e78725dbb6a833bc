package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for envelopes.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for envelopes.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxArrayElements:  1024,
		MaxMapPairs:       1024,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// MarshalCBOR encodes a value to CBOR bytes.
func MarshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR bytes into a value.
func UnmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Content types understood by CodecFor.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// EnvelopeCodec marshals envelopes for a transport.
// Implementations are deterministic and safe for concurrent use.
type EnvelopeCodec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                { return ContentTypeJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct{}

func (cborCodec) ContentType() string                { return ContentTypeCBOR }
func (cborCodec) Marshal(v any) ([]byte, error)      { return MarshalCBOR(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return UnmarshalCBOR(data, v) }

// Built-in envelope codecs.
var (
	JSON EnvelopeCodec = jsonCodec{}
	CBOR EnvelopeCodec = cborCodec{}
)

// CodecFor returns the codec for a content type or one of the short
// aliases "json" and "cbor". An empty string selects JSON.
func CodecFor(contentType string) (EnvelopeCodec, error) {
	switch contentType {
	case "", "json", ContentTypeJSON:
		return JSON, nil
	case "cbor", ContentTypeCBOR:
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unsupported envelope content type %q", contentType)
	}
}
