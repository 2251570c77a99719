package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is the binary codec, for transports where payload size or decode
// cost matters more than readability.
type CBOR struct {
	dec cbor.DecMode
}

// NewCBOR builds the codec. Maps decode as map[string]any so protocol
// bindings see the same document shape as with JSON.
func NewCBOR() (*CBOR, error) {
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("building cbor decoder: %w", err)
	}
	return &CBOR{dec: dec}, nil
}

// MustCBOR is NewCBOR for wiring code; the decode options are constant, so
// a failure is a programmer error.
func MustCBOR() *CBOR {
	c, err := NewCBOR()
	if err != nil {
		panic(err)
	}
	return c
}

func (*CBOR) ContentType() string { return "application/cbor" }

func (*CBOR) Marshal(v any) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding cbor message: %w", err)
	}
	return data, nil
}

func (c *CBOR) Unmarshal(data []byte) (any, error) {
	var v any
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding cbor message: %w", err)
	}
	return v, nil
}
