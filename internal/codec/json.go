package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON is the default text codec. Numbers decode as json.Number so integer
// request IDs survive a round trip undamaged.
type JSON struct{}

func (JSON) ContentType() string { return "application/json" }

func (JSON) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json message: %w", err)
	}
	return data, nil
}

func (JSON) Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding json message: %w", err)
	}
	return v, nil
}
