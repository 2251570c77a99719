package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_RoundTrip(t *testing.T) {
	c := JSON{}

	data, err := c.Marshal(map[string]any{"method": "echo", "id": 7})
	require.NoError(t, err)

	v, err := c.Unmarshal(data)
	require.NoError(t, err)

	doc, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "echo", doc["method"])
	// UseNumber keeps integer IDs intact.
	assert.Equal(t, json.Number("7"), doc["id"])
}

func TestJSON_BatchDecodesAsSlice(t *testing.T) {
	c := JSON{}

	v, err := c.Unmarshal([]byte(`[{"method":"a"},{"method":"b"}]`))
	require.NoError(t, err)

	batch, ok := v.([]any)
	require.True(t, ok)
	assert.Len(t, batch, 2)
}

func TestJSON_Garbage(t *testing.T) {
	_, err := JSON{}.Unmarshal([]byte(`{"method":`))
	assert.Error(t, err)
}

func TestCBOR_RoundTrip(t *testing.T) {
	c := MustCBOR()

	data, err := c.Marshal(map[string]any{"method": "echo", "params": []any{int64(1), "two"}})
	require.NoError(t, err)

	v, err := c.Unmarshal(data)
	require.NoError(t, err)

	doc, ok := v.(map[string]any)
	require.True(t, ok, "maps must decode as map[string]any, got %T", v)
	assert.Equal(t, "echo", doc["method"])
	assert.Equal(t, []any{uint64(1), "two"}, doc["params"])
}

func TestCBOR_Garbage(t *testing.T) {
	_, err := MustCBOR().Unmarshal([]byte{0xff, 0x00, 0x01})
	assert.Error(t, err)
}

func TestContentTypes(t *testing.T) {
	assert.Equal(t, "application/json", JSON{}.ContentType())
	assert.Equal(t, "application/cbor", MustCBOR().ContentType())
}
