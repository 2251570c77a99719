// Package codec turns protocol documents into wire bytes and back. A codec
// is oblivious to RPC semantics: it sees only generic documents (maps for
// single messages, slices for batches).
package codec

// Codec serializes protocol documents.
type Codec interface {
	// ContentType identifies the encoding for transports that carry one,
	// e.g. HTTP.
	ContentType() string

	// Marshal encodes a document (map[string]any) or a batch of documents
	// ([]any).
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes wire bytes into a map[string]any for a single
	// message or a []any for a batch.
	Unmarshal(data []byte) (any, error)
}
