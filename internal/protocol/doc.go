// Package protocol defines the decoded request and response contracts that
// sit between a wire protocol binding and the dispatch engine.
//
// A Request is a fully parsed call: method name, positional arguments,
// insertion-ordered keyword arguments, and an optional correlation ID. The
// dispatch engine consumes Requests and produces Responses; it never sees
// wire bytes. Concrete bindings (see protocol/jsonrpc) translate between
// these types and protocol-shaped documents, and codecs turn documents into
// bytes.
package protocol
