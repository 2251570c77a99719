// Package jsonrpc binds the abstract request/response contracts to
// JSON-RPC 2.0: version tagging, positional-or-named params, id-based
// correlation, and the fixed error code space. Notifications are requests
// without an id; the server sends no reply for them.
//
// Decoding a params object into a Go map discards the order the keys held
// on the wire, so parsed named params are presented in sorted key order.
// Handlers see them keyed by name and binding follows the method's declared
// parameter order, so nothing downstream depends on wire order.
package jsonrpc

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/relayrpc/internal/protocol"
	"github.com/vk/relayrpc/internal/rpcerr"
)

// Version is the fixed protocol version tag.
const Version = "2.0"

// Protocol implements protocol.Protocol for JSON-RPC 2.0.
type Protocol struct{}

// New creates the binding.
func New() *Protocol {
	return &Protocol{}
}

// CreateRequest builds an outgoing request. JSON-RPC carries either
// positional or named params, never both. Correlated requests get a UUID
// id; notifications get none.
func (p *Protocol) CreateRequest(method string, args []any, kwargs *protocol.Kwargs, oneWay bool) (*protocol.Request, error) {
	if method == "" {
		return nil, fmt.Errorf("method name must not be empty")
	}
	if len(args) > 0 && kwargs.Len() > 0 {
		return nil, fmt.Errorf("jsonrpc does not support positional and keyword arguments in one call")
	}

	req := &protocol.Request{
		Method: method,
		Args:   args,
		Kwargs: kwargs,
		OneWay: oneWay,
	}
	if !oneWay {
		req.ID = uuid.NewString()
	}
	return req, nil
}

// EncodeRequest renders a request as a JSON-RPC document.
func (p *Protocol) EncodeRequest(req *protocol.Request) (map[string]any, error) {
	if len(req.Args) > 0 && req.Kwargs.Len() > 0 {
		return nil, fmt.Errorf("jsonrpc does not support positional and keyword arguments in one call")
	}

	doc := map[string]any{
		"jsonrpc": Version,
		"method":  req.Method,
	}
	if len(req.Args) > 0 {
		doc["params"] = req.Args
	} else if req.Kwargs.Len() > 0 {
		doc["params"] = req.Kwargs.ToMap()
	}
	if req.ID != nil {
		doc["id"] = req.ID
	}
	return doc, nil
}

// ParseRequest validates and converts an incoming document. Failures are
// *rpcerr.Error values so the server can answer them directly.
func (p *Protocol) ParseRequest(doc map[string]any) (*protocol.Request, error) {
	if v, ok := doc["jsonrpc"]; !ok || v != Version {
		return nil, rpcerr.InvalidRequest(fmt.Sprintf("unsupported jsonrpc version %v", doc["jsonrpc"]))
	}
	method, ok := doc["method"].(string)
	if !ok || method == "" {
		return nil, rpcerr.InvalidRequest("method must be a non-empty string")
	}

	req := &protocol.Request{Method: method}
	if id, ok := doc["id"]; ok && id != nil {
		req.ID = id
	} else {
		req.OneWay = true
	}

	switch params := doc["params"].(type) {
	case nil:
	case []any:
		req.Args = params
	case map[string]any:
		// Wire object order is lost by the decoder; iterate sorted for
		// deterministic kwargs.
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		req.Kwargs = protocol.NewKwargs()
		for _, name := range names {
			req.Kwargs.Set(name, params[name])
		}
	default:
		return nil, rpcerr.InvalidRequest("params must be an array or an object")
	}

	return req, nil
}

// EncodeResponse renders a response as a JSON-RPC document.
func (p *Protocol) EncodeResponse(resp *protocol.Response) (map[string]any, error) {
	doc := map[string]any{
		"jsonrpc": Version,
		"id":      resp.ID,
	}
	if resp.IsError() {
		errObj := map[string]any{
			"code":    resp.Err.Code,
			"message": resp.Err.Message,
		}
		if resp.Err.Data != nil {
			errObj["data"] = resp.Err.Data
		}
		doc["error"] = errObj
		return doc, nil
	}
	doc["result"] = resp.Result
	return doc, nil
}

// ParseResponse validates and converts an incoming reply document.
func (p *Protocol) ParseResponse(doc map[string]any) (*protocol.Response, error) {
	if v, ok := doc["jsonrpc"]; !ok || v != Version {
		return nil, fmt.Errorf("unsupported jsonrpc version %v", doc["jsonrpc"])
	}

	resp := &protocol.Response{ID: doc["id"]}

	if errDoc, ok := doc["error"].(map[string]any); ok {
		code, err := intField(errDoc, "code")
		if err != nil {
			return nil, err
		}
		message, _ := errDoc["message"].(string)
		resp.Err = &rpcerr.Error{Code: code, Message: message, Data: errDoc["data"]}
		return resp, nil
	}

	result, ok := doc["result"]
	if !ok {
		return nil, fmt.Errorf("response carries neither result nor error")
	}
	resp.Result = result
	return resp, nil
}

// intField reads a numeric field that may arrive as json.Number, float64,
// or an integer type depending on the codec.
func intField(doc map[string]any, name string) (int, error) {
	switch v := doc[name].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case interface{ Int64() (int64, error) }:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", name, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("field %q is not a number (got %T)", name, v)
	}
}
