package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the wire protocol version reported by /health and
// the connect handshake. Bump when Frame's shape changes incompatibly.
const ProtocolVersion = 1

// CloseCodeDuplicate is the WebSocket close code sent when a second
// connection for the same client ID displaces an existing one.
const CloseCodeDuplicate = 4000

// Frame types distinguish the three kinds of message that cross the
// WebSocket: a client request, a server response to that request, and a
// server-initiated event push.
const (
	FrameTypeRequest  = "request"
	FrameTypeResponse = "response"
	FrameTypeEvent    = "event"
)

// Frame is the envelope for every message on the WebSocket connection.
// Exactly one of (Method, Result+Error, Event) is populated depending on
// Type.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RPCError is the error shape carried in a response Frame.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Standard JSON-RPC-style error codes.
const (
	codeInvalidRequest = -32600
	codeNotFound       = -32601
	codeInternal       = -32603
)

// ErrInvalidRequest builds an RPCError for a malformed or unauthorized request.
func ErrInvalidRequest(msg string) *RPCError { return &RPCError{Code: codeInvalidRequest, Message: msg} }

// ErrNotFound builds an RPCError for an unknown method.
func ErrNotFound(method string) *RPCError {
	return &RPCError{Code: codeNotFound, Message: fmt.Sprintf("unknown method: %s", method)}
}

// ErrInternal builds an RPCError wrapping an internal failure.
func ErrInternal(err error) *RPCError { return &RPCError{Code: codeInternal, Message: err.Error()} }

// RequestFrame parses an inbound Frame's Params into v.
func (f *Frame) RequestFrame(v interface{}) error {
	if len(f.Params) == 0 {
		return nil
	}
	return json.Unmarshal(f.Params, v)
}

// NewOKResponse builds a response Frame carrying a successful result.
func NewOKResponse(id string, result interface{}) *Frame {
	raw, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(id, ErrInternal(err))
	}
	return &Frame{Type: FrameTypeResponse, ID: id, Result: raw}
}

// NewErrorResponse builds a response Frame carrying an error.
func NewErrorResponse(id string, rpcErr *RPCError) *Frame {
	return &Frame{Type: FrameTypeResponse, ID: id, Error: rpcErr}
}

// EventFrame is a server-pushed notification (no request/response pairing).
type EventFrame = Frame

// NewEvent builds an event Frame from a bus event name and payload.
func NewEvent(name string, payload interface{}) *EventFrame {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage("null")
	}
	return &EventFrame{Type: FrameTypeEvent, Event: name, Payload: raw}
}

// EncodeRPC marshals any frame to its wire JSON form.
func EncodeRPC(v interface{}) ([]byte, error) { return json.Marshal(v) }

// ParseFrameType returns the Type field of a raw wire frame without
// decoding the rest, for quick dispatch.
func ParseFrameType(raw []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}
