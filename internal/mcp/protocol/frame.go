// Package protocol implements the wire format spoken to remote tool
// servers: JSON-RPC 2.0 framing in this file, the method payloads in
// types.go.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC version stamped on every frame.
const Version = "2.0"

// FrameKind classifies a decoded frame.
type FrameKind int

const (
	KindInvalid FrameKind = iota
	KindRequest
	KindNotification
	KindResponse
)

// Frame is one decoded JSON-RPC frame. Which fields are meaningful
// depends on Kind: requests and notifications carry Method/Params,
// responses carry Result or Error.
type Frame struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Kind classifies the frame: a method with an id is a request, a method
// without one a notification, a result or error a response.
func (f *Frame) Kind() FrameKind {
	switch {
	case f.Method != "" && f.ID != nil:
		return KindRequest
	case f.Method != "":
		return KindNotification
	case f.Result != nil || f.Error != nil:
		return KindResponse
	default:
		return KindInvalid
	}
}

// RequestID returns the frame id as an int64, or 0 when the id is
// absent or non-numeric. Servers echo ids back as JSON numbers, which
// decode as float64.
func (f *Frame) RequestID() int64 {
	switch v := f.ID.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// DecodeFrame parses one frame and checks its version marker.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Jsonrpc != Version {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", f.Jsonrpc)
	}
	return &f, nil
}

// ErrorObject is the JSON-RPC error member. It doubles as a Go error so
// a remote failure propagates through ordinary error returns.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return data, nil
}

// EncodeRequest renders a request frame ready to send.
func EncodeRequest(id int64, method string, params any) ([]byte, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{
		Jsonrpc: Version,
		ID:      id,
		Method:  method,
		Params:  raw,
	})
}

// EncodeNotification renders a notification frame (a request with no id
// and therefore no reply).
func EncodeNotification(method string, params any) ([]byte, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{
		Jsonrpc: Version,
		Method:  method,
		Params:  raw,
	})
}

// EncodeResult renders a success response for the given request id.
func EncodeResult(id any, result any) ([]byte, error) {
	var raw json.RawMessage
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		raw = data
	}
	return json.Marshal(Frame{
		Jsonrpc: Version,
		ID:      id,
		Result:  raw,
	})
}

// EncodeError renders an error response for the given request id.
func EncodeError(id any, errObj *ErrorObject) ([]byte, error) {
	return json.Marshal(Frame{
		Jsonrpc: Version,
		ID:      id,
		Error:   errObj,
	})
}
