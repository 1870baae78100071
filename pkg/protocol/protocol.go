package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is the wire form of one RPC call. Params and KwParams are kept as
// raw JSON so the worker can hand them to the method tree for signature
// validation without an intermediate decode into interface{}.
type Request struct {
	ID       json.RawMessage `json:"id"`
	Method   string          `json:"method"`
	Params   json.RawMessage `json:"params"`
	KwParams json.RawMessage `json:"kwparams,omitempty"`
}

// Response is the wire form of one RPC reply.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is the wire form of a failed call.
type RPCError struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// DecodeRequest parses raw bytes into a Request and checks the shape
// invariant from the spec: id present and non-null, method a string, params
// an array (defaulting to an empty one), kwparams an optional object.
func DecodeRequest(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &DeserializationError{Cause: err}
	}

	if len(req.ID) == 0 || string(req.ID) == "null" {
		return nil, ErrNotificationsNotImplemented
	}
	if req.Method == "" {
		return nil, &InvalidRequestError{Reason: "missing method"}
	}
	if len(req.Params) == 0 {
		req.Params = json.RawMessage("[]")
	} else {
		var probe []json.RawMessage
		if err := json.Unmarshal(req.Params, &probe); err != nil {
			return nil, &InvalidRequestError{Reason: "params is not an array"}
		}
	}
	if len(req.KwParams) == 0 {
		req.KwParams = json.RawMessage("{}")
	} else {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(req.KwParams, &probe); err != nil {
			return nil, &InvalidRequestError{Reason: "kwparams is not an object"}
		}
	}

	return &req, nil
}

// ExtractID best-effort recovers the id field from a request that failed
// to decode cleanly, so a reply can still be correlated back to the
// caller. It returns nil when raw isn't even an object with an id field.
func ExtractID(raw []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		return nil
	}
	return probe.ID
}

// EncodeSuccess builds the wire response for a successful call. If result
// cannot be marshaled, it downgrades to a SerializationError per spec.
func EncodeSuccess(id json.RawMessage, result any) ([]byte, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return EncodeFailure(id, &RPCError{
			Name:    "SerializationError",
			Message: "Result not serializable",
		})
	}
	resp := Response{ID: id, Result: resultBytes, Error: nil}
	return json.Marshal(resp)
}

// EncodeFailure builds the wire response for a failed call.
func EncodeFailure(id json.RawMessage, rpcErr *RPCError) ([]byte, error) {
	resp := Response{ID: id, Result: json.RawMessage("null"), Error: rpcErr}
	return json.Marshal(resp)
}
