package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_Defaults(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"id":"r1","method":"my_module.add"}`))
	require.NoError(t, err)
	assert.Equal(t, "my_module.add", req.Method)
	assert.JSONEq(t, "[]", string(req.Params))
	assert.JSONEq(t, "{}", string(req.KwParams))
}

func TestDecodeRequest_NullID(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"id":null,"method":"x","params":[]}`))
	assert.ErrorIs(t, err, ErrNotificationsNotImplemented)
}

func TestDecodeRequest_MissingMethod(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"id":1,"params":[]}`))
	var invalid *InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestDecodeRequest_BadParamsShape(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"id":1,"method":"x","params":{"a":1}}`))
	var invalid *InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestDecodeRequest_GarbageBytes(t *testing.T) {
	_, err := DecodeRequest([]byte(`not json`))
	var deser *DeserializationError
	assert.ErrorAs(t, err, &deser)
}

func TestEncodeSuccessRoundTrip(t *testing.T) {
	raw, err := EncodeSuccess(json.RawMessage(`"r1"`), 5)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.JSONEq(t, `"r1"`, string(resp.ID))
	assert.JSONEq(t, "5", string(resp.Result))
	assert.Nil(t, resp.Error)
}

func TestEncodeSuccess_Unserializable(t *testing.T) {
	raw, err := EncodeSuccess(json.RawMessage(`"r1"`), make(chan int))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SerializationError", resp.Error.Name)
}

func TestEncodeFailure(t *testing.T) {
	raw, err := EncodeFailure(json.RawMessage(`"r2"`), &RPCError{Name: "NotFound", Message: "method not found"})
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NotFound", resp.Error.Name)
	assert.JSONEq(t, "null", string(resp.Result))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound, "NotFound"},
		{"bad access pattern opaque", ErrBadAccessPattern, "InternalServerError"},
		{"access denied looks like not found", &AccessDeniedError{Reason: "no"}, "NotFound"},
		{"bad args", &BadArgumentsError{Method: "m", Signature: "()"}, "BadArguments"},
		{"domain error passthrough", &DomainError{Name: "ZeroDivisionError", Message: "division by zero"}, "ZeroDivisionError"},
		{"unclassified opaque", assertErr{}, "InternalServerError"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.err)
			require.NotNil(t, got)
			assert.Equal(t, c.want, got.Name)
		})
	}
}

func TestExtractID(t *testing.T) {
	assert.JSONEq(t, `"r1"`, string(ExtractID([]byte(`{"id":"r1","method":"x"}`))))
	assert.Nil(t, ExtractID([]byte(`{"id":null}`)))
	assert.Nil(t, ExtractID([]byte(`not json`)))
	assert.Nil(t, ExtractID([]byte(`{}`)))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
