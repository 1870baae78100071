package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosek/mtrpc/pkg/methodtree"
	"github.com/gnosek/mtrpc/pkg/protocol"
	"github.com/gnosek/mtrpc/pkg/responder"
)

func buildTestTree(t *testing.T) *methodtree.Tree {
	t.Helper()

	add, err := methodtree.Wrap("add", func(ctx context.Context, call *methodtree.Call) (any, error) {
		var a, b int
		_ = json.Unmarshal(call.Params[0], &a)
		_ = json.Unmarshal(call.Params[1], &b)
		return a + b, nil
	}, methodtree.ArgSpec{Params: []methodtree.Param{{Name: "a"}, {Name: "b"}}})
	require.NoError(t, err)

	boom, err := methodtree.Wrap("boom", func(ctx context.Context, call *methodtree.Call) (any, error) {
		return nil, protocol.NewDomainError("ZeroDivisionError", "division by zero")
	}, methodtree.ArgSpec{})
	require.NoError(t, err)

	unit := &methodtree.Unit{
		Procedures: map[string]*methodtree.Procedure{"add": add, "boom": boom},
		Exports:    []string{"*"},
	}
	root := &methodtree.Unit{Children: map[string]*methodtree.Unit{"m": unit}}

	res, err := methodtree.Build(root)
	require.NoError(t, err)
	return res.Tree
}

func runJob(t *testing.T, tree *methodtree.Tree, body string) (*responder.Result, *responder.ControlPlane) {
	t.Helper()
	cp := responder.NewControlPlane(8)
	cp.Accept(&responder.Task{ID: 1})

	job := Job{
		Tree:                 tree,
		TaskID:               1,
		RequestBody:          []byte(body),
		AccessKeyPattern:     "{full_name}",
		AccessKeyholePattern: ".*",
		ReplyTo:              "reply-q",
		ControlPlane:         cp,
	}
	Process(context.Background(), job)

	select {
	case result := <-cp.Results():
		return result, cp
	default:
		return nil, cp
	}
}

func TestProcess_SuccessfulCall(t *testing.T) {
	tree := buildTestTree(t)
	result, _ := runJob(t, tree, `{"id":"r1","method":"m.add","params":[2,3]}`)
	require.NotNil(t, result)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, "5", string(resp.Result))
}

func TestProcess_MethodNotFound(t *testing.T) {
	tree := buildTestTree(t)
	result, _ := runJob(t, tree, `{"id":"r1","method":"m.nope","params":[]}`)
	require.NotNil(t, result)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NotFound", resp.Error.Name)
}

func TestProcess_DomainErrorPassesThrough(t *testing.T) {
	tree := buildTestTree(t)
	result, _ := runJob(t, tree, `{"id":"r1","method":"m.boom","params":[]}`)
	require.NotNil(t, result)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ZeroDivisionError", resp.Error.Name)
}

func TestProcess_BadArguments(t *testing.T) {
	tree := buildTestTree(t)
	result, _ := runJob(t, tree, `{"id":"r1","method":"m.add","params":[2]}`)
	require.NotNil(t, result)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BadArguments", resp.Error.Name)
}

func TestProcess_NotificationRepliesWithReplyToAsFallbackID(t *testing.T) {
	tree := buildTestTree(t)
	result, cp := runJob(t, tree, `{"id":null,"method":"m.add","params":[1,2]}`)
	require.NotNil(t, result, "a notification still must produce exactly one Result")
	assert.Equal(t, 0, cp.InFlightCount())

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NotificationsNotImplemented", resp.Error.Name)
	assert.JSONEq(t, `"reply-q"`, string(resp.ID))
}

func TestProcess_GarbageBodyRepliesWithReplyToAsFallbackID(t *testing.T) {
	tree := buildTestTree(t)
	result, cp := runJob(t, tree, `not json`)
	require.NotNil(t, result, "a request body ExtractID can't parse still must produce exactly one Result")
	assert.Equal(t, 0, cp.InFlightCount())

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DeserializationError", resp.Error.Name)
	assert.JSONEq(t, `"reply-q"`, string(resp.ID))
}

func TestProcess_RetiresTaskFromInFlightMap(t *testing.T) {
	tree := buildTestTree(t)
	_, cp := runJob(t, tree, `{"id":"r1","method":"m.add","params":[1,2]}`)
	assert.Equal(t, 0, cp.InFlightCount())
}

func TestRedactedArgs_MasksPasswordParams(t *testing.T) {
	kw := map[string]json.RawMessage{
		"password": json.RawMessage(`"hunter2"`),
		"user":     json.RawMessage(`"alice"`),
	}
	got := redactedArgs(kw)
	assert.Contains(t, got, "password=***")
	assert.Contains(t, got, `user="alice"`)
	assert.NotContains(t, got, "hunter2")
}
