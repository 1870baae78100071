package sysmethods

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosek/mtrpc/pkg/access"
	"github.com/gnosek/mtrpc/pkg/methodtree"
)

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func buildTree(t *testing.T) *methodtree.Tree {
	t.Helper()

	add, err := methodtree.Wrap("add", func(ctx context.Context, call *methodtree.Call) (any, error) {
		return nil, nil
	}, methodtree.ArgSpec{Params: []methodtree.Param{{Name: "a"}, {Name: "b"}}},
		methodtree.WithDoc("add(a, b) - return a + b"))
	require.NoError(t, err)

	userUnit := &methodtree.Unit{
		Doc:        "User-facing math procedures.",
		Procedures: map[string]*methodtree.Procedure{"add": add},
		Exports:    []string{"*"},
	}

	sysUnit, ref, err := Unit()
	require.NoError(t, err)

	root := &methodtree.Unit{Children: map[string]*methodtree.Unit{
		"math":   userUnit,
		"system": sysUnit,
	}}

	res, err := methodtree.Build(root)
	require.NoError(t, err)
	ref.Set(res.Tree)
	return res.Tree
}

func invokeList(t *testing.T, tree *methodtree.Tree, name string, deep, asString bool, keyPattern, keyholePattern string) any {
	t.Helper()
	proc, ok := tree.Procedure("system.list")
	require.True(t, ok)

	call := &methodtree.Call{
		Params:               []json.RawMessage{marshal(t, name), marshal(t, deep), marshal(t, asString)},
		Access:                access.Context{FullName: "system.list", Type: "procedure"},
		AccessKeyPattern:     keyPattern,
		AccessKeyholePattern: keyholePattern,
	}
	result, err := proc.Invoke(context.Background(), call)
	require.NoError(t, err)
	return result
}

func TestList_PermissiveBindingSeesEverything(t *testing.T) {
	tree := buildTree(t)
	result := invokeList(t, tree, "", false, false, "{full_name}", ".*")
	names, ok := result.([]string)
	require.True(t, ok)
	assert.Contains(t, names, "math")
	assert.Contains(t, names, "system")
}

func TestList_SystemKeyholeHidesOtherNamespaces(t *testing.T) {
	tree := buildTree(t)
	result := invokeList(t, tree, "", true, false, "{full_name}", `^system\.`)
	names, ok := result.([]string)
	require.True(t, ok)
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "system."), "unexpected name %q visible under system-only keyhole", n)
	}
	assert.Contains(t, names, "system.list"+"(name, deep=false, as_string=false)")
}

func TestList_AsStringJoinsWithNewlines(t *testing.T) {
	tree := buildTree(t)
	result := invokeList(t, tree, "math", false, true, "{full_name}", ".*")
	joined, ok := result.(string)
	require.True(t, ok)
	assert.Contains(t, joined, "math.add")
}

func TestHelp_RendersDocWithCallerRelativeName(t *testing.T) {
	tree := buildTree(t)
	proc, ok := tree.Procedure("system.help")
	require.True(t, ok)

	call := &methodtree.Call{
		Params:               []json.RawMessage{marshal(t, "math.add"), marshal(t, false), marshal(t, true)},
		Access:                access.Context{FullName: "system.help", Type: "procedure"},
		AccessKeyPattern:     "{full_name}",
		AccessKeyholePattern: ".*",
	}
	result, err := proc.Invoke(context.Background(), call)
	require.NoError(t, err)
	text, ok := result.(string)
	require.True(t, ok)
	assert.Contains(t, text, "math.add(a, b)")
	assert.Contains(t, text, "return a + b")
}

func TestHelp_DeniedNodeIsOmitted(t *testing.T) {
	tree := buildTree(t)
	proc, ok := tree.Procedure("system.help")
	require.True(t, ok)

	call := &methodtree.Call{
		Params:               []json.RawMessage{marshal(t, ""), marshal(t, true), marshal(t, false)},
		Access:                access.Context{FullName: "system.help", Type: "procedure"},
		AccessKeyPattern:     "{full_name}",
		AccessKeyholePattern: `^system\.`,
	}
	result, err := proc.Invoke(context.Background(), call)
	require.NoError(t, err)
	blocks, ok := result.([]string)
	require.True(t, ok)
	for _, b := range blocks {
		assert.NotContains(t, b, "math.add")
	}
}
