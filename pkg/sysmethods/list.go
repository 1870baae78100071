package sysmethods

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/gnosek/mtrpc/pkg/methodtree"
)

// argAt recovers the i-th declared argument, preferring positional but
// falling back to the keyword of the same name, the way list/help (and
// any procedure with optional trailing arguments) are called in practice.
func argAt(call *methodtree.Call, i int, name string) (json.RawMessage, bool) {
	if i < len(call.Params) {
		return call.Params[i], true
	}
	if v, ok := call.KwParams[name]; ok {
		return v, true
	}
	return nil, false
}

func decodeListArgs(call *methodtree.Call) (name string, deep bool, asString bool, err error) {
	if raw, ok := argAt(call, 0, "name"); ok {
		if err = json.Unmarshal(raw, &name); err != nil {
			return
		}
	}
	if raw, ok := argAt(call, 1, "deep"); ok {
		if err = json.Unmarshal(raw, &deep); err != nil {
			return
		}
	}
	if raw, ok := argAt(call, 2, "as_string"); ok {
		if err = json.Unmarshal(raw, &asString); err != nil {
			return
		}
	}
	return
}

// formatListEntry renders e the way list() shows it: a bare dotted name
// for a namespace, the name plus its formatted signature for a procedure.
func formatListEntry(e entry) string {
	if e.isProc() {
		return e.fullName + e.proc.Signature()
	}
	return e.fullName
}

// listArgSpec is shared by list and help: both take (name, deep=false,
// as_string=false) plus the reserved key/keyhole patterns they need to
// filter their output.
func listArgSpec() methodtree.ArgSpec {
	return methodtree.ArgSpec{
		Params: []methodtree.Param{
			{Name: "name"},
			{Name: "deep", HasDefault: true, Default: false},
			{Name: "as_string", HasDefault: true, Default: false},
			{Name: methodtree.AccessKeyPatternParam},
			{Name: methodtree.AccessKeyholePattParam},
		},
	}
}

// NewListHandler returns the Handler backing system.list: the accessible
// descendant names (and formatted signatures for procedures) under name,
// filtered through the caller's own binding keyhole.
func NewListHandler(ref *TreeRef) methodtree.Handler {
	return func(ctx context.Context, call *methodtree.Call) (any, error) {
		tree := ref.Get()
		name, deep, asString, err := decodeListArgs(call)
		if err != nil {
			return nil, err
		}

		entries := collect(tree, name, deep)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !admitted(call.Access, e, call.AccessKeyPattern, call.AccessKeyholePattern) {
				continue
			}
			names = append(names, formatListEntry(e))
		}
		sort.Strings(names)

		if asString {
			return strings.Join(names, "\n"), nil
		}
		return names, nil
	}
}
