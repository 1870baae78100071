package sysmethods

import (
	"context"
	"strings"

	"github.com/gnosek/mtrpc/pkg/methodtree"
)

// renderHelpText substitutes "{name}" in a node's doc string with its
// caller-relative full name. This is a narrower substitution than
// access.Render's full template grammar, since help bodies only ever
// reference their own name.
func renderHelpText(doc, fullName string) string {
	return strings.ReplaceAll(doc, "{name}", fullName)
}

// formatHelpEntry renders e as a head line (name, plus signature for a
// procedure) followed by its doc body indented under it.
func formatHelpEntry(e entry) string {
	var head string
	var doc string
	if e.isProc() {
		head = e.fullName + e.proc.Signature()
		doc = e.proc.Doc
	} else {
		head = e.fullName
		doc = e.ns.Doc
	}

	body := renderHelpText(doc, e.fullName)
	if body == "" {
		return head
	}

	var indented []string
	for _, line := range strings.Split(body, "\n") {
		indented = append(indented, "    "+line)
	}
	return head + "\n" + strings.Join(indented, "\n")
}

// NewHelpHandler returns the Handler backing system.help: the accessible
// help text for name, and for its descendants when deep is set, filtered
// through the caller's own binding keyhole exactly like list.
func NewHelpHandler(ref *TreeRef) methodtree.Handler {
	return func(ctx context.Context, call *methodtree.Call) (any, error) {
		tree := ref.Get()
		name, deep, asString, err := decodeListArgs(call)
		if err != nil {
			return nil, err
		}

		var blocks []string
		if self, ok := selfEntry(tree, name); ok {
			if admitted(call.Access, self, call.AccessKeyPattern, call.AccessKeyholePattern) {
				blocks = append(blocks, formatHelpEntry(self))
			}
		}
		for _, e := range collect(tree, name, deep) {
			if !admitted(call.Access, e, call.AccessKeyPattern, call.AccessKeyholePattern) {
				continue
			}
			blocks = append(blocks, formatHelpEntry(e))
		}

		if asString {
			return strings.Join(blocks, "\n\n"), nil
		}
		return blocks, nil
	}
}
