package sysmethods

import (
	"strings"

	"github.com/gnosek/mtrpc/pkg/access"
	"github.com/gnosek/mtrpc/pkg/methodtree"
)

// entry is one accessible node discovered under the name list/help was
// asked to describe.
type entry struct {
	fullName string
	proc     *methodtree.Procedure
	ns       *methodtree.Namespace
}

func (e entry) isProc() bool { return e.proc != nil }

func localName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

func parentmodName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[:idx]
	}
	return ""
}

// accessContext builds the per-node access.Context used to check whether
// the calling binding may see e, layering e's own identity fields over
// the delivery-derived fields every call in this request shares.
func accessContext(base access.Context, e entry) access.Context {
	ctx := base
	ctx.FullName = e.fullName
	ctx.LocalName = localName(e.fullName)
	ctx.ParentmodName = parentmodName(e.fullName)
	if e.isProc() {
		ctx.Doc = e.proc.Doc
		ctx.Tags = e.proc.Tags
		ctx.Type = "procedure"
	} else {
		ctx.Doc = e.ns.Doc
		ctx.Tags = e.ns.Tags
		ctx.Type = "namespace"
	}
	return ctx
}

// admitted reports whether the caller's binding keyhole admits e: list
// and help must filter through exactly the same predicate a real call
// against e would be checked with.
func admitted(base access.Context, e entry, keyPattern, keyholePattern string) bool {
	ok, err := access.Admit(accessContext(base, e), keyPattern, keyholePattern)
	if err != nil {
		return false
	}
	return ok
}

// collect walks the tree from start, gathering entries for its immediate
// children (deep=false) or every descendant (deep=true). start itself is
// not included; callers that need to describe start directly look it up
// separately.
func collect(tree *methodtree.Tree, start string, deep bool) []entry {
	node, ok := tree.Lookup(start)
	if !ok {
		return nil
	}
	ns, ok := node.(*methodtree.Namespace)
	if !ok {
		return nil
	}

	var out []entry
	var walk func(prefix string, n *methodtree.Namespace)
	walk = func(prefix string, n *methodtree.Namespace) {
		for _, name := range n.Names() {
			full := name
			if prefix != "" {
				full = prefix + "." + name
			}
			child, _ := n.Get(name)
			switch c := child.(type) {
			case *methodtree.Procedure:
				out = append(out, entry{fullName: full, proc: c})
			case *methodtree.Namespace:
				out = append(out, entry{fullName: full, ns: c})
				if deep {
					walk(full, c)
				}
			}
		}
	}
	walk(start, ns)
	return out
}

// selfEntry resolves name to an entry describing the node itself, used by
// help(name) to render name's own text ahead of any descendants.
func selfEntry(tree *methodtree.Tree, name string) (entry, bool) {
	node, ok := tree.Lookup(name)
	if !ok {
		return entry{}, false
	}
	switch n := node.(type) {
	case *methodtree.Procedure:
		return entry{fullName: name, proc: n}, true
	case *methodtree.Namespace:
		return entry{fullName: name, ns: n}, true
	default:
		return entry{}, false
	}
}
