package methodtree

import "strings"

// Tree is the frozen, fully-built method tree. It is only ever produced
// by Build and must not be mutated afterwards - the server
// builds one at startup and every worker goroutine reads it concurrently
// without locking.
type Tree struct {
	Root *Namespace

	// index maps every mounted namespace's full dotted name to its
	// *Namespace. Procedure lookup walks down from Root (or from an
	// ancestor namespace found here) rather than maintaining a second
	// flat index of every procedure, since a procedure's local name is
	// only unique within its namespace.
	index map[string]any
}

// Lookup resolves a full dotted name to the *Procedure or *Namespace
// mounted there.
func (t *Tree) Lookup(fullName string) (any, bool) {
	if fullName == "" {
		return t.Root, true
	}
	if ns, ok := t.index[fullName]; ok {
		return ns, true
	}

	parent, local := fullName, ""
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		parent, local = fullName[:idx], fullName[idx+1:]
	} else {
		local = fullName
		parent = ""
	}

	var parentNS *Namespace
	if parent == "" {
		parentNS = t.Root
	} else {
		v, ok := t.index[parent]
		if !ok {
			return nil, false
		}
		parentNS, ok = v.(*Namespace)
		if !ok {
			return nil, false
		}
	}
	return parentNS.Get(local)
}

// Procedure resolves fullName and asserts it names a procedure.
func (t *Tree) Procedure(fullName string) (*Procedure, bool) {
	v, ok := t.Lookup(fullName)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Procedure)
	return p, ok
}

// Namespace resolves fullName and asserts it names a namespace.
func (t *Tree) Namespace(fullName string) (*Namespace, bool) {
	v, ok := t.Lookup(fullName)
	if !ok {
		return nil, false
	}
	ns, ok := v.(*Namespace)
	return ns, ok
}
