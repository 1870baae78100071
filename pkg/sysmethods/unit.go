package sysmethods

import (
	"sync/atomic"

	"github.com/gnosek/mtrpc/pkg/methodtree"
)

// TreeRef resolves the built Tree for the list/help handlers. The system
// unit has to be assembled before methodtree.Build produces the Tree its
// own handlers need to walk, so callers build the Unit first, call Build,
// then Set the finished Tree on the same TreeRef.
type TreeRef struct {
	tree atomic.Pointer[methodtree.Tree]
}

func (r *TreeRef) Set(tree *methodtree.Tree) { r.tree.Store(tree) }

func (r *TreeRef) Get() *methodtree.Tree { return r.tree.Load() }

// Unit returns the "system" Unit exporting list and help, along with the
// TreeRef the caller must Set once Build has produced the real Tree.
func Unit() (*methodtree.Unit, *TreeRef, error) {
	ref := &TreeRef{}

	list, err := methodtree.Wrap("list", NewListHandler(ref), listArgSpec(),
		methodtree.WithDoc("list(name, deep=false, as_string=false) - accessible descendant names under {name}"))
	if err != nil {
		return nil, nil, err
	}

	help, err := methodtree.Wrap("help", NewHelpHandler(ref), listArgSpec(),
		methodtree.WithDoc("help(name, deep=false, as_string=false) - accessible help text for {name}"))
	if err != nil {
		return nil, nil, err
	}

	unit := &methodtree.Unit{
		Doc:        "Built-in introspection: list and help.",
		Procedures: map[string]*methodtree.Procedure{"list": list, "help": help},
		Exports:    []string{"*"},
	}
	return unit, ref, nil
}
