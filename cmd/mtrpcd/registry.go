package main

import (
	"fmt"

	"github.com/gnosek/mtrpc/examples/greeter"
	"github.com/gnosek/mtrpc/pkg/methodtree"
	"github.com/gnosek/mtrpc/pkg/mtrpcconfig"
	"github.com/gnosek/mtrpc/pkg/sysmethods"
)

// sourceRegistry maps an rpc_tree_init source name to the factory that
// builds its Unit. A real deployment would load these from the paths
// rpc_tree_init names (a filesystem path to a source file or a loadable
// module name); this binary only ships the one bundled demo module,
// mounted under the name it's registered as.
var sourceRegistry = map[string]func() (*methodtree.Unit, error){
	"greeter": greeter.Unit,
}

// buildTree assembles the root Unit from cfg.RPCTreeInit.Sources plus the
// always-present system.list/system.help introspection module, builds the
// Tree, and resolves the sysmethods TreeRef against it.
func buildTree(cfg *mtrpcconfig.Config) (*methodtree.BuildResult, error) {
	sysUnit, ref, err := sysmethods.Unit()
	if err != nil {
		return nil, fmt.Errorf("build system unit: %w", err)
	}

	children := map[string]*methodtree.Unit{"system": sysUnit}
	for _, name := range cfg.RPCTreeInit.Sources {
		factory, ok := sourceRegistry[name]
		if !ok {
			return nil, fmt.Errorf("rpc_tree_init: unknown source %q", name)
		}
		unit, err := factory()
		if err != nil {
			return nil, fmt.Errorf("rpc_tree_init: build source %q: %w", name, err)
		}
		children[name] = unit
	}

	root := &methodtree.Unit{Children: children}
	res, err := methodtree.Build(root)
	if err != nil {
		return nil, fmt.Errorf("build method tree: %w", err)
	}

	ref.Set(res.Tree)
	return res, nil
}
