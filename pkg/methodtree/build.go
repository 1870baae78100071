package methodtree

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Unit is the declarative description of one source module: the
// procedures and child units it contributes, and which of its own
// procedures (or a descendant's) it wants exported under its name.
//
// Units are plain data - the caller builds the Unit graph (by hand, or by
// having a procedure-registration package construct one), then hands the
// root to Build.
type Unit struct {
	Doc  string
	Tags map[string]string

	// Procedures this unit declares directly, keyed by local name.
	Procedures map[string]*Procedure

	// Children are sub-units mounted under this one, keyed by local name.
	Children map[string]*Unit

	// AllowList, if non-nil, restricts what "*" exports from this unit:
	// the wildcard expands to Procedures intersected with AllowList
	// instead of all of Procedures.
	AllowList []string

	// Exports lists what this unit makes visible under its own namespace:
	// a bare local name (one of Procedures), a dotted path reaching into
	// a descendant, or a path ending in "*" for a wildcard export. See
	// resolveExports for the full grammar.
	Exports []string

	// OnMount, if set, runs once after this unit's namespace is built and
	// mounted under its parent, receiving the finished NamespaceRef and
	// MountKwargs.
	OnMount     func(ref *NamespaceRef, kwargs map[string]any) error
	MountKwargs map[string]any
}

// NamespaceRef is the read-only view of a just-built Namespace handed to
// a Unit's OnMount hook. It is the same Namespace that ends up in the
// Tree, exposed under a narrower name to make clear the hook must not
// try to rebuild it.
type NamespaceRef = Namespace

// BuildResult carries the finished Tree plus any non-fatal diagnostics
// collected while building it (missing exports, omitted cycles, skipped
// re-mounts) - these are warnings, not build failures.
type BuildResult struct {
	Tree     *Tree
	Warnings []string
}

type builder struct {
	mounted  map[*Unit]bool
	warnings []string
	index    map[string]any
}

// Build walks root depth-first and produces the frozen Tree. Build is the
// only way a Tree is constructed; once returned, the Tree and every
// Namespace/Procedure reachable from it must not be mutated: the tree is
// immutable after startup.
func Build(root *Unit) (*BuildResult, error) {
	b := &builder{
		mounted: map[*Unit]bool{},
		index:   map[string]any{},
	}

	ns, err := b.materialize(root, "", nil, nil)
	if err != nil {
		return nil, err
	}

	return &BuildResult{
		Tree:     &Tree{Root: ns, index: b.index},
		Warnings: b.warnings,
	}, nil
}

func (b *builder) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// materialize builds the Namespace for unit, mounted at fullName, having
// already descended through ancestors (used for cycle detection).
// anticipated carries extra export entries the parent pushed down via a
// multi-segment dotted path targeting this unit.
func (b *builder) materialize(unit *Unit, fullName string, ancestors map[*Unit]bool, anticipated []string) (*Namespace, error) {
	if b.mounted[unit] {
		return nil, fmt.Errorf("unit for namespace %q is already mounted elsewhere in the tree", fullName)
	}
	b.mounted[unit] = true

	ns := newNamespace(fullName, unit.Doc, unit.Tags)

	childAnticipated, err := b.resolveExports(unit, ns, fullName, anticipated)
	if err != nil {
		return nil, err
	}

	childNames := make([]string, 0, len(unit.Children))
	for name := range unit.Children {
		childNames = append(childNames, name)
	}
	sort.Strings(childNames)

	nextAncestors := make(map[*Unit]bool, len(ancestors)+1)
	for u := range ancestors {
		nextAncestors[u] = true
	}
	nextAncestors[unit] = true

	for _, name := range childNames {
		child := unit.Children[name]
		if ancestors[child] {
			b.warnf("namespace %q: child %q would close a cycle, omitting it", fullName, name)
			continue
		}
		if b.mounted[child] {
			b.warnf("namespace %q: child %q is mounted elsewhere, omitting this binding", fullName, name)
			continue
		}

		childFullName := name
		if fullName != "" {
			childFullName = fullName + "." + name
		}

		childNS, err := b.materialize(child, childFullName, nextAncestors, childAnticipated[name])
		if err != nil {
			return nil, err
		}

		if childNS.isEmpty() {
			continue
		}

		ns.mountChild(name, childNS)
		b.index[childFullName] = childNS

		if child.OnMount != nil {
			if err := child.OnMount(childNS, child.MountKwargs); err != nil {
				return nil, fmt.Errorf("namespace %q: post-init hook failed: %w", childFullName, err)
			}
		}
	}

	return ns, nil
}

// identPattern is the allowed character set for one dotted-name segment:
// exported and local names may only contain [A-Za-z0-9_.], and the dot is
// the segment separator, so a single segment matches without it.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// validateName rejects a name segment outside [A-Za-z0-9_.] with a
// configuration error rather than silently accepting it.
func validateName(seg string) error {
	if !identPattern.MatchString(seg) {
		return fmt.Errorf("illegal characters in name %q: only [A-Za-z0-9_.] allowed", seg)
	}
	return nil
}

// resolveExports implements the export grammar:
//
//	"name"        - bind unit.Procedures["name"] under local name "name"
//	"*"           - bind every name in wildcardNames(unit) under its own name
//	"a.b"         - recurse into child "a", binding "b" there too
//	"a.b.*"       - recurse into child "a", wildcard-exporting from "b"
//
// It returns, per direct child name, the extra export entries that child
// should also resolve (accumulated from multi-segment paths here).
func (b *builder) resolveExports(unit *Unit, ns *Namespace, fullName string, extra []string) (map[string][]string, error) {
	childAnticipated := map[string][]string{}

	entries := make([]string, 0, len(unit.Exports)+len(extra))
	entries = append(entries, unit.Exports...)
	entries = append(entries, extra...)

	for _, entry := range entries {
		segs := strings.Split(entry, ".")

		for _, seg := range segs {
			if seg == "*" {
				continue
			}
			if err := validateName(seg); err != nil {
				return nil, fmt.Errorf("namespace %q: export %q: %w", fullName, entry, err)
			}
		}

		if len(segs) == 1 {
			name := segs[0]
			if name == "*" {
				for _, wname := range wildcardNames(unit) {
					if err := validateName(wname); err != nil {
						return nil, fmt.Errorf("namespace %q: %w", fullName, err)
					}
					proc, ok := unit.Procedures[wname]
					if !ok {
						continue
					}
					ns.bindProcedure(wname, proc)
				}
				continue
			}
			proc, ok := unit.Procedures[name]
			if !ok {
				b.warnf("namespace %q: export %q names no procedure, skipping", fullName, entry)
				continue
			}
			ns.bindProcedure(name, proc)
			continue
		}

		childName, remainder := segs[0], strings.Join(segs[1:], ".")
		if _, ok := unit.Children[childName]; !ok {
			return nil, fmt.Errorf("namespace %q: export %q targets %q, which is not a child namespace", fullName, entry, childName)
		}
		childAnticipated[childName] = append(childAnticipated[childName], remainder)
	}

	return childAnticipated, nil
}

// wildcardNames is the set "*" expands to: every declared procedure name,
// intersected with AllowList when the unit sets one.
func wildcardNames(unit *Unit) []string {
	if unit.AllowList == nil {
		names := make([]string, 0, len(unit.Procedures))
		for name := range unit.Procedures {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}

	allowed := make(map[string]bool, len(unit.AllowList))
	for _, name := range unit.AllowList {
		allowed[name] = true
	}
	names := make([]string, 0, len(unit.AllowList))
	for name := range unit.Procedures {
		if allowed[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
