// Package methodtree implements the hierarchical namespace of callable
// procedures mtrpc dispatches requests against: procedure wrapping and
// signature validation, namespace/tree construction from a declarative
// set of source units, and the frozen flat index used for O(1) lookup
// once the tree is built.
package methodtree
