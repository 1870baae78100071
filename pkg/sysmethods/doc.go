// Package sysmethods implements the built-in system.list and
// system.help introspection procedures. Both filter their results
// through the same access predicate a real call would be checked
// against, so a caller never learns the existence of a name it
// couldn't invoke.
package sysmethods
