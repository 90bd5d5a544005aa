// Package registry holds the static catalog of node types.
//
// Each NodeType carries display metadata and a list of Parameters. The
// registry compiles those parameters into a schema.Schema so the graph store
// can reject undeclared fields or mistyped values at the editing boundary.
// Types missing from the registry are still accepted by the graph store; they
// simply have no schema.
package registry
