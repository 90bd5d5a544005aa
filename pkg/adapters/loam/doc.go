// Package loam stores a graph definition as a directory of documents, one per
// node, through the Loam document repository.
//
// Each node document carries its type, canvas position, configuration data
// and outgoing edges in its frontmatter. A reserved "_graph" document holds
// the graph id and name. Runtime status is never written.
package loam
