// Package graph implements the in-memory workflow graph.
//
// A Store owns the nodes, edges, selection and execution status of one graph.
// Every exported method is safe for concurrent use: mutations are serialised
// by a single RWMutex and readers always receive copies.
//
// Execution status is kept in three buckets (running, success, error). A node
// belongs to at most one bucket; a node in none of them is idle.
package graph
