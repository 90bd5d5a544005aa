package domain

import (
	"reflect"
)

// GraphDiff represents the changes between two graph snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type GraphDiff struct {
	// GraphID is always present to identify the target.
	GraphID string `json:"graph_id"`
	Version uint64 `json:"version"`

	AddedNodes   []Node   `json:"added_nodes,omitempty"`
	ChangedNodes []Node   `json:"changed_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	AddedEdges   []Edge   `json:"added_edges,omitempty"`
	RemovedEdges []string `json:"removed_edges,omitempty"`

	// Status contains only nodes whose execution status changed.
	// A node reset to idle is reported with StatusIdle.
	Status map[string]NodeStatus `json:"status,omitempty"`
}

// Diff calculates the difference between oldGraph and newGraph.
// If oldGraph is nil, it returns a diff representing the entire newGraph (initial load).
func Diff(oldGraph, newGraph *Graph) *GraphDiff {
	if newGraph == nil {
		return nil
	}

	diff := &GraphDiff{
		GraphID: newGraph.ID,
		Version: newGraph.Version,
	}
	if oldGraph == nil {
		oldGraph = &Graph{}
	}

	diffNodes(diff, oldGraph, newGraph)
	diffEdges(diff, oldGraph, newGraph)
	diff.Status = diffStatus(oldGraph, newGraph)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNodes(diff *GraphDiff, old, new *Graph) {
	oldByID := make(map[string]Node, len(old.Nodes))
	for _, n := range old.Nodes {
		oldByID[n.ID] = n
	}
	seen := make(map[string]bool, len(new.Nodes))
	for _, n := range new.Nodes {
		seen[n.ID] = true
		prev, exists := oldByID[n.ID]
		if !exists {
			diff.AddedNodes = append(diff.AddedNodes, n)
			continue
		}
		if !reflect.DeepEqual(prev, n) {
			diff.ChangedNodes = append(diff.ChangedNodes, n)
		}
	}
	for _, n := range old.Nodes {
		if !seen[n.ID] {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}
}

func diffEdges(diff *GraphDiff, old, new *Graph) {
	oldIDs := make(map[string]bool, len(old.Edges))
	for _, e := range old.Edges {
		oldIDs[e.ID] = true
	}
	newIDs := make(map[string]bool, len(new.Edges))
	for _, e := range new.Edges {
		newIDs[e.ID] = true
		if !oldIDs[e.ID] {
			diff.AddedEdges = append(diff.AddedEdges, e)
		}
	}
	for _, e := range old.Edges {
		if !newIDs[e.ID] {
			diff.RemovedEdges = append(diff.RemovedEdges, e.ID)
		}
	}
}

func diffStatus(old, new *Graph) map[string]NodeStatus {
	delta := make(map[string]NodeStatus)
	for id, status := range new.Status {
		if old.Status[id] != status {
			delta[id] = status
		}
	}
	for id := range old.Status {
		if _, exists := new.Status[id]; !exists {
			delta[id] = StatusIdle
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.ChangedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0 &&
		len(d.Status) == 0
}
