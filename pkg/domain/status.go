package domain

import "time"

// NodeStatus is the execution state of a single node.
type NodeStatus string

const (
	StatusIdle    NodeStatus = "idle"
	StatusRunning NodeStatus = "running"
	StatusSuccess NodeStatus = "success"
	StatusError   NodeStatus = "error"
)

// Terminal reports whether the status only changes through an explicit reset.
func (s NodeStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// StatusEvent is published every time a node changes execution status.
type StatusEvent struct {
	GraphID   string     `json:"graph_id"`
	NodeID    string     `json:"node_id"`
	Status    NodeStatus `json:"status"`
	Previous  NodeStatus `json:"previous"`
	Timestamp time.Time  `json:"timestamp"`
}
