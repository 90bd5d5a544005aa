package domain

// NodeType identifies the kind of a node. The set is closed; see NodeTypes.
type NodeType string

const (
	NodeTypeChatModel      NodeType = "chat_model"
	NodeTypeWorker         NodeType = "worker"
	NodeTypeSupervisor     NodeType = "supervisor"
	NodeTypeDocumentLoader NodeType = "document_loader"
	NodeTypeEmbedding      NodeType = "embedding"
	NodeTypeGraph          NodeType = "graph"
	NodeTypeLLM            NodeType = "llm"
	NodeTypeMemory         NodeType = "memory"
	NodeTypeModeration     NodeType = "moderation"
	NodeTypeMultiAgent     NodeType = "multi_agent"
	NodeTypeChain          NodeType = "chain"
)

// NodeTypes lists every known node type in catalog order.
var NodeTypes = []NodeType{
	NodeTypeChatModel,
	NodeTypeWorker,
	NodeTypeSupervisor,
	NodeTypeDocumentLoader,
	NodeTypeEmbedding,
	NodeTypeGraph,
	NodeTypeLLM,
	NodeTypeMemory,
	NodeTypeModeration,
	NodeTypeMultiAgent,
	NodeTypeChain,
}

// Known reports whether t belongs to the closed enumeration.
func (t NodeType) Known() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Port names used by edges.
const (
	HandleOutput     = "output"
	HandleInput      = "input"
	HandleSupervisor = "supervisor"
)

// Worker data keys read by the execution trigger.
const (
	FieldWorkerName    = "workerName"
	FieldWorkerPrompt  = "workerPrompt"
	FieldSelectedTool  = "selectedTool"
	FieldMaxIterations = "maxIterations"
	FieldSupervisor    = "supervisor"
	FieldToolInput     = "toolInput"
	FieldNextToCall    = "nextToCall"
	FieldAmount        = "amount"
)

// Position is the canvas coordinate of a node. It has no effect on execution.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Offset returns p shifted by dx, dy.
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node represents a logical unit in the workflow graph.
type Node struct {
	ID       string   `json:"id" yaml:"id" mapstructure:"id"`
	Type     NodeType `json:"type" yaml:"type" mapstructure:"type"`
	Position Position `json:"position" yaml:"position" mapstructure:"position"`

	// Data holds the node configuration, constrained by the node type schema.
	Data map[string]any `json:"data" yaml:"data,omitempty" mapstructure:"data"`

	// Connections is the ordered set of target node ids this node feeds into.
	Connections []string `json:"connections,omitempty" yaml:"connections,omitempty" mapstructure:"connections"`

	Selected bool `json:"selected,omitempty" yaml:"selected,omitempty" mapstructure:"selected"`
}

// Clone returns a deep copy of the node. Mutating the copy never affects n.
func (n Node) Clone() Node {
	out := n
	out.Data = CloneMap(n.Data)
	if n.Connections != nil {
		out.Connections = append([]string(nil), n.Connections...)
	}
	return out
}

// ConnectsTo reports whether target is among the node's outgoing connections.
func (n Node) ConnectsTo(target string) bool {
	for _, id := range n.Connections {
		if id == target {
			return true
		}
	}
	return false
}

// Edge is a directed link between two nodes' named ports.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"source_handle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"target_handle,omitempty"`
}

// Touches reports whether the edge references id as source or target.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Graph is a serialisable snapshot of a workflow graph.
type Graph struct {
	ID      string                `json:"id" yaml:"id"`
	Name    string                `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes   []Node                `json:"nodes" yaml:"nodes"`
	Edges   []Edge                `json:"edges" yaml:"edges"`
	Status  map[string]NodeStatus `json:"status,omitempty" yaml:"-"`
	Version uint64                `json:"version" yaml:"-"`
}

// FindNode returns the node with the given id.
func (g *Graph) FindNode(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
