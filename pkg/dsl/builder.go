package dsl

import (
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/registry"
)

type link struct {
	source, sourceHandle, target, targetHandle string
}

// Builder manages the graph construction.
type Builder struct {
	id       string
	name     string
	registry *registry.Registry
	order    []string
	nodes    map[string]*NodeBuilder
	links    []link
}

// New creates a new graph builder.
func New(id string) *Builder {
	return &Builder{
		id:       id,
		registry: registry.Default(),
		nodes:    make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the graph.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Registry sets the catalog used to fill defaults and validate nodes.
func (b *Builder) Registry(r *registry.Registry) *Builder {
	b.registry = r
	return b
}

// Add creates a node of the given type in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, typ domain.NodeType) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:   id,
			Type: typ,
			Data: make(map[string]any),
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// ChatModel adds a chat model node.
func (b *Builder) ChatModel(id, model string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeChatModel).Set("modelName", model)
}

// Supervisor adds a supervisor node.
func (b *Builder) Supervisor(id, name string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeSupervisor).Set("supervisorName", name)
}

// Worker adds a worker node that invokes tool.
func (b *Builder) Worker(id, name, tool string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeWorker).
		Set(domain.FieldWorkerName, name).
		Set(domain.FieldSelectedTool, tool)
}

// Connect adds an edge between two nodes.
func (b *Builder) Connect(source, target string) *Builder {
	b.links = append(b.links, link{source: source, target: target})
	return b
}

// Build applies the catalog defaults, validates every node and returns the
// graph definition. Nodes keep the order they were added in.
func (b *Builder) Build() (*domain.Graph, error) {
	store := graph.New(b.id, graph.WithName(b.name), graph.WithRegistry(b.registry))

	for _, l := range b.links {
		w, ok := b.nodes[l.target]
		if l.sourceHandle != "supervisor" || !ok || w.node.Type != domain.NodeTypeWorker {
			continue
		}
		if _, set := w.node.Data[domain.FieldSupervisor]; !set {
			w.node.Data[domain.FieldSupervisor] = l.source
		}
	}

	for _, id := range b.order {
		n := b.nodes[id].node
		data := b.registry.Defaults(n.Type)
		if data == nil {
			data = make(map[string]any)
		}
		for k, v := range n.Data {
			data[k] = v
		}
		n.Data = data
		if err := b.registry.ValidateData(n.Type, n.Data); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		if _, err := store.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
	}
	for _, l := range b.links {
		if _, err := store.Connect(l.source, l.sourceHandle, l.target, l.targetHandle); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", l.source, l.target, err)
		}
	}
	return store.Snapshot(), nil
}
