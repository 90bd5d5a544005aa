package dsl

import "github.com/aretw0/weave/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Set assigns one data field.
func (n *NodeBuilder) Set(field string, value any) *NodeBuilder {
	n.node.Data[field] = value
	return n
}

// At positions the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Prompt sets the worker's task description.
func (n *NodeBuilder) Prompt(text string) *NodeBuilder {
	return n.Set(domain.FieldWorkerPrompt, text)
}

// Times sets how many times the worker must call its tool.
func (n *NodeBuilder) Times(count int) *NodeBuilder {
	return n.Set(domain.FieldMaxIterations, count)
}

// Amount sets the amount passed to the worker's tool.
func (n *NodeBuilder) Amount(v float64) *NodeBuilder {
	return n.Set(domain.FieldAmount, v)
}

// Input sets the structured tool input.
func (n *NodeBuilder) Input(v any) *NodeBuilder {
	return n.Set(domain.FieldToolInput, v)
}

// Then names the tool to call after this worker's tool.
func (n *NodeBuilder) Then(tool string) *NodeBuilder {
	return n.Set(domain.FieldNextToCall, tool)
}

// Model links a supervisor to its chat model node.
func (n *NodeBuilder) Model(modelID string) *NodeBuilder {
	n.Set("llm", modelID)
	n.builder.links = append(n.builder.links, link{source: modelID, target: n.node.ID, targetHandle: "llm"})
	return n
}

// Supervises connects this supervisor to workers through the supervisor handle.
func (n *NodeBuilder) Supervises(workerIDs ...string) *NodeBuilder {
	for _, id := range workerIDs {
		n.builder.links = append(n.builder.links, link{
			source:       n.node.ID,
			sourceHandle: "supervisor",
			target:       id,
			targetHandle: "supervisor",
		})
	}
	return n
}

// To connects this node to targets.
func (n *NodeBuilder) To(targets ...string) *NodeBuilder {
	for _, t := range targets {
		n.builder.Connect(n.node.ID, t)
	}
	return n
}
