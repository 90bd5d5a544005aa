/*
Package domain contains the core models of the weave workflow builder.

It defines the entities shared by the graph store, the execution trigger and the
streaming relay. The package is kept free of I/O and persistence so every adapter
(HTTP, MCP, CLI, storage) can depend on it.

# Key Entities

  - Node: a configurable unit of the workflow graph (worker, chat model, supervisor...).
  - Edge: a directed link between two named ports of two nodes.
  - NodeStatus: the per-node execution state (idle, running, success, error).
  - ToolMetadata: the description of one tool invocation handed to the prompt composer.
  - AgentEvent: one item of the upstream agent's event sequence.
  - Message: a role-tagged chat message exchanged with the agent.
  - Record: an opaque persisted document (chat, history entry, graph).
*/
package domain
