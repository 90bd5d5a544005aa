package loam

import "github.com/aretw0/weave/pkg/domain"

// graphDocID is the reserved document holding graph level metadata.
const graphDocID = "_graph"

// NodeMetadata is the frontmatter of a node document. The graph document
// reuses it with only the Graph section set.
type NodeMetadata struct {
	ID       string          `json:"id" yaml:"id" mapstructure:"id"`
	Type     string          `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Order    int             `json:"order" yaml:"order" mapstructure:"order"`
	Position domain.Position `json:"position" yaml:"position" mapstructure:"position"`
	Data     map[string]any  `json:"data,omitempty" yaml:"data,omitempty" mapstructure:"data"`

	// Edges lists the edges leaving this node.
	Edges []EdgeMetadata `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges"`

	Graph *GraphMetadata `json:"graph,omitempty" yaml:"graph,omitempty" mapstructure:"graph"`
}

// EdgeMetadata is an outgoing edge stored on its source node.
type EdgeMetadata struct {
	ID           string `json:"id" yaml:"id" mapstructure:"id"`
	Target       string `json:"target" yaml:"target" mapstructure:"target"`
	SourceHandle string `json:"source_handle,omitempty" yaml:"source_handle,omitempty" mapstructure:"source_handle"`
	TargetHandle string `json:"target_handle,omitempty" yaml:"target_handle,omitempty" mapstructure:"target_handle"`
}

// GraphMetadata identifies the graph a directory holds.
type GraphMetadata struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
}
