package graph

import (
	"bytes"
	"fmt"
	"os"

	"github.com/aretw0/weave/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Decode parses a graph definition. JSON input is accepted as well, since it
// is valid YAML.
func Decode(data []byte) (*domain.Graph, error) {
	var g domain.Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	for i, n := range g.Nodes {
		if n.Type == "" {
			return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("node %d (%q) has no type", i, n.ID), nil)
		}
	}
	return &g, nil
}

// Encode renders a graph definition as YAML. Runtime status is not written.
func Encode(g *domain.Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFile reads and decodes a graph file.
func LoadFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
