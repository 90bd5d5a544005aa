package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/weave/pkg/adapters/loam"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/ports"
)

// fileSource reads a single YAML graph file.
type fileSource struct {
	path string
}

func (f fileSource) Load(ctx context.Context) (*domain.Graph, error) {
	return graph.LoadFile(f.path)
}

func (f fileSource) Save(ctx context.Context, g *domain.Graph) error {
	data, err := graph.Encode(g)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

// OpenSource returns the graph source for path: a loam repository when path
// is a directory, a YAML file otherwise.
func OpenSource(path string) (ports.GraphSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("graph source %s: %w", path, err)
	}
	if info.IsDir() {
		return loam.Open(path)
	}
	return fileSource{path: path}, nil
}

// LoadGraph reads the graph stored at path.
func LoadGraph(ctx context.Context, path string) (*domain.Graph, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}
