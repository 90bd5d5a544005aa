package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/weave/pkg/domain"
)

// Source implements ports.GraphSource and ports.Watchable on a Loam repository.
type Source struct {
	repo  core.Repository
	typed *loam.TypedRepository[NodeMetadata]
	name  string
}

// Open initializes a Loam repository in dir and wraps it.
func Open(dir string, opts ...loam.Option) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numeric types consistent between JSON and Markdown documents.
	opts = append([]loam.Option{loam.WithVersioning(false), loam.WithStrict(true)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo, filepath.Base(absPath)), nil
}

// New wraps an initialized repository. name is used as the graph id when the
// directory has no graph document.
func New(repo core.Repository, name string) *Source {
	return &Source{
		repo:  repo,
		typed: loam.NewTypedRepository[NodeMetadata](repo),
		name:  name,
	}
}

// Load reads every node document and rebuilds the graph.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	docs, err := s.typed.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	g := &domain.Graph{ID: s.name, Name: s.name}
	type entry struct {
		order int
		node  domain.Node
		edges []EdgeMetadata
	}
	var entries []entry
	seen := make(map[string]string)

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if id == graphDocID || doc.Data.Graph != nil {
			if doc.Data.Graph != nil {
				g.ID = doc.Data.Graph.ID
				g.Name = doc.Data.Graph.Name
			}
			continue
		}
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID

		if doc.Data.Type == "" {
			return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("node %q has no type", id), nil)
		}
		entries = append(entries, entry{
			order: doc.Data.Order,
			node: domain.Node{
				ID:       id,
				Type:     domain.NodeType(doc.Data.Type),
				Position: doc.Data.Position,
				Data:     normalizeMap(doc.Data.Data),
			},
			edges: doc.Data.Edges,
		})
	}
	if len(entries) == 0 {
		return nil, domain.ErrGraphNotFound
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].node.ID < entries[j].node.ID
	})

	for _, e := range entries {
		g.Nodes = append(g.Nodes, e.node)
	}
	for i, e := range entries {
		for _, em := range e.edges {
			if _, ok := seen[em.Target]; !ok {
				continue
			}
			g.Edges = append(g.Edges, domain.Edge{
				ID:           em.ID,
				Source:       e.node.ID,
				Target:       em.Target,
				SourceHandle: em.SourceHandle,
				TargetHandle: em.TargetHandle,
			})
			if !g.Nodes[i].ConnectsTo(em.Target) {
				g.Nodes[i].Connections = append(g.Nodes[i].Connections, em.Target)
			}
		}
	}
	return g, nil
}

// Save writes one document per node and removes documents of nodes that no
// longer exist.
func (s *Source) Save(ctx context.Context, g *domain.Graph) error {
	existing, err := s.typed.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	outgoing := make(map[string][]EdgeMetadata)
	for _, e := range g.Edges {
		outgoing[e.Source] = append(outgoing[e.Source], EdgeMetadata{
			ID:           e.ID,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		})
	}

	err = s.typed.Save(ctx, &loam.DocumentModel[NodeMetadata]{
		ID:      graphDocID,
		Content: fmt.Sprintf("# %s\n", graphTitle(g)),
		Data: NodeMetadata{
			ID:    graphDocID,
			Graph: &GraphMetadata{ID: g.ID, Name: g.Name},
		},
	})
	if err != nil {
		return fmt.Errorf("save graph document: %w", err)
	}

	keep := map[string]bool{graphDocID: true}
	for i, n := range g.Nodes {
		keep[n.ID] = true
		err := s.typed.Save(ctx, &loam.DocumentModel[NodeMetadata]{
			ID:      n.ID,
			Content: fmt.Sprintf("# %s\n", n.Type),
			Data: NodeMetadata{
				ID:       n.ID,
				Type:     string(n.Type),
				Order:    i,
				Position: n.Position,
				Data:     domain.CloneMap(n.Data),
				Edges:    outgoing[n.ID],
			},
		})
		if err != nil {
			return fmt.Errorf("save node %s: %w", n.ID, err)
		}
	}

	for _, doc := range existing {
		id := doc.Data.ID
		if id == "" {
			id = doc.ID
		}
		if keep[trimExtension(id)] {
			continue
		}
		if err := s.repo.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete stale node %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Watch implements ports.Watchable. Bursts of file changes are coalesced
// into a single notification.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := s.typed.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func graphTitle(g *domain.Graph) string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// normalizeMap converts decoder specific values (json.Number, map[any]any)
// into the plain types the schema validator expects.
func normalizeMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[fmt.Sprintf("%v", k)] = normalizeValue(sub)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalizeValue(sub)
		}
		return out
	default:
		return v
	}
}
