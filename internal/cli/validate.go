package cli

import (
	"errors"
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/aretw0/weave/pkg/trigger"
)

// Validate checks every node against the catalog, every edge against the
// node set, and that the graph has a runnable worker. All problems are
// reported together.
func Validate(g *domain.Graph, reg *registry.Registry) error {
	var errs []error

	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := ids[n.ID]; dup {
			errs = append(errs, fmt.Errorf("node %s: duplicate id", n.ID))
		}
		ids[n.ID] = struct{}{}

		if _, known := reg.Get(n.Type); !known {
			errs = append(errs, fmt.Errorf("node %s: unknown type %q", n.ID, n.Type))
			continue
		}
		if err := reg.ValidateData(n.Type, n.Data); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", n.ID, err))
		}
	}

	for _, e := range g.Edges {
		if _, ok := ids[e.Source]; !ok {
			errs = append(errs, fmt.Errorf("edge %s: unknown source %s", e.ID, e.Source))
		}
		if _, ok := ids[e.Target]; !ok {
			errs = append(errs, fmt.Errorf("edge %s: unknown target %s", e.ID, e.Target))
		}
	}

	if _, err := trigger.TriggerRun(g); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
