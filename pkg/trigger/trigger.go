// Package trigger turns the worker node of a graph into a tool invocation.
package trigger

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// WorkerConfig is the typed view of a worker node's data.
type WorkerConfig struct {
	WorkerName    string   `mapstructure:"workerName"`
	WorkerPrompt  string   `mapstructure:"workerPrompt"`
	SelectedTool  string   `mapstructure:"selectedTool"`
	MaxIterations *int     `mapstructure:"maxIterations"`
	Supervisor    string   `mapstructure:"supervisor"`
	ToolInput     any      `mapstructure:"toolInput"`
	NextToCall    string   `mapstructure:"nextToCall"`
	Amount        *float64 `mapstructure:"amount"`
}

// DecodeWorker decodes node data into a WorkerConfig. Numbers decoded from
// JSON as float64 are accepted for integer fields when they are whole.
func DecodeWorker(data map[string]any) (WorkerConfig, error) {
	var cfg WorkerConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       wholeNumbers,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(data); err != nil {
		return cfg, domain.NewError(domain.KindValidation, "invalid worker configuration", err)
	}
	return cfg, nil
}

// wholeNumbers refuses to truncate fractional floats into integer fields.
func wholeNumbers(from, to reflect.Kind, data any) (any, error) {
	switch to {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	if from != reflect.Float32 && from != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("expected a whole number, got %v", f)
	}
	return int64(f), nil
}

// Invocation is a single tool run requested from the agent.
type Invocation struct {
	GraphID  string
	NodeID   string
	Metadata domain.ToolMetadata

	// Payload is the wire form of Metadata. Optional keys are present only
	// when the worker node's own data sets them.
	Payload map[string]any
}

// TriggerRun selects the first worker node of the graph and builds the
// invocation for its configured tool. Edges are never followed.
func TriggerRun(g *domain.Graph) (Invocation, error) {
	if g == nil {
		return Invocation{}, domain.NewError(domain.KindNotFound, "graph", domain.ErrGraphNotFound)
	}

	var node *domain.Node
	for i := range g.Nodes {
		if g.Nodes[i].Type == domain.NodeTypeWorker {
			node = &g.Nodes[i]
			break
		}
	}
	if node == nil {
		return Invocation{}, domain.NewError(domain.KindValidation, fmt.Sprintf("graph %q", g.ID), domain.ErrNoWorkerNode)
	}

	cfg, err := DecodeWorker(node.Data)
	if err != nil {
		return Invocation{}, err
	}
	tool := strings.TrimSpace(cfg.SelectedTool)
	if tool == "" {
		return Invocation{}, domain.NewError(domain.KindValidation, fmt.Sprintf("node %q", node.ID), domain.ErrNoToolSelected)
	}

	calls := 1
	if cfg.MaxIterations != nil {
		calls = *cfg.MaxIterations
	}
	if calls < 0 {
		return Invocation{}, domain.NewError(domain.KindValidation, fmt.Sprintf("node %q: maxIterations must be >= 0", node.ID), nil)
	}
	description := strings.TrimSpace(cfg.WorkerPrompt)
	if description == "" {
		description = fmt.Sprintf("Execute the %s tool", tool)
	}

	meta := domain.ToolMetadata{
		ToolName:    tool,
		Description: description,
		CallCount:   calls,
	}
	payload := map[string]any{
		"toolName":    tool,
		"callCount":   calls,
		"description": description,
	}
	if has(node.Data, domain.FieldToolInput) {
		meta.ToolInput = domain.CloneValue(cfg.ToolInput)
		payload["toolInput"] = domain.CloneValue(cfg.ToolInput)
	}
	if has(node.Data, domain.FieldNextToCall) && cfg.NextToCall != "" {
		meta.NextToCall = cfg.NextToCall
		payload["nextToCall"] = cfg.NextToCall
	}
	if has(node.Data, domain.FieldAmount) && cfg.Amount != nil {
		a := *cfg.Amount
		meta.Amount = &a
		payload["amount"] = a
	}

	return Invocation{
		GraphID:  g.ID,
		NodeID:   node.ID,
		Metadata: meta,
		Payload:  payload,
	}, nil
}

func has(data map[string]any, key string) bool {
	v, ok := data[key]
	return ok && v != nil
}
