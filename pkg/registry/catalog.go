package registry

import "github.com/aretw0/weave/pkg/domain"

// Tools lists the agent tools a worker node can select.
var Tools = []string{
	"getBalance",
	"transferTokens",
	"createToken",
	"mintToken",
	"burnToken",
	"swapTokens",
	"stakeTokens",
	"unstakeTokens",
	"lendToken",
	"borrowToken",
	"getTokenPrice",
	"getPositions",
	"openPosition",
	"closePosition",
}

// Catalog returns the built-in node types.
func Catalog() []NodeType {
	return []NodeType{
		{
			Name:        domain.NodeTypeChatModel,
			DisplayName: "Chat Model",
			Category:    "Chat Models",
			Description: "Conversational model used by agents and chains",
			Version:     1,
			Parameters: []Parameter{
				{Name: "modelName", Type: "options", Description: "Model identifier", Required: true, Options: []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet", "llama3"}},
				{Name: "temperature", Type: "number", Description: "Sampling temperature", Default: 0.7},
				{Name: "maxTokens", Type: "integer", Description: "Maximum tokens to generate"},
				{Name: "apiKey", Type: "password", Description: "Provider credential reference"},
			},
		},
		{
			Name:        domain.NodeTypeWorker,
			DisplayName: "Worker",
			Category:    "Agents",
			Description: "Runs a single tool against the agent",
			Version:     2,
			Parameters: []Parameter{
				{Name: domain.FieldWorkerName, Type: "string", Description: "Worker display name", Required: true},
				{Name: domain.FieldWorkerPrompt, Type: "string", Description: "Instruction describing the task"},
				{Name: domain.FieldSelectedTool, Type: "options", Description: "Tool the worker invokes", Required: true, Options: Tools},
				{Name: domain.FieldMaxIterations, Type: "integer", Description: "How many times the tool must be called", Default: 1},
				{Name: domain.FieldSupervisor, Type: "reference", Description: "Supervisor node id"},
				{Name: domain.FieldToolInput, Type: "json", Description: "Structured input passed to the tool"},
				{Name: domain.FieldNextToCall, Type: "string", Description: "Tool to call after this one"},
				{Name: domain.FieldAmount, Type: "number", Description: "Amount passed to the tool"},
			},
		},
		{
			Name:        domain.NodeTypeSupervisor,
			DisplayName: "Supervisor",
			Category:    "Agents",
			Description: "Coordinates a team of workers",
			Version:     1,
			Parameters: []Parameter{
				{Name: "supervisorName", Type: "string", Description: "Supervisor display name", Required: true},
				{Name: "supervisorPrompt", Type: "string", Description: "System prompt of the supervisor"},
				{Name: "llm", Type: "reference", Description: "Chat model node id"},
				{Name: "recursionLimit", Type: "integer", Description: "Maximum delegation depth", Default: 100},
			},
		},
		{
			Name:        domain.NodeTypeDocumentLoader,
			DisplayName: "Document Loader",
			Category:    "Document Loaders",
			Description: "Loads documents for retrieval",
			Version:     1,
			Parameters: []Parameter{
				{Name: "sourceType", Type: "options", Description: "Kind of source", Required: true, Options: []string{"pdf", "url", "text"}},
				{Name: "source", Type: "string", Description: "Path, URL or inline text", Required: true},
				{Name: "chunkSize", Type: "integer", Description: "Characters per chunk", Default: 1000},
				{Name: "chunkOverlap", Type: "integer", Description: "Overlap between chunks", Default: 200},
			},
		},
		{
			Name:        domain.NodeTypeEmbedding,
			DisplayName: "Embeddings",
			Category:    "Embeddings",
			Description: "Turns text into vectors",
			Version:     1,
			Parameters: []Parameter{
				{Name: "modelName", Type: "options", Description: "Embedding model", Required: true, Options: []string{"text-embedding-3-small", "text-embedding-3-large", "nomic-embed-text"}},
				{Name: "dimensions", Type: "integer", Description: "Vector dimensions"},
				{Name: "apiKey", Type: "password", Description: "Provider credential reference"},
			},
		},
		{
			Name:        domain.NodeTypeGraph,
			DisplayName: "State Graph",
			Category:    "Graphs",
			Description: "Nested agent graph",
			Version:     1,
			Parameters: []Parameter{
				{Name: "graphName", Type: "string", Description: "Graph display name", Required: true},
				{Name: "entryPoint", Type: "reference", Description: "Entry node id"},
				{Name: "state", Type: "json", Description: "Initial state channels"},
			},
		},
		{
			Name:        domain.NodeTypeLLM,
			DisplayName: "LLM",
			Category:    "LLMs",
			Description: "Completion model",
			Version:     1,
			Parameters: []Parameter{
				{Name: "modelName", Type: "string", Description: "Model identifier", Required: true},
				{Name: "temperature", Type: "number", Description: "Sampling temperature", Default: 0.7},
				{Name: "prompt", Type: "code", Description: "Prompt template"},
				{Name: "maxTokens", Type: "integer", Description: "Maximum tokens to generate"},
			},
		},
		{
			Name:        domain.NodeTypeMemory,
			DisplayName: "Memory",
			Category:    "Memory",
			Description: "Conversation memory",
			Version:     1,
			Parameters: []Parameter{
				{Name: "memoryType", Type: "options", Description: "Memory strategy", Required: true, Options: []string{"buffer", "window", "summary"}},
				{Name: "windowSize", Type: "integer", Description: "Messages kept by window memory", Default: 10},
				{Name: "sessionId", Type: "string", Description: "Chat session id"},
			},
		},
		{
			Name:        domain.NodeTypeModeration,
			DisplayName: "Moderation",
			Category:    "Moderation",
			Description: "Screens input before it reaches the agent",
			Version:     1,
			Parameters: []Parameter{
				{Name: "moderationType", Type: "options", Description: "Moderation provider", Required: true, Options: []string{"openai", "keyword"}},
				{Name: "threshold", Type: "number", Description: "Score above which input is blocked", Default: 0.5},
				{Name: "blockedCategories", Type: "[string]", Description: "Categories to block"},
				{Name: "errorMessage", Type: "string", Description: "Message returned when blocked"},
			},
		},
		{
			Name:        domain.NodeTypeMultiAgent,
			DisplayName: "Multi Agent",
			Category:    "Multi Agents",
			Description: "Runs several agents together",
			Version:     1,
			Parameters: []Parameter{
				{Name: "agents", Type: "[reference]", Description: "Participating agent node ids", Required: true},
				{Name: "strategy", Type: "options", Description: "Turn taking strategy", Options: []string{"round_robin", "supervised"}},
				{Name: "maxRounds", Type: "integer", Description: "Maximum rounds", Default: 5},
			},
		},
		{
			Name:        domain.NodeTypeChain,
			DisplayName: "Chain",
			Category:    "Chains",
			Description: "Sequential prompt chain",
			Version:     1,
			Parameters: []Parameter{
				{Name: "chainType", Type: "options", Description: "Chain kind", Required: true, Options: []string{"llm", "conversation", "retrieval_qa"}},
				{Name: "prompt", Type: "string", Description: "Prompt template"},
				{Name: "outputKey", Type: "string", Description: "Key the chain writes to", Default: "text"},
			},
		},
	}
}

// Default returns a registry holding the built-in catalog.
func Default() *Registry {
	return MustNew(Catalog()...)
}
