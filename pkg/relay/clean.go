package relay

import (
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
)

// CleanMessages prepares completed agent messages for the client. Tool calls
// without a real name and lines that only say "undefined" are removed, the
// text transforms are applied, and missing ids are filled in. Messages left
// with neither content nor tool calls are dropped.
func CleanMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		cleaned := domain.Message{
			ID:      m.ID,
			Role:    m.Role,
			Content: Transform(stripUndefined(m.Content)),
		}
		for _, tc := range m.ToolCalls {
			name := strings.TrimSpace(tc.Name)
			if name == "" || name == domain.UndefinedTool {
				continue
			}
			tc.Args = domain.CloneMap(tc.Args)
			cleaned.ToolCalls = append(cleaned.ToolCalls, tc)
		}
		if strings.TrimSpace(cleaned.Content) == "" && len(cleaned.ToolCalls) == 0 {
			continue
		}
		if cleaned.ID == "" {
			cleaned.ID = uuid.NewString()
		}
		out = append(out, cleaned)
	}
	return out
}

func stripUndefined(content string) string {
	if !strings.Contains(content, domain.UndefinedTool) {
		return content
	}
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == domain.UndefinedTool || t == "Using tool: "+domain.UndefinedTool {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
