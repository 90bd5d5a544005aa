package domain

import "strings"

// ToolMetadata describes one tool invocation requested from the agent.
// It drives the prompt composer.
type ToolMetadata struct {
	ToolName    string   `json:"toolName" mapstructure:"toolName"`
	ToolInput   any      `json:"toolInput,omitempty" mapstructure:"toolInput"`
	NextToCall  string   `json:"nextToCall,omitempty" mapstructure:"nextToCall"`
	Description string   `json:"description" mapstructure:"description"`
	CallCount   int      `json:"callCount" mapstructure:"callCount"`
	Amount      *float64 `json:"amount,omitempty" mapstructure:"amount"`
}

// Validate checks the required fields.
func (m ToolMetadata) Validate() error {
	switch {
	case strings.TrimSpace(m.ToolName) == "":
		return NewError(KindValidation, "toolName is required", nil)
	case strings.TrimSpace(m.Description) == "":
		return NewError(KindValidation, "description is required", nil)
	case m.CallCount < 0:
		return NewError(KindValidation, "callCount must be >= 0", nil)
	}
	return nil
}

// HasToolInput reports whether a non-empty tool input was supplied.
func (m ToolMetadata) HasToolInput() bool {
	switch v := m.ToolInput.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}
