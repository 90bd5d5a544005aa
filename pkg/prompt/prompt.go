// Package prompt renders tool metadata into the instruction sent to the agent.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

// RenderInstruction turns tool metadata into a markdown instruction block.
// The output depends only on m: equal metadata always renders the same text.
func RenderInstruction(m domain.ToolMetadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tool Execution: %s\n\n", m.ToolName)
	if d := strings.TrimSpace(m.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	b.WriteString("## Execution Parameters\n")
	fmt.Fprintf(&b, "- Tool to call: %s\n", m.ToolName)
	fmt.Fprintf(&b, "- Required calls: %s\n", Times(m.CallCount))
	if m.Amount != nil {
		fmt.Fprintf(&b, "- Amount to be passed: %s\n", FormatAmount(*m.Amount))
	}
	if m.NextToCall != "" {
		fmt.Fprintf(&b, "- Next tool to call: %s\n", m.NextToCall)
	}

	if m.HasToolInput() {
		lang, body := renderInput(m.ToolInput)
		b.WriteString("\n## Tool Input\n")
		fmt.Fprintf(&b, "```%s\n%s\n```\n", lang, body)
	}

	b.WriteString("\n## Example Usage\n")
	b.WriteString(exampleSentence(m))
	b.WriteString("\n")
	return b.String()
}

// Times pluralises a call count: "1 time", "3 times".
func Times(n int) string {
	if n == 1 {
		return "1 time"
	}
	return strconv.Itoa(n) + " times"
}

// FormatAmount prints an amount without trailing zeros.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

func exampleSentence(m domain.ToolMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call the %s tool", m.ToolName)
	if m.Amount != nil {
		fmt.Fprintf(&b, " with an amount of %s", FormatAmount(*m.Amount))
	}
	if m.CallCount > 1 {
		fmt.Fprintf(&b, ", repeating the call %s", Times(m.CallCount))
	}
	if m.NextToCall != "" {
		fmt.Fprintf(&b, ", then call %s", m.NextToCall)
	}
	b.WriteString(".")
	return b.String()
}

// renderInput returns the fence language and the body for the tool input.
// Strings are passed through verbatim; structured values are printed as JSON
// with sorted keys and two space indentation.
func renderInput(v any) (string, string) {
	if s, ok := v.(string); ok {
		return "", s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Sprint(v)
	}
	// Round trip through a generic value so struct fields are sorted too.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return "", string(raw)
	}
	pretty, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return "", string(raw)
	}
	return "json", string(pretty)
}
