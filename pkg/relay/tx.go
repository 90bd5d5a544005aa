package relay

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	hashKeys    = []string{"hash", "txHash", "tx_hash", "transactionHash", "transaction_hash"}
	successKeys = []string{"success", "ok"}
	nestedKeys  = []string{"data", "result", "output", "transaction", "response"}
)

// transactionHash extracts the transaction hash from a tool result, if the
// result also reports success. String results may hold malformed JSON.
func transactionHash(result any) (string, bool) {
	return findTransaction(normalize(result), 0)
}

func normalize(result any) any {
	switch v := result.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	case string:
		return decodeLoose(v)
	case []byte:
		return decodeLoose(string(v))
	case json.RawMessage:
		return decodeLoose(string(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return out
	}
}

func decodeLoose(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil
	}
	return out
}

func findTransaction(v any, depth int) (string, bool) {
	if depth > 4 {
		return "", false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}

	hash := firstString(m, hashKeys)
	if hash != "" && succeeded(m) {
		return hash, true
	}
	for _, k := range nestedKeys {
		switch nested := m[k].(type) {
		case map[string]any:
			if h, ok := findTransaction(nested, depth+1); ok {
				return h, true
			}
			// A success flag on the envelope covers a nested hash.
			if h := firstString(nested, hashKeys); h != "" && succeeded(m) {
				return h, true
			}
		case string:
			if h, ok := findTransaction(decodeLoose(nested), depth+1); ok {
				return h, true
			}
		}
	}
	return "", false
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func succeeded(m map[string]any) bool {
	for _, k := range successKeys {
		if b, ok := m[k].(bool); ok && b {
			return true
		}
	}
	if s, ok := m["status"].(string); ok {
		switch strings.ToLower(s) {
		case "success", "succeeded", "ok", "confirmed":
			return true
		}
	}
	if s, ok := m["vm_status"].(string); ok && strings.EqualFold(s, "Executed successfully") {
		return true
	}
	return false
}
