package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// Mask replaces the value of every masked key.
const Mask = "***"

// DefaultPIIPatterns match the credential fields node types declare.
var DefaultPIIPatterns = []string{`(?i)private_?key`, `(?i)api_?key`, `(?i)password`, `(?i)secret`}

type piiMiddleware struct {
	next     ports.RecordStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of object keys
// matching the patterns before they reach the store. Documents that are
// not JSON objects or arrays are stored unchanged.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.RecordStore) ports.RecordStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	masked, err := m.mask(data)
	if err != nil {
		return "", err
	}
	return m.next.Create(ctx, collection, masked)
}

func (m *piiMiddleware) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	masked, err := m.mask(data)
	if err != nil {
		return err
	}
	return m.next.Put(ctx, collection, id, masked)
}

func (m *piiMiddleware) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	masked, err := m.mask(data)
	if err != nil {
		return err
	}
	return m.next.Update(ctx, collection, id, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	return m.next.Get(ctx, collection, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, collection, id string) error {
	return m.next.Delete(ctx, collection, id)
}

func (m *piiMiddleware) List(ctx context.Context, collection string) ([]domain.Record, error) {
	return m.next.List(ctx, collection)
}

// mask decodes data into a fresh value, so the caller's bytes are never touched.
func (m *piiMiddleware) mask(data json.RawMessage) (json.RawMessage, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pii middleware: decode record: %w", err)
	}
	switch doc.(type) {
	case map[string]any, []any:
	default:
		return data, nil
	}
	m.maskValue(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pii middleware: encode record: %w", err)
	}
	return out, nil
}

func (m *piiMiddleware) maskValue(v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, sub := range val {
			if m.matches(k) {
				val[k] = Mask
				continue
			}
			m.maskValue(sub)
		}
	case []any:
		for _, sub := range val {
			m.maskValue(sub)
		}
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
