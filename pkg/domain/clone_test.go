package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneValue_TypedContainers(t *testing.T) {
	type input struct {
		To   string
		Tags []string
	}
	amount := 5.0

	tests := []struct {
		name   string
		value  any
		mutate func(any)
		want   any
	}{
		{
			name:   "typed map",
			value:  map[string]int{"a": 1},
			mutate: func(v any) { v.(map[string]int)["a"] = 99 },
			want:   map[string]int{"a": 1},
		},
		{
			name:   "slice of maps",
			value:  []map[string]any{{"to": "0x1"}},
			mutate: func(v any) { v.([]map[string]any)[0]["to"] = "0x2" },
			want:   []map[string]any{{"to": "0x1"}},
		},
		{
			name:   "struct with slice",
			value:  &input{To: "0x1", Tags: []string{"a"}},
			mutate: func(v any) { v.(*input).Tags[0] = "b" },
			want:   &input{To: "0x1", Tags: []string{"a"}},
		},
		{
			name:   "nested in generic map",
			value:  map[string]any{"amounts": map[string]*float64{"x": &amount}},
			mutate: func(v any) { *v.(map[string]any)["amounts"].(map[string]*float64)["x"] = 7 },
			want:   map[string]any{"amounts": map[string]*float64{"x": &amount}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := CloneValue(tt.value)
			tt.mutate(cp)
			assert.Equal(t, tt.want, tt.value)
			assert.Equal(t, 5.0, amount)
		})
	}
}

func TestCloneValue_Scalars(t *testing.T) {
	assert.Nil(t, CloneValue(nil))
	assert.Equal(t, "x", CloneValue("x"))
	assert.Equal(t, int64(3), CloneValue(int64(3)))
	assert.Equal(t, []string(nil), CloneValue([]string(nil)))
}
