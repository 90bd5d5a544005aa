package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransform(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Transaction hash: **0xABC**", "Transaction hash: 0xABC"},
		{"Position ID: **pos-7**", "Position ID: pos-7"},
		{"a **bold** word", "a **bold** word"},
		{"Transaction hash: **not-hex**", "Transaction hash: **not-hex**"},
		{"Transaction hash: **0x1** / Position ID: **9**", "Transaction hash: 0x1 / Position ID: 9"},
		{"Position ID: **pending\n\nSee the **docs** for details", "Position ID: **pending\n\nSee the **docs** for details"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Transform(tt.in))
	}
}

func TestSplitOpen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"plain text", 10},
		{"ends with T", 9},
		{"Transaction hash: **0xAB", 0},
		{"x Position ID: **12*", 2},
		{"Transaction hash: **0x*", 23},
		{"Transaction hash: done", 22},
		{"Pos", 0},
		{"Position ID: **pending\nnext", 27},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitOpen(tt.in), tt.in)
	}
}

func TestSplitRune(t *testing.T) {
	b := []byte("a€")
	complete, partial := splitRune(b[:3])
	assert.Equal(t, []byte("a"), complete)
	assert.Equal(t, b[1:3], partial)

	complete, partial = splitRune(b)
	assert.Equal(t, b, complete)
	assert.Empty(t, partial)
}
