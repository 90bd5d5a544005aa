package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	render, err := tui.NewRenderer(80)
	require.NoError(t, err)

	out, err := render("**Transaction hash:** 0xabc")
	require.NoError(t, err)
	assert.Contains(t, out, "0xabc")
}

func TestPrintStatus_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintStatus(&buf, "w1", domain.StatusSuccess)
	assert.Equal(t, ">>> node w1: success\n", buf.String())
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("\n")), 4)
}
