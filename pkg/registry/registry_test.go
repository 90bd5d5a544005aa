package registry_test

import (
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversEveryNodeType(t *testing.T) {
	r := registry.Default()
	for _, typ := range domain.NodeTypes {
		nt, ok := r.Get(typ)
		require.True(t, ok, "missing %s", typ)
		assert.NotEmpty(t, nt.DisplayName)
		assert.NotEmpty(t, nt.Parameters)
	}
	assert.Len(t, r.List(), len(domain.NodeTypes))
}

func TestGet_UnknownTypeIsAbsent(t *testing.T) {
	_, ok := registry.Default().Get("custom_widget")
	assert.False(t, ok)
}

func TestValidateField(t *testing.T) {
	r := registry.Default()

	assert.NoError(t, r.ValidateField(domain.NodeTypeWorker, domain.FieldSelectedTool, "transferTokens"))
	assert.NoError(t, r.ValidateField(domain.NodeTypeWorker, domain.FieldMaxIterations, 3))

	err := r.ValidateField(domain.NodeTypeWorker, "colour", "red")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownField)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	err = r.ValidateField(domain.NodeTypeWorker, domain.FieldSelectedTool, "launchRocket")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnknownField)

	// Unregistered types are permissive.
	assert.NoError(t, r.ValidateField("custom_widget", "anything", 1))
}

func TestValidateData_RequiredFields(t *testing.T) {
	r := registry.Default()
	err := r.ValidateData(domain.NodeTypeWorker, map[string]any{domain.FieldWorkerName: "w"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.FieldSelectedTool)

	assert.NoError(t, r.ValidateData(domain.NodeTypeWorker, map[string]any{
		domain.FieldWorkerName:   "w",
		domain.FieldSelectedTool: "getBalance",
	}))
}

func TestDefaults(t *testing.T) {
	d := registry.Default().Defaults(domain.NodeTypeWorker)
	assert.Equal(t, 1, d[domain.FieldMaxIterations])
	assert.Nil(t, registry.Default().Defaults("custom_widget"))
}

func TestNew_RejectsUnsupportedParameterType(t *testing.T) {
	_, err := registry.New(registry.NodeType{
		Name:       "bad",
		Parameters: []registry.Parameter{{Name: "when", Type: "date"}},
	})
	assert.Error(t, err)
}
