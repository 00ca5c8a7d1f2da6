package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrderAndMutability(t *testing.T) {
	registry, err := NewDefaultRegistry(Deps{WorkDir: t.TempDir()})
	require.NoError(t, err)

	var names []string
	mutating := map[string]bool{}
	for _, spec := range registry.Specs() {
		names = append(names, spec.Name)
		mutating[spec.Name] = spec.Mutating
	}
	assert.Equal(t, []string{"read", "write", "edit", "shell", "fetch", "notepad", "tree", "ask_user"}, names)
	for name, m := range mutating {
		assert.Equal(t, name == "write" || name == "edit", m, "tool %s", name)
	}
}

func TestToolSchemasListRequiredArguments(t *testing.T) {
	registry, err := NewDefaultRegistry(Deps{WorkDir: t.TempDir()})
	require.NoError(t, err)

	tool, ok := registry.GetTool("edit")
	require.True(t, ok)
	schema := tool.Parameters()
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "path")
	assert.Contains(t, props, "old_string")
	assert.Contains(t, props, "occurrences")

	required, ok := schema["required"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"path", "old_string", "new_string"}, required)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewReadTool(t.TempDir())))
	assert.Error(t, registry.Register(NewReadTool(t.TempDir())))
	assert.Error(t, registry.Register(nil))
	assert.Len(t, registry.ListTools(), 1)
}

func TestSetConfirmatorReachesMutatingTools(t *testing.T) {
	registry := NewRegistry()
	write := NewWriteTool(t.TempDir())
	require.NoError(t, registry.Register(write))
	assert.False(t, registry.HasConfirmator())

	c := &fakeConfirmator{}
	registry.SetConfirmator(c)
	assert.True(t, registry.HasConfirmator())
	assert.Same(t, c, write.confirmator)

	edit := NewEditTool(t.TempDir())
	require.NoError(t, registry.Register(edit))
	assert.Same(t, c, edit.confirmator, "tools registered later get the confirmator too")
}
