package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	specs := BuiltinSpecs()
	_, err := NewRegistry(append(specs, specs[0])...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRegistry_RejectsUnknownKind(t *testing.T) {
	_, err := NewRegistry(Spec{Kind: "sharpen"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewRegistry_RejectsDiscriminantShadow(t *testing.T) {
	_, err := NewRegistry(Spec{Kind: KindAutoEnhance, Fields: []Field{{Name: DiscriminantField, Type: TypeString}}})
	require.Error(t, err)
}

func TestRegistry_LookupAndCapabilities(t *testing.T) {
	reg := Default()
	require.Equal(t, 11, reg.Len())

	spec, ok := reg.Lookup(KindSocialCrop)
	require.True(t, ok)
	assert.Equal(t, "social", spec.Summary)
	_, ok = reg.Lookup("nope")
	assert.False(t, ok)

	caps := reg.Capabilities()
	require.Len(t, caps, 11)
	assert.Equal(t, Capability{Kind: KindResize, Summary: "resize"}, caps[0])
	assert.Equal(t, Capability{Kind: KindCapabilities, Summary: "capabilities"}, caps[10])
}

func TestRegistry_DefinitionsCarryDiscriminant(t *testing.T) {
	for _, def := range Default().Definitions() {
		t.Run(def.Function.Name, func(t *testing.T) {
			assert.Equal(t, "function", def.Type)
			schema := def.Function.Parameters
			props := schema["properties"].(map[string]interface{})
			disc := props[DiscriminantField].(map[string]interface{})
			assert.Equal(t, []string{def.Function.Name}, disc["enum"])
			assert.Contains(t, schema["required"], DiscriminantField)
			assert.Equal(t, false, schema["additionalProperties"])
		})
	}
}
