package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveString_InputPath(t *testing.T) {
	ctx := &StepContext{Input: map[string]any{"x": 5.0}, Steps: map[string]any{}}
	v, err := resolveString("${input.x}", ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestResolveString_StepPathWithIndex(t *testing.T) {
	ctx := &StepContext{
		Input: map[string]any{},
		Steps: map[string]any{
			"step1": map[string]any{"y": []any{"a", "b", "c"}},
		},
	}
	v, err := resolveString("${step1.y[1]}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestResolveString_MissingKeyIsError(t *testing.T) {
	ctx := &StepContext{Input: map[string]any{}, Steps: map[string]any{}}
	_, err := resolveString("${input.missing}", ctx)
	require.Error(t, err)
	var tmplErr *TemplateError
	assert.ErrorAs(t, err, &tmplErr)
}

func TestResolveString_EscapedLiteralDollarBrace(t *testing.T) {
	ctx := &StepContext{Input: map[string]any{}, Steps: map[string]any{}}
	v, err := resolveString("price is $${not_a_placeholder}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "price is ${not_a_placeholder}", v)
}

func TestResolveString_UnknownRootIsError(t *testing.T) {
	ctx := &StepContext{Input: map[string]any{}, Steps: map[string]any{}}
	_, err := resolveString("${bogus.x}", ctx)
	require.Error(t, err)
}

func TestResolveParams_MixedTextAndPlaceholder(t *testing.T) {
	ctx := &StepContext{Input: map[string]any{"name": "world"}, Steps: map[string]any{}}
	params, err := resolveParams(map[string]string{"greeting": "hello ${input.name}!"}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", params["greeting"])
}
