package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentskills/registry/internal/provider"
)

func TestValidateRejectsClaudeNameForClaudeProvider(t *testing.T) {
	err := Validate("claude-helper", []provider.Provider{provider.Claude})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not contain")
}

func TestValidateRejectsAnthropicNameForClaudeProvider(t *testing.T) {
	err := Validate("anthropic-tools", []provider.Provider{provider.Claude})
	require.Error(t, err)
}

func TestValidateAllowsClaudeNameForOtherProviders(t *testing.T) {
	err := Validate("claude-helper", []provider.Provider{provider.Gemini})
	assert.NoError(t, err)
}

func TestValidateAllowsUnrelatedName(t *testing.T) {
	err := Validate("pdf-summarizer", []provider.Provider{provider.Claude})
	assert.NoError(t, err)
}
