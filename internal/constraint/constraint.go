// Package constraint applies provider-specific cross-field rules that the
// manifest parser and provider detector cannot check in isolation.
package constraint

import (
	"fmt"
	"strings"

	"github.com/agentskills/registry/internal/provider"
)

// ParseError is a validation failure. Its Message is safe to surface
// directly to the client.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// Validate applies every registered constraint to (name, providers). Only
// one rule exists today: a claude-compatible skill's name may not contain
// "claude" or "anthropic".
func Validate(name string, providers []provider.Provider) error {
	if provider.Contains(providers, provider.Claude) {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "claude") || strings.Contains(lower, "anthropic") {
			return &ParseError{Message: fmt.Sprintf("claude-compatible skill name %q must not contain \"claude\" or \"anthropic\"", name)}
		}
	}
	return nil
}
