// Package provider detects which AI-agent ecosystems a skill bundle
// targets, from a closed taxonomy. New providers require a code change to
// the table below, not a data change — a deliberate closed enumeration
// rather than an open plugin surface.
package provider

import (
	"sort"
	"strings"
)

// Provider is one tag in the closed taxonomy.
type Provider string

const (
	Claude      Provider = "claude"
	Gemini      Provider = "gemini"
	Codex       Provider = "codex"
	Copilot     Provider = "copilot"
	Cursor      Provider = "cursor"
	Windsurf    Provider = "windsurf"
	Antigravity Provider = "antigravity"
	Generic     Provider = "generic"
)

// entry pairs a provider with the compatibility-string keywords and
// bundle-path indicators that detect it.
type entry struct {
	provider     Provider
	keywords     []string
	dirPrefixes  []string
	exactFiles   []string
}

var table = []entry{
	{provider: Claude, keywords: []string{"claude"}, dirPrefixes: []string{".claude/"}, exactFiles: []string{"CLAUDE.md"}},
	{provider: Gemini, keywords: []string{"gemini"}, dirPrefixes: []string{".gemini/"}, exactFiles: []string{"GEMINI.md"}},
	{provider: Codex, keywords: []string{"codex", "openai"}, dirPrefixes: []string{".codex/"}, exactFiles: []string{"AGENTS.md"}},
	{provider: Copilot, keywords: []string{"copilot"}, dirPrefixes: []string{".github/skills/", ".github/agents/"}, exactFiles: []string{".github/copilot-instructions.md"}},
	{provider: Cursor, keywords: []string{"cursor"}, dirPrefixes: []string{".cursor/"}, exactFiles: []string{".cursorrules"}},
	{provider: Windsurf, keywords: []string{"windsurf", "codeium"}, dirPrefixes: []string{".windsurf/"}, exactFiles: []string{".windsurfrules"}},
	{provider: Antigravity, keywords: []string{"antigravity"}, dirPrefixes: []string{".antigravity/"}},
}

// Detect returns the sorted set of providers targeted by a bundle, given
// its manifest's compatibility string and the full list of member paths.
// Detection is deterministic and order-independent in memberPaths. An empty
// union returns ["generic"].
func Detect(compatibility string, memberPaths []string) []Provider {
	compat := strings.ToLower(compatibility)
	hit := make(map[Provider]bool)

	for _, e := range table {
		if matchesKeyword(compat, e.keywords) || matchesPath(memberPaths, e.dirPrefixes, e.exactFiles) {
			hit[e.provider] = true
		}
	}

	if len(hit) == 0 {
		return []Provider{Generic}
	}

	out := make([]Provider, 0, len(hit))
	for p := range hit {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func matchesKeyword(compat string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(compat, kw) {
			return true
		}
	}
	return false
}

func matchesPath(memberPaths []string, dirPrefixes, exactFiles []string) bool {
	for _, p := range memberPaths {
		for _, prefix := range dirPrefixes {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		for _, exact := range exactFiles {
			if p == exact {
				return true
			}
		}
	}
	return false
}

// Contains reports whether set includes p.
func Contains(set []Provider, p Provider) bool {
	for _, s := range set {
		if s == p {
			return true
		}
	}
	return false
}

// ParseList splits, trims, dedupes, and sorts a comma-separated provider
// list supplied by a publisher to override detection.
func ParseList(raw string) []Provider {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[Provider]bool, len(parts))
	var out []Provider
	for _, part := range parts {
		p := Provider(strings.ToLower(strings.TrimSpace(part)))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StringSlice renders a provider set as plain strings, for JSON encoding
// and storage.
func StringSlice(set []Provider) []string {
	out := make([]string, len(set))
	for i, p := range set {
		out[i] = string(p)
	}
	return out
}
