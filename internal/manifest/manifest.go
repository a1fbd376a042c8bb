// Package manifest parses and validates a SKILL.md manifest: YAML
// frontmatter followed by a Markdown body.
package manifest

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// maxFrontmatterSize bounds the frontmatter YAML block, independent of the
// overall bundle decompression limit enforced by the extractor.
const maxFrontmatterSize = 64 * 1024

// ParseError is a validation failure produced by the manifest parser. Its
// Message is safe to surface directly to the client.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// stringOrSlice unmarshals a YAML scalar (comma- or whitespace-separated)
// or a YAML sequence into a string slice.
type stringOrSlice []string

func (s *stringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		str := value.Value
		if str == "" {
			*s = nil
			return nil
		}
		var parts []string
		if strings.Contains(str, ",") {
			parts = strings.Split(str, ",")
		} else {
			parts = strings.Fields(str)
		}
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*s = result
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("decoding tags array: %w", err)
		}
		*s = arr
		return nil
	default:
		return fmt.Errorf("tags: expected string or array")
	}
}

// frontmatter is the raw YAML shape of a SKILL.md header. Required fields
// are typed as yaml.Node so a missing or non-string value can be detected
// and reported distinctly from a merely invalid one.
type frontmatter struct {
	Name             yaml.Node     `yaml:"name"`
	Version          yaml.Node     `yaml:"version"`
	Description      yaml.Node     `yaml:"description"`
	Author           yaml.Node     `yaml:"author"`
	Tags             stringOrSlice `yaml:"tags,omitempty"`
	License          string        `yaml:"license,omitempty"`
	MinAgentVersion  string        `yaml:"min_agent_version,omitempty"`
	Compatibility    string        `yaml:"compatibility,omitempty"`
}

// ParsedManifest is the validated result of parsing a SKILL.md file.
type ParsedManifest struct {
	Name             string
	Version          string
	Description      string
	Author           string
	Tags             []string
	License          string
	MinAgentVersion  string
	Compatibility    string
	Body             string
	// Metadata is the full frontmatter mapping, including unknown keys,
	// preserved verbatim for round-tripping.
	Metadata map[string]any
}

var (
	nameRe = regexp.MustCompile(`^[a-z0-9-]+$`)
	tagRe  = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
)

// Parse extracts frontmatter and body from content and validates the
// required fields, returning a *ParseError for any violation.
func Parse(content []byte) (*ParsedManifest, error) {
	fmBytes, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}
	if len(fmBytes) > maxFrontmatterSize {
		return nil, parseErrorf("Frontmatter exceeds maximum size of %d bytes", maxFrontmatterSize)
	}

	var fm frontmatter
	if err := yaml.Unmarshal(fmBytes, &fm); err != nil {
		return nil, parseErrorf("Invalid frontmatter YAML: %v", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(fmBytes, &raw); err != nil {
		return nil, parseErrorf("Invalid frontmatter YAML: %v", err)
	}

	name, err := requiredString(fm.Name, "name")
	if err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	version, err := requiredString(fm.Version, "version")
	if err != nil {
		return nil, err
	}
	if _, err := semver.StrictNewVersion(version); err != nil {
		return nil, parseErrorf("version %q does not parse as semver: %v", version, err)
	}

	description, err := requiredString(fm.Description, "description")
	if err != nil {
		return nil, err
	}
	if l := len(description); l < 1 || l > 256 {
		return nil, parseErrorf("description must be 1-256 characters, got %d", l)
	}

	author, err := requiredString(fm.Author, "author")
	if err != nil {
		return nil, err
	}

	if len(fm.Tags) > 10 {
		return nil, parseErrorf("at most 10 tags are allowed, got %d", len(fm.Tags))
	}
	for _, tag := range fm.Tags {
		if !tagRe.MatchString(tag) {
			return nil, parseErrorf("tag %q must match [a-z0-9-]{1,32}", tag)
		}
	}

	return &ParsedManifest{
		Name:            name,
		Version:         version,
		Description:     description,
		Author:          author,
		Tags:            []string(fm.Tags),
		License:         fm.License,
		MinAgentVersion: fm.MinAgentVersion,
		Compatibility:   fm.Compatibility,
		Body:            body,
		Metadata:        raw,
	}, nil
}

// validateName enforces the skill name charset, length, and hyphen rules,
// returning a distinct, grep-friendly message per violation.
func validateName(name string) error {
	if l := len(name); l < 3 || l > 64 {
		return parseErrorf("name must be 3-64 characters, got %d", l)
	}
	if !nameRe.MatchString(name) {
		return parseErrorf("name must match [a-z0-9-]")
	}
	if strings.Contains(name, "--") {
		return parseErrorf("name must not contain consecutive hyphens")
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return parseErrorf("name must not have a leading or trailing hyphen")
	}
	return nil
}

// requiredString extracts a string scalar from a YAML node, reporting a
// ParseError when the field is absent or not a string.
func requiredString(node yaml.Node, field string) (string, error) {
	if node.Kind == 0 {
		return "", parseErrorf("%s is required", field)
	}
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return "", parseErrorf("%s must be a string", field)
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return "", parseErrorf("%s must be a string", field)
	}
	if s == "" {
		return "", parseErrorf("%s is required", field)
	}
	return s, nil
}

// splitFrontmatter separates the YAML frontmatter block from the Markdown
// body of a SKILL.md file.
func splitFrontmatter(content []byte) (fmBytes []byte, body string, err error) {
	content = bytes.TrimSpace(content)

	delimiter := []byte("---")
	if !bytes.HasPrefix(content, delimiter) {
		return nil, "", parseErrorf("SKILL.md must start with YAML frontmatter (---)")
	}

	rest := content[len(delimiter):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	endIdx := bytes.Index(rest, delimiter)
	if endIdx == -1 {
		return nil, "", parseErrorf("SKILL.md frontmatter missing closing delimiter (---)")
	}

	fmBytes = rest[:endIdx]
	body = strings.TrimSpace(string(rest[endIdx+len(delimiter):]))
	return fmBytes, body, nil
}
