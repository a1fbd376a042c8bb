package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `---
name: pdf-summarizer
version: 1.2.0
description: Summarizes PDF documents into bullet points.
author: alice
tags: pdf, summarization
compatibility: claude,cursor
---

# PDF Summarizer

Does the thing.
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	require.NoError(t, err)
	assert.Equal(t, "pdf-summarizer", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "alice", m.Author)
	assert.Equal(t, []string{"pdf", "summarization"}, m.Tags)
	assert.Contains(t, m.Body, "# PDF Summarizer")
	assert.Equal(t, "pdf-summarizer", m.Metadata["name"])
}

func TestParseTagsAsSequence(t *testing.T) {
	content := `---
name: seq-tags
version: 1.0.0
description: uses a YAML sequence for tags
author: bob
tags:
  - one
  - two
---
body
`
	m, err := Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, m.Tags)
}

func TestParseRejectsMissingFrontmatterDelimiter(t *testing.T) {
	_, err := Parse([]byte("name: no-delimiters\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML frontmatter")
}

func TestParseRejectsMissingRequiredField(t *testing.T) {
	content := `---
version: 1.0.0
description: missing a name
author: carol
---
body
`
	_, err := Parse([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestParseRejectsInvalidSemver(t *testing.T) {
	content := `---
name: bad-version
version: not-a-version
description: d
author: carol
---
body
`
	_, err := Parse([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semver")
}

func TestParseRejectsTooManyTags(t *testing.T) {
	content := "---\nname: too-many-tags\nversion: 1.0.0\ndescription: d\nauthor: carol\ntags: a,b,c,d,e,f,g,h,i,j,k\n---\nbody\n"
	_, err := Parse([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 10 tags")
}

func TestValidateNameRules(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"valid-name", false},
		{"ab", true},               // too short
		{"Invalid-Case", true},     // uppercase
		{"double--hyphen", true},   // consecutive hyphens
		{"-leading", true},         // leading hyphen
		{"trailing-", true},        // trailing hyphen
	}
	for _, tc := range cases {
		err := validateName(tc.name)
		if tc.wantErr {
			assert.Error(t, err, tc.name)
		} else {
			assert.NoError(t, err, tc.name)
		}
	}
}
