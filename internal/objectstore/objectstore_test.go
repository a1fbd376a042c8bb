package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBundleKeyFormat(t *testing.T) {
	assert.Equal(t, "pdf-summarizer/1.2.0.tar.gz", BundleKey("pdf-summarizer", "1.2.0"))
}

func TestBundleKeyDistinctVersionsDistinctKeys(t *testing.T) {
	a := BundleKey("pdf-summarizer", "1.0.0")
	b := BundleKey("pdf-summarizer", "2.0.0")
	assert.NotEqual(t, a, b)
}
