package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name string
	body string
	dir  bool
}

func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if e.dir {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.name, Typeflag: tar.TypeDir, Mode: 0o755}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(e.body)),
		}))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestExtractFindsManifestAtRoot(t *testing.T) {
	raw := buildTarGz(t, []tarEntry{
		{name: "SKILL.md", body: "---\nname: x\n---\nbody"},
		{name: "scripts/run.py", body: "print(1)"},
	})

	ws, err := Extract(raw, Limits{MaxDecompressed: 1 << 20})
	require.NoError(t, err)
	defer ws.Release()

	assert.Equal(t, filepath.Join(ws.Dir, "SKILL.md"), ws.ManifestPath)
	assert.ElementsMatch(t, []string{"SKILL.md", "scripts/run.py"}, ws.MemberPaths)

	content, err := os.ReadFile(ws.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: x")
}

func TestExtractFindsManifestOneDirectoryDeep(t *testing.T) {
	raw := buildTarGz(t, []tarEntry{
		{name: "my-skill/", dir: true},
		{name: "my-skill/SKILL.md", body: "---\nname: x\n---\nbody"},
	})

	ws, err := Extract(raw, Limits{MaxDecompressed: 1 << 20})
	require.NoError(t, err)
	defer ws.Release()

	assert.Equal(t, filepath.Join(ws.Dir, "my-skill", "SKILL.md"), ws.ManifestPath)
}

func TestExtractRejectsMissingManifest(t *testing.T) {
	raw := buildTarGz(t, []tarEntry{{name: "README.md", body: "no manifest here"}})

	_, err := Extract(raw, Limits{MaxDecompressed: 1 << 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No SKILL.md")
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	raw := buildTarGz(t, []tarEntry{{name: "../../etc/passwd", body: "pwned"}})

	_, err := Extract(raw, Limits{MaxDecompressed: 1 << 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")
}

func TestExtractRejectsOverDecompressedLimit(t *testing.T) {
	raw := buildTarGz(t, []tarEntry{
		{name: "SKILL.md", body: "---\nname: x\n---\nbody"},
		{name: "big.bin", body: string(make([]byte, 1024))},
	})

	_, err := Extract(raw, Limits{MaxDecompressed: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Decompressed size exceeds")
}

func TestExtractRejectsInvalidGzip(t *testing.T) {
	_, err := Extract([]byte("not a gzip file"), Limits{MaxDecompressed: 1 << 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid .tar.gz")
}
