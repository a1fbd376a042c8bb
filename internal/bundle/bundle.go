// Package bundle extracts an untrusted .tar.gz archive into a scoped
// temporary workspace, enforcing size and path-traversal limits before any
// byte reaches the manifest parser.
package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseError is a validation failure in extraction. Its Message is safe to
// surface directly to the client.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// Limits bounds the resources an extraction may consume.
type Limits struct {
	MaxDecompressed int64
}

// Workspace is an extracted bundle's temporary directory and manifest
// location. Release must be called on every code path, including error
// returns from Extract's caller, to guarantee workspace cleanup.
type Workspace struct {
	Dir          string
	ManifestPath string
	// MemberPaths lists every regular file extracted, normalized with any
	// leading "./" stripped.
	MemberPaths []string
}

// Release removes the workspace directory. Safe to call multiple times.
func (w *Workspace) Release() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// Extract streams raw into a fresh temporary workspace and locates SKILL.md
// at the archive root or one directory deep. The caller owns the returned
// Workspace and must call Release on it, even on a later error.
func Extract(raw []byte, limits Limits) (*Workspace, error) {
	tmpdir, err := os.MkdirTemp("", "skill-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("bundle: creating workspace: %w", err)
	}
	ws := &Workspace{Dir: tmpdir}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		_ = ws.Release()
		return nil, parseErrorf("Invalid .tar.gz file")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var total int64
	var members []string

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = ws.Release()
			return nil, parseErrorf("Invalid .tar.gz file")
		}

		name := normalizeMemberName(hdr.Name)
		if name == "" || name == "." {
			continue
		}

		target := filepath.Join(tmpdir, filepath.FromSlash(name))
		if !isWithin(tmpdir, target) {
			_ = ws.Release()
			return nil, parseErrorf("Path traversal detected: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				_ = ws.Release()
				return nil, fmt.Errorf("bundle: creating directory %s: %w", name, err)
			}
			continue
		case tar.TypeReg:
			total += hdr.Size
			if total > limits.MaxDecompressed {
				_ = ws.Release()
				return nil, parseErrorf("Decompressed size exceeds limit of %d bytes", limits.MaxDecompressed)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				_ = ws.Release()
				return nil, fmt.Errorf("bundle: creating parent directory for %s: %w", name, err)
			}
			if err := writeRegularFile(target, tr, hdr.Size); err != nil {
				_ = ws.Release()
				return nil, err
			}
			members = append(members, name)
		default:
			// Device nodes, symlinks, setuid bits, and any other special
			// member type are silently skipped: only plain files and
			// directories are extracted.
			continue
		}
	}

	manifestPath, err := findManifest(tmpdir, members)
	if err != nil {
		_ = ws.Release()
		return nil, err
	}

	ws.ManifestPath = manifestPath
	ws.MemberPaths = members
	return ws, nil
}

// findManifest locates SKILL.md at the archive root or exactly one
// directory below it.
func findManifest(tmpdir string, members []string) (string, error) {
	for _, m := range members {
		if m == "SKILL.md" {
			return filepath.Join(tmpdir, "SKILL.md"), nil
		}
	}
	for _, m := range members {
		parts := strings.Split(m, "/")
		if len(parts) == 2 && parts[1] == "SKILL.md" {
			return filepath.Join(tmpdir, filepath.FromSlash(m)), nil
		}
	}
	return "", parseErrorf("No SKILL.md found in bundle")
}

func writeRegularFile(target string, r io.Reader, size int64) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("bundle: opening %s: %w", target, err)
	}
	defer f.Close()
	if _, err := io.CopyN(f, r, size); err != nil && err != io.EOF {
		return fmt.Errorf("bundle: writing %s: %w", target, err)
	}
	return nil
}

// normalizeMemberName strips a leading "./" and any leading slash, the way
// tar archives commonly encode root-relative paths.
func normalizeMemberName(name string) string {
	name = filepath.ToSlash(name)
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	return name
}

// isWithin reports whether target, once resolved, remains inside root.
func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
