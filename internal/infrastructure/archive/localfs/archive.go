// Package localfs resolves document paths against a local archive directory.
package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

type Archive struct {
	root string
}

func New(root string) (*Archive, error) {
	if root == "" {
		root = "./data/archive"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root: %w", err)
	}
	return &Archive{root: abs}, nil
}

// Resolve maps a caller-supplied relative path onto the archive root. Paths
// that escape the root are rejected before any filesystem access.
func (a *Archive) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve document path", fmt.Errorf("empty path"))
	}
	if filepath.IsAbs(rel) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve document path", fmt.Errorf("absolute path %q", rel))
	}

	full := filepath.Join(a.root, filepath.FromSlash(rel))
	cleaned := filepath.Clean(full)
	if cleaned != a.root && !strings.HasPrefix(cleaned, a.root+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve document path", fmt.Errorf("path %q escapes archive root", rel))
	}
	return cleaned, nil
}
