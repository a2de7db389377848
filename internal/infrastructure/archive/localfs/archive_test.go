package localfs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

func TestResolveJoinsUnderRoot(t *testing.T) {
	root := t.TempDir()
	archive, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := archive.Resolve("manuals/chiller.pdf")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := filepath.Join(root, "manuals", "chiller.pdf")
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	archive, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, rel := range []string{"../outside.pdf", "manuals/../../etc/passwd", ""} {
		if _, err := archive.Resolve(rel); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Resolve(%q): expected invalid input, got %v", rel, err)
		}
	}
}

func TestResolveRejectsAbsolutePaths(t *testing.T) {
	archive, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := archive.Resolve("/etc/passwd"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
