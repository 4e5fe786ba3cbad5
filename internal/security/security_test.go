package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func mustTempDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	// Ensure real path (EvalSymlinks on macOS can change /var -> /private/var)
	real, err := filepath.EvalSymlinks(d)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	return real
}

func writeWorkbook(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

func TestNewManager_ValidateConfig(t *testing.T) {
	dir := mustTempDir(t)
	m, err := NewManager([]string{dir}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ValidateConfig(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	if got := len(m.AllowedDirectories()); got != 1 {
		t.Fatalf("allowed dirs len = %d, want 1", got)
	}
}

func TestValidateConfig_EmptyAllowListDenies(t *testing.T) {
	m, err := NewManager(nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ValidateConfig(); err == nil {
		t.Fatal("expected error for empty allow-list")
	}
}

func TestValidateOpenPath_AllowsWithinRoot(t *testing.T) {
	root := mustTempDir(t)
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fpath := writeWorkbook(t, sub, "ok.xlsx")

	m, err := NewManager([]string{root}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	got, err := m.ValidateOpenPath(fpath)
	if err != nil {
		t.Fatalf("validate path: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path, got %q", got)
	}
}

func TestValidateOpenPath_DeniesOutsideRoot(t *testing.T) {
	root := mustTempDir(t)
	other := mustTempDir(t)
	fpath := writeWorkbook(t, other, "outside.xlsx")

	m, err := NewManager([]string{root}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.ValidateOpenPath(fpath); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("want ErrNotAllowed, got %v", err)
	}
}

func TestValidateOpenPath_RejectsUnsupportedExtension(t *testing.T) {
	root := mustTempDir(t)
	fpath := writeWorkbook(t, root, "data.csv")

	m, err := NewManager([]string{root}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.ValidateOpenPath(fpath); !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("want ErrUnsupportedExtension, got %v", err)
	}
}

func TestValidateOpenPath_MissingFile(t *testing.T) {
	root := mustTempDir(t)
	m, err := NewManager([]string{root}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.ValidateOpenPath(filepath.Join(root, "gone.xlsx")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
