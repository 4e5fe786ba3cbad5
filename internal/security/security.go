// Package security enforces the filesystem allow-list for the local
// workbook backend: requested paths must resolve inside configured roots
// and carry a supported spreadsheet extension.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotAllowed indicates the requested path is outside the allow-list roots.
var ErrNotAllowed = errors.New("security: path not allowed")

// ErrUnsupportedExtension indicates an unsupported workbook extension.
var ErrUnsupportedExtension = errors.New("security: unsupported file extension")

// ErrNotFound indicates the requested file does not exist.
var ErrNotFound = errors.New("security: file not found")

// Manager validates workbook paths against canonical allow-list roots.
type Manager struct {
	allowedDirs []string
	allowedExts map[string]struct{}
}

// NewManager canonicalizes the allow-list directories (absolute path +
// symlink resolution) and records the permitted extensions.
func NewManager(allowDirs []string, allowedExtensions []string) (*Manager, error) {
	if len(allowedExtensions) == 0 {
		allowedExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}
	}

	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, e := range allowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("security: invalid extension: %q", e)
		}
		exts[e] = struct{}{}
	}

	canonical := make([]string, 0, len(allowDirs))
	for _, d := range allowDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("security: resolve abs for %q: %w", d, err)
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("security: stat %q: %w", real, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("security: allow-list entry is not a directory: %q", real)
		}
		canonical = append(canonical, filepath.Clean(real))
	}

	return &Manager{allowedDirs: canonical, allowedExts: exts}, nil
}

// NewManagerFromEnv reads MCPTAB_ALLOWED_DIRS as an os.PathListSeparator
// separated list. An empty variable yields an empty allow-list
// (deny-by-default).
func NewManagerFromEnv() (*Manager, error) {
	list := os.Getenv("MCPTAB_ALLOWED_DIRS")
	var dirs []string
	if list != "" {
		dirs = filepath.SplitList(list)
	}
	return NewManager(dirs, nil)
}

// AllowedDirectories returns the canonical allow-list roots.
func (m *Manager) AllowedDirectories() []string {
	out := make([]string, len(m.allowedDirs))
	copy(out, m.allowedDirs)
	return out
}

// ValidateConfig fails when no allow-list entries are configured, so the
// server refuses file operations until an operator names directories.
func (m *Manager) ValidateConfig() error {
	if len(m.allowedDirs) == 0 {
		return errors.New("security: no allowed directories configured")
	}
	return nil
}

// ValidateOpenPath ensures the path refers to an existing file with an
// allowed extension inside one of the allow-list roots, returning the
// canonical absolute path.
func (m *Manager) ValidateOpenPath(input string) (string, error) {
	if input == "" {
		return "", ErrNotAllowed
	}
	ext := strings.ToLower(filepath.Ext(input))
	if _, ok := m.allowedExts[ext]; !ok {
		return "", ErrUnsupportedExtension
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}

	info, err := os.Stat(real)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotAllowed
	}

	for _, root := range m.allowedDirs {
		rel, err := filepath.Rel(root, real)
		if err != nil {
			continue
		}
		if rel == "." || rel == "" {
			continue
		}
		if !strings.HasPrefix(rel, "..") && !strings.HasPrefix(filepath.Clean(rel), "..") {
			return real, nil
		}
	}
	return "", ErrNotAllowed
}
