package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxPathLen = 4096

var (
	ErrEmptyPath   = errors.New("path cannot be empty")
	ErrTraversal   = errors.New("directory traversal not allowed")
	ErrBadChars    = errors.New("path contains null bytes or control characters")
	ErrOutsideRoot = errors.New("path not within allowed directories")
)

// Policy decides which paths convo may touch and returns them in
// absolute, cleaned form.
type Policy struct {
	// Roots confines paths to these trees. Empty allows any tree.
	Roots      []string
	ExpandHome bool
	MaxLen     int
}

// ConfinedPolicy allows convo's data and config directories and the temp
// dir.
func ConfinedPolicy() *Policy {
	home, _ := os.UserHomeDir()
	return &Policy{
		Roots: []string{
			filepath.Join(home, ".convo"),
			filepath.Join(home, ".config", "convo"),
			os.TempDir(),
		},
		ExpandHome: true,
		MaxLen:     maxPathLen,
	}
}

// OpenPolicy accepts any well-formed path.
func OpenPolicy() *Policy {
	return &Policy{ExpandHome: true, MaxLen: maxPathLen}
}

// Clean checks path and resolves it.
func (p *Policy) Clean(path string) (string, error) {
	switch {
	case path == "":
		return "", ErrEmptyPath
	case p.MaxLen > 0 && len(path) > p.MaxLen:
		return "", fmt.Errorf("path too long (max %d characters)", p.MaxLen)
	}
	if strings.ContainsFunc(path, func(r rune) bool { return r < 32 && r != '\t' }) {
		return "", ErrBadChars
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", ErrTraversal
		}
	}

	abs, err := p.resolve(path)
	if err != nil {
		return "", err
	}
	if !p.within(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	return abs, nil
}

func (p *Policy) resolve(path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		if !p.ExpandHome || !strings.HasPrefix(rest, "/") {
			return "", fmt.Errorf("cannot expand %q", path)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home: %w", err)
		}
		path = filepath.Join(home, rest[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

func (p *Policy) within(abs string) bool {
	if len(p.Roots) == 0 {
		return true
	}
	for _, root := range p.Roots {
		r, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(r, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Dir cleans path and checks it is not a file. A missing directory is
// created when create is set and left alone otherwise.
func (p *Policy) Dir(path string, create bool) (string, error) {
	abs, err := p.Clean(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		if create {
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return "", fmt.Errorf("creating %s: %w", abs, err)
			}
		}
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// File cleans path and checks it is not a directory. The file need not
// exist.
func (p *Policy) File(path string) (string, error) {
	abs, err := p.Clean(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("is a directory: %s", abs)
	}
	return abs, nil
}
