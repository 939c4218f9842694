package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Category names the artifact kinds a run produces.
type Category string

const (
	Assets         Category = "assets"
	Understandings Category = "understandings"
	Scripts        Category = "scripts"
	Clips          Category = "clips"
	Prompts        Category = "prompts"
	Log            Category = "log"
)

var categories = []Category{Assets, Understandings, Scripts, Clips, Prompts, Log}

// Workspace is one run's artifact tree, rooted at Base. It is a plain
// value: two workspaces with different bases never share state, and
// nothing here touches globals or the process working directory.
type Workspace struct {
	Base string
}

func New(base string) Workspace {
	return Workspace{Base: base}
}

// Init creates the category tree. Idempotent.
func (w Workspace) Init() error {
	for _, c := range categories {
		if err := os.MkdirAll(w.Dir(c), 0o755); err != nil {
			return fmt.Errorf("init workspace: %w", err)
		}
	}
	return nil
}

// Dir returns the directory for one category.
func (w Workspace) Dir(c Category) string {
	return filepath.Join(w.Base, string(c))
}

// Path returns the full path of a named artifact in a category.
func (w Workspace) Path(c Category, name string) string {
	return filepath.Join(w.Dir(c), name)
}

// Save writes an artifact, creating the category dir if needed.
func (w Workspace) Save(c Category, name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.Dir(c), 0o755); err != nil {
		return "", err
	}
	path := w.Path(c, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save %s/%s: %w", c, name, err)
	}
	return path, nil
}

// Load reads an artifact back.
func (w Workspace) Load(c Category, name string) ([]byte, error) {
	b, err := os.ReadFile(w.Path(c, name))
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", c, name, err)
	}
	return b, nil
}

// Remove deletes the whole workspace tree.
func (w Workspace) Remove() error {
	return os.RemoveAll(w.Base)
}
