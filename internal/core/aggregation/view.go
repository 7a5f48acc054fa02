package aggregation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"gopkg.in/yaml.v3"
)

// Built-in view names.
const (
	ViewCategory     = "category"
	ViewManufacturer = "manufacturer"
)

// ViewDefinition names a grouping over which monthly growth is reported.
// Views are loaded at startup from YAML files and fingerprinted so responses
// can be traced to the definition that produced them.
type ViewDefinition struct {
	Name        string
	KeyColumns  []string
	LabelColumn string // column used to order and label latest-period rows
	YoYLag      int
	Fingerprint string // SHA-256 of the raw YAML file; empty for built-ins
}

// rawView is the on-disk YAML shape.
type rawView struct {
	Name        string   `yaml:"name"`
	KeyColumns  []string `yaml:"key_columns"`
	LabelColumn string   `yaml:"label_column"` // optional; defaults to the last key column
	YoYLag      int      `yaml:"yoy_lag"`      // optional; defaults to 12
}

// GroupsBy reports whether column is one of the view's key columns.
func (v ViewDefinition) GroupsBy(column string) bool {
	for _, c := range v.KeyColumns {
		if c == column {
			return true
		}
	}
	return false
}

// DefaultViews returns the views served when no view files are configured.
func DefaultViews() []ViewDefinition {
	return []ViewDefinition{
		{
			Name:        ViewCategory,
			KeyColumns:  []string{v1.ColumnVehicleClass},
			LabelColumn: v1.ColumnVehicleClass,
			YoYLag:      DefaultYoYLag,
		},
		{
			Name:        ViewManufacturer,
			KeyColumns:  []string{v1.ColumnVehicleClass, v1.ColumnManufacturer},
			LabelColumn: v1.ColumnManufacturer,
			YoYLag:      DefaultYoYLag,
		},
	}
}

// ViewRepository defines the interface for looking up view definitions.
type ViewRepository interface {
	// Get returns the view with the given name, or an error if not found.
	Get(ctx context.Context, name string) (*ViewDefinition, error)

	// GetViews returns all views ordered by name.
	GetViews() []ViewDefinition
}

// FileSystemViewRepository loads view definitions from *.yaml files in a directory.
// Each file holds exactly one view. When the directory is missing or holds no
// views, DefaultViews are served.
type FileSystemViewRepository struct {
	dir   string
	views map[string]ViewDefinition // keyed by Name
}

// NewFileSystemViewRepository creates a repository and eagerly loads every view in dir.
// Returns an error if any view file is malformed or invalid.
func NewFileSystemViewRepository(dir string) (*FileSystemViewRepository, error) {
	repo := &FileSystemViewRepository{
		dir:   dir,
		views: make(map[string]ViewDefinition),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	if len(repo.views) == 0 {
		for _, v := range DefaultViews() {
			repo.views[v.Name] = v
		}
	}
	return repo, nil
}

func (r *FileSystemViewRepository) load() error {
	if r.dir == "" {
		return nil
	}
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("analytics view dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("analytics view path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading analytics view dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading view file %s: %w", path, err)
		}

		var raw rawView
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing view file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // comment-only file
		}

		view, err := compileView(raw)
		if err != nil {
			return err
		}
		view.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := r.views[view.Name]; exists {
			return fmt.Errorf("view %q: duplicate view name (check multiple YAML files)", view.Name)
		}
		r.views[view.Name] = view
	}
	return nil
}

func compileView(raw rawView) (ViewDefinition, error) {
	if len(raw.KeyColumns) == 0 {
		return ViewDefinition{}, fmt.Errorf("view %q: key_columns must not be empty", raw.Name)
	}
	seen := make(map[string]bool, len(raw.KeyColumns))
	for _, col := range raw.KeyColumns {
		if !v1.IsDimension(col) {
			return ViewDefinition{}, fmt.Errorf("view %q: unsupported key column %q", raw.Name, col)
		}
		if seen[col] {
			return ViewDefinition{}, fmt.Errorf("view %q: key column %q listed twice", raw.Name, col)
		}
		seen[col] = true
	}

	label := raw.LabelColumn
	if label == "" {
		label = raw.KeyColumns[len(raw.KeyColumns)-1]
	}
	if !seen[label] {
		return ViewDefinition{}, fmt.Errorf("view %q: label_column %q is not a key column", raw.Name, label)
	}

	lag := raw.YoYLag
	if lag == 0 {
		lag = DefaultYoYLag
	}
	if lag < 0 {
		return ViewDefinition{}, fmt.Errorf("view %q: yoy_lag must be positive, got %d", raw.Name, lag)
	}

	return ViewDefinition{
		Name:        raw.Name,
		KeyColumns:  append([]string(nil), raw.KeyColumns...),
		LabelColumn: label,
		YoYLag:      lag,
	}, nil
}

// Get returns the view with the given name, or an error if not found.
func (r *FileSystemViewRepository) Get(_ context.Context, name string) (*ViewDefinition, error) {
	view, ok := r.views[name]
	if !ok {
		return nil, fmt.Errorf("analytics view %q not found", name)
	}
	return &view, nil
}

// GetViews returns all views ordered by name.
func (r *FileSystemViewRepository) GetViews() []ViewDefinition {
	views := make([]ViewDefinition, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}
