// Package cluster is the on-disk registry of clusters: one directory per
// cluster under a common root, holding the materialized template, the
// persisted parameters, the per-repository env files and the activity log.
package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vietdv277/cirrus/internal/activity"
	"github.com/vietdv277/cirrus/pkg/types"
)

// Layout of a cluster directory
const (
	TemplateDirName = "template"
	ParamsFileName  = "params.json"
	LocksDirName    = ".locks"
)

// Repository errors
var (
	ErrInvalidName    = errors.New("invalid cluster name")
	ErrExists         = errors.New("cluster already exists")
	ErrNotFound       = errors.New("cluster not found")
	ErrParamsNotFound = errors.New("cluster params not found")
	ErrLocked         = errors.New("cluster is locked by another operation")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,62}$`)

// ValidateName checks that name is usable as a directory key
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (letters, digits, '-' and '_', max 63 characters)", ErrInvalidName, name)
	}
	return nil
}

// Repository stores clusters below a root directory
type Repository struct {
	root string
}

// NewRepository creates a repository rooted at root
func NewRepository(root string) *Repository {
	return &Repository{root: root}
}

// Root returns the clusters directory
func (r *Repository) Root() string {
	return r.root
}

// Path returns the directory of a cluster
func (r *Repository) Path(name string) string {
	return filepath.Join(r.root, name)
}

// TemplateDir returns the materialized template of a cluster
func (r *Repository) TemplateDir(name string) string {
	return filepath.Join(r.Path(name), TemplateDirName)
}

// ParamsPath returns the params file of a cluster
func (r *Repository) ParamsPath(name string) string {
	return filepath.Join(r.Path(name), ParamsFileName)
}

// ActivityPath returns the activity log file of a cluster
func (r *Repository) ActivityPath(name string) string {
	return filepath.Join(r.Path(name), activity.FileName)
}

// Activity returns the activity log of a cluster
func (r *Repository) Activity(name string, opts ...activity.Option) *activity.Log {
	return activity.New(r.ActivityPath(name), opts...)
}

// Exists reports whether the cluster directory exists
func (r *Repository) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(r.Path(name))
	return err == nil && info.IsDir()
}

// HasTemplate reports whether the cluster has a materialized template
func (r *Repository) HasTemplate(name string) bool {
	info, err := os.Stat(r.TemplateDir(name))
	return err == nil && info.IsDir()
}

// Create makes the cluster directory. The mkdir is exclusive, so a
// concurrent creation of the same name fails with ErrExists.
func (r *Repository) Create(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("failed to create clusters directory: %w", err)
	}
	if err := os.Mkdir(r.Path(name), 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return fmt.Errorf("failed to create cluster directory: %w", err)
	}
	return nil
}

// Remove deletes the cluster directory and everything below it
func (r *Repository) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.RemoveAll(r.Path(name)); err != nil {
		return fmt.Errorf("failed to remove cluster directory: %w", err)
	}
	return nil
}

// List returns the sorted names of all clusters
func (r *Repository) List() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ModTime returns the last modification time of the cluster's params,
// falling back to the directory itself
func (r *Repository) ModTime(name string) time.Time {
	if info, err := os.Stat(r.ParamsPath(name)); err == nil {
		return info.ModTime()
	}
	if info, err := os.Stat(r.Path(name)); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}

// WriteParams persists v as indented JSON
func (r *Repository) WriteParams(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	return r.WriteRawParams(name, data)
}

// WriteRawParams atomically replaces the params file with data
func (r *Repository) WriteRawParams(name string, data []byte) error {
	if !json.Valid(data) {
		return errors.New("params must be valid JSON")
	}
	if err := writeFileAtomic(r.ParamsPath(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write params: %w", err)
	}
	return nil
}

// ReadRawParams returns the params file as stored
func (r *Repository) ReadRawParams(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.ParamsPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrParamsNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read params: %w", err)
	}
	return data, nil
}

// ReadParams decodes the params file
func (r *Repository) ReadParams(name string) (*types.ClusterParams, error) {
	data, err := r.ReadRawParams(name)
	if err != nil {
		return nil, err
	}
	return ParseParams(data)
}

// writeFileAtomic writes to a temporary file in the target directory and
// renames it into place, so readers never observe a partial file
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}
